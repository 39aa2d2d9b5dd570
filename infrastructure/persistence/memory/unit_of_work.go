package memory

import (
	"context"
	"time"

	"trackd-backend/application/ports"
	"trackd-backend/domain/config"
	"trackd-backend/domain/events"
	pkgerrors "trackd-backend/pkg/errors"
	"trackd-backend/pkg/observability"

	"go.uber.org/zap"
)

// UnitOfWork opens in-memory transactional scopes over a Store
type UnitOfWork struct {
	store   *Store
	bus     ports.EventBus
	cfg     *config.Holder
	logger  *zap.Logger
	metrics *observability.ScopeMetrics
}

// NewUnitOfWork creates a unit-of-work factory. bus and metrics may be nil.
func NewUnitOfWork(
	store *Store,
	bus ports.EventBus,
	cfg *config.Holder,
	logger *zap.Logger,
	metrics *observability.ScopeMetrics,
) *UnitOfWork {
	if cfg == nil {
		cfg = config.NewHolder(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitOfWork{
		store:   store,
		bus:     bus,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// Begin opens a new scope. Each use case gets exactly one; the scope is owned
// by the calling goroutine and must not be shared. The scope pins the config
// that was active when it opened, so a live reload never changes limits
// mid-transaction.
func (u *UnitOfWork) Begin(_ context.Context, opts ports.ScopeOptions) (ports.Scope, error) {
	return &Scope{
		store:   u.store,
		bus:     u.bus,
		cfg:     u.cfg.Current(),
		logger:  u.logger,
		metrics: u.metrics,
		opts:    opts,
		state:   ports.StateActive,
	}, nil
}

// eventSource is the slice of an aggregate root the scope needs for event
// draining after commit.
type eventSource interface {
	UncommittedEvents() []events.DomainEvent
	MarkEventsCommitted()
}

// Scope is the in-memory implementation of ports.Scope. Repository calls
// register their mutations here; Complete hands them to the store as one
// atomic flush in issuance order.
type Scope struct {
	store   *Store
	bus     ports.EventBus
	cfg     *config.DomainConfig
	logger  *zap.Logger
	metrics *observability.ScopeMetrics
	opts    ports.ScopeOptions

	state         ports.ScopeState
	poisoned      bool // an inner scope was abandoned; only rollback remains
	mutations     []mutation
	pendingEvents []events.DomainEvent
}

var _ ports.Scope = (*Scope)(nil)

// Issues returns the issue repository bound to this scope
func (s *Scope) Issues() ports.IssueRepository {
	return &issueRepository{scope: s}
}

// Milestones returns the milestone repository bound to this scope
func (s *Scope) Milestones() ports.MilestoneRepository {
	return &milestoneRepository{scope: s}
}

// Begin opens a nested scope that joins this one. The nested handle shares
// all state with its root; only the outermost Complete commits.
func (s *Scope) Begin(_ ports.ScopeOptions) (ports.Scope, error) {
	if s.state != ports.StateActive {
		return nil, pkgerrors.NewInternal("cannot nest into a scope that is not active", nil)
	}
	return &nestedScope{root: s}, nil
}

// State reports where the scope is in its lifecycle
func (s *Scope) State() ports.ScopeState {
	return s.state
}

// Complete flushes all registered mutations in issuance order and commits
// them atomically. Events drained from saved aggregates are published only
// after the commit succeeds.
func (s *Scope) Complete(ctx context.Context) error {
	if s.state != ports.StateActive {
		return pkgerrors.NewInternal("scope is not active", nil)
	}
	if s.poisoned {
		s.rollback()
		return pkgerrors.NewTransactionFailed("an inner scope was abandoned without completing", nil)
	}

	s.state = ports.StateCommitting
	start := time.Now()

	if err := s.store.apply(s.mutations); err != nil {
		s.rollback()
		if pkgerrors.IsConflict(err) {
			s.metrics.ObserveConflict()
			return err
		}
		return pkgerrors.Wrap(err, "commit failed")
	}

	s.state = ports.StateCommitted
	s.metrics.ObserveCommit(time.Since(start), len(s.mutations))
	s.logger.Debug("unit of work committed",
		zap.Int("mutations", len(s.mutations)),
		zap.Int("events", len(s.pendingEvents)),
		zap.Duration("duration", time.Since(start)),
	)

	s.publishEvents(ctx)
	s.mutations = nil
	return nil
}

// Close releases the scope. A scope that was never completed rolls back; a
// completed one is left alone, so `defer scope.Close(ctx)` is always safe.
func (s *Scope) Close(_ context.Context) error {
	if s.state == ports.StateActive {
		discarded := len(s.mutations)
		s.rollback()
		s.logger.Debug("unit of work abandoned, rolled back",
			zap.Int("discarded_mutations", discarded),
		)
	}
	return nil
}

func (s *Scope) rollback() {
	s.state = ports.StateRollingBack
	// Mutations were only ever buffered here, so discarding them is the
	// whole rollback: nothing partial can have reached the store.
	s.mutations = nil
	s.pendingEvents = nil
	s.state = ports.StateRolledBack
	s.metrics.ObserveRollback()
}

func (s *Scope) publishEvents(ctx context.Context) {
	if s.bus == nil || len(s.pendingEvents) == 0 {
		s.pendingEvents = nil
		return
	}

	// The commit already succeeded; a delivery failure must not undo it.
	if err := s.bus.PublishBatch(ctx, s.pendingEvents); err != nil {
		s.logger.Warn("failed to publish committed domain events",
			zap.Int("events", len(s.pendingEvents)),
			zap.Error(err),
		)
	}
	s.pendingEvents = nil
}

// register appends a mutation and drains the source aggregate's events into
// the scope's pending list. Events become visible only after commit.
func (s *Scope) register(m mutation, source eventSource) error {
	if s.state != ports.StateActive {
		return pkgerrors.NewInternal("scope is not active", nil)
	}
	s.mutations = append(s.mutations, m)
	if source != nil {
		s.pendingEvents = append(s.pendingEvents, source.UncommittedEvents()...)
		source.MarkEventsCommitted()
	}
	return nil
}

// nestedScope joins an outer scope. Repository calls flow to the root; its
// Complete only marks the inner unit as done, and abandoning it poisons the
// root so the outer Complete refuses to commit half-finished work.
type nestedScope struct {
	root      *Scope
	completed bool
}

var _ ports.Scope = (*nestedScope)(nil)

func (n *nestedScope) Issues() ports.IssueRepository {
	return n.root.Issues()
}

func (n *nestedScope) Milestones() ports.MilestoneRepository {
	return n.root.Milestones()
}

func (n *nestedScope) Begin(opts ports.ScopeOptions) (ports.Scope, error) {
	return n.root.Begin(opts)
}

func (n *nestedScope) Complete(_ context.Context) error {
	if n.root.state != ports.StateActive {
		return pkgerrors.NewInternal("outer scope is not active", nil)
	}
	n.completed = true
	return nil
}

func (n *nestedScope) Close(_ context.Context) error {
	if !n.completed && n.root.state == ports.StateActive {
		n.root.poisoned = true
	}
	return nil
}

func (n *nestedScope) State() ports.ScopeState {
	return n.root.state
}
