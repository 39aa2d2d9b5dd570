package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trackd-backend/application/ports"
	"trackd-backend/domain/config"
	domainevents "trackd-backend/domain/events"
	pkgerrors "trackd-backend/pkg/errors"
	"trackd-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DynamoDB caps TransactWriteItems at 100 items; we stay well under it so a
// single scope never gets close to the hard limit.
const maxTransactItems = 25

// writeKind tags a registered transact item so a cancelled transaction can be
// mapped back to the right domain error.
type writeKind int

const (
	writeSave writeKind = iota
	writeDelete
	writeCheck
)

type transactItem struct {
	item types.TransactWriteItem
	kind writeKind
	// key identifies the target item; TransactWriteItems rejects two writes
	// against the same key, so registrations are coalesced per key.
	key   string
	dbKey map[string]types.AttributeValue
	// isNew marks a save of an aggregate that has never been persisted
	isNew bool
	desc  string
}

// UnitOfWork opens transactional scopes backed by DynamoDB TransactWriteItems
type UnitOfWork struct {
	client  *dynamodb.Client
	table   string
	bus     ports.EventBus
	cfg     *config.Holder
	logger  *zap.Logger
	metrics *observability.ScopeMetrics
	breaker *gobreaker.CircuitBreaker
}

// NewUnitOfWork creates a DynamoDB-backed unit-of-work factory
func NewUnitOfWork(
	client *dynamodb.Client,
	table string,
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

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dynamodb-uow",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		IsSuccessful: func(err error) bool {
			// Conditional failures are the optimistic concurrency protocol
			// working, not DynamoDB being unhealthy.
			if err == nil || isConditionalFailure(err) {
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &UnitOfWork{
		client:  client,
		table:   table,
		bus:     bus,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		breaker: breaker,
	}
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// Begin opens a new scope. The scope pins the config that was active when it
// opened, so a live reload never changes limits mid-transaction.
func (u *UnitOfWork) Begin(_ context.Context, opts ports.ScopeOptions) (ports.Scope, error) {
	return &Scope{
		uow:   u,
		cfg:   u.cfg.Current(),
		opts:  opts,
		state: ports.StateActive,
	}, nil
}

// Scope buffers transact items until Complete flushes them as one
// TransactWriteItems call.
type Scope struct {
	uow  *UnitOfWork
	cfg  *config.DomainConfig
	opts ports.ScopeOptions

	state         ports.ScopeState
	poisoned      bool
	items         []transactItem
	index         map[string]int
	pendingEvents []domainevents.DomainEvent
}

var _ ports.Scope = (*Scope)(nil)

func (s *Scope) Issues() ports.IssueRepository {
	return &issueRepository{scope: s}
}

func (s *Scope) Milestones() ports.MilestoneRepository {
	return &milestoneRepository{scope: s}
}

func (s *Scope) Begin(_ ports.ScopeOptions) (ports.Scope, error) {
	if s.state != ports.StateActive {
		return nil, pkgerrors.NewInternal("cannot nest into a scope that is not active", nil)
	}
	return &nestedScope{root: s}, nil
}

func (s *Scope) State() ports.ScopeState {
	return s.state
}

// Complete flushes every registered write as one DynamoDB transaction.
// Version condition failures surface as conflicts; everything else as a
// failed transaction.
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

	if len(s.items) > 0 {
		writes := make([]types.TransactWriteItem, len(s.items))
		for i, item := range s.items {
			writes[i] = item.item
		}

		_, err := s.uow.breaker.Execute(func() (any, error) {
			return s.uow.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
				TransactItems: writes,
			})
		})
		if err != nil {
			mapped := s.mapTransactionError(err)
			s.rollback()
			if pkgerrors.IsConflict(mapped) {
				s.uow.metrics.ObserveConflict()
			}
			return mapped
		}
	}

	s.state = ports.StateCommitted
	s.uow.metrics.ObserveCommit(time.Since(start), len(s.items))
	s.uow.logger.Debug("unit of work committed",
		zap.Int("items", len(s.items)),
		zap.Int("events", len(s.pendingEvents)),
		zap.Duration("duration", time.Since(start)),
	)

	s.publishEvents(ctx)
	s.items = nil
	s.index = nil
	return nil
}

func (s *Scope) Close(_ context.Context) error {
	if s.state == ports.StateActive {
		s.rollback()
	}
	return nil
}

func (s *Scope) rollback() {
	s.state = ports.StateRollingBack
	s.items = nil
	s.index = nil
	s.pendingEvents = nil
	s.state = ports.StateRolledBack
	s.uow.metrics.ObserveRollback()
}

func (s *Scope) publishEvents(ctx context.Context) {
	if s.uow.bus == nil || len(s.pendingEvents) == 0 {
		s.pendingEvents = nil
		return
	}
	if err := s.uow.bus.PublishBatch(ctx, s.pendingEvents); err != nil {
		s.uow.logger.Warn("failed to publish committed domain events",
			zap.Int("events", len(s.pendingEvents)),
			zap.Error(err),
		)
	}
	s.pendingEvents = nil
}

// register buffers a transact item, coalescing repeat writes to the same key:
// DynamoDB rejects two transact items against one key, so the later
// registration wins in place, the way the staged in-memory flush nets out.
func (s *Scope) register(item transactItem, source eventSource) error {
	if s.state != ports.StateActive {
		return pkgerrors.NewInternal("scope is not active", nil)
	}

	if idx, ok := s.index[item.key]; ok {
		prev := s.items[idx]
		switch {
		case prev.kind == writeSave && prev.isNew && item.kind == writeDelete:
			// Created and deleted in the same scope: nothing to write, but
			// keep the guard that the item never existed, so a concurrent
			// creation still surfaces as a conflict.
			s.items[idx] = transactItem{
				item: types.TransactWriteItem{
					ConditionCheck: &types.ConditionCheck{
						TableName:           aws.String(s.uow.table),
						Key:                 item.dbKey,
						ConditionExpression: aws.String("attribute_not_exists(PK)"),
					},
				},
				kind:  writeCheck,
				key:   item.key,
				dbKey: item.dbKey,
				isNew: true,
				desc:  item.desc,
			}
		default:
			if item.kind == writeSave {
				item.isNew = item.isNew || prev.isNew
			}
			s.items[idx] = item
		}
	} else {
		if len(s.items) >= maxTransactItems {
			return pkgerrors.NewTransactionFailed(
				fmt.Sprintf("scope exceeds %d writes; split the use case", maxTransactItems), nil)
		}
		if s.index == nil {
			s.index = make(map[string]int)
		}
		s.index[item.key] = len(s.items)
		s.items = append(s.items, item)
	}

	if source != nil {
		s.pendingEvents = append(s.pendingEvents, source.UncommittedEvents()...)
		source.MarkEventsCommitted()
	}
	return nil
}

// mapTransactionError translates a cancelled transaction into the domain
// error of the first failing item.
func (s *Scope) mapTransactionError(err error) error {
	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		for i, reason := range cancelled.CancellationReasons {
			if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
				continue
			}
			if i >= len(s.items) {
				break
			}
			switch s.items[i].kind {
			case writeDelete:
				return pkgerrors.NewNotFound(s.items[i].desc)
			case writeCheck:
				return pkgerrors.NewConflict(fmt.Sprintf(
					"%s was created by a concurrent writer", s.items[i].desc))
			default:
				return pkgerrors.NewConflict(fmt.Sprintf(
					"%s was modified by a concurrent writer", s.items[i].desc))
			}
		}
	}
	return pkgerrors.NewTransactionFailed("transaction failed", err)
}

func isConditionalFailure(err error) bool {
	var cancelled *types.TransactionCanceledException
	if !errors.As(err, &cancelled) {
		return false
	}
	for _, reason := range cancelled.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

type eventSource interface {
	UncommittedEvents() []domainevents.DomainEvent
	MarkEventsCommitted()
}

// nestedScope joins its root scope; see the memory adapter for the semantics
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
