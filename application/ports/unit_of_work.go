package ports

import (
	"context"

	"trackd-backend/domain/events"
)

// ScopeState is the lifecycle of a unit-of-work scope
type ScopeState string

const (
	StateActive      ScopeState = "active"
	StateCommitting  ScopeState = "committing"
	StateCommitted   ScopeState = "committed"
	StateRollingBack ScopeState = "rolling_back"
	StateRolledBack  ScopeState = "rolled_back"
)

// IsolationLevel is a hint to the storage adapter; an adapter may ignore
// levels its engine cannot express.
type IsolationLevel string

const (
	IsolationDefault       IsolationLevel = ""
	IsolationReadCommitted IsolationLevel = "read_committed"
	IsolationSerializable  IsolationLevel = "serializable"
)

// ScopeOptions configures a scope at Begin time
type ScopeOptions struct {
	Isolation IsolationLevel
}

// UnitOfWork opens transactional scopes. A use case opens exactly one scope,
// does all of its repository work through it, and either completes it or lets
// Close roll everything back.
type UnitOfWork interface {
	Begin(ctx context.Context, opts ScopeOptions) (Scope, error)
}

// Scope is the explicit transaction handle for one use-case execution.
// Repositories are obtained from the scope, so there is no ambient or
// thread-local transaction state anywhere.
//
// Every repository call made through the scope registers its mutation with
// it; Complete flushes the registered mutations in issuance order and
// performs one physical commit. A scope is owned by a single goroutine and
// must not be shared.
//
// Usage:
//
//	scope, err := uow.Begin(ctx, ports.ScopeOptions{})
//	if err != nil {
//		return err
//	}
//	defer scope.Close(ctx)
//
//	issue, err := scope.Issues().Get(ctx, id)
//	...
//	return scope.Complete(ctx)
type Scope interface {
	// Issues returns the issue repository bound to this scope
	Issues() IssueRepository

	// Milestones returns the milestone repository bound to this scope
	Milestones() MilestoneRepository

	// Begin opens a nested scope that joins this one. Only the outermost
	// Complete performs the physical commit; a nested scope abandoned
	// without Complete forces the whole scope to roll back.
	Begin(opts ScopeOptions) (Scope, error)

	// Complete flushes all registered mutations in the order they were
	// issued and commits them atomically. Domain events recorded by saved
	// aggregates are drained to the event bus only after the commit
	// succeeds. Any flush or commit failure rolls the whole scope back and
	// surfaces the original cause.
	Complete(ctx context.Context) error

	// Close releases the scope. If Complete was never called (or failed),
	// every registered mutation is discarded so no partial state is ever
	// persisted. Closing a completed scope is a no-op, which makes
	// `defer scope.Close(ctx)` the standard pattern.
	Close(ctx context.Context) error

	// State reports where the scope is in its lifecycle
	State() ScopeState
}

// EventBus delivers committed domain events to downstream consumers.
// Delivery happens strictly after the physical commit; events from a rolled
// back scope are never published.
type EventBus interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
