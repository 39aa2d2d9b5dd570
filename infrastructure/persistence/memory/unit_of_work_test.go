package memory_test

import (
	"context"
	"sync"
	"testing"

	"trackd-backend/application/ports"
	"trackd-backend/domain/config"
	"trackd-backend/domain/core/aggregates"
	"trackd-backend/domain/core/valueobjects"
	"trackd-backend/domain/events"
	"trackd-backend/infrastructure/persistence/memory"
	pkgerrors "trackd-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

type captureBus struct {
	mu        sync.Mutex
	published []events.DomainEvent
}

func (b *captureBus) Publish(_ context.Context, event events.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
	return nil
}

func (b *captureBus) PublishBatch(_ context.Context, batch []events.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, batch...)
	return nil
}

func (b *captureBus) events() []events.DomainEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.DomainEvent, len(b.published))
	copy(out, b.published)
	return out
}

type fixture struct {
	store *memory.Store
	uow   *memory.UnitOfWork
	bus   *captureBus
	cfg   *config.DomainConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.DefaultDomainConfig()
	store := memory.NewStore()
	bus := &captureBus{}
	return &fixture{
		store: store,
		uow:   memory.NewUnitOfWork(store, bus, config.NewHolder(cfg), zap.NewNop(), nil),
		bus:   bus,
		cfg:   cfg,
	}
}

func (f *fixture) begin(t *testing.T) ports.Scope {
	t.Helper()
	scope, err := f.uow.Begin(context.Background(), ports.ScopeOptions{})
	require.NoError(t, err)
	return scope
}

func newStoredIssue(t *testing.T, f *fixture) valueobjects.IssueID {
	t.Helper()
	ctx := context.Background()

	repoID, err := valueobjects.NewRepositoryID("repo-1")
	require.NoError(t, err)
	userID, err := valueobjects.NewUserID("user-1")
	require.NoError(t, err)

	issue, err := aggregates.NewIssue(valueobjects.NewIssueID(), repoID, userID, "Stored issue", "body", f.cfg)
	require.NoError(t, err)

	scope := f.begin(t)
	defer scope.Close(ctx)
	require.NoError(t, scope.Issues().Save(ctx, issue))
	require.NoError(t, scope.Complete(ctx))

	return issue.ID()
}

func TestScopeSaveAndReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repoID, err := valueobjects.NewRepositoryID("R1")
	require.NoError(t, err)
	author, err := valueobjects.NewUserID("U1")
	require.NoError(t, err)

	issue, err := aggregates.NewIssue(valueobjects.NewIssueID(), repoID, author, "Bug", "", f.cfg)
	require.NoError(t, err)

	comment, err := issue.AddComment(author, "x")
	require.NoError(t, err)

	scope := f.begin(t)
	defer scope.Close(ctx)
	require.NoError(t, scope.Issues().Save(ctx, issue))
	require.NoError(t, scope.Complete(ctx))
	assert.Equal(t, ports.StateCommitted, scope.State())

	read := f.begin(t)
	defer read.Close(ctx)
	loaded, err := read.Issues().Get(ctx, issue.ID())
	require.NoError(t, err)

	assert.True(t, loaded.ID().Equals(issue.ID()))
	assert.Equal(t, "Bug", loaded.Title())
	assert.True(t, loaded.RepositoryID().Equals(repoID))
	assert.Equal(t, 1, loaded.Version())

	comments, err := loaded.Comments()
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.True(t, comments[0].ID().Equals(comment.ID()))
	assert.Equal(t, "x", comments[0].Text())
}

func TestScopePublishesEventsAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repoID, err := valueobjects.NewRepositoryID("R1")
	require.NoError(t, err)
	author, err := valueobjects.NewUserID("U1")
	require.NoError(t, err)

	issue, err := aggregates.NewIssue(valueobjects.NewIssueID(), repoID, author, "Bug", "", f.cfg)
	require.NoError(t, err)
	_, err = issue.AddComment(author, "first")
	require.NoError(t, err)

	scope := f.begin(t)
	defer scope.Close(ctx)
	require.NoError(t, scope.Issues().Save(ctx, issue))

	assert.Empty(t, f.bus.events(), "events must not leave the scope before commit")
	assert.Empty(t, issue.UncommittedEvents(), "save drains the aggregate's events into the scope")

	require.NoError(t, scope.Complete(ctx))

	published := f.bus.events()
	require.Len(t, published, 2)
	assert.Equal(t, events.TypeIssueOpened, published[0].GetEventType())
	assert.Equal(t, events.TypeCommentAdded, published[1].GetEventType())
}

func TestScopeRollbackPublishesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repoID, err := valueobjects.NewRepositoryID("R1")
	require.NoError(t, err)
	author, err := valueobjects.NewUserID("U1")
	require.NoError(t, err)

	issue, err := aggregates.NewIssue(valueobjects.NewIssueID(), repoID, author, "Bug", "", f.cfg)
	require.NoError(t, err)

	scope := f.begin(t)
	require.NoError(t, scope.Issues().Save(ctx, issue))
	require.NoError(t, scope.Close(ctx))

	assert.Equal(t, ports.StateRolledBack, scope.State())
	assert.Empty(t, f.bus.events())
	assert.False(t, f.store.HasIssue(issue.ID().String()))
}

func TestScopeConcurrentWriterConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := newStoredIssue(t, f)

	first := f.begin(t)
	defer first.Close(ctx)
	second := f.begin(t)
	defer second.Close(ctx)

	issueA, err := first.Issues().Get(ctx, id)
	require.NoError(t, err)
	issueB, err := second.Issues().Get(ctx, id)
	require.NoError(t, err)

	require.NoError(t, issueA.Retitle("first writer wins"))
	require.NoError(t, first.Issues().Save(ctx, issueA))
	require.NoError(t, first.Complete(ctx))

	require.NoError(t, issueB.Retitle("second writer loses"))
	require.NoError(t, second.Issues().Save(ctx, issueB))

	err = second.Complete(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
	assert.Equal(t, ports.StateRolledBack, second.State())

	check := f.begin(t)
	defer check.Close(ctx)
	current, err := check.Issues().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "first writer wins", current.Title())
}

func TestScopeCommitIsAtomicAcrossAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := newStoredIssue(t, f)

	// A competing commit bumps the stored version behind this scope's back.
	competitor := f.begin(t)
	loaded, err := competitor.Issues().Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, loaded.Retitle("competing commit"))
	require.NoError(t, competitor.Issues().Save(ctx, loaded))

	scope := f.begin(t)
	defer scope.Close(ctx)

	repoID, err := valueobjects.NewRepositoryID("repo-1")
	require.NoError(t, err)
	milestone, err := aggregates.NewMilestone(valueobjects.NewMilestoneID(), repoID, "v1.0", nil, f.cfg)
	require.NoError(t, err)
	require.NoError(t, scope.Milestones().Save(ctx, milestone))

	stale, err := scope.Issues().Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, stale.Retitle("stale write"))
	require.NoError(t, scope.Issues().Save(ctx, stale))

	require.NoError(t, competitor.Complete(ctx))

	err = scope.Complete(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))

	// The milestone save registered before the failing issue save must not
	// have leaked out of the rolled back scope.
	assert.False(t, f.store.HasMilestone(milestone.ID().String()))

	check := f.begin(t)
	defer check.Close(ctx)
	current, err := check.Issues().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "competing commit", current.Title())
}

func TestScopeFlushesInIssuanceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repoID, err := valueobjects.NewRepositoryID("R1")
	require.NoError(t, err)
	author, err := valueobjects.NewUserID("U1")
	require.NoError(t, err)

	issue, err := aggregates.NewIssue(valueobjects.NewIssueID(), repoID, author, "Transient", "", f.cfg)
	require.NoError(t, err)

	scope := f.begin(t)
	defer scope.Close(ctx)
	require.NoError(t, scope.Issues().Save(ctx, issue))
	require.NoError(t, scope.Issues().Delete(ctx, issue.ID()))
	require.NoError(t, scope.Complete(ctx))

	// Save then delete within one scope: the delete was issued last, so the
	// issue must not survive the commit.
	assert.False(t, f.store.HasIssue(issue.ID().String()))
}

func TestScopeDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := newStoredIssue(t, f)

	scope := f.begin(t)
	defer scope.Close(ctx)
	require.NoError(t, scope.Issues().Delete(ctx, id))
	require.NoError(t, scope.Complete(ctx))

	check := f.begin(t)
	defer check.Close(ctx)
	_, err := check.Issues().Get(ctx, id)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestScopeDeleteMissingIssueFailsCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	scope := f.begin(t)
	defer scope.Close(ctx)
	require.NoError(t, scope.Issues().Delete(ctx, valueobjects.NewIssueID()))

	err := scope.Complete(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Equal(t, ports.StateRolledBack, scope.State())
}

func TestScopeWithoutDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := newStoredIssue(t, f)

	// Seed a comment so there is something a partial save could lose.
	seed := f.begin(t)
	full, err := seed.Issues().Get(ctx, id)
	require.NoError(t, err)
	author, err := valueobjects.NewUserID("commenter")
	require.NoError(t, err)
	_, err = full.AddComment(author, "must survive a partial save")
	require.NoError(t, err)
	require.NoError(t, seed.Issues().Save(ctx, full))
	require.NoError(t, seed.Complete(ctx))

	scope := f.begin(t)
	defer scope.Close(ctx)
	partial, err := scope.Issues().Get(ctx, id, ports.WithoutDetails())
	require.NoError(t, err)

	assert.False(t, partial.CommentsLoaded())
	_, err = partial.Comments()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotLoaded(err))
	_, err = partial.AddComment(author, "rejected")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotLoaded(err))

	// Root-level mutation still works and must not erase the unloaded list.
	require.NoError(t, partial.Retitle("retitled without details"))
	require.NoError(t, scope.Issues().Save(ctx, partial))
	require.NoError(t, scope.Complete(ctx))

	check := f.begin(t)
	defer check.Close(ctx)
	reloaded, err := check.Issues().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "retitled without details", reloaded.Title())
	count, err := reloaded.CommentCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNestedScopeJoinsOuter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repoID, err := valueobjects.NewRepositoryID("R1")
	require.NoError(t, err)
	author, err := valueobjects.NewUserID("U1")
	require.NoError(t, err)

	outer := f.begin(t)
	defer outer.Close(ctx)

	inner, err := outer.Begin(ports.ScopeOptions{})
	require.NoError(t, err)

	issue, err := aggregates.NewIssue(valueobjects.NewIssueID(), repoID, author, "From inner", "", f.cfg)
	require.NoError(t, err)
	require.NoError(t, inner.Issues().Save(ctx, issue))
	require.NoError(t, inner.Complete(ctx))
	require.NoError(t, inner.Close(ctx))

	// The inner Complete does not commit on its own.
	assert.False(t, f.store.HasIssue(issue.ID().String()))

	require.NoError(t, outer.Complete(ctx))
	assert.True(t, f.store.HasIssue(issue.ID().String()))
}

func TestAbandonedNestedScopePoisonsOuter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repoID, err := valueobjects.NewRepositoryID("R1")
	require.NoError(t, err)
	author, err := valueobjects.NewUserID("U1")
	require.NoError(t, err)

	outer := f.begin(t)
	defer outer.Close(ctx)

	issue, err := aggregates.NewIssue(valueobjects.NewIssueID(), repoID, author, "Never lands", "", f.cfg)
	require.NoError(t, err)
	require.NoError(t, outer.Issues().Save(ctx, issue))

	inner, err := outer.Begin(ports.ScopeOptions{})
	require.NoError(t, err)
	require.NoError(t, inner.Close(ctx)) // abandoned without Complete

	err = outer.Complete(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransactionFailed(err))
	assert.Equal(t, ports.StateRolledBack, outer.State())
	assert.False(t, f.store.HasIssue(issue.ID().String()))
}

func TestScopeRejectsUseAfterCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := newStoredIssue(t, f)

	scope := f.begin(t)
	defer scope.Close(ctx)
	require.NoError(t, scope.Complete(ctx))

	err := scope.Issues().Delete(ctx, id)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInternal(err))

	err = scope.Complete(ctx)
	require.Error(t, err)
}

func TestMilestoneRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repoID, err := valueobjects.NewRepositoryID("R1")
	require.NoError(t, err)
	milestone, err := aggregates.NewMilestone(valueobjects.NewMilestoneID(), repoID, "v2.0", nil, f.cfg)
	require.NoError(t, err)
	require.NoError(t, milestone.Close())

	scope := f.begin(t)
	defer scope.Close(ctx)
	require.NoError(t, scope.Milestones().Save(ctx, milestone))
	require.NoError(t, scope.Complete(ctx))

	check := f.begin(t)
	defer check.Close(ctx)
	loaded, err := check.Milestones().Get(ctx, milestone.ID())
	require.NoError(t, err)
	assert.Equal(t, "v2.0", loaded.Title())
	assert.True(t, loaded.IsClosed())
	assert.Equal(t, 1, loaded.Version())
}
