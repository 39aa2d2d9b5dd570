package dynamodb

import (
	"context"
	"testing"

	"trackd-backend/application/ports"
	"trackd-backend/domain/config"
	"trackd-backend/domain/core/aggregates"
	"trackd-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func newTestScope(t *testing.T) *Scope {
	t.Helper()
	uow := NewUnitOfWork(nil, "trackd-test", nil, nil, zap.NewNop(), nil)
	scope, err := uow.Begin(context.Background(), ports.ScopeOptions{})
	require.NoError(t, err)
	return scope.(*Scope)
}

func newUnsavedIssue(t *testing.T) *aggregates.Issue {
	t.Helper()
	repoID, err := valueobjects.NewRepositoryID("repo-1")
	require.NoError(t, err)
	author, err := valueobjects.NewUserID("user-1")
	require.NoError(t, err)
	issue, err := aggregates.NewIssue(valueobjects.NewIssueID(), repoID, author, "Fresh", "", config.DefaultDomainConfig())
	require.NoError(t, err)
	return issue
}

func storedIssue(t *testing.T) *aggregates.Issue {
	t.Helper()
	issue, err := aggregates.ReconstructIssue(sampleIssueSnapshot(), config.DefaultDomainConfig())
	require.NoError(t, err)
	return issue
}

func TestScopeCoalescesRepeatedSaves(t *testing.T) {
	scope := newTestScope(t)
	ctx := context.Background()
	issue := newUnsavedIssue(t)

	require.NoError(t, scope.Issues().Save(ctx, issue))
	require.NoError(t, scope.Issues().Save(ctx, issue))

	require.Len(t, scope.items, 1)
	assert.Equal(t, writeSave, scope.items[0].kind)
	assert.NotNil(t, scope.items[0].item.Put)
}

func TestScopeNetsOutCreateThenDelete(t *testing.T) {
	scope := newTestScope(t)
	ctx := context.Background()
	issue := newUnsavedIssue(t)

	require.NoError(t, scope.Issues().Save(ctx, issue))
	require.NoError(t, scope.Issues().Delete(ctx, issue.ID()))

	// A never-persisted item gets nothing written, only the guard that it
	// still does not exist.
	require.Len(t, scope.items, 1)
	assert.Equal(t, writeCheck, scope.items[0].kind)
	require.NotNil(t, scope.items[0].item.ConditionCheck)
	assert.Equal(t, "attribute_not_exists(PK)", *scope.items[0].item.ConditionCheck.ConditionExpression)
}

func TestScopeSaveThenDeleteOfStoredIssue(t *testing.T) {
	scope := newTestScope(t)
	ctx := context.Background()
	issue := storedIssue(t)

	require.NoError(t, scope.Issues().Save(ctx, issue))
	require.NoError(t, scope.Issues().Delete(ctx, issue.ID()))

	require.Len(t, scope.items, 1)
	assert.Equal(t, writeDelete, scope.items[0].kind)
	assert.NotNil(t, scope.items[0].item.Delete)
}

func TestScopeDeleteThenSaveKeepsLatestWrite(t *testing.T) {
	scope := newTestScope(t)
	ctx := context.Background()
	issue := storedIssue(t)

	require.NoError(t, scope.Issues().Delete(ctx, issue.ID()))
	require.NoError(t, scope.Issues().Save(ctx, issue))

	require.Len(t, scope.items, 1)
	assert.Equal(t, writeSave, scope.items[0].kind)
	assert.NotNil(t, scope.items[0].item.Put)
}

func TestScopeKeepsDistinctKeysSeparate(t *testing.T) {
	scope := newTestScope(t)
	ctx := context.Background()

	require.NoError(t, scope.Issues().Save(ctx, newUnsavedIssue(t)))
	require.NoError(t, scope.Issues().Save(ctx, newUnsavedIssue(t)))

	assert.Len(t, scope.items, 2)
}
