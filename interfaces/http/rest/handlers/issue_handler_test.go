package handlers

import (
	"testing"
	"time"

	"trackd-backend/domain/config"
	"trackd-backend/domain/core/aggregates"
	pkgerrors "trackd-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedIssueSnapshot() aggregates.IssueSnapshot {
	return aggregates.IssueSnapshot{
		ID:             "9f6f5c2e-0b1a-4c3d-8e7f-aa55bb66cc77",
		RepositoryID:   "repo-1",
		AuthorID:       "user-1",
		Title:          "Crash on startup",
		Body:           "stack trace attached",
		CommentsLoaded: true,
		CreatedAt:      time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC),
		Version:        3,
	}
}

func TestIssueResponseRefusesUnloadedComments(t *testing.T) {
	snap := storedIssueSnapshot()
	snap.CommentsLoaded = false

	partial, err := aggregates.ReconstructIssue(snap, config.DefaultDomainConfig())
	require.NoError(t, err)

	_, err = toIssueResponse(partial)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotLoaded(err))
}

func TestIssueResponseRendersLoadedIssue(t *testing.T) {
	issue, err := aggregates.ReconstructIssue(storedIssueSnapshot(), config.DefaultDomainConfig())
	require.NoError(t, err)

	resp, err := toIssueResponse(issue)
	require.NoError(t, err)
	assert.Equal(t, "Crash on startup", resp.Title)
	assert.Equal(t, 3, resp.Version)
	assert.NotNil(t, resp.Comments)
	assert.Empty(t, resp.Comments)
}
