package dynamodb

import (
	"errors"
	"testing"
	"time"

	"trackd-backend/domain/core/aggregates"
	pkgerrors "trackd-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIssueSnapshot() aggregates.IssueSnapshot {
	edited := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return aggregates.IssueSnapshot{
		ID:           "9f6f5c2e-0b1a-4c3d-8e7f-aa55bb66cc77",
		RepositoryID: "repo-1",
		MilestoneID:  "1a2b3c4d-5e6f-4a8b-9c0d-112233445566",
		AuthorID:     "user-1",
		Title:        "Crash on startup",
		Body:         "stack trace attached",
		Closed:       true,
		CloseReason:  "fixed in 1.2",
		Labels: []aggregates.LabelSnapshot{
			{Name: "bug", Color: "#d73a4a"},
		},
		Comments: []aggregates.CommentSnapshot{
			{ID: "5c4b3a2d-1e0f-4a9b-8c7d-665544332211", AuthorID: "user-2", Text: "repro confirmed",
				CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), EditedAt: &edited},
		},
		CommentsLoaded: true,
		CreatedAt:      time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Version:        3,
	}
}

func TestIssueRecordRoundTrip(t *testing.T) {
	snap := sampleIssueSnapshot()

	record := toIssueRecord(snap)
	assert.Equal(t, "ISSUE#"+snap.ID, record.PK)
	assert.Equal(t, skMetadata, record.SK)

	back := record.toSnapshot(true)
	assert.Equal(t, snap, back)
}

func TestIssueRecordToSnapshotWithoutDetails(t *testing.T) {
	record := toIssueRecord(sampleIssueSnapshot())

	snap := record.toSnapshot(false)
	assert.False(t, snap.CommentsLoaded)
	assert.Nil(t, snap.Comments)
	assert.Equal(t, "Crash on startup", snap.Title)
	require.Len(t, snap.Labels, 1)
}

func TestMilestoneRecordRoundTrip(t *testing.T) {
	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	snap := aggregates.MilestoneSnapshot{
		ID:           "1a2b3c4d-5e6f-4a8b-9c0d-112233445566",
		RepositoryID: "repo-1",
		Title:        "v1.2",
		DueDate:      &due,
		CreatedAt:    time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC),
		Version:      1,
	}

	record := toMilestoneRecord(snap)
	assert.Equal(t, "MILESTONE#"+snap.ID, record.PK)
	assert.Equal(t, snap, record.toSnapshot())
}

func cancelledWith(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, code := range codes {
		if code != "" {
			reasons[i] = types.CancellationReason{Code: aws.String(code)}
		} else {
			reasons[i] = types.CancellationReason{Code: aws.String("None")}
		}
	}
	return &types.TransactionCanceledException{
		Message:             aws.String("Transaction cancelled"),
		CancellationReasons: reasons,
	}
}

func TestMapTransactionErrorConflictOnSave(t *testing.T) {
	scope := &Scope{items: []transactItem{
		{kind: writeSave, desc: "issue abc"},
		{kind: writeSave, desc: "milestone def"},
	}}

	err := scope.mapTransactionError(cancelledWith("", "ConditionalCheckFailed"))
	assert.True(t, pkgerrors.IsConflict(err))
	assert.Contains(t, err.Error(), "milestone def")
}

func TestMapTransactionErrorNotFoundOnDelete(t *testing.T) {
	scope := &Scope{items: []transactItem{
		{kind: writeDelete, desc: "issue abc"},
	}}

	err := scope.mapTransactionError(cancelledWith("ConditionalCheckFailed"))
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestMapTransactionErrorFallsBackToTransactionFailed(t *testing.T) {
	scope := &Scope{}

	err := scope.mapTransactionError(errors.New("throughput exceeded"))
	assert.True(t, pkgerrors.IsTransactionFailed(err))
}

func TestIsConditionalFailure(t *testing.T) {
	assert.True(t, isConditionalFailure(cancelledWith("ConditionalCheckFailed")))
	assert.False(t, isConditionalFailure(cancelledWith("")))
	assert.False(t, isConditionalFailure(errors.New("network error")))
}
