package aggregates

import (
	"testing"
	"time"

	"trackd-backend/domain/core/valueobjects"
	pkgerrors "trackd-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMilestone(t *testing.T) *Milestone {
	t.Helper()
	due := time.Now().Add(30 * 24 * time.Hour)
	milestone, err := NewMilestone(
		valueobjects.NewMilestoneID(),
		mustRepositoryID(t, "R1"),
		"v1.0",
		&due,
		nil,
	)
	require.NoError(t, err)
	return milestone
}

func TestNewMilestone(t *testing.T) {
	tests := []struct {
		name    string
		id      valueobjects.MilestoneID
		repo    string
		title   string
		wantErr bool
	}{
		{"valid milestone", valueobjects.NewMilestoneID(), "R1", "v1.0", false},
		{"zero ID", valueobjects.MilestoneID{}, "R1", "v1.0", true},
		{"empty title", valueobjects.NewMilestoneID(), "R1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var repo valueobjects.RepositoryID
			if tt.repo != "" {
				repo = mustRepositoryID(t, tt.repo)
			}

			milestone, err := NewMilestone(tt.id, repo, tt.title, nil, nil)

			if tt.wantErr {
				assert.True(t, pkgerrors.IsValidation(err))
				assert.Nil(t, milestone)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.title, milestone.Title())
			assert.Equal(t, 0, milestone.Version())
			assert.Len(t, milestone.UncommittedEvents(), 1)
		})
	}
}

func TestMilestoneCloseReopen(t *testing.T) {
	milestone := newTestMilestone(t)

	require.NoError(t, milestone.Close())
	assert.True(t, milestone.IsClosed())

	err := milestone.Close()
	assert.True(t, pkgerrors.IsValidation(err))

	require.NoError(t, milestone.Reopen())
	assert.False(t, milestone.IsClosed())
}

func TestMilestoneSnapshotRoundTrip(t *testing.T) {
	milestone := newTestMilestone(t)
	require.NoError(t, milestone.Close())

	snap := milestone.Snapshot()
	snap.Version = 3
	rebuilt, err := ReconstructMilestone(snap, nil)
	require.NoError(t, err)

	assert.True(t, rebuilt.ID().Equals(milestone.ID()))
	assert.Equal(t, milestone.Title(), rebuilt.Title())
	assert.True(t, rebuilt.IsClosed())
	assert.Equal(t, 3, rebuilt.Version())
	require.NotNil(t, rebuilt.DueDate())
	assert.Empty(t, rebuilt.UncommittedEvents())
}

func TestMilestoneDueDateIsCopied(t *testing.T) {
	milestone := newTestMilestone(t)

	first := milestone.DueDate()
	require.NotNil(t, first)
	*first = first.Add(time.Hour)

	second := milestone.DueDate()
	assert.NotEqual(t, *first, *second)
}
