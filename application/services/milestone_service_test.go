package services_test

import (
	"context"
	"testing"
	"time"

	"trackd-backend/application/services"
	pkgerrors "trackd-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilestoneLifecycle(t *testing.T) {
	_, milestones := newServices(t)
	ctx := context.Background()

	due := time.Now().AddDate(0, 1, 0)
	milestone, err := milestones.CreateMilestone(ctx, services.CreateMilestoneRequest{
		RepositoryID: "R1",
		Title:        "v1.0",
		DueDate:      &due,
	})
	require.NoError(t, err)
	id := milestone.ID().String()

	require.NoError(t, milestones.RetitleMilestone(ctx, id, "v1.0 GA"))
	require.NoError(t, milestones.SetDueDate(ctx, id, nil))
	require.NoError(t, milestones.CloseMilestone(ctx, id))

	loaded, err := milestones.GetMilestone(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v1.0 GA", loaded.Title())
	assert.Nil(t, loaded.DueDate())
	assert.True(t, loaded.IsClosed())

	require.NoError(t, milestones.ReopenMilestone(ctx, id))
	reopened, err := milestones.GetMilestone(ctx, id)
	require.NoError(t, err)
	assert.False(t, reopened.IsClosed())
}

func TestCreateMilestoneValidation(t *testing.T) {
	_, milestones := newServices(t)
	ctx := context.Background()

	_, err := milestones.CreateMilestone(ctx, services.CreateMilestoneRequest{
		RepositoryID: "R1",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = milestones.CreateMilestone(ctx, services.CreateMilestoneRequest{
		Title: "orphan",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestDeleteMilestone(t *testing.T) {
	_, milestones := newServices(t)
	ctx := context.Background()

	milestone, err := milestones.CreateMilestone(ctx, services.CreateMilestoneRequest{
		RepositoryID: "R1", Title: "abandoned",
	})
	require.NoError(t, err)

	require.NoError(t, milestones.DeleteMilestone(ctx, milestone.ID().String()))

	_, err = milestones.GetMilestone(ctx, milestone.ID().String())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}
