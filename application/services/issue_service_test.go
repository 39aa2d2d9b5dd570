package services_test

import (
	"context"
	"testing"

	"trackd-backend/application/services"
	"trackd-backend/domain/config"
	"trackd-backend/infrastructure/persistence/memory"
	pkgerrors "trackd-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func newServices(t *testing.T) (*services.IssueService, *services.MilestoneService) {
	t.Helper()
	issues, milestones, _ := newServicesWithLimits(t)
	return issues, milestones
}

func newServicesWithLimits(t *testing.T) (*services.IssueService, *services.MilestoneService, *config.Holder) {
	t.Helper()
	limits := config.NewHolder(config.DefaultDomainConfig())
	store := memory.NewStore()
	uow := memory.NewUnitOfWork(store, nil, limits, zap.NewNop(), nil)
	return services.NewIssueService(uow, limits, zap.NewNop()),
		services.NewMilestoneService(uow, limits, zap.NewNop()),
		limits
}

func TestCreateIssueAndComment(t *testing.T) {
	issues, _ := newServices(t)
	ctx := context.Background()

	issue, err := issues.CreateIssue(ctx, services.CreateIssueRequest{
		RepositoryID: "R1",
		AuthorID:     "U1",
		Title:        "Bug",
	})
	require.NoError(t, err)

	comment, err := issues.AddComment(ctx, issue.ID().String(), "U1", "x")
	require.NoError(t, err)
	assert.Equal(t, "x", comment.Text())

	reloaded, err := issues.GetIssue(ctx, issue.ID().String())
	require.NoError(t, err)
	assert.Equal(t, "Bug", reloaded.Title())

	comments, err := reloaded.Comments()
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.True(t, comments[0].ID().Equals(comment.ID()))
}

func TestCreateIssueValidation(t *testing.T) {
	issues, _ := newServices(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  services.CreateIssueRequest
	}{
		{"empty repository", services.CreateIssueRequest{AuthorID: "U1", Title: "Bug"}},
		{"empty author", services.CreateIssueRequest{RepositoryID: "R1", Title: "Bug"}},
		{"empty title", services.CreateIssueRequest{RepositoryID: "R1", AuthorID: "U1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issues.CreateIssue(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}

func TestCloseAndReopenIssue(t *testing.T) {
	issues, _ := newServices(t)
	ctx := context.Background()

	issue, err := issues.CreateIssue(ctx, services.CreateIssueRequest{
		RepositoryID: "R1", AuthorID: "U1", Title: "Flaky test",
	})
	require.NoError(t, err)
	id := issue.ID().String()

	err = issues.CloseIssue(ctx, id, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	require.NoError(t, issues.CloseIssue(ctx, id, "fixed upstream"))

	closed, err := issues.GetIssue(ctx, id)
	require.NoError(t, err)
	assert.True(t, closed.IsClosed())
	assert.Equal(t, "fixed upstream", closed.CloseReason())

	require.NoError(t, issues.ReopenIssue(ctx, id))
	reopened, err := issues.GetIssue(ctx, id)
	require.NoError(t, err)
	assert.False(t, reopened.IsClosed())
	assert.Empty(t, reopened.CloseReason())
}

func TestAssignMilestoneVerifiesReference(t *testing.T) {
	issues, milestones := newServices(t)
	ctx := context.Background()

	issue, err := issues.CreateIssue(ctx, services.CreateIssueRequest{
		RepositoryID: "R1", AuthorID: "U1", Title: "Needs a target",
	})
	require.NoError(t, err)

	milestone, err := milestones.CreateMilestone(ctx, services.CreateMilestoneRequest{
		RepositoryID: "R1", Title: "v1.0",
	})
	require.NoError(t, err)

	require.NoError(t, issues.AssignMilestone(ctx, issue.ID().String(), milestone.ID().String()))

	assigned, err := issues.GetIssue(ctx, issue.ID().String())
	require.NoError(t, err)
	assert.True(t, assigned.MilestoneID().Equals(milestone.ID()))
}

func TestAssignMissingMilestoneFails(t *testing.T) {
	issues, milestones := newServices(t)
	ctx := context.Background()

	issue, err := issues.CreateIssue(ctx, services.CreateIssueRequest{
		RepositoryID: "R1", AuthorID: "U1", Title: "Dangling",
	})
	require.NoError(t, err)

	ghost, err := milestones.CreateMilestone(ctx, services.CreateMilestoneRequest{
		RepositoryID: "R1", Title: "deleted before use",
	})
	require.NoError(t, err)
	require.NoError(t, milestones.DeleteMilestone(ctx, ghost.ID().String()))

	err = issues.AssignMilestone(ctx, issue.ID().String(), ghost.ID().String())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAssignClosedMilestoneFails(t *testing.T) {
	issues, milestones := newServices(t)
	ctx := context.Background()

	issue, err := issues.CreateIssue(ctx, services.CreateIssueRequest{
		RepositoryID: "R1", AuthorID: "U1", Title: "Too late",
	})
	require.NoError(t, err)

	milestone, err := milestones.CreateMilestone(ctx, services.CreateMilestoneRequest{
		RepositoryID: "R1", Title: "shipped",
	})
	require.NoError(t, err)
	require.NoError(t, milestones.CloseMilestone(ctx, milestone.ID().String()))

	err = issues.AssignMilestone(ctx, issue.ID().String(), milestone.ID().String())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestLabelLifecycle(t *testing.T) {
	issues, _ := newServices(t)
	ctx := context.Background()

	issue, err := issues.CreateIssue(ctx, services.CreateIssueRequest{
		RepositoryID: "R1", AuthorID: "U1", Title: "Needs triage",
	})
	require.NoError(t, err)
	id := issue.ID().String()

	require.NoError(t, issues.AttachLabel(ctx, id, "bug", "#d73a4a"))
	require.NoError(t, issues.AttachLabel(ctx, id, "bug", "#d73a4a")) // idempotent

	labeled, err := issues.GetIssue(ctx, id)
	require.NoError(t, err)
	require.Len(t, labeled.Labels(), 1)
	assert.Equal(t, "bug", labeled.Labels()[0].Name())

	require.NoError(t, issues.DetachLabel(ctx, id, "bug"))
	unlabeled, err := issues.GetIssue(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, unlabeled.Labels())
}

func TestDeleteIssue(t *testing.T) {
	issues, _ := newServices(t)
	ctx := context.Background()

	issue, err := issues.CreateIssue(ctx, services.CreateIssueRequest{
		RepositoryID: "R1", AuthorID: "U1", Title: "Short lived",
	})
	require.NoError(t, err)

	require.NoError(t, issues.DeleteIssue(ctx, issue.ID().String()))

	_, err = issues.GetIssue(ctx, issue.ID().String())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestLimitsHotSwapDuringWrites(t *testing.T) {
	issues, _, limits := newServicesWithLimits(t)
	ctx := context.Background()

	issue, err := issues.CreateIssue(ctx, services.CreateIssueRequest{
		RepositoryID: "R1", AuthorID: "U1", Title: "Busy",
	})
	require.NoError(t, err)
	id := issue.ID().String()

	// Reloads swap the active config while writers are mid-flight; each scope
	// keeps the config it opened with.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			next := config.DefaultDomainConfig()
			next.MaxCommentsPerIssue = 150 + i
			limits.Store(next)
		}
	}()

	for i := 0; i < 50; i++ {
		_, err := issues.AddComment(ctx, id, "U1", "still here")
		require.NoError(t, err)
	}
	<-done

	reloaded, err := issues.GetIssue(ctx, id)
	require.NoError(t, err)
	count, err := reloaded.CommentCount()
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

func TestGetIssueRejectsMalformedID(t *testing.T) {
	issues, _ := newServices(t)

	_, err := issues.GetIssue(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}
