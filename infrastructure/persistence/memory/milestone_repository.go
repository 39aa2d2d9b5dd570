package memory

import (
	"context"
	"fmt"

	"trackd-backend/application/ports"
	"trackd-backend/domain/core/aggregates"
	"trackd-backend/domain/core/valueobjects"
	pkgerrors "trackd-backend/pkg/errors"
)

// milestoneRepository is the scope-bound milestone persistence adapter
type milestoneRepository struct {
	scope *Scope
}

var _ ports.MilestoneRepository = (*milestoneRepository)(nil)

func (r *milestoneRepository) Get(_ context.Context, id valueobjects.MilestoneID, _ ...ports.LoadOption) (*aggregates.Milestone, error) {
	snap, ok := r.scope.store.GetMilestone(id.String())
	if !ok {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("milestone %s", id.String()))
	}

	milestone, err := aggregates.ReconstructMilestone(snap, r.scope.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to reconstruct stored milestone")
	}
	return milestone, nil
}

func (r *milestoneRepository) Save(_ context.Context, milestone *aggregates.Milestone) error {
	if milestone == nil {
		return pkgerrors.NewValidation("milestone must not be nil")
	}
	return r.scope.register(mutation{
		kind:      mutationSaveMilestone,
		milestone: milestone.Snapshot(),
	}, milestone)
}

func (r *milestoneRepository) Delete(_ context.Context, id valueobjects.MilestoneID) error {
	if id.IsZero() {
		return pkgerrors.NewValidation("milestone id must not be zero")
	}
	return r.scope.register(mutation{
		kind:     mutationDeleteMilestone,
		deleteID: id.String(),
	}, nil)
}
