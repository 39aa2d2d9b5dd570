package memory

import (
	"context"
	"fmt"

	"trackd-backend/application/ports"
	"trackd-backend/domain/core/aggregates"
	"trackd-backend/domain/core/valueobjects"
	pkgerrors "trackd-backend/pkg/errors"
)

// issueRepository is the scope-bound issue persistence adapter. Reads go
// straight to the store's committed state; writes are registered with the
// owning scope and only reach the store when the scope completes.
type issueRepository struct {
	scope *Scope
}

var _ ports.IssueRepository = (*issueRepository)(nil)

func (r *issueRepository) Get(_ context.Context, id valueobjects.IssueID, opts ...ports.LoadOption) (*aggregates.Issue, error) {
	resolved := ports.ResolveLoadOptions(opts...)

	snap, ok := r.scope.store.GetIssue(id.String(), resolved.IncludeDetails)
	if !ok {
		return nil, pkgerrors.NewNotFound(fmt.Sprintf("issue %s", id.String()))
	}

	issue, err := aggregates.ReconstructIssue(snap, r.scope.cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to reconstruct stored issue")
	}
	return issue, nil
}

func (r *issueRepository) Save(_ context.Context, issue *aggregates.Issue) error {
	if issue == nil {
		return pkgerrors.NewValidation("issue must not be nil")
	}
	return r.scope.register(mutation{
		kind:  mutationSaveIssue,
		issue: issue.Snapshot(),
	}, issue)
}

func (r *issueRepository) Delete(_ context.Context, id valueobjects.IssueID) error {
	if id.IsZero() {
		return pkgerrors.NewValidation("issue id must not be zero")
	}
	return r.scope.register(mutation{
		kind:     mutationDeleteIssue,
		deleteID: id.String(),
	}, nil)
}
