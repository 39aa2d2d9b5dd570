package ports

import (
	"context"

	"trackd-backend/domain/core/aggregates"
	"trackd-backend/domain/core/valueobjects"
)

// IssueRepository is the per-aggregate persistence port for issues. Every
// operation participates in the scope the repository was obtained from;
// nothing here commits on its own.
type IssueRepository interface {
	// Get retrieves the root. By default all sub-collections are populated
	// in the same retrieval; with WithoutDetails they are left in an
	// explicit not-loaded state and reading them fails fast.
	Get(ctx context.Context, id valueobjects.IssueID, opts ...LoadOption) (*aggregates.Issue, error)

	// Save registers the full object graph (root + sub-entities) as one
	// logical write. At commit time the stored version is compared with the
	// version the aggregate was loaded from; a mismatch fails the commit
	// with a conflict and the caller must reload and retry.
	Save(ctx context.Context, issue *aggregates.Issue) error

	// Delete registers removal of the root and all owned sub-entities.
	// It never cascades into other aggregates.
	Delete(ctx context.Context, id valueobjects.IssueID) error
}

// MilestoneRepository is the per-aggregate persistence port for milestones
type MilestoneRepository interface {
	Get(ctx context.Context, id valueobjects.MilestoneID, opts ...LoadOption) (*aggregates.Milestone, error)
	Save(ctx context.Context, milestone *aggregates.Milestone) error
	Delete(ctx context.Context, id valueobjects.MilestoneID) error
}

// LoadOptions controls how much of an aggregate a Get call hydrates
type LoadOptions struct {
	// IncludeDetails loads every sub-collection together with the root.
	// It defaults to true: callers should never need a second round trip.
	IncludeDetails bool
}

// LoadOption mutates LoadOptions
type LoadOption func(*LoadOptions)

// WithoutDetails skips sub-collection hydration. The collections are marked
// not-loaded, not empty, so a read of them is a detectable programming error.
func WithoutDetails() LoadOption {
	return func(o *LoadOptions) {
		o.IncludeDetails = false
	}
}

// ResolveLoadOptions applies options over the eager default
func ResolveLoadOptions(opts ...LoadOption) LoadOptions {
	resolved := LoadOptions{IncludeDetails: true}
	for _, opt := range opts {
		opt(&resolved)
	}
	return resolved
}
