package config

// DomainConfig holds all configurable business rules and constraints.
// Sub-collection caps keep aggregate I/O cost predictable: every aggregate is
// loaded and written as one unit, so an unbounded collection would make every
// load pay for it.
type DomainConfig struct {
	// Issue constraints
	MaxCommentsPerIssue int
	MaxLabelsPerIssue   int
	MaxTitleLength      int
	MaxBodyLength       int
	MaxCommentLength    int

	// Milestone constraints
	MaxMilestoneTitleLength int

	// Validation settings
	RequireCloseReason bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Issue constraints
		MaxCommentsPerIssue: 150,
		MaxLabelsPerIssue:   100,
		MaxTitleLength:      200,
		MaxBodyLength:       50000,
		MaxCommentLength:    10000,

		// Milestone constraints
		MaxMilestoneTitleLength: 200,

		// Validation settings
		RequireCloseReason: true,
	}
}
