package valueobjects

import (
	pkgerrors "trackd-backend/pkg/errors"

	"github.com/google/uuid"
)

// Identifier types for every aggregate the tracker knows about. Identity is
// generated in the application layer, before anything is persisted, so an
// aggregate can carry its final ID from the moment it is constructed.
//
// Cross-aggregate relations are expressed with these types only; an aggregate
// never holds an in-memory handle to another aggregate.

// IssueID uniquely identifies an issue aggregate
type IssueID struct {
	value string
}

// NewIssueID creates a new random IssueID
func NewIssueID() IssueID {
	return IssueID{value: uuid.New().String()}
}

// ParseIssueID validates and wraps an existing identifier
func ParseIssueID(value string) (IssueID, error) {
	if _, err := uuid.Parse(value); err != nil {
		return IssueID{}, pkgerrors.NewValidation("invalid issue ID format")
	}
	return IssueID{value: value}, nil
}

// String returns the string representation
func (id IssueID) String() string {
	return id.value
}

// Equals checks identifier equality
func (id IssueID) Equals(other IssueID) bool {
	return id.value == other.value
}

// IsZero reports whether the identifier is unset
func (id IssueID) IsZero() bool {
	return id.value == ""
}

// CommentID identifies a comment within its owning issue
type CommentID struct {
	value string
}

// NewCommentID creates a new random CommentID
func NewCommentID() CommentID {
	return CommentID{value: uuid.New().String()}
}

// ParseCommentID validates and wraps an existing identifier
func ParseCommentID(value string) (CommentID, error) {
	if _, err := uuid.Parse(value); err != nil {
		return CommentID{}, pkgerrors.NewValidation("invalid comment ID format")
	}
	return CommentID{value: value}, nil
}

// String returns the string representation
func (id CommentID) String() string {
	return id.value
}

// Equals checks identifier equality
func (id CommentID) Equals(other CommentID) bool {
	return id.value == other.value
}

// IsZero reports whether the identifier is unset
func (id CommentID) IsZero() bool {
	return id.value == ""
}

// MilestoneID uniquely identifies a milestone aggregate
type MilestoneID struct {
	value string
}

// NewMilestoneID creates a new random MilestoneID
func NewMilestoneID() MilestoneID {
	return MilestoneID{value: uuid.New().String()}
}

// ParseMilestoneID validates and wraps an existing identifier
func ParseMilestoneID(value string) (MilestoneID, error) {
	if _, err := uuid.Parse(value); err != nil {
		return MilestoneID{}, pkgerrors.NewValidation("invalid milestone ID format")
	}
	return MilestoneID{value: value}, nil
}

// String returns the string representation
func (id MilestoneID) String() string {
	return id.value
}

// Equals checks identifier equality
func (id MilestoneID) Equals(other MilestoneID) bool {
	return id.value == other.value
}

// IsZero reports whether the identifier is unset
func (id MilestoneID) IsZero() bool {
	return id.value == ""
}

// RepositoryID identifies the code repository an issue belongs to.
// Repositories are a separate aggregate owned by another service, so only the
// identifier crosses the boundary.
type RepositoryID struct {
	value string
}

// NewRepositoryID wraps an externally assigned repository identifier
func NewRepositoryID(value string) (RepositoryID, error) {
	if value == "" {
		return RepositoryID{}, pkgerrors.NewValidation("repository ID cannot be empty")
	}
	return RepositoryID{value: value}, nil
}

// String returns the string representation
func (id RepositoryID) String() string {
	return id.value
}

// Equals checks identifier equality
func (id RepositoryID) Equals(other RepositoryID) bool {
	return id.value == other.value
}

// IsZero reports whether the identifier is unset
func (id RepositoryID) IsZero() bool {
	return id.value == ""
}

// UserID identifies the author of issues and comments. Users live in the
// identity service; only their identifier is stored here.
type UserID struct {
	value string
}

// NewUserID wraps an externally assigned user identifier
func NewUserID(value string) (UserID, error) {
	if value == "" {
		return UserID{}, pkgerrors.NewValidation("user ID cannot be empty")
	}
	return UserID{value: value}, nil
}

// String returns the string representation
func (id UserID) String() string {
	return id.value
}

// Equals checks identifier equality
func (id UserID) Equals(other UserID) bool {
	return id.value == other.value
}

// IsZero reports whether the identifier is unset
func (id UserID) IsZero() bool {
	return id.value == ""
}
