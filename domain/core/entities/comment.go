package entities

import (
	"strings"
	"time"

	"trackd-backend/domain/core/valueobjects"
	pkgerrors "trackd-backend/pkg/errors"
)

// Comment is a sub-entity of the Issue aggregate. It is identified by its
// CommentID within the owning issue and has no meaning outside it: comments
// are created, edited and removed only through Issue methods, and are
// persisted and deleted together with their issue.
type Comment struct {
	id        valueobjects.CommentID
	authorID  valueobjects.UserID
	text      string
	createdAt time.Time
	editedAt  *time.Time
}

// NewComment creates a comment with validation. Called by the Issue root; the
// root is responsible for capacity and ownership rules.
func NewComment(authorID valueobjects.UserID, text string, maxLength int) (*Comment, error) {
	if authorID.IsZero() {
		return nil, pkgerrors.NewValidation("comment author is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, pkgerrors.NewValidation("comment text cannot be empty")
	}
	if maxLength > 0 && len(text) > maxLength {
		return nil, pkgerrors.NewValidation("comment text too long")
	}

	return &Comment{
		id:        valueobjects.NewCommentID(),
		authorID:  authorID,
		text:      text,
		createdAt: time.Now(),
	}, nil
}

// ReconstructComment recreates a comment from stored data
func ReconstructComment(
	id valueobjects.CommentID,
	authorID valueobjects.UserID,
	text string,
	createdAt time.Time,
	editedAt *time.Time,
) (*Comment, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidation("comment ID is required for reconstruction")
	}
	if authorID.IsZero() {
		return nil, pkgerrors.NewValidation("comment author is required for reconstruction")
	}

	return &Comment{
		id:        id,
		authorID:  authorID,
		text:      text,
		createdAt: createdAt,
		editedAt:  editedAt,
	}, nil
}

// ID returns the comment's identifier within its issue
func (c *Comment) ID() valueobjects.CommentID {
	return c.id
}

// AuthorID returns the comment author's identifier
func (c *Comment) AuthorID() valueobjects.UserID {
	return c.authorID
}

// Text returns the comment text
func (c *Comment) Text() string {
	return c.text
}

// CreatedAt returns when the comment was written
func (c *Comment) CreatedAt() time.Time {
	return c.createdAt
}

// EditedAt returns when the comment was last edited, nil if never
func (c *Comment) EditedAt() *time.Time {
	if c.editedAt == nil {
		return nil
	}
	t := *c.editedAt
	return &t
}

// Edit replaces the comment text. Only the owning issue calls this; external
// callers go through Issue.EditComment so the root keeps control of mutation.
func (c *Comment) Edit(text string, maxLength int) error {
	if strings.TrimSpace(text) == "" {
		return pkgerrors.NewValidation("comment text cannot be empty")
	}
	if maxLength > 0 && len(text) > maxLength {
		return pkgerrors.NewValidation("comment text too long")
	}

	c.text = text
	now := time.Now()
	c.editedAt = &now
	return nil
}

// Clone returns an independent copy, used when the root hands comments out
// without giving callers a mutable reference into the aggregate.
func (c *Comment) Clone() *Comment {
	clone := *c
	if c.editedAt != nil {
		t := *c.editedAt
		clone.editedAt = &t
	}
	return &clone
}
