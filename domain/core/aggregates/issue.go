package aggregates

import (
	"strings"
	"time"

	"trackd-backend/domain/config"
	"trackd-backend/domain/core/entities"
	"trackd-backend/domain/core/guard"
	"trackd-backend/domain/core/valueobjects"
	"trackd-backend/domain/events"
	pkgerrors "trackd-backend/pkg/errors"
)

// Issue is the aggregate root for a tracker issue. It owns its comments and
// labels: they are created, mutated and removed only through methods on the
// root, and they are loaded and persisted together with it as one unit.
//
// Other aggregates (repository, milestone, user) are referenced by identifier
// only; the root never holds an in-memory handle to another root.
type Issue struct {
	id           valueobjects.IssueID
	repositoryID valueobjects.RepositoryID
	milestoneID  valueobjects.MilestoneID // zero when unassigned
	authorID     valueobjects.UserID
	title        string
	body         string
	closed       bool
	closeReason  string
	labels       []valueobjects.Label
	comments     []*entities.Comment
	// commentsLoaded distinguishes "fetched and empty" from "not fetched".
	// Reading comments while false fails fast instead of lying with an
	// empty slice.
	commentsLoaded bool
	createdAt      time.Time
	updatedAt      time.Time
	version        int // stored version this instance was loaded from; 0 = new
	events         []events.DomainEvent
	cfg            *config.DomainConfig
}

// NewIssue creates a new issue aggregate. The identifier is produced by the
// caller (valueobjects.NewIssueID), so identity assignment does not depend on
// the aggregate ever reaching storage.
func NewIssue(
	id valueobjects.IssueID,
	repositoryID valueobjects.RepositoryID,
	authorID valueobjects.UserID,
	title string,
	body string,
	cfg *config.DomainConfig,
) (*Issue, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if id.IsZero() {
		return nil, pkgerrors.NewValidation("issue ID is required")
	}
	if repositoryID.IsZero() {
		return nil, pkgerrors.NewValidation("repository ID is required")
	}
	if authorID.IsZero() {
		return nil, pkgerrors.NewValidation("author is required")
	}
	if err := validateTitle(title, cfg); err != nil {
		return nil, err
	}
	if len(body) > cfg.MaxBodyLength {
		return nil, pkgerrors.NewValidation("body too long")
	}

	now := time.Now()
	issue := &Issue{
		id:             id,
		repositoryID:   repositoryID,
		authorID:       authorID,
		title:          strings.TrimSpace(title),
		body:           body,
		labels:         []valueobjects.Label{},
		comments:       []*entities.Comment{},
		commentsLoaded: true,
		createdAt:      now,
		updatedAt:      now,
		version:        0,
		events:         []events.DomainEvent{},
		cfg:            cfg,
	}

	issue.addEvent(events.NewIssueOpened(
		issue.id.String(),
		repositoryID.String(),
		authorID.String(),
		issue.title,
	))

	return issue, nil
}

// ID returns the issue's unique identifier
func (i *Issue) ID() valueobjects.IssueID {
	return i.id
}

// RepositoryID returns the identifier of the repository the issue belongs to
func (i *Issue) RepositoryID() valueobjects.RepositoryID {
	return i.repositoryID
}

// MilestoneID returns the assigned milestone identifier, zero when unassigned
func (i *Issue) MilestoneID() valueobjects.MilestoneID {
	return i.milestoneID
}

// AuthorID returns the identifier of the user who opened the issue
func (i *Issue) AuthorID() valueobjects.UserID {
	return i.authorID
}

// Title returns the issue title
func (i *Issue) Title() string {
	return i.title
}

// Body returns the issue body
func (i *Issue) Body() string {
	return i.body
}

// IsClosed reports whether the issue is closed
func (i *Issue) IsClosed() bool {
	return i.closed
}

// CloseReason returns the reason the issue was closed, empty while open
func (i *Issue) CloseReason() string {
	return i.closeReason
}

// Version returns the stored version this instance was loaded from.
// Save compares it against the currently stored version to detect
// concurrent writers.
func (i *Issue) Version() int {
	return i.version
}

// CreatedAt returns when the issue was opened
func (i *Issue) CreatedAt() time.Time {
	return i.createdAt
}

// UpdatedAt returns when the issue was last mutated
func (i *Issue) UpdatedAt() time.Time {
	return i.updatedAt
}

// AggregateType identifies the root type for shape checks and storage keys
func (i *Issue) AggregateType() string {
	return "issue"
}

// AggregateVersion returns the stored version for optimistic concurrency
func (i *Issue) AggregateVersion() int {
	return i.version
}

// Retitle changes the issue title with validation
func (i *Issue) Retitle(title string) error {
	if err := validateTitle(title, i.cfg); err != nil {
		return err
	}

	title = strings.TrimSpace(title)
	if title == i.title {
		return nil
	}

	oldTitle := i.title
	i.title = title
	i.touch()

	i.addEvent(events.NewIssueRetitled(i.id.String(), oldTitle, title))
	return nil
}

// UpdateBody replaces the issue body
func (i *Issue) UpdateBody(body string) error {
	if len(body) > i.cfg.MaxBodyLength {
		return pkgerrors.NewValidation("body too long")
	}
	i.body = body
	i.touch()
	return nil
}

// Close closes the issue. The closed flag and its reason always change
// together through this method so no caller can observe one without the
// other.
func (i *Issue) Close(reason string) error {
	if i.closed {
		return pkgerrors.NewValidation("issue is already closed")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" && i.cfg.RequireCloseReason {
		return pkgerrors.NewValidation("close reason is required")
	}

	i.closed = true
	i.closeReason = reason
	i.touch()

	i.addEvent(events.NewIssueClosed(i.id.String(), reason))
	return nil
}

// Reopen reopens a closed issue, clearing the close reason with the flag
func (i *Issue) Reopen() error {
	if !i.closed {
		return pkgerrors.NewValidation("issue is not closed")
	}

	i.closed = false
	i.closeReason = ""
	i.touch()

	i.addEvent(events.NewIssueReopened(i.id.String()))
	return nil
}

// AssignMilestone records a milestone reference. The milestone's existence is
// the application layer's concern; the aggregate only stores the identifier.
func (i *Issue) AssignMilestone(milestoneID valueobjects.MilestoneID) error {
	if milestoneID.IsZero() {
		return pkgerrors.NewValidation("milestone ID is required")
	}
	if i.milestoneID.Equals(milestoneID) {
		return nil
	}

	i.milestoneID = milestoneID
	i.touch()

	i.addEvent(events.NewMilestoneAssigned(i.id.String(), milestoneID.String()))
	return nil
}

// ClearMilestone removes the milestone reference
func (i *Issue) ClearMilestone() {
	i.milestoneID = valueobjects.MilestoneID{}
	i.touch()
}

// AddComment appends a comment authored by the given user. The comment list
// must have been loaded; the capacity check runs before anything is added.
func (i *Issue) AddComment(authorID valueobjects.UserID, text string) (*entities.Comment, error) {
	if !i.commentsLoaded {
		return nil, pkgerrors.NewNotLoaded("comments were not loaded for this issue")
	}

	if err := guard.CheckCapacity("comments", len(i.comments), i.cfg.MaxCommentsPerIssue); err != nil {
		return nil, err
	}

	comment, err := entities.NewComment(authorID, text, i.cfg.MaxCommentLength)
	if err != nil {
		return nil, err
	}

	i.comments = append(i.comments, comment)
	i.touch()

	i.addEvent(events.NewCommentAdded(i.id.String(), comment.ID().String(), authorID.String()))
	return comment.Clone(), nil
}

// EditComment replaces the text of an owned comment
func (i *Issue) EditComment(commentID valueobjects.CommentID, text string) error {
	if !i.commentsLoaded {
		return pkgerrors.NewNotLoaded("comments were not loaded for this issue")
	}

	for _, comment := range i.comments {
		if comment.ID().Equals(commentID) {
			if err := comment.Edit(text, i.cfg.MaxCommentLength); err != nil {
				return err
			}
			i.touch()
			i.addEvent(events.NewCommentEdited(i.id.String(), commentID.String()))
			return nil
		}
	}
	return pkgerrors.NewNotFound("comment")
}

// RemoveComment deletes an owned comment
func (i *Issue) RemoveComment(commentID valueobjects.CommentID) error {
	if !i.commentsLoaded {
		return pkgerrors.NewNotLoaded("comments were not loaded for this issue")
	}

	for idx, comment := range i.comments {
		if comment.ID().Equals(commentID) {
			i.comments = append(i.comments[:idx], i.comments[idx+1:]...)
			i.touch()
			i.addEvent(events.NewCommentRemoved(i.id.String(), commentID.String()))
			return nil
		}
	}
	return pkgerrors.NewNotFound("comment")
}

// Comments returns copies of the owned comments. Fails fast when the issue
// was loaded without details.
func (i *Issue) Comments() ([]*entities.Comment, error) {
	if !i.commentsLoaded {
		return nil, pkgerrors.NewNotLoaded("comments were not loaded for this issue")
	}

	comments := make([]*entities.Comment, len(i.comments))
	for idx, comment := range i.comments {
		comments[idx] = comment.Clone()
	}
	return comments, nil
}

// CommentCount returns the number of owned comments
func (i *Issue) CommentCount() (int, error) {
	if !i.commentsLoaded {
		return 0, pkgerrors.NewNotLoaded("comments were not loaded for this issue")
	}
	return len(i.comments), nil
}

// CommentsLoaded reports whether the comment list was fetched
func (i *Issue) CommentsLoaded() bool {
	return i.commentsLoaded
}

// AttachLabel adds a label. Attaching an already-present label is a no-op.
func (i *Issue) AttachLabel(label valueobjects.Label) error {
	if label.IsZero() {
		return pkgerrors.NewValidation("label is required")
	}

	for _, existing := range i.labels {
		if existing.Equals(label) {
			return nil
		}
	}

	if err := guard.CheckCapacity("labels", len(i.labels), i.cfg.MaxLabelsPerIssue); err != nil {
		return err
	}

	i.labels = append(i.labels, label)
	i.touch()

	i.addEvent(events.NewLabelAttached(i.id.String(), label.Name()))
	return nil
}

// DetachLabel removes a label by name
func (i *Issue) DetachLabel(name string) error {
	for idx, label := range i.labels {
		if label.Name() == name {
			i.labels = append(i.labels[:idx], i.labels[idx+1:]...)
			i.touch()
			i.addEvent(events.NewLabelDetached(i.id.String(), name))
			return nil
		}
	}
	return pkgerrors.NewNotFound("label")
}

// Labels returns a copy of the attached labels
func (i *Issue) Labels() []valueobjects.Label {
	labels := make([]valueobjects.Label, len(i.labels))
	copy(labels, i.labels)
	return labels
}

// UncommittedEvents returns the domain events recorded since the last commit
func (i *Issue) UncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(i.events))
	copy(out, i.events)
	return out
}

// MarkEventsCommitted clears the recorded events after a successful commit
func (i *Issue) MarkEventsCommitted() {
	i.events = []events.DomainEvent{}
}

func (i *Issue) addEvent(event events.DomainEvent) {
	i.events = append(i.events, event)
}

func (i *Issue) touch() {
	i.updatedAt = time.Now()
}

func validateTitle(title string, cfg *config.DomainConfig) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return pkgerrors.NewValidation("title is required")
	}
	if len(title) > cfg.MaxTitleLength {
		return pkgerrors.NewValidation("title too long")
	}
	return nil
}
