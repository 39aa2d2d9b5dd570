package events

// IssueOpened is emitted when a new issue aggregate is created
type IssueOpened struct {
	BaseEvent
	IssueID      string `json:"issueId"`
	RepositoryID string `json:"repositoryId"`
	AuthorID     string `json:"authorId"`
	Title        string `json:"title"`
}

// NewIssueOpened creates a new issue opened event
func NewIssueOpened(issueID, repositoryID, authorID, title string) IssueOpened {
	return IssueOpened{
		BaseEvent:    newBaseEvent(issueID, TypeIssueOpened),
		IssueID:      issueID,
		RepositoryID: repositoryID,
		AuthorID:     authorID,
		Title:        title,
	}
}

// IssueClosed is emitted when an issue is closed with a reason
type IssueClosed struct {
	BaseEvent
	IssueID string `json:"issueId"`
	Reason  string `json:"reason"`
}

// NewIssueClosed creates a new issue closed event
func NewIssueClosed(issueID, reason string) IssueClosed {
	return IssueClosed{
		BaseEvent: newBaseEvent(issueID, TypeIssueClosed),
		IssueID:   issueID,
		Reason:    reason,
	}
}

// IssueReopened is emitted when a closed issue is reopened
type IssueReopened struct {
	BaseEvent
	IssueID string `json:"issueId"`
}

// NewIssueReopened creates a new issue reopened event
func NewIssueReopened(issueID string) IssueReopened {
	return IssueReopened{
		BaseEvent: newBaseEvent(issueID, TypeIssueReopened),
		IssueID:   issueID,
	}
}

// IssueRetitled is emitted when an issue's title changes
type IssueRetitled struct {
	BaseEvent
	IssueID  string `json:"issueId"`
	OldTitle string `json:"oldTitle"`
	NewTitle string `json:"newTitle"`
}

// NewIssueRetitled creates a new issue retitled event
func NewIssueRetitled(issueID, oldTitle, newTitle string) IssueRetitled {
	return IssueRetitled{
		BaseEvent: newBaseEvent(issueID, TypeIssueRetitled),
		IssueID:   issueID,
		OldTitle:  oldTitle,
		NewTitle:  newTitle,
	}
}

// CommentAdded is emitted when a comment is added to an issue
type CommentAdded struct {
	BaseEvent
	IssueID   string `json:"issueId"`
	CommentID string `json:"commentId"`
	AuthorID  string `json:"authorId"`
}

// NewCommentAdded creates a new comment added event
func NewCommentAdded(issueID, commentID, authorID string) CommentAdded {
	return CommentAdded{
		BaseEvent: newBaseEvent(issueID, TypeCommentAdded),
		IssueID:   issueID,
		CommentID: commentID,
		AuthorID:  authorID,
	}
}

// CommentEdited is emitted when a comment's text changes
type CommentEdited struct {
	BaseEvent
	IssueID   string `json:"issueId"`
	CommentID string `json:"commentId"`
}

// NewCommentEdited creates a new comment edited event
func NewCommentEdited(issueID, commentID string) CommentEdited {
	return CommentEdited{
		BaseEvent: newBaseEvent(issueID, TypeCommentEdited),
		IssueID:   issueID,
		CommentID: commentID,
	}
}

// CommentRemoved is emitted when a comment is removed from an issue
type CommentRemoved struct {
	BaseEvent
	IssueID   string `json:"issueId"`
	CommentID string `json:"commentId"`
}

// NewCommentRemoved creates a new comment removed event
func NewCommentRemoved(issueID, commentID string) CommentRemoved {
	return CommentRemoved{
		BaseEvent: newBaseEvent(issueID, TypeCommentRemoved),
		IssueID:   issueID,
		CommentID: commentID,
	}
}

// LabelAttached is emitted when a label is attached to an issue
type LabelAttached struct {
	BaseEvent
	IssueID string `json:"issueId"`
	Label   string `json:"label"`
}

// NewLabelAttached creates a new label attached event
func NewLabelAttached(issueID, label string) LabelAttached {
	return LabelAttached{
		BaseEvent: newBaseEvent(issueID, TypeLabelAttached),
		IssueID:   issueID,
		Label:     label,
	}
}

// LabelDetached is emitted when a label is detached from an issue
type LabelDetached struct {
	BaseEvent
	IssueID string `json:"issueId"`
	Label   string `json:"label"`
}

// NewLabelDetached creates a new label detached event
func NewLabelDetached(issueID, label string) LabelDetached {
	return LabelDetached{
		BaseEvent: newBaseEvent(issueID, TypeLabelDetached),
		IssueID:   issueID,
		Label:     label,
	}
}

// MilestoneAssigned is emitted when an issue is assigned to a milestone
type MilestoneAssigned struct {
	BaseEvent
	IssueID     string `json:"issueId"`
	MilestoneID string `json:"milestoneId"`
}

// NewMilestoneAssigned creates a new milestone assigned event
func NewMilestoneAssigned(issueID, milestoneID string) MilestoneAssigned {
	return MilestoneAssigned{
		BaseEvent:   newBaseEvent(issueID, TypeMilestoneAssigned),
		IssueID:     issueID,
		MilestoneID: milestoneID,
	}
}
