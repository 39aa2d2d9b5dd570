package aggregates

import (
	"time"

	"trackd-backend/domain/config"
	"trackd-backend/domain/core/entities"
	"trackd-backend/domain/core/valueobjects"
	"trackd-backend/domain/events"
	pkgerrors "trackd-backend/pkg/errors"
)

// IssueSnapshot is the storage-facing projection of an Issue: the full object
// graph of the aggregate as one record. Repositories persist a snapshot as one
// logical write and reconstruct the aggregate from one.
type IssueSnapshot struct {
	ID           string
	RepositoryID string
	MilestoneID  string
	AuthorID     string
	Title        string
	Body         string
	Closed       bool
	CloseReason  string
	Labels       []LabelSnapshot
	Comments     []CommentSnapshot
	// CommentsLoaded is false when the aggregate was fetched without
	// details; a store must then keep its previously persisted comments
	// instead of overwriting them with nothing.
	CommentsLoaded bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int
}

// CommentSnapshot is the stored form of a Comment sub-entity
type CommentSnapshot struct {
	ID        string
	AuthorID  string
	Text      string
	CreatedAt time.Time
	EditedAt  *time.Time
}

// LabelSnapshot is the stored form of a Label value object
type LabelSnapshot struct {
	Name  string
	Color string
}

// Snapshot captures the aggregate's current state for persistence
func (i *Issue) Snapshot() IssueSnapshot {
	snap := IssueSnapshot{
		ID:             i.id.String(),
		RepositoryID:   i.repositoryID.String(),
		AuthorID:       i.authorID.String(),
		Title:          i.title,
		Body:           i.body,
		Closed:         i.closed,
		CloseReason:    i.closeReason,
		CommentsLoaded: i.commentsLoaded,
		CreatedAt:      i.createdAt,
		UpdatedAt:      i.updatedAt,
		Version:        i.version,
	}

	if !i.milestoneID.IsZero() {
		snap.MilestoneID = i.milestoneID.String()
	}

	snap.Labels = make([]LabelSnapshot, len(i.labels))
	for idx, label := range i.labels {
		snap.Labels[idx] = LabelSnapshot{Name: label.Name(), Color: label.Color()}
	}

	if i.commentsLoaded {
		snap.Comments = make([]CommentSnapshot, len(i.comments))
		for idx, comment := range i.comments {
			snap.Comments[idx] = CommentSnapshot{
				ID:        comment.ID().String(),
				AuthorID:  comment.AuthorID().String(),
				Text:      comment.Text(),
				CreatedAt: comment.CreatedAt(),
				EditedAt:  comment.EditedAt(),
			}
		}
	}

	return snap
}

// ReconstructIssue rebuilds an issue aggregate from stored data. No events
// are recorded and no invariants re-run beyond field integrity: the stored
// state already passed them when it was written.
func ReconstructIssue(snap IssueSnapshot, cfg *config.DomainConfig) (*Issue, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	id, err := valueobjects.ParseIssueID(snap.ID)
	if err != nil {
		return nil, err
	}
	repositoryID, err := valueobjects.NewRepositoryID(snap.RepositoryID)
	if err != nil {
		return nil, err
	}
	authorID, err := valueobjects.NewUserID(snap.AuthorID)
	if err != nil {
		return nil, err
	}
	if snap.Title == "" {
		return nil, pkgerrors.NewValidation("stored issue has no title")
	}
	if snap.Closed && snap.CloseReason == "" && cfg.RequireCloseReason {
		return nil, pkgerrors.NewValidation("stored issue is closed without a reason")
	}

	issue := &Issue{
		id:             id,
		repositoryID:   repositoryID,
		authorID:       authorID,
		title:          snap.Title,
		body:           snap.Body,
		closed:         snap.Closed,
		closeReason:    snap.CloseReason,
		labels:         []valueobjects.Label{},
		comments:       []*entities.Comment{},
		commentsLoaded: snap.CommentsLoaded,
		createdAt:      snap.CreatedAt,
		updatedAt:      snap.UpdatedAt,
		version:        snap.Version,
		events:         []events.DomainEvent{},
		cfg:            cfg,
	}

	if snap.MilestoneID != "" {
		milestoneID, err := valueobjects.ParseMilestoneID(snap.MilestoneID)
		if err != nil {
			return nil, err
		}
		issue.milestoneID = milestoneID
	}

	for _, ls := range snap.Labels {
		label, err := valueobjects.NewLabel(ls.Name, ls.Color)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "stored label is invalid")
		}
		issue.labels = append(issue.labels, label)
	}

	if snap.CommentsLoaded {
		for _, cs := range snap.Comments {
			commentID, err := valueobjects.ParseCommentID(cs.ID)
			if err != nil {
				return nil, err
			}
			commentAuthor, err := valueobjects.NewUserID(cs.AuthorID)
			if err != nil {
				return nil, err
			}
			comment, err := entities.ReconstructComment(commentID, commentAuthor, cs.Text, cs.CreatedAt, cs.EditedAt)
			if err != nil {
				return nil, err
			}
			issue.comments = append(issue.comments, comment)
		}
	}

	return issue, nil
}
