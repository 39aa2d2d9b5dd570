package dynamodb

import (
	"fmt"
	"time"

	"trackd-backend/domain/core/aggregates"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Key layout: one item per aggregate, whole object graph embedded.
//
//	issue      PK=ISSUE#<id>      SK=METADATA
//	milestone  PK=MILESTONE#<id>  SK=METADATA
const (
	skMetadata      = "METADATA"
	issuePrefix     = "ISSUE#"
	milestonePrefix = "MILESTONE#"
)

type issueRecord struct {
	PK           string          `dynamodbav:"PK"`
	SK           string          `dynamodbav:"SK"`
	ID           string          `dynamodbav:"ID"`
	RepositoryID string          `dynamodbav:"RepositoryID"`
	MilestoneID  string          `dynamodbav:"MilestoneID,omitempty"`
	AuthorID     string          `dynamodbav:"AuthorID"`
	Title        string          `dynamodbav:"Title"`
	Body         string          `dynamodbav:"Body"`
	Closed       bool            `dynamodbav:"Closed"`
	CloseReason  string          `dynamodbav:"CloseReason,omitempty"`
	Labels       []labelRecord   `dynamodbav:"Labels"`
	Comments     []commentRecord `dynamodbav:"Comments"`
	CreatedAt    time.Time       `dynamodbav:"CreatedAt"`
	UpdatedAt    time.Time       `dynamodbav:"UpdatedAt"`
	Version      int             `dynamodbav:"Version"`
}

type commentRecord struct {
	ID        string     `dynamodbav:"ID"`
	AuthorID  string     `dynamodbav:"AuthorID"`
	Text      string     `dynamodbav:"Text"`
	CreatedAt time.Time  `dynamodbav:"CreatedAt"`
	EditedAt  *time.Time `dynamodbav:"EditedAt,omitempty"`
}

type labelRecord struct {
	Name  string `dynamodbav:"Name"`
	Color string `dynamodbav:"Color"`
}

type milestoneRecord struct {
	PK           string     `dynamodbav:"PK"`
	SK           string     `dynamodbav:"SK"`
	ID           string     `dynamodbav:"ID"`
	RepositoryID string     `dynamodbav:"RepositoryID"`
	Title        string     `dynamodbav:"Title"`
	DueDate      *time.Time `dynamodbav:"DueDate,omitempty"`
	Closed       bool       `dynamodbav:"Closed"`
	CreatedAt    time.Time  `dynamodbav:"CreatedAt"`
	UpdatedAt    time.Time  `dynamodbav:"UpdatedAt"`
	Version      int        `dynamodbav:"Version"`
}

func issueKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: issuePrefix + id},
		"SK": &types.AttributeValueMemberS{Value: skMetadata},
	}
}

func milestoneKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: milestonePrefix + id},
		"SK": &types.AttributeValueMemberS{Value: skMetadata},
	}
}

func toIssueRecord(snap aggregates.IssueSnapshot) issueRecord {
	record := issueRecord{
		PK:           issuePrefix + snap.ID,
		SK:           skMetadata,
		ID:           snap.ID,
		RepositoryID: snap.RepositoryID,
		MilestoneID:  snap.MilestoneID,
		AuthorID:     snap.AuthorID,
		Title:        snap.Title,
		Body:         snap.Body,
		Closed:       snap.Closed,
		CloseReason:  snap.CloseReason,
		Labels:       make([]labelRecord, len(snap.Labels)),
		Comments:     make([]commentRecord, len(snap.Comments)),
		CreatedAt:    snap.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
		Version:      snap.Version,
	}
	for i, label := range snap.Labels {
		record.Labels[i] = labelRecord{Name: label.Name, Color: label.Color}
	}
	for i, comment := range snap.Comments {
		record.Comments[i] = commentRecord(comment)
	}
	return record
}

func (r issueRecord) toSnapshot(commentsLoaded bool) aggregates.IssueSnapshot {
	snap := aggregates.IssueSnapshot{
		ID:             r.ID,
		RepositoryID:   r.RepositoryID,
		MilestoneID:    r.MilestoneID,
		AuthorID:       r.AuthorID,
		Title:          r.Title,
		Body:           r.Body,
		Closed:         r.Closed,
		CloseReason:    r.CloseReason,
		Labels:         make([]aggregates.LabelSnapshot, len(r.Labels)),
		CommentsLoaded: commentsLoaded,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Version:        r.Version,
	}
	for i, label := range r.Labels {
		snap.Labels[i] = aggregates.LabelSnapshot{Name: label.Name, Color: label.Color}
	}
	if commentsLoaded {
		snap.Comments = make([]aggregates.CommentSnapshot, len(r.Comments))
		for i, comment := range r.Comments {
			snap.Comments[i] = aggregates.CommentSnapshot(comment)
		}
	}
	return snap
}

func toMilestoneRecord(snap aggregates.MilestoneSnapshot) milestoneRecord {
	return milestoneRecord{
		PK:           milestonePrefix + snap.ID,
		SK:           skMetadata,
		ID:           snap.ID,
		RepositoryID: snap.RepositoryID,
		Title:        snap.Title,
		DueDate:      snap.DueDate,
		Closed:       snap.Closed,
		CreatedAt:    snap.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
		Version:      snap.Version,
	}
}

func (r milestoneRecord) toSnapshot() aggregates.MilestoneSnapshot {
	return aggregates.MilestoneSnapshot{
		ID:           r.ID,
		RepositoryID: r.RepositoryID,
		Title:        r.Title,
		DueDate:      r.DueDate,
		Closed:       r.Closed,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Version:      r.Version,
	}
}

func marshalRecord(record any) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return item, nil
}
