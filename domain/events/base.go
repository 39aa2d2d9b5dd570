package events

import "time"

// Event source identifier used by downstream publishers
const SourceTracker = "trackd.tracker"

// Event type constants
const (
	TypeIssueOpened       = "issue.opened"
	TypeIssueClosed       = "issue.closed"
	TypeIssueReopened     = "issue.reopened"
	TypeIssueRetitled     = "issue.retitled"
	TypeCommentAdded      = "issue.comment_added"
	TypeCommentEdited     = "issue.comment_edited"
	TypeCommentRemoved    = "issue.comment_removed"
	TypeLabelAttached     = "issue.label_attached"
	TypeLabelDetached     = "issue.label_detached"
	TypeMilestoneAssigned = "issue.milestone_assigned"
	TypeMilestoneCreated  = "milestone.created"
	TypeMilestoneClosed   = "milestone.closed"
)

// DomainEvent is the contract every domain event satisfies. Events are
// recorded on the aggregate during a unit of work and become visible to
// subscribers only after a successful commit.
type DomainEvent interface {
	GetEventType() string
	GetAggregateID() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent carries the fields shared by all domain events
type BaseEvent struct {
	AggregateID string    `json:"aggregateId"`
	EventType   string    `json:"eventType"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

// GetEventType returns the event type
func (e BaseEvent) GetEventType() string {
	return e.EventType
}

// GetAggregateID returns the aggregate ID
func (e BaseEvent) GetAggregateID() string {
	return e.AggregateID
}

// GetTimestamp returns the event timestamp
func (e BaseEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

// GetVersion returns the event schema version
func (e BaseEvent) GetVersion() int {
	return e.Version
}

func newBaseEvent(aggregateID, eventType string) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   time.Now(),
		Version:     1,
	}
}
