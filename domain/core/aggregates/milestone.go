package aggregates

import (
	"strings"
	"time"

	"trackd-backend/domain/config"
	"trackd-backend/domain/core/valueobjects"
	"trackd-backend/domain/events"
	pkgerrors "trackd-backend/pkg/errors"
)

// Milestone is a small aggregate root: a named target that issues reference
// by identifier. It has no sub-entities, which keeps its writes single-record,
// but it participates in the same unit-of-work and versioning discipline.
type Milestone struct {
	id           valueobjects.MilestoneID
	repositoryID valueobjects.RepositoryID
	title        string
	dueDate      *time.Time
	closed       bool
	createdAt    time.Time
	updatedAt    time.Time
	version      int
	events       []events.DomainEvent
	cfg          *config.DomainConfig
}

// NewMilestone creates a new milestone aggregate
func NewMilestone(
	id valueobjects.MilestoneID,
	repositoryID valueobjects.RepositoryID,
	title string,
	dueDate *time.Time,
	cfg *config.DomainConfig,
) (*Milestone, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if id.IsZero() {
		return nil, pkgerrors.NewValidation("milestone ID is required")
	}
	if repositoryID.IsZero() {
		return nil, pkgerrors.NewValidation("repository ID is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.NewValidation("title is required")
	}
	if len(title) > cfg.MaxMilestoneTitleLength {
		return nil, pkgerrors.NewValidation("title too long")
	}

	now := time.Now()
	milestone := &Milestone{
		id:           id,
		repositoryID: repositoryID,
		title:        title,
		dueDate:      copyTime(dueDate),
		createdAt:    now,
		updatedAt:    now,
		version:      0,
		events:       []events.DomainEvent{},
		cfg:          cfg,
	}

	milestone.addEvent(events.NewMilestoneCreated(id.String(), repositoryID.String(), title))
	return milestone, nil
}

// MilestoneSnapshot is the storage-facing projection of a Milestone
type MilestoneSnapshot struct {
	ID           string
	RepositoryID string
	Title        string
	DueDate      *time.Time
	Closed       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int
}

// Snapshot captures the aggregate's current state for persistence
func (m *Milestone) Snapshot() MilestoneSnapshot {
	return MilestoneSnapshot{
		ID:           m.id.String(),
		RepositoryID: m.repositoryID.String(),
		Title:        m.title,
		DueDate:      copyTime(m.dueDate),
		Closed:       m.closed,
		CreatedAt:    m.createdAt,
		UpdatedAt:    m.updatedAt,
		Version:      m.version,
	}
}

// ReconstructMilestone rebuilds a milestone from stored data
func ReconstructMilestone(snap MilestoneSnapshot, cfg *config.DomainConfig) (*Milestone, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	id, err := valueobjects.ParseMilestoneID(snap.ID)
	if err != nil {
		return nil, err
	}
	repositoryID, err := valueobjects.NewRepositoryID(snap.RepositoryID)
	if err != nil {
		return nil, err
	}
	if snap.Title == "" {
		return nil, pkgerrors.NewValidation("stored milestone has no title")
	}

	return &Milestone{
		id:           id,
		repositoryID: repositoryID,
		title:        snap.Title,
		dueDate:      copyTime(snap.DueDate),
		closed:       snap.Closed,
		createdAt:    snap.CreatedAt,
		updatedAt:    snap.UpdatedAt,
		version:      snap.Version,
		events:       []events.DomainEvent{},
		cfg:          cfg,
	}, nil
}

// ID returns the milestone's unique identifier
func (m *Milestone) ID() valueobjects.MilestoneID {
	return m.id
}

// RepositoryID returns the identifier of the owning repository
func (m *Milestone) RepositoryID() valueobjects.RepositoryID {
	return m.repositoryID
}

// Title returns the milestone title
func (m *Milestone) Title() string {
	return m.title
}

// DueDate returns the due date, nil when none is set
func (m *Milestone) DueDate() *time.Time {
	return copyTime(m.dueDate)
}

// IsClosed reports whether the milestone is closed
func (m *Milestone) IsClosed() bool {
	return m.closed
}

// Version returns the stored version this instance was loaded from
func (m *Milestone) Version() int {
	return m.version
}

// CreatedAt returns when the milestone was created
func (m *Milestone) CreatedAt() time.Time {
	return m.createdAt
}

// UpdatedAt returns when the milestone was last mutated
func (m *Milestone) UpdatedAt() time.Time {
	return m.updatedAt
}

// AggregateType identifies the root type for shape checks and storage keys
func (m *Milestone) AggregateType() string {
	return "milestone"
}

// AggregateVersion returns the stored version for optimistic concurrency
func (m *Milestone) AggregateVersion() int {
	return m.version
}

// Retitle changes the milestone title with validation
func (m *Milestone) Retitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return pkgerrors.NewValidation("title is required")
	}
	if len(title) > m.cfg.MaxMilestoneTitleLength {
		return pkgerrors.NewValidation("title too long")
	}

	m.title = title
	m.updatedAt = time.Now()
	return nil
}

// SetDueDate sets or clears the due date
func (m *Milestone) SetDueDate(dueDate *time.Time) {
	m.dueDate = copyTime(dueDate)
	m.updatedAt = time.Now()
}

// Close closes the milestone
func (m *Milestone) Close() error {
	if m.closed {
		return pkgerrors.NewValidation("milestone is already closed")
	}

	m.closed = true
	m.updatedAt = time.Now()

	m.addEvent(events.NewMilestoneClosed(m.id.String()))
	return nil
}

// Reopen reopens a closed milestone
func (m *Milestone) Reopen() error {
	if !m.closed {
		return pkgerrors.NewValidation("milestone is not closed")
	}

	m.closed = false
	m.updatedAt = time.Now()
	return nil
}

// UncommittedEvents returns the domain events recorded since the last commit
func (m *Milestone) UncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(m.events))
	copy(out, m.events)
	return out
}

// MarkEventsCommitted clears the recorded events after a successful commit
func (m *Milestone) MarkEventsCommitted() {
	m.events = []events.DomainEvent{}
}

func (m *Milestone) addEvent(event events.DomainEvent) {
	m.events = append(m.events, event)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
