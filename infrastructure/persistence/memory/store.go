package memory

import (
	"fmt"
	"sync"

	"trackd-backend/domain/core/aggregates"
	pkgerrors "trackd-backend/pkg/errors"
)

// Store is the in-memory storage engine. It keeps whole-aggregate snapshots
// keyed by identifier and applies a scope's registered mutations atomically:
// every mutation is validated against the committed state before anything is
// written, so a failing flush leaves the store untouched.
type Store struct {
	mu         sync.RWMutex
	issues     map[string]aggregates.IssueSnapshot
	milestones map[string]aggregates.MilestoneSnapshot
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		issues:     make(map[string]aggregates.IssueSnapshot),
		milestones: make(map[string]aggregates.MilestoneSnapshot),
	}
}

type mutationKind int

const (
	mutationSaveIssue mutationKind = iota
	mutationDeleteIssue
	mutationSaveMilestone
	mutationDeleteMilestone
)

// mutation is one registered write, flushed in issuance order at commit time
type mutation struct {
	kind      mutationKind
	issue     aggregates.IssueSnapshot
	milestone aggregates.MilestoneSnapshot
	deleteID  string
}

func (k mutationKind) String() string {
	switch k {
	case mutationSaveIssue:
		return "save_issue"
	case mutationDeleteIssue:
		return "delete_issue"
	case mutationSaveMilestone:
		return "save_milestone"
	case mutationDeleteMilestone:
		return "delete_milestone"
	}
	return "unknown"
}

// GetIssue returns a deep copy of the stored snapshot. When includeDetails is
// false the comment list is stripped and marked not-loaded.
func (s *Store) GetIssue(id string, includeDetails bool) (aggregates.IssueSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.issues[id]
	if !ok {
		return aggregates.IssueSnapshot{}, false
	}

	snap := copyIssueSnapshot(stored)
	if !includeDetails {
		snap.Comments = nil
		snap.CommentsLoaded = false
	}
	return snap, true
}

// GetMilestone returns a deep copy of the stored snapshot
func (s *Store) GetMilestone(id string) (aggregates.MilestoneSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.milestones[id]
	if !ok {
		return aggregates.MilestoneSnapshot{}, false
	}
	return copyMilestoneSnapshot(stored), true
}

// HasIssue reports whether an issue is stored
func (s *Store) HasIssue(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.issues[id]
	return ok
}

// HasMilestone reports whether a milestone is stored
func (s *Store) HasMilestone(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.milestones[id]
	return ok
}

// apply flushes a scope's mutations as one physical commit. Mutations are
// staged against a copy of the committed maps and validated in issuance
// order; the store's visible state changes only if every mutation passes.
//
// Version checks compare each snapshot's loaded version against the version
// committed before this transaction, so two saves of the same instance within
// one scope both pass while a concurrent writer's commit is detected.
func (s *Store) apply(mutations []mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stagedIssues := make(map[string]aggregates.IssueSnapshot, len(s.issues))
	for k, v := range s.issues {
		stagedIssues[k] = v
	}
	stagedMilestones := make(map[string]aggregates.MilestoneSnapshot, len(s.milestones))
	for k, v := range s.milestones {
		stagedMilestones[k] = v
	}

	for _, m := range mutations {
		switch m.kind {
		case mutationSaveIssue:
			base, existed := s.issues[m.issue.ID]
			if err := checkVersion(existed, base.Version, m.issue.Version, "issue", m.issue.ID); err != nil {
				return err
			}
			next := copyIssueSnapshot(m.issue)
			if !next.CommentsLoaded {
				// The aggregate was loaded without details; keep the
				// comments it never saw instead of erasing them.
				if staged, ok := stagedIssues[next.ID]; ok {
					next.Comments = staged.Comments
				}
				next.CommentsLoaded = true
			}
			next.Version = m.issue.Version + 1
			stagedIssues[next.ID] = next

		case mutationDeleteIssue:
			if _, ok := stagedIssues[m.deleteID]; !ok {
				return pkgerrors.NewNotFound(fmt.Sprintf("issue %s", m.deleteID))
			}
			delete(stagedIssues, m.deleteID)

		case mutationSaveMilestone:
			base, existed := s.milestones[m.milestone.ID]
			if err := checkVersion(existed, base.Version, m.milestone.Version, "milestone", m.milestone.ID); err != nil {
				return err
			}
			next := copyMilestoneSnapshot(m.milestone)
			next.Version = m.milestone.Version + 1
			stagedMilestones[next.ID] = next

		case mutationDeleteMilestone:
			if _, ok := stagedMilestones[m.deleteID]; !ok {
				return pkgerrors.NewNotFound(fmt.Sprintf("milestone %s", m.deleteID))
			}
			delete(stagedMilestones, m.deleteID)
		}
	}

	s.issues = stagedIssues
	s.milestones = stagedMilestones
	return nil
}

func checkVersion(existed bool, stored, loaded int, kind, id string) error {
	if !existed {
		if loaded != 0 {
			return pkgerrors.NewConflict(fmt.Sprintf(
				"%s %s was deleted by a concurrent writer", kind, id))
		}
		return nil
	}
	if stored != loaded {
		return pkgerrors.NewConflict(fmt.Sprintf(
			"%s %s was modified by a concurrent writer (stored version %d, loaded version %d)",
			kind, id, stored, loaded))
	}
	return nil
}

func copyIssueSnapshot(snap aggregates.IssueSnapshot) aggregates.IssueSnapshot {
	out := snap

	out.Labels = make([]aggregates.LabelSnapshot, len(snap.Labels))
	copy(out.Labels, snap.Labels)

	out.Comments = make([]aggregates.CommentSnapshot, len(snap.Comments))
	for i, c := range snap.Comments {
		if c.EditedAt != nil {
			t := *c.EditedAt
			c.EditedAt = &t
		}
		out.Comments[i] = c
	}
	return out
}

func copyMilestoneSnapshot(snap aggregates.MilestoneSnapshot) aggregates.MilestoneSnapshot {
	out := snap
	if snap.DueDate != nil {
		t := *snap.DueDate
		out.DueDate = &t
	}
	return out
}
