package events

// MilestoneCreated is emitted when a milestone aggregate is created
type MilestoneCreated struct {
	BaseEvent
	MilestoneID  string `json:"milestoneId"`
	RepositoryID string `json:"repositoryId"`
	Title        string `json:"title"`
}

// NewMilestoneCreated creates a new milestone created event
func NewMilestoneCreated(milestoneID, repositoryID, title string) MilestoneCreated {
	return MilestoneCreated{
		BaseEvent:    newBaseEvent(milestoneID, TypeMilestoneCreated),
		MilestoneID:  milestoneID,
		RepositoryID: repositoryID,
		Title:        title,
	}
}

// MilestoneClosed is emitted when a milestone is closed
type MilestoneClosed struct {
	BaseEvent
	MilestoneID string `json:"milestoneId"`
}

// NewMilestoneClosed creates a new milestone closed event
func NewMilestoneClosed(milestoneID string) MilestoneClosed {
	return MilestoneClosed{
		BaseEvent:   newBaseEvent(milestoneID, TypeMilestoneClosed),
		MilestoneID: milestoneID,
	}
}
