package services

import (
	"context"
	"time"

	"trackd-backend/application/ports"
	"trackd-backend/domain/config"
	"trackd-backend/domain/core/aggregates"
	"trackd-backend/domain/core/valueobjects"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MilestoneService implements the milestone use cases
type MilestoneService struct {
	uow    ports.UnitOfWork
	cfg    *config.Holder
	logger *zap.Logger
	tracer trace.Tracer
}

// NewMilestoneService creates the milestone application service
func NewMilestoneService(uow ports.UnitOfWork, cfg *config.Holder, logger *zap.Logger) *MilestoneService {
	if cfg == nil {
		cfg = config.NewHolder(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MilestoneService{
		uow:    uow,
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("trackd-backend/application/services"),
	}
}

// CreateMilestoneRequest carries the inputs for creating a milestone
type CreateMilestoneRequest struct {
	RepositoryID string
	Title        string
	DueDate      *time.Time
}

// CreateMilestone creates and persists a new milestone
func (s *MilestoneService) CreateMilestone(ctx context.Context, req CreateMilestoneRequest) (*aggregates.Milestone, error) {
	ctx, span := s.tracer.Start(ctx, "MilestoneService.CreateMilestone")
	defer span.End()

	repositoryID, err := valueobjects.NewRepositoryID(req.RepositoryID)
	if err != nil {
		return nil, err
	}

	milestone, err := aggregates.NewMilestone(valueobjects.NewMilestoneID(), repositoryID, req.Title, req.DueDate, s.cfg.Current())
	if err != nil {
		return nil, err
	}

	scope, err := s.uow.Begin(ctx, ports.ScopeOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	if err := scope.Milestones().Save(ctx, milestone); err != nil {
		return nil, err
	}
	if err := scope.Complete(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("milestone created",
		zap.String("milestone_id", milestone.ID().String()),
		zap.String("repository_id", repositoryID.String()),
	)
	return milestone, nil
}

// GetMilestone loads a milestone by identifier
func (s *MilestoneService) GetMilestone(ctx context.Context, milestoneID string) (*aggregates.Milestone, error) {
	ctx, span := s.tracer.Start(ctx, "MilestoneService.GetMilestone")
	defer span.End()

	id, err := valueobjects.ParseMilestoneID(milestoneID)
	if err != nil {
		return nil, err
	}

	scope, err := s.uow.Begin(ctx, ports.ScopeOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	return scope.Milestones().Get(ctx, id)
}

// RetitleMilestone changes a milestone's title
func (s *MilestoneService) RetitleMilestone(ctx context.Context, milestoneID, title string) error {
	ctx, span := s.tracer.Start(ctx, "MilestoneService.RetitleMilestone")
	defer span.End()

	return s.mutateMilestone(ctx, milestoneID, func(m *aggregates.Milestone) error {
		return m.Retitle(title)
	})
}

// SetDueDate sets or clears a milestone's due date
func (s *MilestoneService) SetDueDate(ctx context.Context, milestoneID string, dueDate *time.Time) error {
	ctx, span := s.tracer.Start(ctx, "MilestoneService.SetDueDate")
	defer span.End()

	return s.mutateMilestone(ctx, milestoneID, func(m *aggregates.Milestone) error {
		m.SetDueDate(dueDate)
		return nil
	})
}

// CloseMilestone closes a milestone
func (s *MilestoneService) CloseMilestone(ctx context.Context, milestoneID string) error {
	ctx, span := s.tracer.Start(ctx, "MilestoneService.CloseMilestone")
	defer span.End()

	return s.mutateMilestone(ctx, milestoneID, func(m *aggregates.Milestone) error {
		return m.Close()
	})
}

// ReopenMilestone reopens a closed milestone
func (s *MilestoneService) ReopenMilestone(ctx context.Context, milestoneID string) error {
	ctx, span := s.tracer.Start(ctx, "MilestoneService.ReopenMilestone")
	defer span.End()

	return s.mutateMilestone(ctx, milestoneID, func(m *aggregates.Milestone) error {
		return m.Reopen()
	})
}

// DeleteMilestone removes a milestone. Issues referencing it keep their
// identifier; a dangling reference is resolved at read time, never by a
// cascade into another aggregate.
func (s *MilestoneService) DeleteMilestone(ctx context.Context, milestoneID string) error {
	ctx, span := s.tracer.Start(ctx, "MilestoneService.DeleteMilestone")
	defer span.End()

	id, err := valueobjects.ParseMilestoneID(milestoneID)
	if err != nil {
		return err
	}

	scope, err := s.uow.Begin(ctx, ports.ScopeOptions{})
	if err != nil {
		return err
	}
	defer scope.Close(ctx)

	if err := scope.Milestones().Delete(ctx, id); err != nil {
		return err
	}
	return scope.Complete(ctx)
}

func (s *MilestoneService) mutateMilestone(ctx context.Context, milestoneID string, mutate func(*aggregates.Milestone) error) error {
	id, err := valueobjects.ParseMilestoneID(milestoneID)
	if err != nil {
		return err
	}

	scope, err := s.uow.Begin(ctx, ports.ScopeOptions{})
	if err != nil {
		return err
	}
	defer scope.Close(ctx)

	milestone, err := scope.Milestones().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(milestone); err != nil {
		return err
	}
	if err := scope.Milestones().Save(ctx, milestone); err != nil {
		return err
	}
	return scope.Complete(ctx)
}
