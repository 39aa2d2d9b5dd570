package services

import (
	"context"

	"trackd-backend/application/ports"
	"trackd-backend/domain/config"
	"trackd-backend/domain/core/aggregates"
	"trackd-backend/domain/core/entities"
	"trackd-backend/domain/core/valueobjects"
	pkgerrors "trackd-backend/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// IssueService implements the issue use cases. Every method opens exactly one
// unit-of-work scope, does all repository work through it, and completes it;
// nothing here holds transactional state between calls.
type IssueService struct {
	uow    ports.UnitOfWork
	cfg    *config.Holder
	logger *zap.Logger
	tracer trace.Tracer
}

// NewIssueService creates the issue application service
func NewIssueService(uow ports.UnitOfWork, cfg *config.Holder, logger *zap.Logger) *IssueService {
	if cfg == nil {
		cfg = config.NewHolder(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueService{
		uow:    uow,
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("trackd-backend/application/services"),
	}
}

// CreateIssueRequest carries the inputs for opening a new issue
type CreateIssueRequest struct {
	RepositoryID string
	AuthorID     string
	Title        string
	Body         string
}

// CreateIssue opens a new issue. The identifier is generated before the
// aggregate is built, so the caller gets it back even if persistence fails
// and retries reuse a fresh one.
func (s *IssueService) CreateIssue(ctx context.Context, req CreateIssueRequest) (*aggregates.Issue, error) {
	ctx, span := s.tracer.Start(ctx, "IssueService.CreateIssue")
	defer span.End()

	repositoryID, err := valueobjects.NewRepositoryID(req.RepositoryID)
	if err != nil {
		return nil, err
	}
	authorID, err := valueobjects.NewUserID(req.AuthorID)
	if err != nil {
		return nil, err
	}

	issue, err := aggregates.NewIssue(valueobjects.NewIssueID(), repositoryID, authorID, req.Title, req.Body, s.cfg.Current())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("issue.id", issue.ID().String()))

	scope, err := s.uow.Begin(ctx, ports.ScopeOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	if err := scope.Issues().Save(ctx, issue); err != nil {
		return nil, err
	}
	if err := scope.Complete(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("issue created",
		zap.String("issue_id", issue.ID().String()),
		zap.String("repository_id", repositoryID.String()),
	)
	return issue, nil
}

// GetIssue loads an issue with all sub-collections populated
func (s *IssueService) GetIssue(ctx context.Context, issueID string) (*aggregates.Issue, error) {
	ctx, span := s.tracer.Start(ctx, "IssueService.GetIssue")
	defer span.End()

	id, err := valueobjects.ParseIssueID(issueID)
	if err != nil {
		return nil, err
	}

	scope, err := s.uow.Begin(ctx, ports.ScopeOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	return scope.Issues().Get(ctx, id)
}

// AddComment appends a comment to an issue and returns the created comment
func (s *IssueService) AddComment(ctx context.Context, issueID, authorID, text string) (*entities.Comment, error) {
	ctx, span := s.tracer.Start(ctx, "IssueService.AddComment")
	defer span.End()

	author, err := valueobjects.NewUserID(authorID)
	if err != nil {
		return nil, err
	}

	var comment *entities.Comment
	err = s.mutateIssue(ctx, issueID, func(issue *aggregates.Issue) error {
		comment, err = issue.AddComment(author, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// EditComment replaces the text of an existing comment
func (s *IssueService) EditComment(ctx context.Context, issueID, commentID, text string) error {
	ctx, span := s.tracer.Start(ctx, "IssueService.EditComment")
	defer span.End()

	cid, err := valueobjects.ParseCommentID(commentID)
	if err != nil {
		return err
	}
	return s.mutateIssue(ctx, issueID, func(issue *aggregates.Issue) error {
		return issue.EditComment(cid, text)
	})
}

// RemoveComment deletes a comment from an issue
func (s *IssueService) RemoveComment(ctx context.Context, issueID, commentID string) error {
	ctx, span := s.tracer.Start(ctx, "IssueService.RemoveComment")
	defer span.End()

	cid, err := valueobjects.ParseCommentID(commentID)
	if err != nil {
		return err
	}
	return s.mutateIssue(ctx, issueID, func(issue *aggregates.Issue) error {
		return issue.RemoveComment(cid)
	})
}

// RetitleIssue changes an issue's title
func (s *IssueService) RetitleIssue(ctx context.Context, issueID, title string) error {
	ctx, span := s.tracer.Start(ctx, "IssueService.RetitleIssue")
	defer span.End()

	return s.mutateIssue(ctx, issueID, func(issue *aggregates.Issue) error {
		return issue.Retitle(title)
	})
}

// UpdateBody replaces an issue's body
func (s *IssueService) UpdateBody(ctx context.Context, issueID, body string) error {
	ctx, span := s.tracer.Start(ctx, "IssueService.UpdateBody")
	defer span.End()

	return s.mutateIssue(ctx, issueID, func(issue *aggregates.Issue) error {
		return issue.UpdateBody(body)
	})
}

// CloseIssue closes an issue with a reason
func (s *IssueService) CloseIssue(ctx context.Context, issueID, reason string) error {
	ctx, span := s.tracer.Start(ctx, "IssueService.CloseIssue")
	defer span.End()

	return s.mutateIssue(ctx, issueID, func(issue *aggregates.Issue) error {
		return issue.Close(reason)
	})
}

// ReopenIssue reopens a closed issue
func (s *IssueService) ReopenIssue(ctx context.Context, issueID string) error {
	ctx, span := s.tracer.Start(ctx, "IssueService.ReopenIssue")
	defer span.End()

	return s.mutateIssue(ctx, issueID, func(issue *aggregates.Issue) error {
		return issue.Reopen()
	})
}

// AttachLabel adds a label to an issue
func (s *IssueService) AttachLabel(ctx context.Context, issueID, name, color string) error {
	ctx, span := s.tracer.Start(ctx, "IssueService.AttachLabel")
	defer span.End()

	label, err := valueobjects.NewLabel(name, color)
	if err != nil {
		return err
	}
	return s.mutateIssue(ctx, issueID, func(issue *aggregates.Issue) error {
		return issue.AttachLabel(label)
	})
}

// DetachLabel removes a label from an issue by name
func (s *IssueService) DetachLabel(ctx context.Context, issueID, name string) error {
	ctx, span := s.tracer.Start(ctx, "IssueService.DetachLabel")
	defer span.End()

	return s.mutateIssue(ctx, issueID, func(issue *aggregates.Issue) error {
		return issue.DetachLabel(name)
	})
}

// AssignMilestone assigns a milestone to an issue. The aggregate only stores
// the identifier, so the existence of the referenced milestone is verified
// here, inside the same scope that commits the assignment.
func (s *IssueService) AssignMilestone(ctx context.Context, issueID, milestoneID string) error {
	ctx, span := s.tracer.Start(ctx, "IssueService.AssignMilestone")
	defer span.End()

	id, err := valueobjects.ParseIssueID(issueID)
	if err != nil {
		return err
	}
	mid, err := valueobjects.ParseMilestoneID(milestoneID)
	if err != nil {
		return err
	}

	scope, err := s.uow.Begin(ctx, ports.ScopeOptions{})
	if err != nil {
		return err
	}
	defer scope.Close(ctx)

	milestone, err := scope.Milestones().Get(ctx, mid)
	if err != nil {
		return pkgerrors.Wrap(err, "referenced milestone")
	}
	if milestone.IsClosed() {
		return pkgerrors.NewValidation("cannot assign a closed milestone")
	}

	issue, err := scope.Issues().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := issue.AssignMilestone(mid); err != nil {
		return err
	}
	if err := scope.Issues().Save(ctx, issue); err != nil {
		return err
	}
	return scope.Complete(ctx)
}

// ClearMilestone removes an issue's milestone reference
func (s *IssueService) ClearMilestone(ctx context.Context, issueID string) error {
	ctx, span := s.tracer.Start(ctx, "IssueService.ClearMilestone")
	defer span.End()

	return s.mutateIssue(ctx, issueID, func(issue *aggregates.Issue) error {
		issue.ClearMilestone()
		return nil
	})
}

// DeleteIssue removes an issue and all of its owned sub-entities
func (s *IssueService) DeleteIssue(ctx context.Context, issueID string) error {
	ctx, span := s.tracer.Start(ctx, "IssueService.DeleteIssue")
	defer span.End()

	id, err := valueobjects.ParseIssueID(issueID)
	if err != nil {
		return err
	}

	scope, err := s.uow.Begin(ctx, ports.ScopeOptions{})
	if err != nil {
		return err
	}
	defer scope.Close(ctx)

	if err := scope.Issues().Delete(ctx, id); err != nil {
		return err
	}
	if err := scope.Complete(ctx); err != nil {
		return err
	}

	s.logger.Info("issue deleted", zap.String("issue_id", id.String()))
	return nil
}

// mutateIssue is the load-mutate-save template shared by the single-aggregate
// use cases: one scope, one issue, one commit.
func (s *IssueService) mutateIssue(ctx context.Context, issueID string, mutate func(*aggregates.Issue) error) error {
	id, err := valueobjects.ParseIssueID(issueID)
	if err != nil {
		return err
	}

	scope, err := s.uow.Begin(ctx, ports.ScopeOptions{})
	if err != nil {
		return err
	}
	defer scope.Close(ctx)

	issue, err := scope.Issues().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(issue); err != nil {
		return err
	}
	if err := scope.Issues().Save(ctx, issue); err != nil {
		return err
	}
	return scope.Complete(ctx)
}
