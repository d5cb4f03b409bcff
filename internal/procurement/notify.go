package procurement

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/odyssey-erp/odyssey-procure/internal/shared"
)

const approvalModule = "procurement"

func (s *Service) notify(ctx context.Context, level shared.NotificationLevel, title, description, entity string, id int64) {
	n := shared.NewNotification(level, title, description)
	n.Entity = entity
	n.EntityID = id
	n.Actor = shared.ActorFromContext(ctx)
	s.notifier.Notify(ctx, n)
}

// warnGuard surfaces a refused creation to the user. Guard violations use
// the given title; other refusals carry the error text.
func (s *Service) warnGuard(ctx context.Context, err error, title, description, entity string) {
	switch {
	case errors.Is(err, ErrGuard):
		s.notify(ctx, shared.NotificationWarning, title, description, entity, 0)
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation):
		s.notify(ctx, shared.NotificationWarning, "Operation not allowed", err.Error(), entity, 0)
	default:
		s.logger.Error("procurement transition failed", slog.String("entity", entity), slog.Any("error", err))
		s.notify(ctx, shared.NotificationError, "Operation failed", "The operation could not be completed.", entity, 0)
	}
}

func (s *Service) warnDependents(ctx context.Context, err error, title, entity string, id int64) {
	if errors.Is(err, ErrHasDependents) {
		s.notify(ctx, shared.NotificationWarning, title, err.Error(), entity, id)
	}
}

func (s *Service) recordApproval(ctx context.Context, kind, number string, action shared.ApprovalAction, note string) error {
	if s.approvals == nil {
		return nil
	}
	return s.approvals.Record(ctx, shared.ApprovalLog{
		Module: approvalModule,
		RefID:  shared.ApprovalRef(kind, number),
		Action: action,
		Note:   note,
	})
}

func (s *Service) recordAudit(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("procurement audit", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) transition(entity, action string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(entity, action)
	}
}

// ApprovalHistory lists the decisions taken on a requisition or quotation,
// identified by its number prefix and number.
func (s *Service) ApprovalHistory(ctx context.Context, kind, number string) ([]shared.ApprovalLog, error) {
	if s.approvals == nil {
		return []shared.ApprovalLog{}, nil
	}
	return s.approvals.List(ctx, approvalModule, shared.ApprovalRef(kind, number))
}
