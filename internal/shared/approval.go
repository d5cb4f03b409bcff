package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// ApprovalAction enumerates approval log actions.
type ApprovalAction string

const (
	// ApprovalApprove marks an approve action.
	ApprovalApprove ApprovalAction = "APPROVE"
	// ApprovalReject marks a reject action.
	ApprovalReject ApprovalAction = "REJECT"
)

// ApprovalLog represents a single approval decision.
type ApprovalLog struct {
	store.Meta
	Module string         `json:"module"`
	RefID  uuid.UUID      `json:"ref_id"`
	Actor  string         `json:"actor"`
	Action ApprovalAction `json:"action"`
	Note   string         `json:"note"`
	At     time.Time      `json:"at"`
}

// ApprovalRef derives the stable reference of a document from its number.
func ApprovalRef(module, number string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(module+":"+number))
}

// ApprovalRecorder persists approval history.
type ApprovalRecorder struct {
	st     *store.Store
	logs   *store.Collection[ApprovalLog, *ApprovalLog]
	logger *slog.Logger
}

// NewApprovalRecorder constructs ApprovalRecorder.
func NewApprovalRecorder(st *store.Store, logger *slog.Logger) *ApprovalRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalRecorder{st: st, logs: store.Register[ApprovalLog](st, "approval_logs"), logger: logger}
}

// Record writes an approval entry.
func (r *ApprovalRecorder) Record(ctx context.Context, log ApprovalLog) error {
	if r == nil {
		return ErrNotInitialised
	}
	if log.Module == "" {
		return errors.New("approval module required")
	}
	if log.RefID == uuid.Nil {
		return errors.New("approval ref id required")
	}
	if log.Action == "" {
		return errors.New("approval action required")
	}
	if log.Actor == "" {
		log.Actor = ActorFromContext(ctx)
	}
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	err := r.st.WithTx(ctx, func(context.Context) error {
		r.logs.Add(log)
		return nil
	})
	if err != nil {
		r.logger.Error("record approval", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns approvals for module/ref in the order they were recorded.
func (r *ApprovalRecorder) List(ctx context.Context, module string, ref uuid.UUID) ([]ApprovalLog, error) {
	if r == nil {
		return nil, ErrNotInitialised
	}
	var logs []ApprovalLog
	err := r.st.Read(ctx, func() error {
		logs = r.logs.Filter(func(l ApprovalLog) bool {
			return l.Module == module && l.RefID == ref
		})
		return nil
	})
	return logs, err
}
