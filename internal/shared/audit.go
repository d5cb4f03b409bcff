package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// AuditLog represents a single audit record.
type AuditLog struct {
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// AuditEntry is an AuditLog as kept in the audit_logs collection.
type AuditEntry struct {
	store.Meta
	AuditLog
}

// AuditFilter narrows AuditLogger.List.
type AuditFilter struct {
	Entity   string
	EntityID string
	Actor    string
	Action   string
	From     time.Time
	To       time.Time
}

// AuditLogger writes records into the audit_logs collection.
type AuditLogger struct {
	st      *store.Store
	entries *store.Collection[AuditEntry, *AuditEntry]
	logger  *slog.Logger
	now     func() time.Time
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(st *store.Store, logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		st:      st,
		entries: store.Register[AuditEntry](st, "audit_logs"),
		logger:  logger,
		now:     time.Now,
	}
}

// Record persists the log entry. Inside a store transaction the entry is
// rolled back together with the surrounding changes.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return ErrNotInitialised
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	if log.Actor == "" {
		log.Actor = ActorFromContext(ctx)
	}
	if log.At.IsZero() {
		log.At = l.now().UTC()
	}
	err := l.st.WithTx(ctx, func(context.Context) error {
		l.entries.Add(AuditEntry{AuditLog: log})
		return nil
	})
	if err != nil {
		return fmt.Errorf("shared: record audit: %w", err)
	}
	l.logger.Debug("audit recorded", slog.String("action", log.Action), slog.String("entity", log.Entity), slog.String("entity_id", log.EntityID))
	return nil
}

// List returns entries matching filter, newest first.
func (l *AuditLogger) List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	if l == nil {
		return nil, ErrNotInitialised
	}
	var out []AuditEntry
	err := l.st.Read(ctx, func() error {
		out = l.entries.Filter(func(e AuditEntry) bool {
			switch {
			case filter.Entity != "" && e.Entity != filter.Entity:
				return false
			case filter.EntityID != "" && e.EntityID != filter.EntityID:
				return false
			case filter.Actor != "" && e.Actor != filter.Actor:
				return false
			case filter.Action != "" && e.Action != filter.Action:
				return false
			case !filter.From.IsZero() && e.At.Before(filter.From):
				return false
			case !filter.To.IsZero() && e.At.After(filter.To):
				return false
			}
			return true
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
