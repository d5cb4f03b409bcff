package shared

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// NotificationLevel classifies user facing notifications.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is a short message about the outcome of an operation.
type Notification struct {
	ID          uuid.UUID         `json:"id"`
	Level       NotificationLevel `json:"level"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Entity      string            `json:"entity,omitempty"`
	EntityID    int64             `json:"entity_id,omitempty"`
	Actor       string            `json:"actor,omitempty"`
	At          time.Time         `json:"at"`
}

// NewNotification stamps a notification with a fresh id and time.
func NewNotification(level NotificationLevel, title, description string) Notification {
	return Notification{
		ID:          uuid.New(),
		Level:       level,
		Title:       title,
		Description: description,
		At:          time.Now().UTC(),
	}
}

// Notifier delivers notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs n at a level matching its severity.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	switch n.Level {
	case NotificationWarning:
		level = slog.LevelWarn
	case NotificationError:
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, n.Title,
		slog.String("notification_id", n.ID.String()),
		slog.String("description", n.Description),
		slog.String("entity", n.Entity),
		slog.Int64("entity_id", n.EntityID),
		slog.String("actor", n.Actor),
	)
}
