package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-procure/internal/jobs"
	"github.com/odyssey-erp/odyssey-procure/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotifySend delivers a user notification.
	TaskNotifySend = "notify:send"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NewNotifyTask constructs an Asynq task carrying n.
func NewNotifyTask(n shared.Notification) (*asynq.Task, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifySend, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NotifyJob hands queued notifications to the final sink.
type NotifyJob struct {
	Sink    shared.Notifier
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewNotifyJob wires the delivery sink. A nil sink logs notifications.
func NewNotifyJob(sink shared.Notifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotifyJob {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = shared.NewLogNotifier(logger)
	}
	return &NotifyJob{Sink: sink, Logger: logger, Metrics: metrics}
}

// Handle processes TaskNotifySend tasks.
func (j *NotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sink == nil {
		return errors.New("notify: handler not configured")
	}
	var n shared.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskNotifySend)
	j.Sink.Notify(shared.ContextWithActor(ctx, n.Actor), n)
	return tracker.End(nil)
}

func (j *NotifyJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
