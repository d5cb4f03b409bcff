package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-procure/internal/jobs"
)

const (
	// TaskPayablesOverdueSweep flags pending payable titles past their due date.
	TaskPayablesOverdueSweep = "payables:overdue-sweep"
)

// PayablesSweepPayload optionally pins the reference date. A zero AsOf
// means the time the task runs.
type PayablesSweepPayload struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// NewPayablesSweepTask builds a sweep task.
func NewPayablesSweepTask(asOf time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(PayablesSweepPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPayablesOverdueSweep, body, asynq.Queue(QueueDefault)), nil
}

// OverdueMarker is implemented by ap.Service.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// PayablesSweepJob marks overdue titles.
type PayablesSweepJob struct {
	Payables OverdueMarker
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewPayablesSweepJob wires dependencies for the sweep handler.
func NewPayablesSweepJob(payables OverdueMarker, logger *slog.Logger, metrics *jobmetrics.Metrics) *PayablesSweepJob {
	return &PayablesSweepJob{
		Payables: payables,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes sweep tasks.
func (j *PayablesSweepJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Payables == nil {
		return errors.New("payables sweep: handler not configured")
	}
	var payload PayablesSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now()
	}

	tracker := j.metrics().Track(TaskPayablesOverdueSweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Time("as_of", asOf))
	changed, err := j.Payables.MarkOverdue(ctx, asOf)
	if err != nil {
		logger.Error("mark overdue titles", slog.Any("error", err))
		return err
	}
	j.metrics().AddItems(TaskPayablesOverdueSweep, changed)
	logger.Info("completed payables sweep", slog.Int("overdue", changed))
	return nil
}

func (j *PayablesSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPayablesOverdueSweep))
	}
	return slog.Default().With(slog.String("job", TaskPayablesOverdueSweep))
}

func (j *PayablesSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PayablesSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
