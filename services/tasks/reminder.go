package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lenslink/models"
	"lenslink/services/booking"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeSendReminder = "reminder:send"
	TypeSweepOverdue = "sweep:overdue"
)

// reminderRetention keeps completed reminder ids around so a re-enqueue with
// the same id is rejected instead of firing twice.
const reminderRetention = 7 * 24 * time.Hour

func NewReminderTask(payload models.ReminderPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(payload.FireAt),
		asynq.TaskID(payload.ReminderID),
		asynq.MaxRetry(5),
		asynq.Retention(reminderRetention),
	}
	return task, opts, nil
}

// ParseReminderTask decodes a task built by NewReminderTask.
func ParseReminderTask(task *asynq.Task) (models.ReminderPayload, error) {
	var p models.ReminderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid reminder payload: %w", err)
	}
	if p.BookingID == "" || p.Kind == "" {
		return p, fmt.Errorf("reminder payload missing bookingId or kind")
	}
	return p, nil
}

// NewSweepTask builds the periodic overdue sweep. Unique keeps instances that
// share a scheduler from queueing it more than once per window.
func NewSweepTask(window time.Duration) (*asynq.Task, []asynq.Option) {
	return asynq.NewTask(TypeSweepOverdue, nil), []asynq.Option{
		asynq.MaxRetry(1),
		asynq.Unique(window),
	}
}

// Enqueuer is the subset of *asynq.Client the scheduler uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqScheduler implements booking.Scheduler on an asynq queue.
type AsynqScheduler struct {
	client Enqueuer
	logger *zap.Logger
}

func NewAsynqScheduler(client Enqueuer, logger *zap.Logger) *AsynqScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsynqScheduler{client: client, logger: logger}
}

var _ booking.Scheduler = (*AsynqScheduler)(nil)

// ScheduleReminder enqueues payload for payload.FireAt. Scheduling the same
// reminder id twice is a no-op.
func (s *AsynqScheduler) ScheduleReminder(ctx context.Context, payload models.ReminderPayload) error {
	task, opts, err := NewReminderTask(payload)
	if err != nil {
		return fmt.Errorf("build reminder task: %w", err)
	}
	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		s.logger.Debug("reminder already scheduled", zap.String("reminderId", payload.ReminderID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue reminder %s: %w", payload.ReminderID, err)
	}
	s.logger.Info("reminder scheduled",
		zap.String("reminderId", payload.ReminderID),
		zap.String("kind", string(payload.Kind)),
		zap.Time("fireAt", payload.FireAt),
		zap.String("queue", info.Queue))
	return nil
}
