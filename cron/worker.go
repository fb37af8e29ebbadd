package cron

import (
	"context"
	"fmt"
	"time"

	"lenslink/config"
	"lenslink/models"
	"lenslink/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ReminderDeliverer is the part of the booking service reminders are handed to.
type ReminderDeliverer interface {
	DeliverReminder(ctx context.Context, p models.ReminderPayload) error
}

// QueueRedisOpt is the asynq connection for the reminder queue database.
func QueueRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	}
}

// Worker owns the asynq server processing reminders and sweeps, and the
// scheduler that enqueues the periodic sweep.
type Worker struct {
	srv       *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *zap.Logger
}

// NewWorker wires the task handlers. sweepCron may be empty to leave the
// periodic sweep to the in-process ticker only.
func NewWorker(reminders ReminderDeliverer, sweeper *Sweeper, sweepCron string, logger *zap.Logger) (*Worker, error) {
	logger = logger.Named("worker")
	redisOpts := QueueRedisOpt()

	concurrency := config.AppConfig.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReminder, handleReminderTask(reminders, logger))
	mux.HandleFunc(tasks.TypeSweepOverdue, handleSweepTask(sweeper))

	w := &Worker{srv: srv, mux: mux, logger: logger}
	if sweepCron != "" {
		w.scheduler = asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{
			Location: time.UTC,
			Logger:   logger.Sugar(),
		})
		task, opts := tasks.NewSweepTask(30 * time.Minute)
		if _, err := w.scheduler.Register(sweepCron, task, opts...); err != nil {
			return nil, fmt.Errorf("register sweep schedule %q: %w", sweepCron, err)
		}
	}
	return w, nil
}

// Start runs the worker in background, retrying startup with backoff.
func (w *Worker) Start(ctx context.Context) {
	go monitorRedisConnection(ctx, w.logger)

	go func() {
		w.logger.Info("starting async worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				break
			}
			w.logger.Error("failed to start worker",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err))
			if attempts == maxAttempts {
				w.logger.Error("max retry attempts reached, reminders will not be delivered")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempts*2) * time.Second):
			}
		}
	}()

	if w.scheduler != nil {
		go func() {
			if err := w.scheduler.Start(); err != nil {
				w.logger.Error("failed to start task scheduler", zap.Error(err))
			}
		}()
	}
}

// Shutdown stops the scheduler and drains in-flight tasks.
func (w *Worker) Shutdown() {
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.srv.Shutdown()
}

func handleReminderTask(reminders ReminderDeliverer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseReminderTask(task)
		if err != nil {
			logger.Error("dropping invalid reminder", zap.Error(err))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		logger.Info("triggering reminder",
			zap.String("reminderId", p.ReminderID),
			zap.String("bookingId", p.BookingID),
			zap.String("kind", string(p.Kind)))

		if err := reminders.DeliverReminder(ctx, p); err != nil {
			logger.Warn("failed to deliver reminder", zap.String("reminderId", p.ReminderID), zap.Error(err))
			return err
		}
		return nil
	}
}

func handleSweepTask(sweeper *Sweeper) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		_, _, err := sweeper.RunOnce(ctx)
		return err
	}
}

// monitorRedisConnection pings the queue database periodically to detect
// failures at runtime.
func monitorRedisConnection(ctx context.Context, logger *zap.Logger) {
	opt := QueueRedisOpt()
	client := redis.NewClient(&redis.Options{
		Addr:     opt.Addr,
		Password: opt.Password,
		DB:       opt.DB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("reminder queue Redis connection lost", zap.Error(err))
			}
		}
	}
}
