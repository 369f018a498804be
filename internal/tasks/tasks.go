package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/courtierpro/brokerage-backend/internal/logger"
)

// Background task types.
const (
	TypeAppointmentReminders = "appointment:reminders"
)

// ReminderSender fans out reminders for upcoming appointments.
type ReminderSender interface {
	SendAppointmentReminders(ctx context.Context) (int, error)
}

// NewClient returns an enqueue-side asynq client on the shared Redis.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	})
}

// EnqueueReminders queues an immediate reminder sweep. Run at startup
// so a restarted instance does not wait for the next scheduled tick.
func EnqueueReminders(client *asynq.Client) error {
	if _, err := client.Enqueue(asynq.NewTask(TypeAppointmentReminders, nil)); err != nil {
		return fmt.Errorf("tasks: enqueue reminder sweep %w", err)
	}
	return nil
}

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	appointments ReminderSender
}

// NewTaskProcessor creates the processor.
func NewTaskProcessor(appointments ReminderSender) *TaskProcessor {
	return &TaskProcessor{appointments: appointments}
}

// HandleAppointmentRemindersTask sends reminders for appointments
// starting within the lookahead window.
func (p *TaskProcessor) HandleAppointmentRemindersTask(ctx context.Context, t *asynq.Task) error {
	count, err := p.appointments.SendAppointmentReminders(ctx)
	if err != nil {
		return fmt.Errorf("tasks: send appointment reminders %w", err)
	}

	if count > 0 && logger.Log != nil {
		logger.Log.WithField("count", count).Info("appointment reminders sent")
	}
	return nil
}

// NewServer configures the worker-side asynq server.
func NewServer(rdb *redis.Client) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		asynq.Config{
			Concurrency: 5,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				if logger.Log != nil {
					logger.Log.WithError(err).WithField("task_type", task.Type()).Error("task failed")
				}
			}),
		},
	)
}

// NewMux registers the task handlers.
func NewMux(processor *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAppointmentReminders, processor.HandleAppointmentRemindersTask)
	return mux
}

// NewScheduler registers the periodic reminder task on a cron spec.
func NewScheduler(rdb *redis.Client, reminderCronSpec string) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		&asynq.SchedulerOpts{},
	)

	if _, err := scheduler.Register(reminderCronSpec,
		asynq.NewTask(TypeAppointmentReminders, nil)); err != nil {
		return nil, fmt.Errorf("tasks: register reminder schedule %w", err)
	}

	return scheduler, nil
}
