package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"seatbook/models"

	"github.com/hibiken/asynq"
)

const (
	TypeBookingConfirmationEmail = "email:booking_confirmation"
	TypeBookingCancellationEmail = "email:booking_cancellation"
	TypeAuditLog                 = "audit:log"

	QueueDefault = "default"
	maxRetry     = 5
)

// ErrUnknownJob is returned for a job type or payload no task constructor accepts.
var ErrUnknownJob = errors.New("unknown job")

// Dispatcher hands a job to the queue. Delivery is at-least-once and retried
// independently of the caller.
type Dispatcher interface {
	Enqueue(ctx context.Context, jobType string, payload any) error
}

func newTask(jobType string, payload any) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(jobType, b)
	opts := []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(30 * time.Second),
	}
	return task, opts, nil
}

func NewBookingEmailTask(jobType string, payload models.BookingEmailPayload) (*asynq.Task, []asynq.Option, error) {
	if jobType != TypeBookingConfirmationEmail && jobType != TypeBookingCancellationEmail {
		return nil, nil, fmt.Errorf("unknown email job type %q", jobType)
	}
	return newTask(jobType, payload)
}

func NewAuditTask(entry models.AuditEntry) (*asynq.Task, []asynq.Option, error) {
	return newTask(TypeAuditLog, entry)
}

// buildTask routes a job to its typed constructor.
func buildTask(jobType string, payload any) (*asynq.Task, []asynq.Option, error) {
	switch jobType {
	case TypeBookingConfirmationEmail, TypeBookingCancellationEmail:
		p, ok := payload.(models.BookingEmailPayload)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s expects a booking email payload, got %T", ErrUnknownJob, jobType, payload)
		}
		return NewBookingEmailTask(jobType, p)
	case TypeAuditLog:
		entry, ok := payload.(models.AuditEntry)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s expects an audit entry, got %T", ErrUnknownJob, jobType, payload)
		}
		return NewAuditTask(entry)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownJob, jobType)
	}
}

// AsynqDispatcher enqueues jobs on the asynq Redis queue.
type AsynqDispatcher struct {
	client *asynq.Client
}

func NewAsynqDispatcher(client *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

func (d *AsynqDispatcher) Enqueue(ctx context.Context, jobType string, payload any) error {
	task, opts, err := buildTask(jobType, payload)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	if _, err := d.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return nil
}
