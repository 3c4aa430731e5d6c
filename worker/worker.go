package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"seatbook/models"
	"seatbook/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Mailer delivers booking mails. Template rendering lives behind it.
type Mailer interface {
	SendBookingEmail(ctx context.Context, jobType string, p models.BookingEmailPayload) error
}

// AuditStore persists audit entries.
type AuditStore interface {
	Insert(ctx context.Context, entry models.AuditEntry) error
}

// EventSink mirrors audit entries to the event stream.
type EventSink interface {
	Emit(ctx context.Context, key string, event any) error
}

type Handlers struct {
	Mailer Mailer
	Audit  AuditStore
	Events EventSink
	Logger *zap.Logger
}

// NewMux registers every job type on a fresh asynq mux.
func (h *Handlers) NewMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingConfirmationEmail, h.handleBookingEmail)
	mux.HandleFunc(tasks.TypeBookingCancellationEmail, h.handleBookingEmail)
	mux.HandleFunc(tasks.TypeAuditLog, h.handleAudit)
	return mux
}

func (h *Handlers) handleBookingEmail(ctx context.Context, task *asynq.Task) error {
	var p models.BookingEmailPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		h.Logger.Error("invalid email payload", zap.String("type", task.Type()), zap.Error(err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.Mailer.SendBookingEmail(ctx, task.Type(), p); err != nil {
		h.Logger.Warn("booking email failed", zap.String("bookingId", p.BookingID), zap.Error(err))
		return err
	}
	return nil
}

func (h *Handlers) handleAudit(ctx context.Context, task *asynq.Task) error {
	var entry models.AuditEntry
	if err := json.Unmarshal(task.Payload(), &entry); err != nil {
		h.Logger.Error("invalid audit payload", zap.Error(err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.Audit.Insert(ctx, entry); err != nil {
		return err
	}
	if h.Events != nil {
		if err := h.Events.Emit(ctx, entry.BookingID, entry); err != nil {
			return err
		}
	}
	return nil
}

// Start runs the asynq server in the background, retrying start-up with a
// linear backoff. The returned server is used for shutdown.
func Start(redisOpt asynq.RedisClientOpt, concurrency int, h *Handlers) *asynq.Server {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				tasks.QueueDefault: 1,
			},
		},
	)
	mux := h.NewMux()

	go func() {
		h.Logger.Info("starting job worker", zap.Int("concurrency", concurrency))
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			h.Logger.Error("job worker failed to start",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err),
			)
			if attempts == maxAttempts {
				h.Logger.Fatal("job worker: max retry attempts reached")
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
	return srv
}

// LogMailer records mails in the log instead of sending them.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) SendBookingEmail(_ context.Context, jobType string, p models.BookingEmailPayload) error {
	m.Logger.Info("booking email",
		zap.String("type", jobType),
		zap.String("bookingId", p.BookingID),
		zap.String("to", p.OwnerAccountID),
		zap.String("tripId", p.TripID),
		zap.String("date", p.Date),
		zap.Ints("seats", p.Seats),
	)
	return nil
}
