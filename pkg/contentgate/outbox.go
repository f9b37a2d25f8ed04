package contentgate

import (
	"context"
	"log/slog"
	"time"
)

// NotificationWorker drains the notification outbox and hands events to the
// notification collaborator. State-changing transactions append events; the
// worker dispatches them afterwards, so notification delivery can never roll
// back an entitlement change.
type NotificationWorker struct {
	repository Repository
	notifier   Notifier
	logger     *slog.Logger
	interval   time.Duration
	batchSize  int
}

// WorkerOption configures a NotificationWorker.
type WorkerOption func(*NotificationWorker)

// WithInterval sets how often the worker polls the outbox.
func WithInterval(d time.Duration) WorkerOption {
	return func(w *NotificationWorker) {
		w.interval = d
	}
}

// WithBatchSize sets how many events the worker drains per poll.
func WithBatchSize(n int) WorkerOption {
	return func(w *NotificationWorker) {
		w.batchSize = n
	}
}

// WithLogger sets the worker's logger.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *NotificationWorker) {
		w.logger = logger
	}
}

// NewNotificationWorker creates a worker draining repo's outbox into notifier.
func NewNotificationWorker(repo Repository, notifier Notifier, options ...WorkerOption) *NotificationWorker {
	w := &NotificationWorker{
		repository: repo,
		notifier:   notifier,
		logger:     slog.Default(),
		interval:   5 * time.Second,
		batchSize:  50,
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// Run polls the outbox until the context is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.DrainOnce(ctx); err != nil {
				w.logger.Error("drain notification outbox", "error", err)
			}
		}
	}
}

// DrainOnce dispatches one batch of pending events and returns how many were
// delivered. Delivery failures are recorded on the event and logged; the
// event stays pending for a later attempt.
func (w *NotificationWorker) DrainOnce(ctx context.Context) (int, error) {
	events, err := w.repository.ListPendingNotifications(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, event := range events {
		if err := w.notifier.Notify(ctx, event); err != nil {
			w.logger.Error("notification delivery failed",
				"event_id", event.ID, "kind", event.Kind, "error", err)
			if markErr := w.repository.MarkNotificationFailed(ctx, event.ID, err.Error()); markErr != nil {
				w.logger.Error("mark notification failed", "event_id", event.ID, "error", markErr)
			}
			continue
		}
		if err := w.repository.MarkNotificationDispatched(ctx, event.ID); err != nil {
			w.logger.Error("mark notification dispatched", "event_id", event.ID, "error", err)
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

// NoopNotifier discards every event. Useful in tests and when no transport is
// configured.
type NoopNotifier struct{}

// NewNoopNotifier creates a notifier that does nothing.
func NewNoopNotifier() *NoopNotifier { return &NoopNotifier{} }

func (n *NoopNotifier) Notify(ctx context.Context, event *NotificationEvent) error {
	return nil
}

// LoggingNotifier logs each event instead of delivering it.
type LoggingNotifier struct {
	logger *slog.Logger
}

// NewLoggingNotifier creates a notifier that logs events via slog.
func NewLoggingNotifier(logger *slog.Logger) *LoggingNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingNotifier{logger: logger}
}

func (n *LoggingNotifier) Notify(ctx context.Context, event *NotificationEvent) error {
	n.logger.Info("notification",
		"kind", event.Kind, "content_id", event.ContentID, "user_id", event.UserID)
	return nil
}
