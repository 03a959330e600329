package audit

import (
	"context"
	"log/slog"
)

// Publisher fans an event out to an external sink (Kafka). Optional.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Worker consumes ledger events from the inbox and persists them, then fans
// out to the publisher when one is configured. Store failures are logged and
// the event is dropped rather than retried: the pass record remains the
// authoritative state.
type Worker struct {
	store     Store
	publisher Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

func NewWorker(store Store, publisher Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, publisher: publisher, inbox: inbox, logger: logger}
}

// Run processes events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "ledger append failed",
					"action", event.Action,
					"error", err,
				)
				continue
			}
			if w.publisher != nil {
				if err := w.publisher.Publish(ctx, event); err != nil {
					w.logger.WarnContext(ctx, "ledger publish failed",
						"action", event.Action,
						"error", err,
					)
				}
			}
		}
	}
}
