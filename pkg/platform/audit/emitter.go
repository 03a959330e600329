package audit

import (
	"context"
	"log/slog"
	"time"

	"outpass/pkg/requestcontext"
)

// Emitter hands events from domain services to the background worker without
// blocking the request path. A full inbox drops the event and logs it: the
// ledger is a side-effect record and must never slow down or fail a gate scan.
type Emitter struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewEmitter(inbox chan<- Event, logger *slog.Logger) *Emitter {
	return &Emitter{inbox: inbox, logger: logger}
}

// Emit enqueues the event, stamping timestamp, category, and request ID from
// context when absent.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = LedgerEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	select {
	case e.inbox <- event:
	default:
		e.logger.WarnContext(ctx, "ledger inbox full, dropping event",
			"action", event.Action,
			"pass_id", event.PassID.String(),
		)
	}
}
