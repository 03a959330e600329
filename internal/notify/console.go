package notify

import (
	"context"
	"log/slog"
)

// ConsoleNotifier logs messages instead of sending them. Used in development
// when no SendGrid key is configured.
type ConsoleNotifier struct {
	logger *slog.Logger
}

var _ Notifier = (*ConsoleNotifier)(nil)

func NewConsole(logger *slog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) Send(ctx context.Context, msg *Message) error {
	n.logger.InfoContext(ctx, "email (console delivery)",
		"to", msg.To.Address,
		"subject", msg.Subject,
		"body", msg.TextBody,
	)
	return nil
}
