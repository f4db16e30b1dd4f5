// Package notify pushes operational alerts (failed orders, session errors)
// to one or more chat channels. Delivery is best effort: a sender failure is
// logged and never propagates into the trading path.
package notify

import (
	"context"
	"log/slog"
)

// Sender is one delivery channel.
type Sender interface {
	// Send delivers an alert with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs (e.g. "telegram").
	Name() string
}

// Notifier fans an alert out to all configured senders.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// New creates a Notifier delivering to the given senders. An empty sender
// list yields a notifier that silently drops everything, which lets callers
// hold a non-nil Notifier regardless of configuration.
func New(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends the alert to every sender. Failures are logged per sender and
// do not stop delivery to the rest.
func (n *Notifier) Notify(ctx context.Context, title, message string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Warn("alert delivery failed",
				slog.String("sender", s.Name()),
				slog.String("title", title),
				slog.String("error", err.Error()),
			)
		}
	}
}
