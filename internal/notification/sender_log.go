package notification

import (
	"context"
	"log/slog"
)

// LogSender stands in for a real provider and only records the delivery.
// Production deployments swap in provider-backed senders at wiring time.
type LogSender struct {
	channel Channel
	logger  *slog.Logger
}

func NewLogSender(channel Channel, logger *slog.Logger) *LogSender {
	return &LogSender{channel: channel, logger: logger}
}

func (s *LogSender) Send(ctx context.Context, n *Notification) error {
	s.logger.InfoContext(ctx, "notification delivered",
		"channel", string(s.channel),
		"notificationId", n.ID,
		"recipientId", n.RecipientID,
		"type", string(n.Type),
	)
	return nil
}
