package notification

import "context"

// Sender delivers a notification over one channel. Implementations wrap
// real providers; the bundled ones only log.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// Senders maps each channel to its sender. Nil entries disable the channel.
type Senders struct {
	Push  Sender
	Email Sender
	SMS   Sender
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, n *Notification) error

func (f SenderFunc) Send(ctx context.Context, n *Notification) error {
	return f(ctx, n)
}
