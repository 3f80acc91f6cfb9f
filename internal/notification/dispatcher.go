package notification

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"roamly/internal/platform/metrics"
)

// sendTimeout bounds a single provider call.
const sendTimeout = 10 * time.Second

// Dispatcher fans one notification out across its enabled channels. Each
// channel succeeds or fails on its own; one provider outage never blocks
// the others.
type Dispatcher struct {
	store   Store
	senders Senders
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewDispatcher(store Store, senders Senders, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, senders: senders, metrics: m, logger: logger}
}

// Dispatch sends on every enabled channel concurrently and records the
// per-channel outcome. It is meant to run in its own goroutine; the ctx
// is detached from the originating request.
func (d *Dispatcher) Dispatch(ctx context.Context, n *Notification) {
	if n.Expired(time.Now().UTC()) {
		d.logger.InfoContext(ctx, "skipping expired notification", "notificationId", n.ID)
		return
	}

	type attempt struct {
		channel Channel
		state   *ChannelState
		sender  Sender
	}
	attempts := []attempt{
		{ChannelPush, &n.Channels.Push, d.senders.Push},
		{ChannelEmail, &n.Channels.Email, d.senders.Email},
		{ChannelSMS, &n.Channels.SMS, d.senders.SMS},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range attempts {
		if !a.state.Enabled || a.sender == nil {
			continue
		}
		a := a
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, sendTimeout)
			defer cancel()

			err := a.sender.Send(sctx, n)
			now := time.Now().UTC()
			a.state.Sent = err == nil
			a.state.SentAt = &now
			if err != nil {
				a.state.Status = DeliveryFailed
				d.logger.WarnContext(ctx, "channel delivery failed",
					"notificationId", n.ID, "channel", string(a.channel), "error", err)
			} else {
				a.state.Status = DeliveryDelivered
			}
			if d.metrics != nil {
				d.metrics.ObserveNotificationDelivery(string(a.channel), string(a.state.Status))
			}
			// Failures are recorded on the channel state, not returned;
			// returning an error would cancel the sibling sends.
			return nil
		})
	}
	_ = g.Wait()

	n.UpdatedAt = time.Now().UTC()
	if err := d.store.Update(ctx, n); err != nil {
		d.logger.ErrorContext(ctx, "failed to record delivery state",
			"notificationId", n.ID, "error", err)
	}
}
