package notify

import (
	"context"

	"github.com/smartdoor/doorman/pkg/events"
)

// BusDispatcher hands notifications to the notify worker over the event
// bus. SMS delivery (the provider integration) lives outside this core.
type BusDispatcher struct {
	bus events.Publisher
}

func NewBusDispatcher(bus events.Publisher) *BusDispatcher {
	return &BusDispatcher{bus: bus}
}

func (d *BusDispatcher) Dispatch(ctx context.Context, n Notification) error {
	return d.bus.Publish(ctx, events.NotifySend, events.NotificationEvent{
		Kind:      string(n.Kind),
		Recipient: n.Recipient,
		Subject:   n.Subject,
		Body:      n.Body,
	})
}

// Router sends email kinds to one dispatcher and SMS kinds to another.
type Router struct {
	Email Dispatcher
	SMS   Dispatcher
}

func (r *Router) Dispatch(ctx context.Context, n Notification) error {
	if n.Kind.Email() {
		return r.Email.Dispatch(ctx, n)
	}
	return r.SMS.Dispatch(ctx, n)
}
