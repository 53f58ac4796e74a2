package messaging

import (
	"context"
	"time"
)

// Observer receives messaging outcomes, typically to metrics.
type Observer interface {
	ObserveInbound(outcome string)
	ObserveOutbound(outcome string, latencySeconds float64)
}

// Dispatcher accepts inbound messages for processing.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg InboundMessage) error
}

// ObservedSender reports every send to an Observer.
type ObservedSender struct {
	next Sender
	obs  Observer
}

func NewObservedSender(next Sender, obs Observer) *ObservedSender {
	return &ObservedSender{next: next, obs: obs}
}

func (s *ObservedSender) SendMessage(ctx context.Context, phone, text string) (string, error) {
	start := time.Now()
	id, err := s.next.SendMessage(ctx, phone, text)
	if s.obs != nil {
		s.obs.ObserveOutbound(outcomeOf(err), time.Since(start).Seconds())
	}
	return id, err
}

// ObservedDispatcher reports every inbound dispatch to an Observer.
type ObservedDispatcher struct {
	next Dispatcher
	obs  Observer
}

func NewObservedDispatcher(next Dispatcher, obs Observer) *ObservedDispatcher {
	return &ObservedDispatcher{next: next, obs: obs}
}

func (d *ObservedDispatcher) Dispatch(ctx context.Context, msg InboundMessage) error {
	err := d.next.Dispatch(ctx, msg)
	if d.obs != nil {
		d.obs.ObserveInbound(outcomeOf(err))
	}
	return err
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
