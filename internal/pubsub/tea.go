package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// ListenCmd adapts a broker subscription channel into a tea.Cmd: the
// returned command blocks until the next event, the context is cancelled,
// or the broker closes the channel, and delivers it as a tea.Msg (or nil
// on cancellation/close) for a Bubble Tea Update loop to handle.
func ListenCmd[T any](ctx context.Context, ch <-chan Event[T]) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil // Channel closed
			}
			return event
		}
	}
}

// ContinuousListener holds the subscription a Bubble Tea model re-arms on
// every Update call, so the model doesn't have to re-subscribe per event.
type ContinuousListener[T any] struct {
	ctx context.Context
	ch  <-chan Event[T]
}

// NewContinuousListener subscribes to broker for the lifetime of ctx.
func NewContinuousListener[T any](ctx context.Context, broker *Broker[T]) *ContinuousListener[T] {
	return &ContinuousListener[T]{
		ctx: ctx,
		ch:  broker.Subscribe(ctx),
	}
}

// Listen returns a tea.Cmd for the next event on the subscription. Models
// should re-call Listen after handling each event to keep listening —
// Bubble Tea commands fire once and don't repeat themselves.
func (l *ContinuousListener[T]) Listen() tea.Cmd {
	return ListenCmd(l.ctx, l.ch)
}
