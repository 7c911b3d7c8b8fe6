// internal/events/handler.go
package events

import (
	"context"
)

// Handler processes events. Implementations must not block the dispatcher
// for long; slow consumers should buffer.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription represents a subscription to events.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	typ      EventType
}

func (s *subscription) Unsubscribe() {
	s.eventBus.unsubscribe(s.id, s.typ)
}

// Forward returns a handler that copies events into ch. When ch is full the
// event is dropped for that consumer and ErrBufferFull is reported.
func Forward(ch chan<- Event) Handler {
	return HandlerFunc(func(ctx context.Context, event Event) error {
		select {
		case ch <- event:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			return ErrBufferFull
		}
	})
}
