package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(ParameterAppliedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Use type switch to call the generic Publish with the correct type
	switch e := ev.(type) {
	case InstanceCreatedEvent:
		event.Publish(b.dispatcher, e)
	case InstanceReleasedEvent:
		event.Publish(b.dispatcher, e)
	case ParameterAppliedEvent:
		event.Publish(b.dispatcher, e)
	case DirectiveRejectedEvent:
		event.Publish(b.dispatcher, e)
	case OptionsResetEvent:
		event.Publish(b.dispatcher, e)
	case ClientConnectedEvent:
		event.Publish(b.dispatcher, e)
	case ClientDisconnectedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives (type inference)
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e InstanceCreatedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(InstanceCreatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(InstanceReleasedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ParameterAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DirectiveRejectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(OptionsResetEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ClientConnectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ClientDisconnectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
