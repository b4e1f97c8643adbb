package eventbus

// Event is any value published on the engine bus, usually one of the
// core/events types.
type Event = any

// EventBus is the untyped bus the engine publishes cycle events on.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the untyped bus.
type Bus = TypedBus[Event]

// New creates the engine bus.
func New(opts ...Option) *Bus {
	return NewTyped[Event](append([]Option{WithName("engine")}, opts...)...)
}
