package eventbus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var droppedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "railjobs_eventbus_dropped_total",
	Help: "Events not delivered because a subscriber buffer was full.",
}, []string{"bus"})

func init() {
	prometheus.MustRegister(droppedEvents)
}

const defaultBuffer = 8

type options struct {
	name   string
	buffer int
}

// Option configures a bus.
type Option func(*options)

// WithName labels the bus in the dropped events counter.
func WithName(name string) Option { return func(o *options) { o.name = name } }

// WithBuffer sets the channel capacity of every subscriber.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// TypedBus fans values of type T out to buffered subscriber channels.
// Publish never blocks; a subscriber with a full buffer misses the value.
type TypedBus[T any] struct {
	mu      sync.RWMutex
	subs    map[<-chan T]chan T
	closed  bool
	buffer  int
	dropped prometheus.Counter
}

// NewTyped creates a TypedBus.
func NewTyped[T any](opts ...Option) *TypedBus[T] {
	o := options{name: "typed", buffer: defaultBuffer}
	for _, fn := range opts {
		fn(&o)
	}
	return &TypedBus[T]{
		subs:    map[<-chan T]chan T{},
		buffer:  o.buffer,
		dropped: droppedEvents.WithLabelValues(o.name),
	}
}

func (b *TypedBus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Inc()
		}
	}
}

// Subscribe returns a new subscriber channel. It is closed immediately when
// the bus is already closed.
func (b *TypedBus[T]) Subscribe() <-chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = ch
	return ch
}

// Unsubscribe removes sub and closes it. Unknown channels are ignored.
func (b *TypedBus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(ch)
	}
}

// Subscribers reports the number of open subscriptions.
func (b *TypedBus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are discarded.
func (b *TypedBus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub, ch := range b.subs {
		close(ch)
		delete(b.subs, sub)
	}
}
