package broadcast

import (
	"sync"

	"github.com/kara-engine/kara/log"
)

// Message is the frame delivered to observers.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Sink receives every message, in emission order.
type Sink interface {
	Deliver(msg Message)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(msg Message)

func (f SinkFunc) Deliver(msg Message) { f(msg) }

const defaultQueueSize = 256

// Broadcaster queues events and delivers them asynchronously to its sinks.
type Broadcaster struct {
	queue chan Message
	done  chan struct{}

	mu     sync.RWMutex
	sinks  []Sink
	closed bool
}

// New starts a broadcaster with a queue of the given size.
func New(size int) *Broadcaster {
	if size <= 0 {
		size = defaultQueueSize
	}

	b := &Broadcaster{
		queue: make(chan Message, size),
		done:  make(chan struct{}),
	}
	go b.run()
	return b
}

// Subscribe adds a sink. Sinks never miss messages emitted after they subscribed.
func (b *Broadcaster) Subscribe(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Emit schedules delivery. It blocks only when the queue is full.
func (b *Broadcaster) Emit(event string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	msg := Message{Type: event, Payload: payload}
	select {
	case b.queue <- msg:
	default:
		log.Warnf("broadcast queue full, %s waits", event)
		b.queue <- msg
	}
}

// Close delivers what is queued and stops the broadcaster.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	<-b.done
}

func (b *Broadcaster) run() {
	defer close(b.done)

	for msg := range b.queue {
		b.mu.RLock()
		sinks := append([]Sink(nil), b.sinks...)
		b.mu.RUnlock()

		for _, sink := range sinks {
			sink.Deliver(msg)
		}
	}
}
