package common

import (
	"context"
	"sync"
)

// EventKind distinguishes the three variants an Event can carry.
type EventKind uint8

const (
	// EventNext carries a value.
	EventNext EventKind = iota
	// EventError carries an error. The stream stays open.
	EventError
	// EventCompleted is the last event of a stream.
	EventCompleted
)

// String ...
func (k EventKind) String() string {
	switch k {
	case EventNext:
		return "Next"
	case EventError:
		return "Error"
	case EventCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Event is one item delivered on a Stream.
type Event[T any] struct {
	Kind  EventKind
	Value T
	Err   error
}

// Stream is a bounded queue of Events feeding a single consumer. Producers
// never block: when the buffer is full the event is refused and the caller
// decides whether to log or drop it.
type Stream[T any] struct {
	ch     chan Event[T]
	mu     sync.RWMutex
	closed bool
}

// NewStream creates a Stream buffering up to size events.
func NewStream[T any](size int) *Stream[T] {
	return &Stream[T]{
		ch: make(chan Event[T], size),
	}
}

// C returns the channel the consumer reads from. It is closed after the
// Completed event.
func (s *Stream[T]) C() <-chan Event[T] {
	return s.ch
}

// Next queues a value. It returns false if the stream is full or completed.
func (s *Stream[T]) Next(v T) bool {
	return s.push(Event[T]{Kind: EventNext, Value: v})
}

// Error queues an error. It returns false if the stream is full or completed.
func (s *Stream[T]) Error(err error) bool {
	return s.push(Event[T]{Kind: EventError, Err: err})
}

// Complete queues the Completed event, if there is room for it, and closes the
// channel. Further calls do nothing.
func (s *Stream[T]) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	select {
	case s.ch <- Event[T]{Kind: EventCompleted}:
	default:
	}
	close(s.ch)
}

func (s *Stream[T]) push(ev Event[T]) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

// Consume reads events from in until the stream completes, the channel closes,
// or ctx is cancelled. onError may be nil.
func Consume[T any](ctx context.Context, in <-chan Event[T], onNext func(T), onError func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			switch ev.Kind {
			case EventNext:
				onNext(ev.Value)
			case EventError:
				if onError != nil {
					onError(ev.Err)
				}
			case EventCompleted:
				return
			}
		}
	}
}
