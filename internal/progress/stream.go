package progress

import "sync"

// Stream is a channel-based fan-out for progress events, used by the TUI.
// Emission never blocks: events are dropped when the buffer is full or the
// stream is closed.
type Stream struct {
	Events    chan Event
	done      chan struct{}
	observers []func(Event)
	closeOnce sync.Once
	mu        sync.RWMutex
}

// NewStream creates a stream with the given buffer size (default 100).
func NewStream(bufferSize int) *Stream {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Stream{
		Events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
}

// Sink returns a Sink that feeds this stream.
func (s *Stream) Sink() Sink {
	return func(e Event) { s.emit(e) }
}

func (s *Stream) emit(e Event) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.Events <- e:
	case <-s.done:
	default:
		// Buffer full, drop event
	}

	s.mu.RLock()
	observers := append([]func(Event){}, s.observers...)
	s.mu.RUnlock()
	for _, obs := range observers {
		if obs != nil {
			obs(e)
		}
	}
}

// AddObserver registers a callback that receives every event synchronously.
func (s *Stream) AddObserver(fn func(Event)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Close shuts the stream and ends consumer range loops. Call it only after
// the producing run has returned.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		close(s.Events)
	})
}
