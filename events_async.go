package challengeq

import (
	"context"
	"sync"
	"sync/atomic"
)

// AsyncSink decouples event delivery from answer writes by queueing events
// and forwarding them to the wrapped sink on a background goroutine.
//
// Because delivery happens after HandleEvent returns, an AsyncSink can never
// reject a write: HandleEvent always returns nil, and errors from the wrapped
// sink are discarded. Wrap only sinks that observe events, not ones that veto
// them.
type AsyncSink struct {
	sink       EventSink
	ch         chan Event
	done       chan struct{}
	wg         sync.WaitGroup
	dropped    atomic.Uint64
	closed     atomic.Bool
	closeOnce  sync.Once
	dropIfFull bool
}

// NewAsyncSink wraps sink with a queue of the given buffer size. When
// dropIfFull is true a full queue drops the event and counts it instead of
// blocking the caller.
func NewAsyncSink(sink EventSink, buffer int, dropIfFull bool) *AsyncSink {
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	s := &AsyncSink{
		sink:       sink,
		ch:         make(chan Event, buffer),
		done:       make(chan struct{}),
		dropIfFull: dropIfFull,
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *AsyncSink) run() {
	defer s.wg.Done()

	for {
		select {
		case event := <-s.ch:
			_ = s.sink.HandleEvent(context.Background(), event)
		case <-s.done:
			for {
				select {
				case event := <-s.ch:
					_ = s.sink.HandleEvent(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// HandleEvent queues the event for background delivery. It never returns an
// error; events arriving after Close are discarded.
func (s *AsyncSink) HandleEvent(ctx context.Context, event Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if s.dropIfFull {
		select {
		case s.ch <- event:
		case <-s.done:
		default:
			s.dropped.Add(1)
		}
		return nil
	}

	select {
	case s.ch <- event:
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

// Close stops the background goroutine after draining queued events. Safe to
// call more than once.
func (s *AsyncSink) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full.
func (s *AsyncSink) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}
