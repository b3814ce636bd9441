package challengeq

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event names emitted around answer writes.
const (
	EventPreSetChallengeAnswers  = "PRE_SET_CHALLENGE_QUESTION_ANSWERS"
	EventPostSetChallengeAnswers = "POST_SET_CHALLENGE_QUESTION_ANSWERS"
)

// Event carries the context of an answer write to registered sinks. Answers
// holds the incoming answers (plaintext at pre time, digests at post time);
// ExistingAnswers holds the attribute values that were already stored when
// the write started, keyed by claim URI.
type Event struct {
	Timestamp       time.Time             `json:"timestamp"`
	Name            string                `json:"name"`
	User            User                  `json:"user"`
	Answers         []UserChallengeAnswer `json:"answers,omitempty"`
	ExistingAnswers map[string]string     `json:"existing_answers,omitempty"`
}

// EventSink receives pre and post events around answer writes. A non-nil
// error from the pre event aborts the write; a post event error is surfaced
// to the caller but the write has already happened.
type EventSink interface {
	HandleEvent(ctx context.Context, event Event) error
}

// NoOpSink discards all events.
type NoOpSink struct{}

func (NoOpSink) HandleEvent(context.Context, Event) error { return nil }

// ChannelSink forwards events to a buffered channel, blocking until the
// event is accepted or the context is done.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) HandleEvent(ctx context.Context, event Event) error {
	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON line per event.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) HandleEvent(_ context.Context, event Event) error {
	if s == nil || s.writer == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("\n"))
	return err
}
