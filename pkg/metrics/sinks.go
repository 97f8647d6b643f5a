package metrics

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmitrymomot/rollout/pkg/logger"
)

type multiSink []Sink

// Multi fans out to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	clean := slices.DeleteFunc(slices.Clone(sinks), func(s Sink) bool { return s == nil })
	return multiSink(clean)
}

func (m multiSink) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to a structured logger. Error and rollback events log
// at warn level, everything else at debug.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = logger.Discard()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Emit(ctx context.Context, e Event) error {
	level := slog.LevelDebug
	if e.Type == EventError || e.Type == EventRollback {
		level = slog.LevelWarn
	}
	s.log.Log(ctx, level, "metrics event",
		logger.EventType(string(e.Type)),
		logger.Variant(e.Variant),
		slog.Any("payload", e.Payload),
	)
	return nil
}

// MemorySink keeps the most recent events in memory.
type MemorySink struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

// NewMemorySink keeps up to limit events; limit <= 0 means unbounded.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: limit}
}

func (s *MemorySink) Emit(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if s.limit > 0 && len(s.events) > s.limit {
		s.events = slices.Delete(s.events, 0, len(s.events)-s.limit)
	}
	return nil
}

// Events returns a copy of the retained events, oldest first. With types
// given, only matching events are returned.
func (s *MemorySink) Events(types ...EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(types) == 0 {
		return slices.Clone(s.events)
	}
	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if slices.Contains(types, e.Type) {
			out = append(out, e)
		}
	}
	return out
}
