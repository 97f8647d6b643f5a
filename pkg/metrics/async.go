package metrics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/rollout/pkg/logger"
)

// BatchWriter stores events in bulk.
type BatchWriter interface {
	WriteBatch(ctx context.Context, events []Event) error
}

// AsyncOptions controls buffering and batching.
type AsyncOptions struct {
	BufferSize   int           // events queued before Emit starts dropping
	BatchSize    int           // events per write
	BatchTimeout time.Duration // max wait for a partial batch
	WriteTimeout time.Duration // per-batch write deadline
	Logger       *slog.Logger
}

// AsyncSink queues events and writes them from a single background goroutine.
// Emit never blocks: when the queue is full the event is dropped.
type AsyncSink struct {
	writer  BatchWriter
	opts    AsyncOptions
	queue   chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	once    sync.Once
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewAsyncSink starts the background writer. Call Close to flush and stop it.
func NewAsyncSink(w BatchWriter, opts AsyncOptions) *AsyncSink {
	if w == nil {
		panic("metrics: batch writer cannot be nil")
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	s := &AsyncSink{
		writer: w,
		opts:   opts,
		queue:  make(chan Event, opts.BufferSize),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *AsyncSink) Emit(_ context.Context, e Event) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}
	select {
	case s.queue <- e:
		return nil
	case <-s.done:
		return ErrSinkClosed
	default:
		s.dropped.Add(1)
		return ErrBufferFull
	}
}

// Dropped returns the number of events dropped because the queue was full.
func (s *AsyncSink) Dropped() int64 { return s.dropped.Load() }

// Failed returns the number of events lost to failed batch writes.
func (s *AsyncSink) Failed() int64 { return s.failed.Load() }

// Close stops accepting events, flushes what is queued and waits for the
// writer until ctx is done.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncSink) run() {
	defer s.wg.Done()

	batch := make([]Event, 0, s.opts.BatchSize)
	ticker := time.NewTicker(s.opts.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
		defer cancel()
		if err := s.writer.WriteBatch(ctx, batch); err != nil {
			s.failed.Add(int64(len(batch)))
			s.opts.Logger.WarnContext(ctx, "failed to write metrics batch",
				slog.Int("events", len(batch)),
				logger.Error(err),
			)
		}
		batch = make([]Event, 0, s.opts.BatchSize)
	}

	for {
		select {
		case e := <-s.queue:
			batch = append(batch, e)
			if len(batch) >= s.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case e := <-s.queue:
					batch = append(batch, e)
					if len(batch) >= s.opts.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
