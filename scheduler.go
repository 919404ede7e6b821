package cochlea

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Scheduler drives ticks of a graph. It tracks the stream offset, the
// number of workers for channel-parallel nodes and pending mutations.
// Tick, Advance and Restart must not be called while Run is active.
type Scheduler struct {
	graph *Graph
	log   Logger

	mu        sync.Mutex
	blockSize int
	threads   int
	mutations Mutations

	restart bool
	offset  int64
	ticks   uint64
}

// NewScheduler creates a scheduler for the graph with provided block size.
// By default channel-parallel nodes are executed with a single worker.
func NewScheduler(g *Graph, blockSize int, options ...SchedulerOption) (*Scheduler, error) {
	s := &Scheduler{
		graph:   g,
		log:     g.log,
		threads: 1,
		restart: true,
	}
	if err := s.SetBlockSize(blockSize); err != nil {
		return nil, err
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Graph returns scheduled graph.
func (s *Scheduler) Graph() *Graph {
	return s.graph
}

// SetThreads sets number of workers. It takes effect on the next tick.
func (s *Scheduler) SetThreads(threads int) error {
	if threads < 1 {
		return &ConfigurationError{Param: "threads", Got: threads, Want: "at least 1"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = threads
	return nil
}

// SetBlockSize sets number of samples produced by source nodes in one
// tick. It takes effect on the next tick.
func (s *Scheduler) SetBlockSize(blockSize int) error {
	if blockSize < 1 {
		return &ConfigurationError{Param: "block size", Got: blockSize, Want: "at least 1"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockSize = blockSize
	return nil
}

// Push new mutations into scheduler. They are applied before the next
// tick. Push is safe for concurrent use.
func (s *Scheduler) Push(ms Mutations) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations = s.mutations.Append(ms)
}

// Offset returns number of samples the scheduler advanced in the current
// stream. Ticks which failed are not counted, even though nodes executed
// before the failed node have advanced their cursors. Use Node.Cursor to
// get the position of a particular node.
func (s *Scheduler) Offset() int64 {
	return s.offset
}

// Ticks returns number of successful ticks in the current stream.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks
}

// Restart starts a new stream on the next tick.
func (s *Scheduler) Restart() {
	s.restart = true
	s.offset = 0
	s.ticks = 0
}

// Tick runs a single tick with the scheduler block size.
func (s *Scheduler) Tick() error {
	s.mu.Lock()
	blockSize := s.blockSize
	s.mu.Unlock()
	return s.Advance(blockSize)
}

// Advance applies pending mutations and runs a single tick of provided
// number of samples. Offset is advanced if the tick succeeded or if some
// nodes were deferred.
func (s *Scheduler) Advance(samples int) error {
	s.mu.Lock()
	ms, threads := s.mutations, s.threads
	s.mutations = nil
	s.mu.Unlock()

	if err := ms.ApplyTo(s.graph); err != nil {
		return err
	}
	err := s.graph.RunStreamTick(Execution{
		StreamStart: s.restart,
		Offset:      s.offset,
		Samples:     samples,
		Threads:     threads,
	})
	// structural errors abort the tick before the stream is restarted
	var structErr *StructuralError
	if !errors.As(err, &structErr) {
		s.restart = false
	}
	if err != nil && !errors.Is(err, ErrNotReady) {
		return err
	}
	s.offset += int64(samples)
	s.ticks++
	return err
}

// Run starts a goroutine which executes ticks until provided number of
// ticks is done, context is done or a source node returns io.EOF. If
// ticks is not positive, only the latter two stop execution. Ticks with
// deferred nodes are not treated as errors. Returned channel is closed
// when the goroutine is done.
func (s *Scheduler) Run(ctx context.Context, ticks int) <-chan error {
	errc := make(chan error, 1)
	go s.run(ctx, ticks, errc)
	return errc
}

func (s *Scheduler) run(ctx context.Context, ticks int, errc chan<- error) {
	defer close(errc)
	s.log.Debug(fmt.Sprintf("scheduler started at offset %d", s.offset))
	for i := 0; ticks <= 0 || i < ticks; i++ {
		select {
		case <-ctx.Done():
			errc <- ctx.Err()
			return
		default:
		}
		err := s.Tick()
		switch {
		case err == nil, errors.Is(err, ErrNotReady):
			continue
		case errors.Is(err, io.EOF):
			s.log.Debug(fmt.Sprintf("scheduler reached the end of stream at offset %d", s.offset))
			return
		default:
			errc <- fmt.Errorf("tick %d: %w", s.ticks, err)
			return
		}
	}
	s.log.Debug(fmt.Sprintf("scheduler stopped at offset %d", s.offset))
}

// Wait for state transition or first error to occur.
func Wait(errc <-chan error) error {
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}
