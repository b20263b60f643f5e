package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type job struct {
	name string
	fn   func(context.Context) error
}

// WriteBehind applies store mutations asynchronously so the realtime
// broadcast path never waits on persistence. Failures are logged, never
// surfaced to players.
type WriteBehind struct {
	jobs    chan job
	done    chan struct{}
	timeout time.Duration
}

func NewWriteBehind(size int) *WriteBehind {
	if size <= 0 {
		size = 256
	}
	w := &WriteBehind{
		jobs:    make(chan job, size),
		done:    make(chan struct{}),
		timeout: 5 * time.Second,
	}
	go w.run()
	return w
}

func (w *WriteBehind) run() {
	defer close(w.done)
	for j := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := j.fn(ctx); err != nil {
			log.Error().Err(err).Str("op", j.name).Msg("write-behind persistence failed")
		}
		cancel()
	}
}

// Enqueue queues one persistence op. A full queue drops the op rather
// than blocking a game handler.
func (w *WriteBehind) Enqueue(name string, fn func(context.Context) error) {
	select {
	case w.jobs <- job{name: name, fn: fn}:
	default:
		log.Warn().Str("op", name).Msg("write-behind queue full, dropping op")
	}
}

// Close drains the queue and stops the worker.
func (w *WriteBehind) Close() {
	close(w.jobs)
	<-w.done
}
