// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by Submit when every worker is busy and the
// backlog is full. Scheduler ticks treat it as "skip, catch up next tick".
var ErrQueueFull = errors.New("worker queue full")

// Task is a unit of background work. The pool hands it the pool's run
// context so in-flight work stops when the pool shuts down.
type Task func(ctx context.Context) error

// Pool fans scheduler ticks out over a fixed set of goroutines with a
// bounded backlog. Submit never blocks the caller.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	n    int
	log  *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	poolLog := logger.With().Str("component", "worker-pool").Logger()
	return &Pool{
		jobs: make(chan Task, workers*4),
		quit: make(chan struct{}),
		n:    workers,
		log:  &poolLog,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case task := <-p.jobs:
			if task == nil {
				continue
			}
			if err := task(ctx); err != nil {
				p.log.Error().Err(err).Int("worker", id).Msg("background task failed")
			}
		}
	}
}

// Stop waits for workers to drain their current task. Queued tasks that
// never started are discarded.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		return ErrQueueFull
	}
}
