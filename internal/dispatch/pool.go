package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/muratoffalex/discordctl/internal/logger"
)

var (
	ErrQueueFull = errors.New("dispatcher queue is full")
	ErrClosed    = errors.New("dispatcher is closed")
)

type task struct {
	ctx     context.Context
	call    Call
	pending *Pending
	queued  time.Time
}

// pool is a fixed set of workers reading from a bounded queue, with an
// optional limiter shared by all workers.
type pool struct {
	tasks    chan task
	limiter  *rate.Limiter
	run      func(task)
	logger   logger.Logger
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

func newPool(workers, queueSize int, limiter *rate.Limiter, run func(task), l logger.Logger) *pool {
	p := &pool{
		tasks:   make(chan task, queueSize),
		limiter: limiter,
		run:     run,
		logger:  l,
	}
	for i := range workers {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// offer enqueues without blocking.
func (p *pool) offer(t task) error {
	select {
	case p.tasks <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *pool) worker(id int) {
	defer p.wg.Done()
	log := p.logger.WithField("worker", id)
	log.Debug("Worker started")
	defer log.Debug("Worker stopped")

	for t := range p.tasks {
		p.inFlight.Add(1)
		p.run(t)
		p.inFlight.Add(-1)
	}
}

// wait blocks until the limiter lets the task through or its context ends.
func (p *pool) wait(ctx context.Context, command string) error {
	if p.limiter == nil {
		return ctx.Err()
	}

	reserve := p.limiter.Reserve()
	if !reserve.OK() {
		return fmt.Errorf("rate limiter cannot admit request")
	}
	delay := reserve.Delay()
	if delay <= 0 {
		return ctx.Err()
	}

	p.logger.WithFields(logger.Fields{
		"command":  command,
		"wait_for": delay.String(),
	}).Debug("Rate limiting - delaying request")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reserve.Cancel()
		return ctx.Err()
	}
}

// close stops intake and waits for queued tasks to finish.
func (p *pool) close() {
	close(p.tasks)
	p.wg.Wait()
}
