package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/muratoffalex/discordctl/internal/logger"
	"github.com/muratoffalex/discordctl/internal/throttle"
)

// Gate decides whether a throttled command may run now.
type Gate interface {
	Allow(key string, windowSeconds int64) throttle.Decision
}

type Options struct {
	Workers int
	// QueueSize bounds jobs waiting for a worker. With 0, work is only
	// accepted when a worker is idle.
	QueueSize int
	// Rate is the shared outbound budget in requests per second; 0 disables it.
	Rate  float64
	Burst int
	// FailureMessage renders errors the dispatcher itself produces (full
	// queue, closed dispatcher, panics, cancelled waits).
	FailureMessage func(err error) string
	Clock          func() time.Time
}

type Dispatcher struct {
	gate      Gate
	handler   Handler
	observers []Observer
	opts      Options
	logger    logger.Logger

	pool    *pool
	mailbox *mailbox
	stopped chan struct{}

	mu     sync.RWMutex
	closed bool
}

func New(gate Gate, handler Handler, opts Options, l logger.Logger, observers ...Observer) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	if opts.FailureMessage == nil {
		opts.FailureMessage = func(err error) string {
			return fmt.Sprintf("request was not sent: %v", err)
		}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if handler == nil {
		handler = HandlerFuncs{}
	}

	d := &Dispatcher{
		gate:      gate,
		handler:   handler,
		observers: observers,
		opts:      opts,
		logger:    l.WithField("component", "dispatcher"),
		mailbox:   newMailbox(),
		stopped:   make(chan struct{}),
	}

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), max(opts.Burst, 1))
	}
	d.pool = newPool(opts.Workers, opts.QueueSize, limiter, d.execute, d.logger)

	d.logger.WithFields(logger.Fields{
		"workers":    opts.Workers,
		"queue_size": opts.QueueSize,
		"rate":       opts.Rate,
		"burst":      opts.Burst,
	}).Info("Dispatcher started")

	go d.deliverLoop()
	return d
}

// Submit issues one invocation. It never blocks on network work: the call is
// either denied by the gate, rejected, or queued for a worker.
func (d *Dispatcher) Submit(ctx context.Context, call Call) *Pending {
	p := newPending(uuid.NewString(), call)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.resolveOnly(p, d.failure(call, p, ErrClosed, 0))
		return p
	}

	if call.Throttled {
		if dec := d.gate.Allow(call.Command, call.Cooldown); !dec.Admitted {
			d.logger.WithFields(logger.Fields{
				"command":           call.Command,
				"tag":               call.Tag,
				"seconds_remaining": dec.SecondsRemaining,
			}).Debug("Command on cooldown")
			d.complete(p, Outcome{
				ID:               p.id,
				Tag:              call.Tag,
				Command:          call.Command,
				Kind:             CooldownActive,
				SecondsRemaining: dec.SecondsRemaining,
				At:               d.opts.Clock(),
			})
			return p
		}
	}

	if call.Job == nil {
		d.complete(p, d.failure(call, p, fmt.Errorf("command %q has no job", call.Command), 0))
		return p
	}

	if err := d.pool.offer(task{ctx: ctx, call: call, pending: p, queued: d.opts.Clock()}); err != nil {
		d.logger.WithField("command", call.Command).WithError(err).Warn("Rejecting invocation")
		d.complete(p, d.failure(call, p, err, 0))
	}
	return p
}

// Fail resolves a call with an error without consulting the gate or the
// pool. Used for invocations rejected before they are issued, such as
// invalid parameters.
func (d *Dispatcher) Fail(call Call, err error, message string) *Pending {
	p := newPending(uuid.NewString(), call)
	o := d.failure(call, p, err, 0)
	if message != "" {
		o.Message = message
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.resolveOnly(p, o)
		return p
	}
	d.complete(p, o)
	return p
}

// InFlight reports how many jobs workers are currently running.
func (d *Dispatcher) InFlight() int64 {
	return d.pool.inFlight.Load()
}

// Close stops intake, lets queued jobs finish and drains pending callbacks.
// Calls submitted afterwards resolve their Pending with ErrClosed without
// reaching the Handler.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.stopped
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.pool.close()
	d.mailbox.close()
	<-d.stopped
	d.logger.Info("Dispatcher stopped")
}

func (d *Dispatcher) execute(t task) {
	start := d.opts.Clock()
	log := d.logger.WithFields(logger.Fields{
		"command":       t.call.Command,
		"tag":           t.call.Tag,
		"invocation_id": t.pending.id,
	})

	if err := d.pool.wait(t.ctx, t.call.Command); err != nil {
		log.WithError(err).Warn("Invocation abandoned before sending")
		d.complete(t.pending, d.failure(t.call, t.pending, err, d.opts.Clock().Sub(t.queued)))
		return
	}

	res := d.runJob(t, log)

	o := Outcome{
		ID:         t.pending.id,
		Tag:        t.call.Tag,
		Command:    t.call.Command,
		Kind:       Success,
		Message:    res.Message,
		StatusCode: res.StatusCode,
		Err:        res.Err,
		Duration:   d.opts.Clock().Sub(start),
		At:         d.opts.Clock(),
	}
	if res.Err != nil {
		o.Kind = Error
		if o.Message == "" {
			o.Message = res.Err.Error()
		}
	}
	log.WithFields(logger.Fields{
		"outcome":  o.Kind.String(),
		"duration": o.Duration.String(),
	}).Debug("Invocation finished")
	d.complete(t.pending, o)
}

func (d *Dispatcher) runJob(t task, log logger.Logger) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("recovered from panic: %v", r)
			log.Error(err.Error())
			res = Result{Message: d.opts.FailureMessage(err), Err: err}
		}
	}()
	return t.call.Job(t.ctx)
}

func (d *Dispatcher) failure(call Call, p *Pending, err error, elapsed time.Duration) Outcome {
	return Outcome{
		ID:       p.id,
		Tag:      call.Tag,
		Command:  call.Command,
		Kind:     Error,
		Message:  d.opts.FailureMessage(err),
		Err:      err,
		Duration: elapsed,
		At:       d.opts.Clock(),
	}
}

// complete resolves the pending handle, notifies observers and queues the
// outcome for the handler. Second and later completions are dropped.
func (d *Dispatcher) complete(p *Pending, o Outcome) {
	ok := p.resolve(o, func(o Outcome) {
		d.observe(o)
		d.mailbox.push(o)
	})
	if !ok {
		d.logger.WithField("invocation_id", p.id).Warn("Duplicate outcome dropped")
	}
}

func (d *Dispatcher) resolveOnly(p *Pending, o Outcome) {
	p.resolve(o, d.observe)
}

func (d *Dispatcher) observe(o Outcome) {
	for _, obs := range d.observers {
		obs.Observe(o)
	}
}

func (d *Dispatcher) deliverLoop() {
	defer close(d.stopped)
	for {
		batch, ok := d.mailbox.take()
		if !ok {
			return
		}
		for _, o := range batch {
			d.deliver(o)
		}
	}
}

func (d *Dispatcher) deliver(o Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithFields(logger.Fields{
				"invocation_id": o.ID,
				"tag":           o.Tag,
			}).Error(fmt.Sprintf("handler panicked: %v", r))
		}
	}()

	switch o.Kind {
	case Success:
		d.handler.OnSuccess(o.Tag, o.Message)
	case Error:
		d.handler.OnError(o.Tag, o.Message)
	case CooldownActive:
		d.handler.OnCooldown(o.Tag, o.Command, o.SecondsRemaining)
	}
}
