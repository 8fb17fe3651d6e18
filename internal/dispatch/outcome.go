// Package dispatch runs admitted commands on a bounded worker pool and
// delivers exactly one terminal outcome per invocation.
package dispatch

import (
	"context"
	"sync"
	"time"
)

type OutcomeKind int

const (
	Success OutcomeKind = iota + 1
	Error
	CooldownActive
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case Error:
		return "error"
	case CooldownActive:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Outcome is the terminal event of one invocation.
type Outcome struct {
	ID               string
	Tag              string
	Command          string
	Kind             OutcomeKind
	Message          string
	StatusCode       int
	SecondsRemaining int64
	Err              error
	Duration         time.Duration
	At               time.Time
}

// Result is what a Job reports back. A nil Err means success.
type Result struct {
	Message    string
	StatusCode int
	Err        error
}

type Job func(ctx context.Context) Result

// Call is one invocation request. Throttled calls pass through the cooldown
// gate keyed by Command with a window of Cooldown seconds.
type Call struct {
	Command   string
	Tag       string
	Throttled bool
	Cooldown  int64
	Job       Job
}

// Pending is the caller's handle on an invocation. It resolves exactly once.
type Pending struct {
	id      string
	tag     string
	command string

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func newPending(id string, call Call) *Pending {
	return &Pending{
		id:      id,
		tag:     call.Tag,
		command: call.Command,
		done:    make(chan struct{}),
	}
}

func (p *Pending) ID() string      { return p.id }
func (p *Pending) Tag() string     { return p.tag }
func (p *Pending) Command() string { return p.command }

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Outcome returns the terminal outcome once resolved.
func (p *Pending) Outcome() (Outcome, bool) {
	select {
	case <-p.done:
		return p.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the invocation resolves or ctx ends. Giving up waiting
// does not cancel the invocation.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// resolve stores the first outcome. notify runs before waiters are released,
// so anything it does is visible to them.
func (p *Pending) resolve(o Outcome, notify func(Outcome)) bool {
	resolved := false
	p.once.Do(func() {
		p.outcome = o
		if notify != nil {
			notify(o)
		}
		close(p.done)
		resolved = true
	})
	return resolved
}
