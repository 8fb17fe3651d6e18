// Package commands routes JSON-lines requests from a host process to the
// bot's operations.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/muratoffalex/discordctl/internal/dispatch"
)

type Command interface {
	Name() string
	Aliases() []string
	Execute(ctx context.Context, req Request) (*dispatch.Pending, error)
}

// Request is one input line:
//
//	{"command":"SendMessage","tag":"t1","cooldown":5,"params":{"guild_id":"1",...}}
//
// A missing cooldown falls back to commands.<Name>.cooldown from config.
type Request struct {
	Command  string `json:"command"`
	Tag      string `json:"tag"`
	Cooldown *int64 `json:"cooldown,omitempty"`
	Params   Params `json:"params"`

	cooldown int64
}

// CooldownSeconds is the window resolved by the router.
func (r Request) CooldownSeconds() int64 {
	return r.cooldown
}

// ParamError reports a parameter that is present but has the wrong type.
type ParamError struct {
	Name string
	Err  error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("param %q: %v", e.Name, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// Params holds raw parameter values. Identifiers may be sent as JSON strings
// or numbers.
type Params map[string]json.RawMessage

func (p Params) String(name string) (string, error) {
	raw, ok := p[name]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", &ParamError{Name: name, Err: fmt.Errorf("expected string, got %s", raw)}
}

func (p Params) Int(name string, def int) (int, error) {
	raw, ok := p[name]
	if !ok || string(raw) == "null" {
		return def, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, nil
		}
	}
	return 0, &ParamError{Name: name, Err: fmt.Errorf("expected integer, got %s", raw)}
}

// all reads several string params, stopping at the first bad one.
func (p Params) all(names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		v, err := p.String(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
