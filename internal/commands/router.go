package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/muratoffalex/discordctl/internal/dispatch"
	"github.com/muratoffalex/discordctl/internal/locale"
	"github.com/muratoffalex/discordctl/internal/logger"
)

const maxLineBytes = 1 << 20

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMalformedRequest = errors.New("malformed request")
)

// Failer resolves calls that never reach a command.
type Failer interface {
	Fail(call dispatch.Call, err error, message string) *dispatch.Pending
}

type Router struct {
	commands  map[string]Command
	failer    Failer
	localizer *locale.Localizer
	cooldowns func(command string) int64
	logger    logger.Logger
}

// NewRouter builds a router. cooldowns supplies the default window for
// requests that carry none; nil means no default.
func NewRouter(f Failer, localizer *locale.Localizer, cooldowns func(command string) int64, l logger.Logger) *Router {
	if cooldowns == nil {
		cooldowns = func(string) int64 { return 0 }
	}
	return &Router{
		commands:  make(map[string]Command),
		failer:    f,
		localizer: localizer,
		cooldowns: cooldowns,
		logger:    l.WithField("component", "router"),
	}
}

func (r *Router) Register(cmds ...Command) {
	for _, cmd := range cmds {
		r.commands[strings.ToLower(cmd.Name())] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[strings.ToLower(alias)] = cmd
		}
		r.logger.WithField("command", cmd.Name()).Debug("Command registered")
	}
}

// Dispatch routes one request. Every request resolves exactly one outcome,
// including unknown commands and bad parameters.
func (r *Router) Dispatch(ctx context.Context, req Request) *dispatch.Pending {
	cmd, ok := r.commands[strings.ToLower(strings.TrimSpace(req.Command))]
	if !ok {
		r.logger.WithFields(logger.Fields{
			"command": req.Command,
			"tag":     req.Tag,
		}).Warn("Unknown command")
		return r.failer.Fail(
			dispatch.Call{Command: req.Command, Tag: req.Tag},
			fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command),
			r.localizer.Text(locale.MsgUnknownCommand, map[string]any{"Command": req.Command}),
		)
	}

	if req.Cooldown != nil {
		req.cooldown = max(*req.Cooldown, 0)
	} else {
		req.cooldown = r.cooldowns(cmd.Name())
	}

	p, err := cmd.Execute(ctx, req)
	if err != nil {
		call := dispatch.Call{Command: cmd.Name(), Tag: req.Tag}
		var perr *ParamError
		if errors.As(err, &perr) {
			return r.failer.Fail(call, err, r.localizer.Text(locale.MsgInvalidParameter, map[string]any{
				"Name":   perr.Name,
				"Reason": perr.Err.Error(),
			}))
		}
		return r.failer.Fail(call, err, "")
	}
	return p
}

// DispatchLine decodes and routes one JSON line.
func (r *Router) DispatchLine(ctx context.Context, line []byte) *dispatch.Pending {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		r.logger.WithError(err).Warn("Malformed request line")
		return r.failer.Fail(
			dispatch.Call{Tag: tagOf(line)},
			fmt.Errorf("%w: %v", ErrMalformedRequest, err),
			r.localizer.Text(locale.MsgMalformedRequest, map[string]any{"Reason": err.Error()}),
		)
	}
	return r.Dispatch(ctx, req)
}

// Serve reads requests from in, one JSON object per line, until EOF or ctx
// ends. Blank lines are skipped. It does not wait for outcomes.
func (r *Router) Serve(ctx context.Context, in io.Reader) error {
	lines := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return ctx.Err()
				}
			}
			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}
			r.DispatchLine(ctx, line)
		}
	}
}

// tagOf salvages the tag from a line that failed to decode as a Request, so
// the failure can still be correlated by the host.
func tagOf(line []byte) string {
	var partial struct {
		Tag string `json:"tag"`
	}
	if json.Unmarshal(line, &partial) != nil {
		return ""
	}
	return partial.Tag
}
