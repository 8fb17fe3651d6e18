// Package core exposes every chat-platform operation as an asynchronous,
// tag-correlated call whose result arrives as a dispatch outcome.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/muratoffalex/discordctl/internal/discord"
	"github.com/muratoffalex/discordctl/internal/dispatch"
	"github.com/muratoffalex/discordctl/internal/locale"
	"github.com/muratoffalex/discordctl/internal/logger"
)

type Dispatcher interface {
	Submit(ctx context.Context, call dispatch.Call) *dispatch.Pending
	Fail(call dispatch.Call, err error, message string) *dispatch.Pending
}

type Executor interface {
	Execute(ctx context.Context, spec discord.RequestSpec) (discord.Response, error)
}

var errInvalidParameter = errors.New("invalid parameter")

type Bot struct {
	dispatcher Dispatcher
	executor   Executor
	localizer  *locale.Localizer
	logger     logger.Logger
}

func NewBot(d Dispatcher, exec Executor, localizer *locale.Localizer, l logger.Logger) *Bot {
	return &Bot{
		dispatcher: d,
		executor:   exec,
		localizer:  localizer,
		logger:     l.WithField("component", "bot"),
	}
}

// successFunc turns a 2xx response into the message handed to OnSuccess.
type successFunc func(resp discord.Response) (string, error)

type param struct {
	name  string
	value string
}

func id(name, value string) param {
	return param{name: name, value: value}
}

func (b *Bot) throttled(ctx context.Context, command, tag string, cooldown int64, ids []param, run dispatch.Job) *dispatch.Pending {
	call := dispatch.Call{
		Command:   command,
		Tag:       tag,
		Throttled: true,
		Cooldown:  cooldown,
		Job:       run,
	}
	return b.submit(ctx, call, ids)
}

func (b *Bot) unthrottled(ctx context.Context, command, tag string, ids []param, run dispatch.Job) *dispatch.Pending {
	call := dispatch.Call{
		Command: command,
		Tag:     tag,
		Job:     run,
	}
	return b.submit(ctx, call, ids)
}

// submit rejects calls with missing identifiers before they reach the gate,
// so a malformed call never starts a cooldown.
func (b *Bot) submit(ctx context.Context, call dispatch.Call, ids []param) *dispatch.Pending {
	for _, p := range ids {
		if strings.TrimSpace(p.value) == "" {
			err := fmt.Errorf("%w: %s is empty", errInvalidParameter, p.name)
			b.logger.WithFields(logger.Fields{
				"command": call.Command,
				"tag":     call.Tag,
				"param":   p.name,
			}).Warn("Rejecting call with missing identifier")
			return b.dispatcher.Fail(call, err, b.localizer.Text(locale.MsgInvalidParameter, map[string]any{
				"Name":   p.name,
				"Reason": "must not be empty",
			}))
		}
	}
	return b.dispatcher.Submit(ctx, call)
}

// request runs a single REST call and reports it with onSuccess, or with the
// generic status message when onSuccess is nil.
func (b *Bot) request(guildID string, spec discord.RequestSpec, onSuccess successFunc) dispatch.Job {
	if onSuccess == nil {
		onSuccess = b.statusMessage(guildID)
	}
	return func(ctx context.Context) dispatch.Result {
		resp, err := b.executor.Execute(ctx, spec)
		if err != nil {
			return b.failure(guildID, err)
		}
		msg, err := onSuccess(resp)
		if err != nil {
			res := b.failure(guildID, err)
			res.StatusCode = resp.StatusCode
			return res
		}
		return dispatch.Result{Message: msg, StatusCode: resp.StatusCode}
	}
}

func (b *Bot) statusMessage(guildID string) successFunc {
	return func(resp discord.Response) (string, error) {
		if resp.NoContent() {
			return b.localizer.Text(locale.MsgSuccessNoContent, map[string]any{"Guild": guildID}), nil
		}
		return b.localizer.Text(locale.MsgSuccess, map[string]any{
			"Guild": guildID,
			"Code":  resp.StatusCode,
		}), nil
	}
}

func (b *Bot) fixedMessage(messageID string) successFunc {
	return func(discord.Response) (string, error) {
		return b.localizer.Text(messageID, nil), nil
	}
}

func rawBody(resp discord.Response) (string, error) {
	return string(resp.Body), nil
}

// failure maps the error taxonomy onto the message delivered to OnError.
func (b *Bot) failure(guildID string, err error) dispatch.Result {
	var (
		perr    *discord.ProtocolError
		payload *discord.PayloadError
	)
	switch {
	case errors.As(err, &perr):
		return dispatch.Result{
			Message:    b.localizer.Text(locale.MsgErrorStatus, map[string]any{"Guild": guildID, "Code": perr.StatusCode}),
			StatusCode: perr.StatusCode,
			Err:        err,
		}
	case errors.As(err, &payload):
		return dispatch.Result{
			Message: b.localizer.Text(locale.MsgErrorPayload, map[string]any{"Guild": guildID, "Reason": payload.Error()}),
			Err:     err,
		}
	default:
		return dispatch.Result{
			Message: b.localizer.Text(locale.MsgErrorTransport, map[string]any{"Guild": guildID, "Reason": err.Error()}),
			Err:     err,
		}
	}
}

// RejectionMessage renders errors raised by the dispatcher itself, before a
// request reaches the API.
func RejectionMessage(l *locale.Localizer) func(error) string {
	return func(err error) string {
		return l.Text(locale.MsgErrorRejected, map[string]any{"Reason": err.Error()})
	}
}
