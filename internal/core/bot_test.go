package core

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/muratoffalex/discordctl/internal/discord"
	"github.com/muratoffalex/discordctl/internal/dispatch"
	"github.com/muratoffalex/discordctl/internal/locale"
	"github.com/muratoffalex/discordctl/internal/logger"
	"github.com/muratoffalex/discordctl/internal/throttle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type callback struct {
	kind    dispatch.OutcomeKind
	tag     string
	message string
	command string
	seconds int64
}

type handler struct {
	mu    sync.Mutex
	calls []callback
}

func (h *handler) OnSuccess(tag, message string) {
	h.add(callback{kind: dispatch.Success, tag: tag, message: message})
}

func (h *handler) OnError(tag, message string) {
	h.add(callback{kind: dispatch.Error, tag: tag, message: message})
}

func (h *handler) OnCooldown(tag, command string, secondsRemaining int64) {
	h.add(callback{kind: dispatch.CooldownActive, tag: tag, command: command, seconds: secondsRemaining})
}

func (h *handler) add(c callback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, c)
}

func (h *handler) snapshot() []callback {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]callback{}, h.calls...)
}

type fixture struct {
	bot      *Bot
	handler  *handler
	clock    *clock
	throttle *throttle.Throttle
	requests chan *http.Request
	bodies   chan string
}

func newFixture(t *testing.T, api http.HandlerFunc) *fixture {
	t.Helper()

	f := &fixture{
		handler:  &handler{},
		clock:    &clock{now: time.Unix(1_700_000_000, 0)},
		requests: make(chan *http.Request, 16),
		bodies:   make(chan string, 16),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.requests <- r
		f.bodies <- string(body)
		api(w, r)
	}))
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger()
	loc, err := locale.New("en")
	require.NoError(t, err)

	f.throttle = throttle.New(throttle.WithClock(f.clock.Now))
	d := dispatch.New(f.throttle, f.handler, dispatch.Options{
		Workers:        2,
		QueueSize:      8,
		FailureMessage: RejectionMessage(loc),
	}, log)
	t.Cleanup(d.Close)

	exec := discord.NewExecutor(srv.Client(), discord.StaticToken("secret"), log, discord.WithBaseURL(srv.URL))
	f.bot = NewBot(d, exec, loc, log)
	return f
}

func await(t *testing.T, p *dispatch.Pending) dispatch.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := p.Wait(ctx)
	require.NoError(t, err)
	return o
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		if body != "" {
			io.WriteString(w, body)
		}
	}
}

func TestSendMessage_CooldownWithinWindow(t *testing.T) {
	f := newFixture(t, reply(http.StatusOK, `{"id":"10"}`))
	ctx := context.Background()

	first := await(t, f.bot.SendMessage(ctx, "1", "2", "hi", "t1", 5))
	f.clock.Advance(time.Second)
	second := await(t, f.bot.SendMessage(ctx, "1", "2", "hi", "t1", 5))

	assert.Equal(t, dispatch.Success, first.Kind)
	assert.Equal(t, "Success for guild: 1 with code: 200", first.Message)
	assert.Equal(t, dispatch.CooldownActive, second.Kind)
	assert.Equal(t, "t1", second.Tag)
	assert.Equal(t, CmdSendMessage, second.Command)
	assert.Equal(t, int64(4), second.SecondsRemaining)

	req := <-f.requests
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/channels/2/messages", req.URL.Path)
	assert.JSONEq(t, `{"content":"hi"}`, <-f.bodies)
	assert.Len(t, f.requests, 0, "denied call must not reach the network")

	require.Eventually(t, func() bool { return len(f.handler.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	calls := f.handler.snapshot()
	assert.Equal(t, callback{kind: dispatch.Success, tag: "t1", message: first.Message}, calls[0])
	assert.Equal(t, callback{kind: dispatch.CooldownActive, tag: "t1", command: CmdSendMessage, seconds: 4}, calls[1])
}

func TestSendMessage_AdmittedAfterWindow(t *testing.T) {
	f := newFixture(t, reply(http.StatusOK, `{}`))
	ctx := context.Background()

	require.Equal(t, dispatch.Success, await(t, f.bot.SendMessage(ctx, "1", "2", "hi", "a", 5)).Kind)
	f.clock.Advance(5 * time.Second)
	assert.Equal(t, dispatch.Success, await(t, f.bot.SendMessage(ctx, "1", "2", "hi", "b", 5)).Kind)
}

func TestCooldownIsPerCommand(t *testing.T) {
	f := newFixture(t, reply(http.StatusNoContent, ""))
	ctx := context.Background()

	require.Equal(t, dispatch.Success, await(t, f.bot.PinMessage(ctx, "1", "2", "3", "a", 60)).Kind)
	o := await(t, f.bot.UnpinMessage(ctx, "1", "2", "3", "b", 60))
	assert.Equal(t, dispatch.Success, o.Kind)
	assert.Equal(t, "Success for guild: 1 (no content)", o.Message)
}

func TestProtocolErrorCarriesStatus(t *testing.T) {
	f := newFixture(t, reply(http.StatusForbidden, `{"code":50013,"message":"Missing Permissions"}`))

	o := await(t, f.bot.DeleteMessage(context.Background(), "1", "2", "3", "t", 0))

	assert.Equal(t, dispatch.Error, o.Kind)
	assert.Equal(t, http.StatusForbidden, o.StatusCode)
	assert.Equal(t, "Error for guild: 1 with code: 403", o.Message)
	var perr *discord.ProtocolError
	require.ErrorAs(t, o.Err, &perr)
	assert.Equal(t, 50013, perr.Code)
}

func TestErrorStillStartsCooldown(t *testing.T) {
	f := newFixture(t, reply(http.StatusInternalServerError, ""))
	ctx := context.Background()

	require.Equal(t, dispatch.Error, await(t, f.bot.EditMessage(ctx, "1", "2", "3", "x", "a", 10)).Kind)
	assert.Equal(t, dispatch.CooldownActive, await(t, f.bot.EditMessage(ctx, "1", "2", "3", "x", "b", 10)).Kind)
}

func TestInvalidParameterDoesNotStartCooldown(t *testing.T) {
	f := newFixture(t, reply(http.StatusOK, `{}`))
	ctx := context.Background()

	o := await(t, f.bot.SendMessage(ctx, "1", " ", "hi", "bad", 30))
	assert.Equal(t, dispatch.Error, o.Kind)
	assert.Equal(t, "Invalid parameter channel_id: must not be empty", o.Message)
	_, stamped := f.throttle.Last(CmdSendMessage)
	assert.False(t, stamped)

	assert.Equal(t, dispatch.Success, await(t, f.bot.SendMessage(ctx, "1", "2", "hi", "good", 30)).Kind)
}

func TestGetMessages_DeliversBody(t *testing.T) {
	f := newFixture(t, reply(http.StatusOK, `[{"id":"1"},{"id":"2"}]`))

	o := await(t, f.bot.GetMessages(context.Background(), "1", "2", 500, "t", 0))

	require.Equal(t, dispatch.Success, o.Kind)
	assert.JSONEq(t, `[{"id":"1"},{"id":"2"}]`, o.Message)
	req := <-f.requests
	assert.Equal(t, "100", req.URL.Query().Get("limit"))
}

func TestThreadOperations(t *testing.T) {
	f := newFixture(t, reply(http.StatusOK, `{}`))
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func() *dispatch.Pending
		method string
		path   string
		body   string
	}{
		{
			name:   "create",
			call:   func() *dispatch.Pending { return f.bot.CreateThread(ctx, "1", "2", "3", "topic", 60, "t", 0) },
			method: http.MethodPost,
			path:   "/channels/2/messages/3/threads",
			body:   `{"name":"topic","auto_archive_duration":60}`,
		},
		{
			name:   "update name only",
			call:   func() *dispatch.Pending { return f.bot.UpdateThread(ctx, "1", "9", "renamed", 0, "t", 0) },
			method: http.MethodPatch,
			path:   "/channels/9",
			body:   `{"name":"renamed"}`,
		},
		{
			name:   "delete",
			call:   func() *dispatch.Pending { return f.bot.DeleteThread(ctx, "1", "9", "t", 0) },
			method: http.MethodDelete,
			path:   "/channels/9",
		},
		{
			name:   "add member",
			call:   func() *dispatch.Pending { return f.bot.AddUserToThread(ctx, "1", "9", "5", "t", 0) },
			method: http.MethodPut,
			path:   "/channels/9/thread-members/5",
		},
		{
			name:   "remove member",
			call:   func() *dispatch.Pending { return f.bot.RemoveUserFromThread(ctx, "1", "9", "5", "t", 0) },
			method: http.MethodDelete,
			path:   "/channels/9/thread-members/5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := await(t, tt.call())
			require.Equal(t, dispatch.Success, o.Kind, o.Message)

			req := <-f.requests
			body := <-f.bodies
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.URL.Path)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, body)
			} else {
				assert.Empty(t, body)
			}
		})
	}
}

func TestListActiveThreads_FiltersByParent(t *testing.T) {
	f := newFixture(t, reply(http.StatusOK, `{"threads":[
		{"id":"11","parent_id":"2","name":"a"},
		{"id":"12","parent_id":"3","name":"b"},
		{"id":"13","parent_id":"2","name":"c"}
	],"members":[]}`))

	o := await(t, f.bot.ListActiveThreads(context.Background(), "1", "2", "t", 0))

	require.Equal(t, dispatch.Success, o.Kind, o.Message)
	var threads []map[string]string
	require.NoError(t, json.Unmarshal([]byte(o.Message), &threads))
	require.Len(t, threads, 2)
	assert.Equal(t, "11", threads[0]["id"])
	assert.Equal(t, "13", threads[1]["id"])
	assert.Equal(t, "/guilds/1/threads/active", (<-f.requests).URL.Path)
}

func TestListActiveThreads_MalformedPayload(t *testing.T) {
	f := newFixture(t, reply(http.StatusOK, `{"members":[]}`))

	o := await(t, f.bot.ListActiveThreads(context.Background(), "1", "2", "t", 0))

	assert.Equal(t, dispatch.Error, o.Kind)
	assert.Equal(t, http.StatusOK, o.StatusCode)
	assert.Contains(t, o.Message, `missing field "threads"`)
	var payload *discord.PayloadError
	assert.ErrorAs(t, o.Err, &payload)
}

func TestCancelledBeforeSending(t *testing.T) {
	f := newFixture(t, reply(http.StatusOK, `{}`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := await(t, f.bot.SendMessage(ctx, "1", "2", "hi", "t", 0))

	assert.Equal(t, dispatch.Error, o.Kind)
	assert.Equal(t, "Request was not sent: context canceled", o.Message)
	assert.ErrorIs(t, o.Err, context.Canceled)
	assert.Len(t, f.requests, 0)
}

func TestTransportError(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
			conn.Close()
		}
	})

	o := await(t, f.bot.SendMessage(context.Background(), "1", "2", "hi", "t", 0))

	assert.Equal(t, dispatch.Error, o.Kind)
	assert.Contains(t, o.Message, "Error for guild: 1 - ")
	var terr *discord.TransportError
	assert.ErrorAs(t, o.Err, &terr)
}
