package discord

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/muratoffalex/discordctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTokenProvider struct {
	mock.Mock
}

func (m *mockTokenProvider) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func newTestExecutor(t *testing.T, handler http.HandlerFunc) (*Executor, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewExecutor(srv.Client(), StaticToken("secret"), logger.NewTestLogger(), WithBaseURL(srv.URL)), srv
}

func TestExecutor_SetsHeadersAndBody(t *testing.T) {
	var got *http.Request
	var body []byte
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"10"}`))
	})

	resp, err := exec.Execute(context.Background(), SendMessage("2", "hi"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"10"}`, string(resp.Body))
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/channels/2/messages", got.URL.Path)
	assert.Equal(t, "Bot secret", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"content":"hi"}`, string(body))
}

func TestExecutor_NoContentTypeWithoutBody(t *testing.T) {
	var got *http.Request
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := exec.Execute(context.Background(), DeleteMessage("2", "3"))
	require.NoError(t, err)

	assert.True(t, resp.NoContent())
	assert.Empty(t, got.Header.Get("Content-Type"))
	assert.Equal(t, "Bot secret", got.Header.Get("Authorization"))
}

func TestExecutor_AuditLogReason(t *testing.T) {
	var reason string
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		reason = r.Header.Get("X-Audit-Log-Reason")
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := exec.Execute(context.Background(), KickMember("1", "5", "spam links"))
	require.NoError(t, err)
	assert.Equal(t, "spam%20links", reason)
}

func TestExecutor_ProtocolError(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"Missing Permissions","code":50013}`))
	})

	_, err := exec.Execute(context.Background(), PinMessage("2", "3"))

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusForbidden, perr.StatusCode)
	assert.Equal(t, 50013, perr.Code)
	assert.Equal(t, "Missing Permissions", perr.Message)
}

func TestExecutor_ProtocolErrorWithoutJSON(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := exec.Execute(context.Background(), GetGuild("1"))

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusBadGateway, perr.StatusCode)
	assert.Equal(t, "discord api status 502", perr.Error())
}

func TestExecutor_TransportError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	exec := NewExecutor(&http.Client{Timeout: time.Second}, StaticToken("secret"),
		logger.NewTestLogger(), WithBaseURL("http://"+addr))

	_, err = exec.Execute(context.Background(), SendMessage("2", "hi"))

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.MethodPost, terr.Method)
	var perr *ProtocolError
	assert.False(t, errors.As(err, &perr))
}

func TestExecutor_CancelledContextIsTransportError(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, GetGuild("1"))

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_TokenProviderFailure(t *testing.T) {
	tokens := &mockTokenProvider{}
	tokens.On("Token", mock.Anything).Return("", ErrNoToken).Once()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	exec := NewExecutor(srv.Client(), tokens, logger.NewTestLogger(), WithBaseURL(srv.URL))
	_, err := exec.Execute(context.Background(), GetGuild("1"))

	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, called, "no request may be sent without a credential")
	tokens.AssertExpectations(t)
}

func TestExecutor_UsesTokenFromProviderPerRequest(t *testing.T) {
	tokens := &mockTokenProvider{}
	tokens.On("Token", mock.Anything).Return("first", nil).Once()
	tokens.On("Token", mock.Anything).Return("second", nil).Once()

	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	exec := NewExecutor(srv.Client(), tokens, logger.NewTestLogger(), WithBaseURL(srv.URL))
	for range 2 {
		_, err := exec.Execute(context.Background(), UnbanMember("1", "2"))
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"Bot first", "Bot second"}, seen)
	tokens.AssertExpectations(t)
}

func TestResponse_Decode(t *testing.T) {
	var guild Guild
	err := Response{StatusCode: 200, Body: []byte(`not json`)}.Decode(&guild)
	var perr *PayloadError
	assert.ErrorAs(t, err, &perr)

	err = Response{StatusCode: 204}.Decode(&guild)
	assert.ErrorAs(t, err, &perr)

	require.NoError(t, Response{StatusCode: 200, Body: []byte(`{"id":"1"}`)}.Decode(&guild))
	assert.Equal(t, "1", guild.ID)
}

func TestStaticToken(t *testing.T) {
	token, err := StaticToken("Bot abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = StaticToken("  ").Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}
