package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/muratoffalex/discordctl/internal/logger"
)

const maxResponseBytes = 4 << 20

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a classified 2xx answer.
type Response struct {
	StatusCode int
	Body       []byte
}

func (r Response) NoContent() bool {
	return r.StatusCode == http.StatusNoContent
}

// Decode unmarshals the body into v, reporting failures as PayloadError.
func (r Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return &PayloadError{Err: fmt.Errorf("empty body")}
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &PayloadError{Err: err}
	}
	return nil
}

// Executor performs exactly one HTTP attempt per RequestSpec and classifies
// the answer. It never retries.
type Executor struct {
	client    HTTPClient
	baseURL   string
	userAgent string
	tokens    TokenProvider
	logger    logger.Logger
}

type ExecutorOption func(*Executor)

func WithBaseURL(baseURL string) ExecutorOption {
	return func(e *Executor) {
		if baseURL != "" {
			e.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithUserAgent(userAgent string) ExecutorOption {
	return func(e *Executor) {
		e.userAgent = userAgent
	}
}

func NewExecutor(client HTTPClient, tokens TokenProvider, l logger.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client:  client,
		baseURL: BaseURL,
		tokens:  tokens,
		logger:  l.WithField("component", "executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Execute(ctx context.Context, spec RequestSpec) (Response, error) {
	log := e.logger.WithFields(logger.Fields{
		"method": spec.Method,
		"path":   spec.Path,
	})

	req, err := e.newRequest(ctx, spec)
	if err != nil {
		log.WithError(err).Error("Failed to build request")
		return Response{}, err
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		log.WithError(err).Warn("Request failed before a response was received")
		return Response{}, &TransportError{Method: spec.Method, Path: spec.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.WithError(err).Warn("Failed to read response body")
		return Response{}, &TransportError{Method: spec.Method, Path: spec.Path, Err: err}
	}

	log = log.WithFields(logger.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &ProtocolError{StatusCode: resp.StatusCode}
		var apiErr struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil {
			perr.Code = apiErr.Code
			perr.Message = apiErr.Message
		}
		log.WithError(perr).Info("Request rejected by API")
		return Response{}, perr
	}

	log.Debug("Request succeeded")
	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (e *Executor) newRequest(ctx context.Context, spec RequestSpec) (*http.Request, error) {
	token, err := e.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve bot token: %w", err)
	}

	var body io.Reader
	if spec.Body != nil {
		data, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := e.baseURL + spec.Path
	if len(spec.Query) > 0 {
		target += "?" + spec.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bot "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	if spec.Reason != "" {
		req.Header.Set("X-Audit-Log-Reason", url.PathEscape(spec.Reason))
	}
	return req, nil
}
