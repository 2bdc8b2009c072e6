package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// RequestIDHeader carries one id per logical request; the retry after a
// refresh reuses the id of the request it replays.
const RequestIDHeader = "X-Request-ID"

const defaultRefreshTimeout = 10 * time.Second

// TokenSource is the slice of the token store the transport needs.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	SetAccessToken(ctx context.Context, access string) error
	Clear(ctx context.Context) error
}

// Refresher exchanges a refresh token for a new access token. It must not
// itself go through a Transport.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// ExpiredFunc is called after the session was cleared because a refresh
// failed. It typically drops the in-memory user and navigates to login.
type ExpiredFunc func(ctx context.Context, cause error)

// Transport is an http.RoundTripper decorating Base with bearer auth and
// the refresh-on-401 protocol.
type Transport struct {
	base           http.RoundTripper
	tokens         TokenSource
	refresher      Refresher
	refreshTimeout time.Duration
	onExpired      ExpiredFunc
	metrics        *Metrics
	logger         zerolog.Logger
}

var _ http.RoundTripper = (*Transport)(nil)

// Option defines a function type to modify the Transport instance.
type Option func(*Transport)

// WithBase sets the round tripper requests are finally sent with.
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		t.base = base
	}
}

// WithRefreshTimeout bounds each refresh round-trip.
func WithRefreshTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.refreshTimeout = d
		}
	}
}

func WithOnExpired(fn ExpiredFunc) Option {
	return func(t *Transport) {
		t.onExpired = fn
	}
}

func WithMetrics(m *Metrics) Option {
	return func(t *Transport) {
		t.metrics = m
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

func New(tokens TokenSource, refresher Refresher, options ...Option) (*Transport, error) {
	if tokens == nil {
		return nil, fmt.Errorf("[transport.New] token source is required")
	}
	if refresher == nil {
		return nil, fmt.Errorf("[transport.New] refresher is required")
	}

	t := &Transport{
		base:           http.DefaultTransport,
		tokens:         tokens,
		refresher:      refresher,
		refreshTimeout: defaultRefreshTimeout,
		logger:         log.Logger,
	}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

// RoundTrip sends req once with the stored access token. On a 401 it
// refreshes the access token and replays req exactly once; whatever the
// replay returns, including another 401, is handed back to the caller.
// When the refresh itself fails the session is cleared, the expiry
// callback runs, and an error wrapping ErrSessionExpired is returned.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var token *oauth2.Token
	if !isAnonymous(ctx) {
		if token, err = t.tokens.Token(ctx); err != nil {
			t.logger.Err(err).Str("request_id", requestID).Msg("reading stored token")
		}
	}

	resp, err := t.send(req, getBody, requestID, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || isAnonymous(ctx) {
		return resp, nil
	}

	drain(resp)
	logger := t.logger.With().Str("request_id", requestID).Str("path", req.URL.Path).Logger()
	logger.Debug().Msg("access token rejected, refreshing")

	refreshed, err := t.refresh(ctx, token)
	if err != nil {
		t.expire(ctx, err)
		return nil, fmt.Errorf("%w: %w", clienterrors.ErrSessionExpired, err)
	}

	logger.Debug().Msg("retrying with refreshed access token")
	return t.send(req, getBody, requestID, refreshed)
}

func (t *Transport) send(req *http.Request, getBody func() (io.ReadCloser, error), requestID string, token *oauth2.Token) (*http.Response, error) {
	out := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("[Transport.send] GetBody: %w", err)
		}
		out.Body = body
		out.GetBody = getBody
	}
	out.Header.Set(RequestIDHeader, requestID)
	if token != nil && token.AccessToken != "" {
		token.SetAuthHeader(out)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		t.metrics.observeStatus(0)
		return nil, err
	}
	t.metrics.observeStatus(resp.StatusCode)
	return resp, nil
}

func (t *Transport) refresh(ctx context.Context, current *oauth2.Token) (*oauth2.Token, error) {
	if current == nil {
		var err error
		if current, err = t.tokens.Token(ctx); err != nil {
			return nil, err
		}
	}
	if current == nil || current.RefreshToken == "" {
		t.metrics.observeRefresh(RefreshNoRefreshToken)
		return nil, clienterrors.ErrNoRefreshToken
	}

	refreshCtx, cancel := context.WithTimeout(Anonymous(ctx), t.refreshTimeout)
	defer cancel()

	access, err := t.refresher.RefreshToken(refreshCtx, current.RefreshToken)
	if err != nil {
		t.metrics.observeRefresh(RefreshFailure)
		return nil, fmt.Errorf("[Transport.refresh] %w", err)
	}
	if err := t.tokens.SetAccessToken(ctx, access); err != nil {
		t.metrics.observeRefresh(RefreshFailure)
		return nil, fmt.Errorf("[Transport.refresh] store access token: %w", err)
	}
	t.metrics.observeRefresh(RefreshSuccess)

	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: current.RefreshToken,
		TokenType:    current.TokenType,
	}, nil
}

func (t *Transport) expire(ctx context.Context, cause error) {
	t.logger.Warn().Err(cause).Msg("session expired, clearing stored session")
	t.metrics.observeExpired()

	// The clear must survive a cancelled request context.
	if err := t.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		t.logger.Err(err).Msg("failed to clear session")
	}
	if t.onExpired != nil {
		t.onExpired(ctx, cause)
	}
}

// replayableBody returns a body factory so the retry can resend the same
// payload. The caller's body is consumed and closed either way.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("[transport] read request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
