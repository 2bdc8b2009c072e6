package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"github.com/jrsteele09/go-blog-client/routes"
	"github.com/jrsteele09/go-blog-client/tokenstore"
	"github.com/jrsteele09/go-blog-client/transport"
	"github.com/jrsteele09/go-blog-client/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	mu     sync.Mutex
	calls  []string
	access string
	err    error
	delay  time.Duration
}

func (f *fakeRefresher) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, refreshToken)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.access, f.err
}

func (f *fakeRefresher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type seenRequest struct {
	auth      string
	requestID string
	body      string
}

type testFixture struct {
	server    *httptest.Server
	repo      *tokenstore.InMemoryRepo
	store     *tokenstore.Store
	refresher *fakeRefresher
	nav       *routes.Recorder
	metrics   *transport.Metrics
	client    *http.Client
	expired   atomic.Int32

	mu   sync.Mutex
	seen []seenRequest
}

// newFixture starts a backend that answers with handler after recording
// each request, and a client whose transport refreshes against refresher.
func newFixture(t *testing.T, refresher *fakeRefresher, handler func(w http.ResponseWriter, r *http.Request), opts ...transport.Option) *testFixture {
	t.Helper()

	f := &testFixture{
		repo:      tokenstore.NewInMemoryRepo(),
		refresher: refresher,
		nav:       &routes.Recorder{},
		metrics:   transport.NewMetrics(prometheus.NewRegistry()),
	}
	f.store = tokenstore.New(f.repo)

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.seen = append(f.seen, seenRequest{
			auth:      r.Header.Get("Authorization"),
			requestID: r.Header.Get(transport.RequestIDHeader),
			body:      string(body),
		})
		f.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	options := append([]transport.Option{
		transport.WithMetrics(f.metrics),
		transport.WithOnExpired(func(ctx context.Context, cause error) {
			f.expired.Add(1)
			f.nav.Navigate(routes.Login)
		}),
	}, opts...)
	rt, err := transport.New(f.store, refresher, options...)
	require.NoError(t, err)
	f.client = &http.Client{Transport: rt}
	return f
}

func (f *testFixture) login(t *testing.T, access, refresh string) {
	t.Helper()
	user := &users.UserProfile{ID: 1, Username: "jane", Role: users.RoleUser}
	require.NoError(t, f.store.Set(context.Background(), tokenstore.NewToken(access, refresh), user))
}

func (f *testFixture) requests() []seenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]seenRequest(nil), f.seen...)
}

func (f *testFixture) get(t *testing.T, ctx context.Context) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.server.URL+"/posts/", nil)
	require.NoError(t, err)
	return f.client.Do(req)
}

// acceptOnly answers 200 for requests carrying the given access token and
// 401 for everything else.
func acceptOnly(access string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+access {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	store := tokenstore.New(tokenstore.NewInMemoryRepo())

	_, err := transport.New(nil, &fakeRefresher{})
	require.Error(t, err)
	_, err = transport.New(store, nil)
	require.Error(t, err)
}

func TestAttachesBearerToken(t *testing.T) {
	f := newFixture(t, &fakeRefresher{}, acceptOnly("access-1"))
	f.login(t, "access-1", "refresh-1")

	resp, err := f.get(t, context.Background())
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	seen := f.requests()
	require.Len(t, seen, 1)
	require.Equal(t, "Bearer access-1", seen[0].auth)
	require.NotEmpty(t, seen[0].requestID)
	require.Zero(t, f.refresher.Calls())
}

func TestNoSessionSendsWithoutAuthorization(t *testing.T) {
	f := newFixture(t, &fakeRefresher{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp, err := f.get(t, context.Background())
	require.NoError(t, err)
	resp.Body.Close()

	require.Empty(t, f.requests()[0].auth)
}

func TestRefreshesOnceAndReplays(t *testing.T) {
	refresher := &fakeRefresher{access: "access-2"}
	f := newFixture(t, refresher, acceptOnly("access-2"))
	f.login(t, "access-1", "refresh-1")

	resp, err := f.get(t, context.Background())
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"ok":true}`, string(body))

	require.Equal(t, []string{"refresh-1"}, refresher.calls)
	seen := f.requests()
	require.Len(t, seen, 2)
	require.Equal(t, "Bearer access-1", seen[0].auth)
	require.Equal(t, "Bearer access-2", seen[1].auth)
	require.Equal(t, seen[0].requestID, seen[1].requestID)

	// The new access token is persisted; the refresh token and profile are kept.
	session, err := f.store.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-2", session.Token.AccessToken)
	require.Equal(t, "refresh-1", session.Token.RefreshToken)
	require.Equal(t, "jane", session.User.Username)

	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RefreshCounter(transport.RefreshSuccess)))
	require.Zero(t, f.expired.Load())
}

func TestSecond401IsReturnedWithoutAnotherRefresh(t *testing.T) {
	refresher := &fakeRefresher{access: "access-2"}
	f := newFixture(t, refresher, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	f.login(t, "access-1", "refresh-1")

	resp, err := f.get(t, context.Background())
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 1, refresher.Calls())
	require.Len(t, f.requests(), 2)
	require.Zero(t, f.expired.Load())
}

func TestReplaysRequestBody(t *testing.T) {
	f := newFixture(t, &fakeRefresher{access: "access-2"}, acceptOnly("access-2"))
	f.login(t, "access-1", "refresh-1")

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/posts/create/", io.NopCloser(strings.NewReader(`{"title":"Hello"}`)))
	require.NoError(t, err)
	req.Header.Set(transport.RequestIDHeader, "req-42")

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	seen := f.requests()
	require.Len(t, seen, 2)
	for _, s := range seen {
		require.Equal(t, `{"title":"Hello"}`, s.body)
		require.Equal(t, "req-42", s.requestID)
	}
}

func TestRefreshFailureExpiresSession(t *testing.T) {
	tests := []struct {
		name      string
		refresh   string
		refresher *fakeRefresher
		wantErr   error
		outcome   string
	}{
		{
			name:      "no refresh token",
			refresh:   "",
			refresher: &fakeRefresher{},
			wantErr:   clienterrors.ErrNoRefreshToken,
			outcome:   transport.RefreshNoRefreshToken,
		},
		{
			name:      "refresh rejected",
			refresh:   "refresh-1",
			refresher: &fakeRefresher{err: errors.New("token is blacklisted")},
			outcome:   transport.RefreshFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.refresher, acceptOnly("never"))
			f.login(t, "access-1", tt.refresh)

			resp, err := f.get(t, context.Background())
			require.Nil(t, resp)
			require.ErrorIs(t, err, clienterrors.ErrSessionExpired)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			require.Equal(t, 0, f.repo.Len())
			require.Equal(t, int32(1), f.expired.Load())
			require.Equal(t, routes.Login, f.nav.Last())
			require.Len(t, f.requests(), 1)
			require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RefreshCounter(tt.outcome)))
		})
	}
}

func TestRefreshTimeoutExpiresSession(t *testing.T) {
	refresher := &fakeRefresher{access: "access-2", delay: time.Second}
	f := newFixture(t, refresher, acceptOnly("access-2"), transport.WithRefreshTimeout(20*time.Millisecond))
	f.login(t, "access-1", "refresh-1")

	_, err := f.get(t, context.Background())
	require.ErrorIs(t, err, clienterrors.ErrSessionExpired)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 0, f.repo.Len())
}

func TestSessionClearedDuringRefreshIsNotResurrected(t *testing.T) {
	refresher := &fakeRefresher{access: "access-2"}
	var f *testFixture
	f = newFixture(t, refresher, func(w http.ResponseWriter, r *http.Request) {
		// A concurrent logout lands between the 401 and the refresh.
		_ = f.store.Clear(context.Background())
		w.WriteHeader(http.StatusUnauthorized)
	})
	f.login(t, "access-1", "refresh-1")

	_, err := f.get(t, context.Background())
	require.ErrorIs(t, err, clienterrors.ErrSessionExpired)
	require.ErrorIs(t, err, clienterrors.ErrNoSession)
	require.Equal(t, 0, f.repo.Len())
}

func TestAnonymousRequestsAreNotRefreshed(t *testing.T) {
	refresher := &fakeRefresher{access: "access-2"}
	f := newFixture(t, refresher, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	f.login(t, "access-1", "refresh-1")

	resp, err := f.get(t, transport.Anonymous(context.Background()))
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, f.requests()[0].auth)
	require.Zero(t, refresher.Calls())
	require.Equal(t, 3, f.repo.Len())
}

func TestOtherStatusesPassThrough(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			refresher := &fakeRefresher{access: "access-2"}
			f := newFixture(t, refresher, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})
			f.login(t, "access-1", "refresh-1")

			resp, err := f.get(t, context.Background())
			require.NoError(t, err)
			resp.Body.Close()

			require.Equal(t, status, resp.StatusCode)
			require.Zero(t, refresher.Calls())
			require.Equal(t, 3, f.repo.Len())
		})
	}
}

func TestTransportErrorIsNotSessionExpiry(t *testing.T) {
	f := newFixture(t, &fakeRefresher{}, acceptOnly("access-1"))
	f.login(t, "access-1", "refresh-1")
	f.server.Close()

	_, err := f.get(t, context.Background())
	require.Error(t, err)
	require.False(t, errors.Is(err, clienterrors.ErrSessionExpired))
	require.Equal(t, 3, f.repo.Len())
	require.Zero(t, f.expired.Load())
}
