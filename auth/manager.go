package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-blog-client/api"
	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"github.com/jrsteele09/go-blog-client/routes"
	"github.com/jrsteele09/go-blog-client/tokenstore"
	"github.com/jrsteele09/go-blog-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// SessionStore persists the token pair and cached profile.
type SessionStore interface {
	Get(ctx context.Context) (*tokenstore.Session, error)
	Set(ctx context.Context, token *oauth2.Token, user *users.UserProfile) error
	SetUser(ctx context.Context, user *users.UserProfile) error
	Token(ctx context.Context) (*oauth2.Token, error)
	Clear(ctx context.Context) error
}

// Backend is the part of the REST API the Manager calls.
type Backend interface {
	Login(ctx context.Context, username, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, input users.ProfileInput) (*api.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetProfile(ctx context.Context) (*users.UserProfile, error)
	UpdateProfile(ctx context.Context, input users.ProfileInput) (*users.UserProfile, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
}

// State is a snapshot of the session as views see it.
type State struct {
	User    *users.UserProfile
	Loading bool
}

// Manager owns the current user and the loading flag. Operations are not
// serialised against each other: overlapping calls race on the store and
// the in-memory user and the last writer wins.
type Manager struct {
	store     SessionStore
	backend   Backend
	navigator routes.Navigator
	logger    zerolog.Logger

	startOnce sync.Once
	startErr  error

	mu      sync.RWMutex
	user    *users.UserProfile
	loading bool

	subsMu      sync.Mutex
	subscribers map[int]func(State)
	nextSubID   int
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNavigator sets where Expire sends the user.
func WithNavigator(n routes.Navigator) ManagerOption {
	return func(m *Manager) {
		m.navigator = n
	}
}

func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

func NewManager(store SessionStore, backend Backend, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("[auth.NewManager] session store is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("[auth.NewManager] backend is required")
	}

	m := &Manager{
		store:       store,
		backend:     backend,
		logger:      log.Logger,
		loading:     true,
		subscribers: map[int]func(State){},
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Start hydrates the user from the store. It runs once; later calls return
// the first result. The cached profile is trusted without asking the
// backend. Loading is false when Start returns, whatever happened.
func (m *Manager) Start(ctx context.Context) error {
	m.startOnce.Do(func() {
		var user *users.UserProfile
		defer func() {
			m.setState(user, false)
		}()

		session, err := m.store.Get(ctx)
		switch {
		case err == nil:
			user = session.User
		case clienterrors.Is(err, clienterrors.ErrNoSession):
		default:
			m.logger.Err(err).Msg("failed to read stored session")
			m.startErr = fmt.Errorf("[Manager.Start] %w", err)
		}
	})
	return m.startErr
}

// User returns a copy of the current profile, or nil.
func (m *Manager) User() *users.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneUser(m.user)
}

func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{User: cloneUser(m.user), Loading: m.loading}
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// The role checks read the backend supplied flags.

func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil && m.user.IsAdmin
}

func (m *Manager) IsManager() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil && m.user.IsManager
}

func (m *Manager) CanManageUsers() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil && m.user.CanManageUsers
}

// Subscribe registers fn to be called after every state change. The
// returned func removes it.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.subscribers, id)
	}
}

// Login authenticates, persists the session and sets the current user. The
// returned error is an *Error carrying the message to show.
func (m *Manager) Login(ctx context.Context, username, password string) (*users.UserProfile, error) {
	resp, err := m.backend.Login(ctx, username, password)
	if err != nil {
		return nil, loginError(err)
	}
	if err := m.persist(ctx, resp); err != nil {
		return nil, newError(MsgLoginFailed, err)
	}
	return cloneUser(&resp.User), nil
}

func (m *Manager) Register(ctx context.Context, input users.ProfileInput) (*users.UserProfile, error) {
	resp, err := m.backend.Register(ctx, input)
	if err != nil {
		return nil, registerError(err)
	}
	if err := m.persist(ctx, resp); err != nil {
		return nil, newError(MsgRegisterFailed, err)
	}
	return cloneUser(&resp.User), nil
}

func (m *Manager) persist(ctx context.Context, resp *api.AuthResponse) error {
	user := resp.User
	token := tokenstore.NewToken(resp.Tokens.Access, resp.Tokens.Refresh)
	if err := m.store.Set(ctx, token, &user); err != nil {
		return fmt.Errorf("[Manager.persist] %w", err)
	}
	m.setState(&user, false)
	return nil
}

// Logout invalidates the refresh token server side when there is one, then
// clears the store and the current user. A failed server call is logged and
// otherwise ignored; only a failure to clear local state is returned.
func (m *Manager) Logout(ctx context.Context) error {
	defer m.setState(nil, false)

	token, err := m.store.Token(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("reading refresh token for logout")
	}
	if token != nil && token.RefreshToken != "" {
		if err := m.backend.Logout(ctx, token.RefreshToken); err != nil {
			m.logger.Warn().Err(err).Msg("server logout failed")
		}
	}

	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("[Manager.Logout] %w", err)
	}
	return nil
}

// UpdateProfile replaces the cached profile with the server's response.
func (m *Manager) UpdateProfile(ctx context.Context, input users.ProfileInput) (*users.UserProfile, error) {
	updated, err := m.backend.UpdateProfile(ctx, input)
	if err != nil {
		return nil, proxyError(err, MsgProfileFailed)
	}
	if err := m.store.SetUser(ctx, updated); err != nil {
		return nil, newError(MsgProfileFailed, err)
	}
	m.setState(updated, false)
	return cloneUser(updated), nil
}

func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := m.backend.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		return proxyError(err, MsgPasswordFailed)
	}
	return nil
}

// RefreshProfile re-reads the profile from the backend and replaces the
// cached copy. Nothing calls it implicitly; a cached profile stays in use
// until the next login unless a caller asks.
func (m *Manager) RefreshProfile(ctx context.Context) (*users.UserProfile, error) {
	profile, err := m.backend.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("[Manager.RefreshProfile] %w", err)
	}
	if err := m.store.SetUser(ctx, profile); err != nil {
		return nil, fmt.Errorf("[Manager.RefreshProfile] %w", err)
	}
	m.setState(profile, false)
	return cloneUser(profile), nil
}

// Expire drops the current user after the transport gave up on the
// session and sends the user to the login view. The transport has already
// cleared the store.
func (m *Manager) Expire(ctx context.Context, cause error) {
	m.logger.Info().Err(cause).Msg("session expired")
	m.setState(nil, false)
	if m.navigator != nil {
		m.navigator.Navigate(routes.Login)
	}
}

func (m *Manager) setState(user *users.UserProfile, loading bool) {
	m.mu.Lock()
	m.user = cloneUser(user)
	m.loading = loading
	state := State{User: cloneUser(m.user), Loading: m.loading}
	m.mu.Unlock()

	m.subsMu.Lock()
	subs := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

func cloneUser(u *users.UserProfile) *users.UserProfile {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
