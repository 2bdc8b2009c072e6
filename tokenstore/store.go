package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"github.com/jrsteele09/go-blog-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Storage keys. All three are written and removed together.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// Session is the persisted token pair plus the cached profile.
type Session struct {
	Token *oauth2.Token
	User  *users.UserProfile
}

// Store reads and writes the persisted session over a Repo.
type Store struct {
	repo   Repo
	logger zerolog.Logger
}

type StoreOption func(*Store)

func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

func New(repo Repo, options ...StoreOption) *Store {
	s := &Store{
		repo:   repo,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Get returns the stored session. ErrNoSession is returned when nothing is
// stored, and also when the stored state is corrupt: an unparsable profile,
// or an access token and profile that are not both present. Corrupt state
// is wiped before returning so a second Get is a plain no-op. A backend
// that cannot decode its own payload counts as corrupt too.
func (s *Store) Get(ctx context.Context) (*Session, error) {
	access, hasAccess, err := s.repo.GetItem(ctx, KeyAccessToken)
	if err != nil {
		return nil, s.readFailed(ctx, "[Store.Get] access token", err)
	}
	refresh, _, err := s.repo.GetItem(ctx, KeyRefreshToken)
	if err != nil {
		return nil, s.readFailed(ctx, "[Store.Get] refresh token", err)
	}
	rawUser, hasUser, err := s.repo.GetItem(ctx, KeyUser)
	if err != nil {
		return nil, s.readFailed(ctx, "[Store.Get] user", err)
	}

	hasAccess = hasAccess && access != ""
	hasUser = hasUser && rawUser != "" && rawUser != "null"
	if !hasAccess && !hasUser {
		if refresh != "" {
			s.wipe(ctx, "refresh token without session")
		}
		return nil, clienterrors.ErrNoSession
	}
	if hasAccess != hasUser {
		s.wipe(ctx, "partial session")
		return nil, clienterrors.ErrNoSession
	}

	var user users.UserProfile
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.wipe(ctx, "unparsable user profile")
		return nil, clienterrors.ErrNoSession
	}
	if user.Role == "" {
		s.wipe(ctx, "user profile without role")
		return nil, clienterrors.ErrNoSession
	}

	return &Session{
		Token: NewToken(access, refresh),
		User:  &user,
	}, nil
}

// Set persists the token pair and profile as one unit.
func (s *Store) Set(ctx context.Context, token *oauth2.Token, user *users.UserProfile) error {
	if token == nil || token.AccessToken == "" || user == nil {
		return clienterrors.Wrapf(clienterrors.ErrCorruptSession, "[Store.Set] token and user are required")
	}
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("[Store.Set] encode user: %w", err)
	}
	items := map[string]string{
		KeyAccessToken:  token.AccessToken,
		KeyRefreshToken: token.RefreshToken,
		KeyUser:         string(rawUser),
	}
	if err := s.repo.SetItems(ctx, items); err != nil {
		return fmt.Errorf("[Store.Set] %w", err)
	}
	return nil
}

// SetUser replaces the cached profile of an existing session.
func (s *Store) SetUser(ctx context.Context, user *users.UserProfile) error {
	if user == nil {
		return clienterrors.Wrapf(clienterrors.ErrCorruptSession, "[Store.SetUser] user is required")
	}
	if _, ok, err := s.repo.GetItem(ctx, KeyAccessToken); err != nil {
		return fmt.Errorf("[Store.SetUser] %w", err)
	} else if !ok {
		return clienterrors.ErrNoSession
	}
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("[Store.SetUser] encode user: %w", err)
	}
	return s.repo.SetItems(ctx, map[string]string{KeyUser: string(rawUser)})
}

// SetAccessToken stores a refreshed access token. It refuses to write when
// the session was cleared in the meantime, which would leave an access
// token without its profile.
func (s *Store) SetAccessToken(ctx context.Context, access string) error {
	if access == "" {
		return clienterrors.ErrInvalidToken
	}
	if _, ok, err := s.repo.GetItem(ctx, KeyUser); err != nil {
		return fmt.Errorf("[Store.SetAccessToken] %w", err)
	} else if !ok {
		return clienterrors.ErrNoSession
	}
	return s.repo.SetItems(ctx, map[string]string{KeyAccessToken: access})
}

// Token returns the raw stored tokens without validating the profile. It
// returns nil, nil when no access or refresh token is stored, including
// when the backend payload is corrupt and has been wiped.
func (s *Store) Token(ctx context.Context) (*oauth2.Token, error) {
	access, _, err := s.repo.GetItem(ctx, KeyAccessToken)
	if err != nil {
		return nil, s.tokenReadFailed(ctx, "[Store.Token] access token", err)
	}
	refresh, _, err := s.repo.GetItem(ctx, KeyRefreshToken)
	if err != nil {
		return nil, s.tokenReadFailed(ctx, "[Store.Token] refresh token", err)
	}
	if access == "" && refresh == "" {
		return nil, nil
	}
	return NewToken(access, refresh), nil
}

// Clear removes the whole session.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.RemoveItems(ctx, allKeys...); err != nil {
		return fmt.Errorf("[Store.Clear] %w", err)
	}
	return nil
}

// readFailed wipes a corrupt backend and reports it as no session. Other
// errors are wrapped and returned.
func (s *Store) readFailed(ctx context.Context, op string, err error) error {
	if errors.Is(err, clienterrors.ErrCorruptSession) {
		s.logger.Warn().Err(err).Msg("stored session unreadable")
		s.wipe(ctx, "unreadable storage")
		return clienterrors.ErrNoSession
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) tokenReadFailed(ctx context.Context, op string, err error) error {
	if err = s.readFailed(ctx, op, err); errors.Is(err, clienterrors.ErrNoSession) {
		return nil
	}
	return err
}

func (s *Store) wipe(ctx context.Context, reason string) {
	s.logger.Warn().Str("reason", reason).Msg("discarding stored session")
	if err := s.Clear(ctx); err != nil {
		s.logger.Err(err).Msg("failed to clear corrupt session")
	}
}
