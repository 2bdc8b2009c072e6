package api

import (
	"context"
	"fmt"

	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"github.com/jrsteele09/go-blog-client/transport"
	"github.com/jrsteele09/go-blog-client/users"
)

const (
	loginPath          = "/auth/login/"
	registerPath       = "/auth/register/"
	logoutPath         = "/auth/logout/"
	profilePath        = "/auth/profile/"
	changePasswordPath = "/auth/change-password/"
	tokenRefreshPath   = "/token/refresh/"
)

var _ transport.Refresher = (*Client)(nil)

// Login exchanges credentials for a token pair and profile. The request is
// sent anonymously so a 401 is reported as bad credentials instead of
// triggering a token refresh.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	in := map[string]string{"username": username, "password": password}
	var out AuthResponse
	if err := c.post(transport.Anonymous(ctx), loginPath, in, &out); err != nil {
		return nil, err
	}
	if out.Tokens.Access == "" {
		return nil, clienterrors.Wrapf(clienterrors.ErrInvalidToken, "[Client.Login] response carried no access token")
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, input users.ProfileInput) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.post(transport.Anonymous(ctx), registerPath, input, &out); err != nil {
		return nil, err
	}
	if out.Tokens.Access == "" {
		return nil, clienterrors.Wrapf(clienterrors.ErrInvalidToken, "[Client.Register] response carried no access token")
	}
	return &out, nil
}

// Logout asks the backend to blacklist the refresh token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.post(ctx, logoutPath, map[string]string{"refresh_token": refreshToken}, nil)
}

func (c *Client) GetProfile(ctx context.Context) (*users.UserProfile, error) {
	var out users.UserProfile
	if err := c.get(ctx, profilePath, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, input users.ProfileInput) (*users.UserProfile, error) {
	var out users.UserProfile
	if err := c.put(ctx, profilePath, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword sends the new password twice; the backend requires the
// confirmation field even though the form only asks once.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	in := map[string]string{
		"old_password":  oldPassword,
		"new_password":  newPassword,
		"new_password2": newPassword,
	}
	return c.post(ctx, changePasswordPath, in, nil)
}

// RefreshToken exchanges a refresh token for a new access token. It must be
// called on a Client whose http.Client does not itself refresh.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	var out struct {
		Access string `json:"access"`
	}
	if err := c.post(transport.Anonymous(ctx), tokenRefreshPath, map[string]string{"refresh": refreshToken}, &out); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", fmt.Errorf("[Client.RefreshToken] %w", clienterrors.ErrInvalidToken)
	}
	return out.Access, nil
}
