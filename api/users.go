package api

import (
	"context"

	"github.com/jrsteele09/go-blog-client/users"
)

// ListUsers returns the accounts visible to the caller: everyone for an
// admin, plain users for a manager, nobody otherwise.
func (c *Client) ListUsers(ctx context.Context) ([]users.UserProfile, error) {
	return getList[users.UserProfile](ctx, c, "/auth/users/", nil)
}

func (c *Client) GetUser(ctx context.Context, id int) (*users.UserProfile, error) {
	var out users.UserProfile
	if err := c.get(ctx, idPath("/auth/users/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int, input users.ProfileInput) (*users.UserProfile, error) {
	var out users.UserProfile
	if err := c.put(ctx, idPath("/auth/users/%d/", id), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.delete(ctx, idPath("/auth/users/%d/", id))
}
