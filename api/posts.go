package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ListPosts returns published posts, optionally filtered by author or tag.
func (c *Client) ListPosts(ctx context.Context, params ListPostsParams) ([]Post, error) {
	query := url.Values{}
	if params.Author > 0 {
		query.Set("author", strconv.Itoa(params.Author))
	}
	if params.Tag != "" {
		query.Set("tag", params.Tag)
	}
	return getList[Post](ctx, c, "/posts/", query)
}

func (c *Client) GetPost(ctx context.Context, id int) (*Post, error) {
	var out Post
	if err := c.get(ctx, idPath("/posts/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePost(ctx context.Context, input PostInput) (*PostInput, error) {
	var out PostInput
	if err := c.post(ctx, "/posts/create/", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePost(ctx context.Context, id int, input PostInput) (*PostInput, error) {
	var out PostInput
	if err := c.put(ctx, idPath("/posts/%d/update/", id), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePost(ctx context.Context, id int) error {
	return c.delete(ctx, idPath("/posts/%d/delete/", id))
}

// UpdatePostStatus moves a post between draft, published and archived.
func (c *Client) UpdatePostStatus(ctx context.Context, id int, status PostStatus) (*StatusResult, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("[Client.UpdatePostStatus] invalid status %q", status)
	}
	var out StatusResult
	if err := c.post(ctx, idPath("/posts/%d/status/", id), map[string]PostStatus{"status": status}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyPosts returns every post authored by the caller, in any status.
func (c *Client) MyPosts(ctx context.Context) ([]Post, error) {
	return getList[Post](ctx, c, "/my-posts/", nil)
}

// AdminPosts returns all posts for admins and managers and none otherwise.
func (c *Client) AdminPosts(ctx context.Context) ([]Post, error) {
	return getList[Post](ctx, c, "/admin/posts/", nil)
}

// LikePost records a like, or a dislike when like is false.
func (c *Client) LikePost(ctx context.Context, id int, like bool) (*LikeResult, error) {
	var out LikeResult
	if err := c.post(ctx, idPath("/posts/%d/like/", id), map[string]bool{"is_like": like}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
