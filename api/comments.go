package api

import "context"

func (c *Client) ListComments(ctx context.Context, postID int) ([]Comment, error) {
	return getList[Comment](ctx, c, idPath("/posts/%d/comments/", postID), nil)
}

// CreateComment adds a comment to a post, or a reply when parentID is set.
func (c *Client) CreateComment(ctx context.Context, postID int, content string, parentID *int) (*Comment, error) {
	in := struct {
		Content string `json:"content"`
		Parent  *int   `json:"parent,omitempty"`
	}{Content: content, Parent: parentID}

	var out Comment
	if err := c.post(ctx, idPath("/posts/%d/comments/", postID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateComment(ctx context.Context, id int, content string) (*Comment, error) {
	var out Comment
	if err := c.put(ctx, idPath("/comments/%d/", id), map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteComment(ctx context.Context, id int) error {
	return c.delete(ctx, idPath("/comments/%d/", id))
}
