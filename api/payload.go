package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/jrsteele09/go-blog-client/users"
)

const (
	UnknownAuthor = "Unknown Author"
	UnknownDate   = "Unknown Date"
)

// Author is the author field of posts and comments. Depending on the
// endpoint the backend sends either a plain username string or a nested
// user object; both are accepted.
type Author struct {
	Name *string
	User *users.UserProfile
}

func (a *Author) UnmarshalJSON(data []byte) error {
	*a = Author{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		a.Name = &name
		return nil
	}
	var u users.UserProfile
	if err := json.Unmarshal(data, &u); err != nil {
		// Any other shape is treated as a missing author.
		return nil
	}
	a.User = &u
	return nil
}

func (a Author) MarshalJSON() ([]byte, error) {
	switch {
	case a.Name != nil:
		return json.Marshal(*a.Name)
	case a.User != nil:
		return json.Marshal(a.User)
	default:
		return []byte("null"), nil
	}
}

// Username is the plain string form, or the nested user's username.
func (a Author) Username() string {
	if a.Name != nil {
		return *a.Name
	}
	if a.User != nil {
		return a.User.Username
	}
	return ""
}

// FullName prefers the nested user's first and last name.
func (a Author) FullName() string {
	if a.User != nil {
		if name := strings.TrimSpace(a.User.FirstName + " " + a.User.LastName); name != "" {
			return name
		}
	}
	if name := a.Username(); name != "" {
		return name
	}
	return "Unknown"
}

// authorLabel resolves the byline: an explicit author_name wins, then a
// string author, then the nested username.
func authorLabel(authorName *string, author Author) string {
	if authorName != nil {
		return *authorName
	}
	if name := author.Username(); name != "" {
		return name
	}
	return UnknownAuthor
}

// Timestamp is a tolerant RFC 3339 time. Null, empty or malformed values
// decode to the zero time instead of failing the whole payload.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// FormatDate renders a date for display, or "Unknown Date".
func FormatDate(t Timestamp) string {
	if t.IsZero() {
		return UnknownDate
	}
	return t.Local().Format("1/2/2006")
}

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
	PostArchived  PostStatus = "archived"
)

func (s PostStatus) Valid() bool {
	switch s {
	case PostDraft, PostPublished, PostArchived:
		return true
	}
	return false
}

type Post struct {
	ID            int        `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Note          string     `json:"note,omitempty"`
	Author        Author     `json:"author"`
	AuthorName    *string    `json:"author_name,omitempty"`
	Status        PostStatus `json:"status"`
	FeaturedImage *string    `json:"featured_image,omitempty"`
	CreatedAt     Timestamp  `json:"created_at"`
	UpdatedAt     Timestamp  `json:"updated_at"`
	PublishedAt   Timestamp  `json:"published_at"`
	LikeCount     int        `json:"like_count"`
	DislikeCount  int        `json:"dislike_count"`
	CommentCount  int        `json:"comment_count"`
	UserLike      *bool      `json:"user_like,omitempty"` // nil when the viewer has not voted
	Comments      []Comment  `json:"comments,omitempty"`
}

func (p Post) AuthorLabel() string {
	return authorLabel(p.AuthorName, p.Author)
}

type Comment struct {
	ID         int       `json:"id"`
	Post       int       `json:"post"`
	Author     Author    `json:"author"`
	AuthorName *string   `json:"author_name,omitempty"`
	Parent     *int      `json:"parent,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  Timestamp `json:"created_at"`
	UpdatedAt  Timestamp `json:"updated_at"`
	IsApproved bool      `json:"is_approved"`
	IsReply    bool      `json:"is_reply"`
	Replies    []Comment `json:"replies,omitempty"`
}

func (c Comment) AuthorLabel() string {
	return authorLabel(c.AuthorName, c.Author)
}

// PostInput is the writable part of a post.
type PostInput struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Note          string     `json:"note,omitempty"`
	Status        PostStatus `json:"status,omitempty"`
	FeaturedImage *string    `json:"featured_image,omitempty"`
}

// ListPostsParams filters the public post listing.
type ListPostsParams struct {
	Author int
	Tag    string
}

type LikeResult struct {
	Message      string `json:"message"`
	LikeCount    int    `json:"like_count"`
	DislikeCount int    `json:"dislike_count"`
}

type StatusResult struct {
	Message string `json:"message"`
	Post    Post   `json:"post"`
}

// TokenPair is the tokens object returned by login and registration.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthResponse is the body of a successful login or registration.
type AuthResponse struct {
	Message string            `json:"message,omitempty"`
	User    users.UserProfile `json:"user"`
	Tokens  TokenPair         `json:"tokens"`
}

// MessageResponse is the {"message": ...} body several endpoints return.
type MessageResponse struct {
	Message string `json:"message"`
}
