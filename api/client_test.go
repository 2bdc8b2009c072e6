package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jrsteele09/go-blog-client/api"
	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"github.com/jrsteele09/go-blog-client/tokenstore"
	"github.com/jrsteele09/go-blog-client/transport"
	"github.com/jrsteele09/go-blog-client/users"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

type fakeBackend struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{t: t, routes: map[string]func(w http.ResponseWriter, r *http.Request){}}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
	}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}
	b.mu.Lock()
	b.requests = append(b.requests, rec)
	handler, ok := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

func (b *fakeBackend) handle(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (b *fakeBackend) last() recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(b.t, b.requests)
	return b.requests[len(b.requests)-1]
}

func (b *fakeBackend) apiURL() string {
	return b.server.URL + "/api"
}

func newClient(t *testing.T, b *fakeBackend) *api.Client {
	t.Helper()
	c, err := api.New(b.apiURL() + "/")
	require.NoError(t, err)
	return c
}

const loginBody = `{
	"message": "Login successful",
	"user": {"id": 3, "username": "mgr", "email": "m@x.io", "first_name": "Max", "last_name": "Ger",
		"role": "manager", "is_admin": false, "is_manager": true, "can_manage_users": true},
	"tokens": {"access": "access-1", "refresh": "refresh-1"}
}`

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := api.New("  ")
	require.Error(t, err)
}

func TestLoginDecodesUserAndTokens(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/api/auth/login/", http.StatusOK, loginBody)

	resp, err := newClient(t, b).Login(context.Background(), "mgr", "secret1")
	require.NoError(t, err)
	require.Equal(t, "access-1", resp.Tokens.Access)
	require.Equal(t, "refresh-1", resp.Tokens.Refresh)
	require.Equal(t, users.RoleManager, resp.User.Role)
	require.True(t, resp.User.CanManageUsers)

	req := b.last()
	require.Equal(t, map[string]any{"username": "mgr", "password": "secret1"}, req.Body)
}

func TestLoginWithoutAccessTokenIsRejected(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/api/auth/login/", http.StatusOK, `{"user": {"id": 1}, "tokens": {}}`)

	_, err := newClient(t, b).Login(context.Background(), "u", "p")
	require.ErrorIs(t, err, clienterrors.ErrInvalidToken)
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantFields  map[string][]string
	}{
		{
			name:        "error message",
			status:      http.StatusUnauthorized,
			body:        `{"error": "Invalid credentials"}`,
			wantMessage: "Invalid credentials",
			wantFields:  map[string][]string{"error": {"Invalid credentials"}},
		},
		{
			name:        "detail message",
			status:      http.StatusForbidden,
			body:        `{"detail": "You do not have permission to perform this action."}`,
			wantMessage: "You do not have permission to perform this action.",
			wantFields:  map[string][]string{"detail": {"You do not have permission to perform this action."}},
		},
		{
			name:       "field errors",
			status:     http.StatusBadRequest,
			body:       `{"username": ["A user with that username already exists."], "email": ["Enter a valid email address.", "Too long."]}`,
			wantFields: map[string][]string{"username": {"A user with that username already exists."}, "email": {"Enter a valid email address.", "Too long."}},
		},
		{
			name:       "html body",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantFields: map[string][]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend(t)
			b.handle(http.MethodGet, "/api/auth/profile/", tt.status, tt.body)

			_, err := newClient(t, b).GetProfile(context.Background())
			apiErr, ok := api.AsError(err)
			require.True(t, ok)
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Equal(t, tt.status, api.StatusCode(err))
			require.Equal(t, tt.wantMessage, apiErr.Message())
			require.Equal(t, tt.wantFields, apiErr.Fields)
			require.Equal(t, tt.body, string(apiErr.Body))
		})
	}
}

func TestFieldReturnsFirstMessage(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/api/auth/register/", http.StatusBadRequest, `{"password": ["Too short.", "Too common."]}`)

	_, err := newClient(t, b).Register(context.Background(), users.ProfileInput{Username: "x"})
	apiErr, ok := api.AsError(err)
	require.True(t, ok)

	msg, ok := apiErr.Field("password")
	require.True(t, ok)
	require.Equal(t, "Too short.", msg)
	require.True(t, apiErr.HasField("password"))
	require.False(t, apiErr.HasField("username"))
}

func TestUnreachableBackendHasStatusZero(t *testing.T) {
	b := newFakeBackend(t)
	c := newClient(t, b)
	b.server.Close()

	_, err := c.ListPosts(context.Background(), api.ListPostsParams{})
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	require.Zero(t, apiErr.StatusCode)
	require.Error(t, apiErr.Err)
	require.False(t, apiErr.SessionExpired())
}

func TestListAcceptsArrayAndEnvelope(t *testing.T) {
	posts := `[{"id": 1, "title": "One", "status": "published"}, {"id": 2, "title": "Two", "status": "published"}]`
	for name, body := range map[string]string{
		"array":    posts,
		"envelope": `{"count": 2, "next": null, "results": ` + posts + `}`,
	} {
		t.Run(name, func(t *testing.T) {
			b := newFakeBackend(t)
			b.handle(http.MethodGet, "/api/posts/", http.StatusOK, body)

			got, err := newClient(t, b).ListPosts(context.Background(), api.ListPostsParams{Author: 4, Tag: "go"})
			require.NoError(t, err)
			require.Len(t, got, 2)
			require.Equal(t, "Two", got[1].Title)
			require.Equal(t, "author=4&tag=go", b.last().Query)
		})
	}
}

func TestEmptyListIsNotNil(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodGet, "/api/admin/posts/", http.StatusOK, `{"results": null}`)

	got, err := newClient(t, b).AdminPosts(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestChangePasswordSendsConfirmation(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/api/auth/change-password/", http.StatusOK, `{"message": "Password changed successfully"}`)

	require.NoError(t, newClient(t, b).ChangePassword(context.Background(), "Old12345", "New12345"))
	require.Equal(t, map[string]any{
		"old_password":  "Old12345",
		"new_password":  "New12345",
		"new_password2": "New12345",
	}, b.last().Body)
}

func TestLogoutSendsRefreshToken(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/api/auth/logout/", http.StatusOK, `{"message": "Logout successful"}`)

	require.NoError(t, newClient(t, b).Logout(context.Background(), "refresh-1"))
	require.Equal(t, map[string]any{"refresh_token": "refresh-1"}, b.last().Body)
}

func TestCreateCommentReply(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/api/posts/9/comments/", http.StatusCreated, `{"id": 5, "post": 9, "content": "hi", "parent": 2, "is_reply": true}`)
	c := newClient(t, b)

	parent := 2
	comment, err := c.CreateComment(context.Background(), 9, "hi", &parent)
	require.NoError(t, err)
	require.True(t, comment.IsReply)
	require.Equal(t, map[string]any{"content": "hi", "parent": float64(2)}, b.last().Body)

	_, err = c.CreateComment(context.Background(), 9, "top level", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"content": "top level"}, b.last().Body)
}

func TestUpdatePostStatus(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/api/posts/7/status/", http.StatusOK, `{"message": "Post approved!", "post": {"id": 7, "status": "published"}}`)
	c := newClient(t, b)

	res, err := c.UpdatePostStatus(context.Background(), 7, api.PostPublished)
	require.NoError(t, err)
	require.Equal(t, "Post approved!", res.Message)
	require.Equal(t, api.PostPublished, res.Post.Status)

	_, err = c.UpdatePostStatus(context.Background(), 7, "deleted")
	require.Error(t, err)
}

func TestLikePost(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/api/posts/3/like/", http.StatusCreated, `{"message": "Post disliked successfully", "like_count": 4, "dislike_count": 1}`)

	res, err := newClient(t, b).LikePost(context.Background(), 3, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.DislikeCount)
	require.Equal(t, map[string]any{"is_like": false}, b.last().Body)
}

func TestUpdatePostSendsInput(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPut, "/api/posts/5/update/", http.StatusOK, `{"title": "Renamed", "description": "Body", "status": "draft"}`)

	out, err := newClient(t, b).UpdatePost(context.Background(), 5, api.PostInput{Title: "Renamed", Description: "Body", Status: api.PostDraft})
	require.NoError(t, err)
	require.Equal(t, "Renamed", out.Title)

	req := b.last()
	require.Equal(t, http.MethodPut, req.Method)
	require.Equal(t, map[string]any{"title": "Renamed", "description": "Body", "status": "draft"}, req.Body)
}

func TestUpdateComment(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPut, "/api/comments/9/", http.StatusOK, `{"id": 9, "post": 2, "content": "edited"}`)

	c, err := newClient(t, b).UpdateComment(context.Background(), 9, "edited")
	require.NoError(t, err)
	require.Equal(t, 9, c.ID)
	require.Equal(t, "edited", c.Content)
	require.Equal(t, map[string]any{"content": "edited"}, b.last().Body)
}

func TestDeleteComment(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodDelete, "/api/comments/9/", http.StatusNoContent, ``)
	b.handle(http.MethodDelete, "/api/comments/10/", http.StatusForbidden, `{"error": "You can only delete your own comments"}`)
	c := newClient(t, b)

	require.NoError(t, c.DeleteComment(context.Background(), 9))
	require.Equal(t, "/api/comments/9/", b.last().Path)

	err := c.DeleteComment(context.Background(), 10)
	require.Equal(t, http.StatusForbidden, api.StatusCode(err))
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodDelete, "/api/auth/users/12/", http.StatusNoContent, ``)

	require.NoError(t, newClient(t, b).DeleteUser(context.Background(), 12))
}

func TestRefreshToken(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/api/token/refresh/", http.StatusOK, `{"access": "access-2"}`)

	access, err := newClient(t, b).RefreshToken(context.Background(), "refresh-1")
	require.NoError(t, err)
	require.Equal(t, "access-2", access)
	require.Equal(t, map[string]any{"refresh": "refresh-1"}, b.last().Body)
}

// authedClient wires a Client through the refresh-on-401 transport the way
// blogctl does: a plain Client refreshes, a second one carries the session.
func authedClient(t *testing.T, b *fakeBackend, store *tokenstore.Store) *api.Client {
	t.Helper()
	refresher := newClient(t, b)
	rt, err := transport.New(store, refresher)
	require.NoError(t, err)
	c, err := api.New(b.apiURL(), api.WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)
	return c
}

func TestSessionExpiryMapsToUnauthorized(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodGet, "/api/my-posts/", http.StatusUnauthorized, `{"detail": "Given token not valid for any token type"}`)
	b.handle(http.MethodPost, "/api/token/refresh/", http.StatusUnauthorized, `{"detail": "Token is blacklisted"}`)

	repo := tokenstore.NewInMemoryRepo()
	store := tokenstore.New(repo)
	require.NoError(t, store.Set(context.Background(), tokenstore.NewToken("access-1", "refresh-1"), &users.UserProfile{ID: 1, Role: users.RoleUser}))

	_, err := authedClient(t, b, store).MyPosts(context.Background())
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.True(t, apiErr.SessionExpired())
	require.True(t, errors.Is(err, clienterrors.ErrSessionExpired))
	require.Equal(t, 0, repo.Len())
}

func TestAnonymousLoginIgnoresStoredSession(t *testing.T) {
	b := newFakeBackend(t)
	b.handle(http.MethodPost, "/api/auth/login/", http.StatusUnauthorized, `{"error": "Invalid credentials"}`)

	repo := tokenstore.NewInMemoryRepo()
	store := tokenstore.New(repo)
	require.NoError(t, store.Set(context.Background(), tokenstore.NewToken("access-1", "refresh-1"), &users.UserProfile{ID: 1, Role: users.RoleUser}))

	_, err := authedClient(t, b, store).Login(context.Background(), "bad", "bad")
	require.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
	require.Empty(t, b.last().Auth)
	require.Equal(t, 3, repo.Len())
}
