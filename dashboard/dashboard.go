// Package dashboard assembles the landing view: headline counts plus the
// most recent posts and accounts the user may see.
package dashboard

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-blog-client/api"
	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"github.com/jrsteele09/go-blog-client/users"
)

// RecentLimit caps the recent posts and users lists.
const RecentLimit = 5

// FailedMessage is shown when any of the dashboard requests fails.
const FailedMessage = "Failed to load dashboard data"

// Source is the slice of the REST API the dashboard reads.
type Source interface {
	AdminPosts(ctx context.Context) ([]api.Post, error)
	MyPosts(ctx context.Context) ([]api.Post, error)
	ListUsers(ctx context.Context) ([]users.UserProfile, error)
}

type Stats struct {
	TotalPosts     int
	TotalManagers  int
	DraftPosts     int
	PublishedPosts int
	TotalComments  int
}

type Dashboard struct {
	Stats       Stats
	RecentPosts []api.Post
	RecentUsers []users.UserProfile
}

// Load fetches what user may see: every post for admins and managers, the
// user's own posts otherwise, and the account list when the user can manage
// users.
func Load(ctx context.Context, src Source, user *users.UserProfile) (*Dashboard, error) {
	if user == nil {
		return nil, clienterrors.ErrNotAuthenticated
	}

	var (
		posts []api.Post
		err   error
	)
	if user.IsAdmin || user.IsManager {
		posts, err = src.AdminPosts(ctx)
	} else {
		posts, err = src.MyPosts(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("[dashboard.Load] posts: %w", err)
	}

	var accounts []users.UserProfile
	if user.CanManageUsers {
		if accounts, err = src.ListUsers(ctx); err != nil {
			return nil, fmt.Errorf("[dashboard.Load] users: %w", err)
		}
	}

	return &Dashboard{
		Stats:       ComputeStats(posts, accounts),
		RecentPosts: head(posts, RecentLimit),
		RecentUsers: head(accounts, RecentLimit),
	}, nil
}

func ComputeStats(posts []api.Post, accounts []users.UserProfile) Stats {
	s := Stats{TotalPosts: len(posts)}
	for _, p := range posts {
		switch p.Status {
		case api.PostDraft:
			s.DraftPosts++
		case api.PostPublished:
			s.PublishedPosts++
		}
		s.TotalComments += p.CommentCount
	}
	for _, u := range accounts {
		if u.Role == users.RoleManager {
			s.TotalManagers++
		}
	}
	return s
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
