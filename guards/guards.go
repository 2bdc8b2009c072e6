// Package guards decides whether the current user may see a view. Every
// gate is a pure function of the user and the requested path; denial is
// never an error, only a redirect.
package guards

import (
	"slices"

	"github.com/jrsteele09/go-blog-client/routes"
	"github.com/jrsteele09/go-blog-client/users"
)

// Decision is the outcome of a gate. When Allow is false the view is not
// rendered and the user is sent to Redirect instead.
type Decision struct {
	Allow    bool
	Redirect string
}

func allow() Decision {
	return Decision{Allow: true}
}

func redirectTo(path string) Decision {
	return Decision{Redirect: path}
}

// Gate is a single access check.
type Gate func(user *users.UserProfile, path string) Decision

// UserAllowedPaths are the only views a plain user may visit.
var UserAllowedPaths = []string{routes.Posts, routes.MyPosts, routes.Blog, routes.Login, routes.Register}

// RequireAuthenticated admits any signed in user and sends everyone else to
// the root view.
func RequireAuthenticated() Gate {
	return func(user *users.UserProfile, _ string) Decision {
		if user == nil {
			return redirectTo(routes.Root)
		}
		return allow()
	}
}

// RequireRoles admits signed in users whose role is one of roles.
func RequireRoles(roles ...users.RoleType) Gate {
	allowed := slices.Clone(roles)
	return func(user *users.UserProfile, _ string) Decision {
		if user == nil || !user.HasRole(allowed...) {
			return redirectTo(routes.Root)
		}
		return allow()
	}
}

// RestrictUserPaths keeps plain users inside UserAllowedPaths, sending them
// to the posts view from anywhere else. Other roles and anonymous visitors
// pass.
func RestrictUserPaths() Gate {
	return func(user *users.UserProfile, path string) Decision {
		if user == nil || user.Role != users.RoleUser {
			return allow()
		}
		if slices.Contains(UserAllowedPaths, path) {
			return allow()
		}
		return redirectTo(routes.Posts)
	}
}

// Evaluate runs gates in order and returns the first denial. A gate that
// would redirect a visitor to the very path they asked for sends them to
// the login view instead.
func Evaluate(user *users.UserProfile, path string, gates ...Gate) Decision {
	for _, gate := range gates {
		d := gate(user, path)
		if d.Allow {
			continue
		}
		if d.Redirect == path {
			d.Redirect = routes.Login
		}
		return d
	}
	return allow()
}
