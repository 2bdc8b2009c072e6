package guards

import (
	"net/http"

	"github.com/jrsteele09/go-blog-client/users"
)

// UserFunc returns the user behind a request, or nil when there is none.
type UserFunc func(r *http.Request) *users.UserProfile

// Middleware is the shape every HTTP adapter in this package has.
type Middleware func(http.HandlerFunc) http.HandlerFunc

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...Middleware) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// Gated turns gates into middleware. Denied requests are redirected.
func Gated(current UserFunc, gates ...Gate) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if d := Evaluate(current(r), r.URL.Path, gates...); !d.Allow {
				redirect(w, r, d.Redirect)
				return
			}
			next(w, r)
		}
	}
}

func Authenticated(current UserFunc) Middleware {
	return Gated(current, RequireAuthenticated())
}

func Roles(current UserFunc, roles ...users.RoleType) Middleware {
	return Gated(current, RequireRoles(roles...))
}

func UserPathRestriction(current UserFunc) Middleware {
	return Gated(current, RestrictUserPaths())
}

// RouteTable guards every request with Check.
func RouteTable(current UserFunc) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if d := Check(current(r), r.URL.Path); !d.Allow {
				redirect(w, r, d.Redirect)
				return
			}
			next(w, r)
		}
	}
}

// redirect replaces the current location, as an HX-Redirect for htmx
// requests and a 303 otherwise.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
