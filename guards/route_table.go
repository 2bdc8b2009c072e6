package guards

import (
	"github.com/jrsteele09/go-blog-client/routes"
	"github.com/jrsteele09/go-blog-client/users"
)

// Route is one view and the gates protecting it.
type Route struct {
	Path   string
	Title  string
	Public bool
	Roles  []users.RoleType // empty means any signed in user
}

// Gates returns the per-route gates, in the order they are checked.
func (r Route) Gates() []Gate {
	if r.Public {
		return nil
	}
	gates := []Gate{RequireAuthenticated()}
	if len(r.Roles) > 0 {
		gates = append(gates, RequireRoles(r.Roles...))
	}
	return gates
}

var everyRole = []users.RoleType{users.RoleAdmin, users.RoleManager, users.RoleUser}

// Table lists every view of the client.
var Table = []Route{
	{Path: routes.Login, Public: true},
	{Path: routes.Register, Public: true},
	{Path: routes.Blog, Public: true},
	{Path: routes.Root},
	{Path: routes.Managers, Roles: []users.RoleType{users.RoleAdmin}},
	{Path: routes.Users, Roles: []users.RoleType{users.RoleAdmin, users.RoleManager}},
	{Path: routes.Posts, Roles: everyRole},
	{Path: routes.MyPosts, Roles: everyRole},
	{Path: routes.CreatePost},
	{Path: routes.Settings},
}

func init() {
	for i := range Table {
		Table[i].Title = routes.Title(Table[i].Path)
	}
}

// Resolve finds the route for path.
func Resolve(path string) (Route, bool) {
	for _, r := range Table {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Check applies the app wide plain-user restriction and then the gates of
// the route at path. Unknown paths send the user to the root view.
func Check(user *users.UserProfile, path string) Decision {
	if d := Evaluate(user, path, RestrictUserPaths()); !d.Allow {
		return d
	}
	route, ok := Resolve(path)
	if !ok {
		return Evaluate(user, path, func(*users.UserProfile, string) Decision {
			return redirectTo(routes.Root)
		})
	}
	return Evaluate(user, path, route.Gates()...)
}
