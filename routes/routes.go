// Package routes names the client's view paths and the navigation hook used
// when the session forces the user elsewhere.
package routes

// Route path constants
// All view paths are defined here to ensure consistency and prevent typos
const (
	Root       = "/"
	Login      = "/login"
	Register   = "/register"
	Managers   = "/managers"
	Users      = "/users"
	Posts      = "/posts"
	MyPosts    = "/my-posts"
	CreatePost = "/create-post"
	Blog       = "/blog"
	Settings   = "/settings"
)

// Title returns the header title shown for a view path.
func Title(path string) string {
	switch path {
	case Managers:
		return "Manage Managers"
	case Users:
		return "Manage Users"
	case Posts:
		return "Posts Overview"
	case MyPosts:
		return "My Posts"
	case Settings:
		return "Settings"
	default:
		return "Dashboard"
	}
}
