package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-blog-client/api"
	"github.com/jrsteele09/go-blog-client/auth"
	"github.com/jrsteele09/go-blog-client/dashboard"
	"github.com/jrsteele09/go-blog-client/guards"
	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"github.com/jrsteele09/go-blog-client/internal/utils"
	"github.com/jrsteele09/go-blog-client/routes"
	"github.com/jrsteele09/go-blog-client/users"
)

// command is one subcommand. path is the view it stands for; the route
// guards run against it before the command does. An empty path is not
// guarded.
type command struct {
	name    string
	path    string
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"login", routes.Login, "-username NAME -password PASS", "Sign in and store the session", runLogin},
		{"register", routes.Register, "-username NAME -email EMAIL -password PASS -password2 PASS -first-name NAME [-last-name NAME] [-role ROLE]", "Create an account and sign in", runRegister},
		{"logout", "", "", "Sign out and forget the stored session", runLogout},
		{"whoami", "", "", "Show the signed in user", runWhoami},
		{"status", "", "", "Show the stored session", runStatus},
		{"dashboard", routes.Root, "", "Show headline counts and recent activity", runDashboard},
		{"blog", routes.Blog, "[-author ID] [-tag TAG]", "List published posts", runBlog},
		{"posts", routes.Posts, "[-author ID] [-tag TAG]", "List posts; every status for admins and managers", runPosts},
		{"my-posts", routes.MyPosts, "", "List your own posts", runMyPosts},
		{"post", routes.Blog, "ID", "Show a post and its comments", runShowPost},
		{"create-post", routes.CreatePost, "-title TITLE -description TEXT [-note TEXT] [-status STATUS]", "Write a new post", runCreatePost},
		{"post-status", routes.MyPosts, "ID STATUS", "Set a post to draft, published or archived", runPostStatus},
		{"delete-post", routes.MyPosts, "ID", "Delete a post", runDeletePost},
		{"comments", routes.Blog, "POST_ID", "List the comments on a post", runComments},
		{"comment", routes.Blog, "-post ID [-parent ID] TEXT...", "Comment on a post or reply to a comment", runComment},
		{"like", routes.Posts, "-post ID [-dislike]", "Like or dislike a post", runLike},
		{"users", routes.Users, "", "List the accounts you manage", runUsers},
		{"delete-user", routes.Users, "ID", "Delete an account", runDeleteUser},
		{"managers", routes.Managers, "", "List admins and managers", runManagers},
		{"set-role", routes.Users, "ID ROLE", "Change the role of an account", runSetRole},
		{"profile", routes.Settings, "[-email EMAIL] [-first-name NAME] [-last-name NAME] [-bio TEXT] [-refresh]", "Show or update your profile", runProfile},
		{"passwd", routes.Settings, "-old PASS -new PASS [-confirm PASS]", "Change your password", runPasswd},
		{"version", "", "", "Print the version", runVersion},
	}
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// execute runs one command line and returns the process exit code.
func (a *app) execute(ctx context.Context, args []string) int {
	global := flag.NewFlagSet("blogctl", flag.ContinueOnError)
	global.SetOutput(a.stderr)
	showMetrics := global.Bool("metrics", false, "print request metrics after the command")
	global.Usage = func() { a.printUsage(a.stderr) }
	if err := global.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}

	if global.NArg() == 0 {
		a.printUsage(a.stderr)
		return exitUsage
	}
	name, rest := global.Arg(0), global.Args()[1:]
	if name == "help" {
		a.printUsage(a.stdout)
		return exitOK
	}
	cmd, ok := findCommand(name)
	if !ok {
		fmt.Fprintf(a.stderr, "unknown command %q\n\n", name)
		a.printUsage(a.stderr)
		return exitUsage
	}

	if err := a.manager.Start(ctx); err != nil {
		fmt.Fprintf(a.stderr, "Warning: stored session unreadable: %s\n", err)
	}

	if cmd.path != "" {
		if d := guards.Check(a.manager.User(), cmd.path); !d.Allow {
			a.nav.Navigate(d.Redirect)
			fmt.Fprintln(a.stderr, redirectMessage(d.Redirect))
			return exitRedirected
		}
	}

	err := cmd.run(ctx, a, rest)
	if *showMetrics {
		printMetrics(a.stderr, a.registry)
	}

	// Logout clears the session itself; an expired refresh token on the way
	// out is not worth reporting.
	if a.nav.Last() == routes.Login && cmd.name != "logout" {
		fmt.Fprintln(a.stderr, "Session expired. Please log in again.")
		return exitRedirected
	}
	switch {
	case err == nil:
		return exitOK
	case isUsage(err):
		fmt.Fprintf(a.stderr, "%s\nusage: blogctl %s %s\n", err, cmd.name, cmd.usage)
		return exitUsage
	default:
		fmt.Fprintln(a.stderr, describe(err))
		return exitError
	}
}

func redirectMessage(path string) string {
	switch path {
	case routes.Login, routes.Root:
		return "Not logged in. Run 'blogctl login' first."
	default:
		return fmt.Sprintf("Not available for your role; try '%s' instead.", commandFor(path))
	}
}

// commandFor names the first command standing for a view path.
func commandFor(path string) string {
	for _, c := range commands {
		if c.path == path {
			return "blogctl " + c.name
		}
	}
	return path
}

func (a *app) printUsage(w io.Writer) {
	fmt.Fprintf(w, "usage: blogctl [-metrics] <command> [arguments]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", c.name, c.summary)
	}
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	return nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, usageError{msg: fmt.Sprintf("invalid id %q", s)}
	}
	return id, nil
}

func oneID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, usageError{msg: "expected exactly one id"}
	}
	return parseID(args[0])
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := users.ValidateLogin(*username, *password); err != nil {
		return err
	}

	user, err := a.manager.Login(ctx, strings.TrimSpace(*username), *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logged in as %s (%s)\n", user.Username, user.Role)
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "register")
	var in users.ProfileInput
	fs.StringVar(&in.Username, "username", "", "username")
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVar(&in.Password, "password", "", "password")
	fs.StringVar(&in.Password2, "password2", "", "password confirmation")
	fs.StringVar(&in.FirstName, "first-name", "", "first name")
	fs.StringVar(&in.LastName, "last-name", "", "last name")
	role := fs.String("role", string(users.RoleUser), "admin, manager or user")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	in.Role = users.RoleType(*role)
	if err := users.ValidateRegistration(in); err != nil {
		return err
	}

	user, err := a.manager.Register(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Registered and logged in as %s (%s)\n", user.Username, user.Role)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.manager.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	user := a.manager.User()
	if user == nil {
		return clienterrors.ErrNotAuthenticated
	}
	printProfile(a.stdout, user)
	return nil
}

func runStatus(ctx context.Context, a *app, _ []string) error {
	fmt.Fprintf(a.stdout, "API:     %s\n", a.client.BaseURL())
	fmt.Fprintf(a.stdout, "Store:   %s\n", a.cfg.GetSessionStore())

	user := a.manager.User()
	if user == nil {
		fmt.Fprintln(a.stdout, "Session: none")
		return nil
	}
	fmt.Fprintf(a.stdout, "Session: %s (%s)\n", user.Username, user.Role)

	token, err := a.store.Token(ctx)
	if err != nil {
		return err
	}
	switch {
	case token == nil:
	case token.Expiry.IsZero():
		fmt.Fprintln(a.stdout, "Access:  no expiry")
	case token.Valid():
		fmt.Fprintf(a.stdout, "Access:  valid until %s\n", token.Expiry.Local().Format("2006-01-02 15:04:05"))
	default:
		fmt.Fprintf(a.stdout, "Access:  expired at %s (refreshed on next request)\n", token.Expiry.Local().Format("2006-01-02 15:04:05"))
	}
	if token != nil && token.RefreshToken == "" {
		fmt.Fprintln(a.stdout, "Refresh: none")
	}
	return nil
}

func runDashboard(ctx context.Context, a *app, _ []string) error {
	d, err := dashboard.Load(ctx, a.client, a.manager.User())
	if err != nil {
		return &auth.Error{Message: dashboard.FailedMessage, Cause: err}
	}
	fmt.Fprintf(a.stdout, "Total posts:     %d\n", d.Stats.TotalPosts)
	fmt.Fprintf(a.stdout, "Total managers:  %d\n", d.Stats.TotalManagers)
	fmt.Fprintf(a.stdout, "Draft posts:     %d\n", d.Stats.DraftPosts)
	fmt.Fprintf(a.stdout, "Published posts: %d\n", d.Stats.PublishedPosts)
	fmt.Fprintf(a.stdout, "Total comments:  %d\n", d.Stats.TotalComments)
	if len(d.RecentPosts) > 0 {
		fmt.Fprintln(a.stdout, "\nRecent posts")
		printPosts(a.stdout, d.RecentPosts)
	}
	if len(d.RecentUsers) > 0 {
		fmt.Fprintln(a.stdout, "\nRecent users")
		printUsers(a.stdout, d.RecentUsers)
	}
	return nil
}

func parseListFlags(a *app, name string, args []string) (api.ListPostsParams, error) {
	fs := newFlagSet(a, name)
	var params api.ListPostsParams
	fs.IntVar(&params.Author, "author", 0, "only posts by this author id")
	fs.StringVar(&params.Tag, "tag", "", "only posts with this tag")
	return params, parseFlags(fs, args)
}

func runBlog(ctx context.Context, a *app, args []string) error {
	params, err := parseListFlags(a, "blog", args)
	if err != nil {
		return err
	}
	posts, err := a.client.ListPosts(ctx, params)
	if err != nil {
		return err
	}
	printPosts(a.stdout, posts)
	return nil
}

// runPosts shows admins and managers every post in any status. Filters
// only apply to the published listing.
func runPosts(ctx context.Context, a *app, args []string) error {
	params, err := parseListFlags(a, "posts", args)
	if err != nil {
		return err
	}

	var posts []api.Post
	if (a.manager.IsAdmin() || a.manager.IsManager()) && params == (api.ListPostsParams{}) {
		posts, err = a.client.AdminPosts(ctx)
	} else {
		posts, err = a.client.ListPosts(ctx, params)
	}
	if err != nil {
		return err
	}
	printPosts(a.stdout, posts)
	return nil
}

func runMyPosts(ctx context.Context, a *app, _ []string) error {
	posts, err := a.client.MyPosts(ctx)
	if err != nil {
		return err
	}
	printPosts(a.stdout, posts)
	return nil
}

func runShowPost(ctx context.Context, a *app, args []string) error {
	id, err := oneID(args)
	if err != nil {
		return err
	}
	post, err := a.client.GetPost(ctx, id)
	if err != nil {
		return err
	}
	printPost(a.stdout, post)
	return nil
}

func runCreatePost(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "create-post")
	var in api.PostInput
	fs.StringVar(&in.Title, "title", "", "post title")
	fs.StringVar(&in.Description, "description", "", "post body")
	fs.StringVar(&in.Note, "note", "", "note for reviewers")
	status := fs.String("status", string(api.PostDraft), "draft, published or archived")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	in.Status = api.PostStatus(*status)
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		return usageError{msg: "title and description are required"}
	}
	if !in.Status.Valid() {
		return usageError{msg: fmt.Sprintf("invalid status %q", *status)}
	}

	created, err := a.client.CreatePost(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Created %q (%s)\n", created.Title, created.Status)
	return nil
}

func runPostStatus(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return usageError{msg: "expected an id and a status"}
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	status := api.PostStatus(args[1])
	if !status.Valid() {
		return usageError{msg: fmt.Sprintf("invalid status %q", args[1])}
	}
	res, err := a.client.UpdatePostStatus(ctx, id, status)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, res.Message)
	return nil
}

func runDeletePost(ctx context.Context, a *app, args []string) error {
	id, err := oneID(args)
	if err != nil {
		return err
	}
	if err := a.client.DeletePost(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Post deleted")
	return nil
}

func runComments(ctx context.Context, a *app, args []string) error {
	id, err := oneID(args)
	if err != nil {
		return err
	}
	comments, err := a.client.ListComments(ctx, id)
	if err != nil {
		return err
	}
	printComments(a.stdout, comments, 0)
	return nil
}

func runComment(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "comment")
	postID := fs.Int("post", 0, "post id")
	parentID := fs.Int("parent", 0, "comment id to reply to")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	content := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if *postID <= 0 || content == "" {
		return usageError{msg: "a post id and comment text are required"}
	}
	var parent *int
	if *parentID > 0 {
		parent = utils.Ptr(*parentID)
	}

	comment, err := a.client.CreateComment(ctx, *postID, content, parent)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Comment %d added\n", comment.ID)
	return nil
}

func runLike(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "like")
	postID := fs.Int("post", 0, "post id")
	dislike := fs.Bool("dislike", false, "record a dislike instead")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *postID <= 0 {
		return usageError{msg: "a post id is required"}
	}
	res, err := a.client.LikePost(ctx, *postID, !*dislike)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s (%d likes, %d dislikes)\n", res.Message, res.LikeCount, res.DislikeCount)
	return nil
}

func runUsers(ctx context.Context, a *app, _ []string) error {
	accounts, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	printUsers(a.stdout, accounts)
	return nil
}

func runDeleteUser(ctx context.Context, a *app, args []string) error {
	id, err := oneID(args)
	if err != nil {
		return err
	}
	if err := a.client.DeleteUser(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "User deleted")
	return nil
}

func runManagers(ctx context.Context, a *app, _ []string) error {
	accounts, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	managers := make([]users.UserProfile, 0, len(accounts))
	for _, u := range accounts {
		if u.HasRole(users.RoleAdmin, users.RoleManager) {
			managers = append(managers, u)
		}
	}
	printUsers(a.stdout, managers)
	return nil
}

// runSetRole sends the whole account back with the new role; the backend
// expects a full update.
func runSetRole(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return usageError{msg: "expected an id and a role"}
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	role := users.RoleType(args[1])
	if !role.Valid() {
		return usageError{msg: fmt.Sprintf("invalid role %q", args[1])}
	}

	current, err := a.client.GetUser(ctx, id)
	if err != nil {
		return err
	}
	updated, err := a.client.UpdateUser(ctx, id, users.ProfileInput{
		Username:  current.Username,
		Email:     current.Email,
		FirstName: current.FirstName,
		LastName:  current.LastName,
		Role:      role,
		Bio:       current.Bio,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s is now %s\n", updated.Username, updated.Role)
	return nil
}

func runProfile(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "profile")
	var in users.ProfileInput
	fs.StringVar(&in.Email, "email", "", "new email address")
	fs.StringVar(&in.FirstName, "first-name", "", "new first name")
	fs.StringVar(&in.LastName, "last-name", "", "new last name")
	fs.StringVar(&in.Bio, "bio", "", "new bio")
	refresh := fs.Bool("refresh", false, "reload the profile from the server")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var (
		user *users.UserProfile
		err  error
	)
	changed := in != (users.ProfileInput{})
	switch {
	case changed:
		current := a.manager.User()
		in.Username = current.Username
		if in.Email == "" {
			in.Email = current.Email
		}
		user, err = a.manager.UpdateProfile(ctx, in)
	case *refresh:
		user, err = a.manager.RefreshProfile(ctx)
	default:
		user = a.manager.User()
	}
	if err != nil {
		return err
	}
	printProfile(a.stdout, user)
	return nil
}

func runPasswd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "passwd")
	oldPassword := fs.String("old", "", "current password")
	newPassword := fs.String("new", "", "new password")
	confirm := fs.String("confirm", "", "new password again")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *oldPassword == "" || *newPassword == "" {
		return usageError{msg: "old and new passwords are required"}
	}
	if *confirm != "" && *confirm != *newPassword {
		return users.FieldErrors{"confirm": "Passwords do not match"}
	}

	if err := a.manager.ChangePassword(ctx, *oldPassword, *newPassword); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Password changed")
	return nil
}

func runVersion(_ context.Context, a *app, _ []string) error {
	displayAppname(a.stdout, a.cfg.GetAppName())
	fmt.Fprintf(a.stdout, "version %s\n", version)
	return nil
}
