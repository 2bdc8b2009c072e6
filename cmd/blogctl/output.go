package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/go-blog-client/api"
	"github.com/jrsteele09/go-blog-client/auth"
	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"github.com/jrsteele09/go-blog-client/internal/utils"
	"github.com/jrsteele09/go-blog-client/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog/log"
)

const descriptionPreview = 60

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printPosts(w io.Writer, posts []api.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tSTATUS\tDATE\tLIKES\tCOMMENTS")
	for _, p := range posts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\n",
			p.ID, p.Title, p.AuthorLabel(), p.Status, api.FormatDate(p.CreatedAt), p.LikeCount, p.CommentCount)
	}
	_ = tw.Flush()
}

func printPost(w io.Writer, p *api.Post) {
	fmt.Fprintf(w, "%s\n", p.Title)
	byline := p.AuthorLabel()
	if full := p.Author.FullName(); p.Author.User != nil && full != byline {
		byline += " (" + full + ")"
	}
	fmt.Fprintf(w, "By %s on %s [%s]\n\n", byline, api.FormatDate(p.CreatedAt), p.Status)
	fmt.Fprintln(w, p.Description)
	if img := utils.Value(p.FeaturedImage); img != "" {
		fmt.Fprintf(w, "\nImage: %s\n", img)
	}
	if p.Note != "" {
		fmt.Fprintf(w, "\nNote: %s\n", p.Note)
	}
	fmt.Fprintf(w, "\n%d likes, %d dislikes, %d comments\n", p.LikeCount, p.DislikeCount, p.CommentCount)
	if len(p.Comments) > 0 {
		fmt.Fprintln(w)
		printComments(w, p.Comments, 0)
	}
}

// printComments prints a comment thread, indenting replies under their
// parent.
func printComments(w io.Writer, comments []api.Comment, depth int) {
	if depth == 0 && len(comments) == 0 {
		fmt.Fprintln(w, "No comments")
		return
	}
	indent := strings.Repeat("  ", depth)
	for _, c := range comments {
		fmt.Fprintf(w, "%s#%d %s (%s)\n", indent, c.ID, c.AuthorLabel(), api.FormatDate(c.CreatedAt))
		fmt.Fprintf(w, "%s  %s\n", indent, c.Content)
		printComments(w, c.Replies, depth+1)
	}
}

func printUsers(w io.Writer, accounts []users.UserProfile) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No users")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tUSERNAME\tNAME\tEMAIL\tROLE\tACTIVE")
	for _, u := range accounts {
		active := "-"
		if u.IsActive != nil {
			active = fmt.Sprint(*u.IsActive)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.FullName(), u.Email, u.Role, active)
	}
	_ = tw.Flush()
}

func printProfile(w io.Writer, u *users.UserProfile) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Username:\t%s\n", u.Username)
	fmt.Fprintf(tw, "Name:\t%s\n", u.FullName())
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "Role:\t%s\n", u.Role)
	if u.Bio != "" {
		fmt.Fprintf(tw, "Bio:\t%s\n", preview(u.Bio))
	}
	_ = tw.Flush()
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= descriptionPreview {
		return s
	}
	return s[:descriptionPreview] + "..."
}

// printMetrics writes the request counters in the Prometheus text format.
func printMetrics(w io.Writer, reg prometheus.Gatherer) {
	families, err := reg.Gather()
	if err != nil {
		log.Err(err).Msg("gathering metrics")
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			log.Err(err).Msg("writing metrics")
			return
		}
	}
}

// describe turns an error into the text shown to the user.
func describe(err error) string {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return authErr.Message
	}

	var fe users.FieldErrors
	if errors.As(err, &fe) {
		fields := make([]string, 0, len(fe))
		for f := range fe {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		lines := make([]string, 0, len(fields))
		for _, f := range fields {
			lines = append(lines, fmt.Sprintf("%s: %s", f, fe[f]))
		}
		return strings.Join(lines, "\n")
	}

	if errors.Is(err, clienterrors.ErrNotAuthenticated) {
		return "Not logged in. Run 'blogctl login' first."
	}

	if apiErr, ok := api.AsError(err); ok {
		switch {
		case apiErr.StatusCode == 0:
			return auth.MsgCannotConnect
		case apiErr.Message() != "":
			return apiErr.Message()
		case len(apiErr.Fields) > 0:
			return describeFields(apiErr.Fields)
		}
	}
	return err.Error()
}

func describeFields(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, strings.Join(fields[name], " ")))
	}
	return strings.Join(lines, "\n")
}
