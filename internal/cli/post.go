package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/scribe/internal/auth"
	"github.com/roach88/scribe/internal/blog"
)

// PostListOptions holds flags for post list.
type PostListOptions struct {
	*RootOptions
	All bool
}

// PostRow is one line of post list output.
type PostRow struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	State          string `json:"state"`
	Date           string `json:"date"`
	ReadingMinutes int    `json:"reading_minutes"`
}

// NewPostCommand creates the post command group.
func NewPostCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Inspect posts",
	}
	cmd.AddCommand(newPostListCommand(rootOpts))
	return cmd
}

func newPostListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PostListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <username>",
		Short: "List a user's posts",
		Long: `List a user's published posts, newest first.

With --all, drafts are included and posts are ordered by last update.

Examples:
  scribe post list alice
  scribe post list @alice --all --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPostList(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "include drafts")

	return cmd
}

func runPostList(opts *PostListOptions, handle string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	formatter := newFormatter(cmd, opts.RootOptions)
	u, err := a.svc.UserByUsername(ctx, handle)
	if errors.Is(err, blog.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, "user not found", map[string]string{"username": handle})
		return NewExitError(ExitFailure, "user not found: "+handle)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up user", err)
	}

	var posts []blog.Post
	if opts.All {
		posts, err = a.svc.ListMine(ctx, auth.Identity{UserID: u.ID, Username: u.Username})
	} else {
		var profile *blog.Profile
		if profile, err = a.svc.PublicProfile(ctx, u.Username); err == nil {
			posts = profile.Posts
		}
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list posts", err)
	}

	rows := make([]PostRow, len(posts))
	for i := range posts {
		rows[i] = postRow(&posts[i])
	}
	return formatter.Success(rows, formatPostRows(rows))
}

func postRow(p *blog.Post) PostRow {
	return PostRow{
		ID:             p.ID,
		Slug:           p.Slug,
		Title:          p.Title,
		State:          blog.StateOf(p).String(),
		Date:           p.DisplayDate().Format("2006-01-02"),
		ReadingMinutes: p.ReadingTime(),
	}
}

func formatPostRows(rows []PostRow) string {
	if len(rows) == 0 {
		return "No posts."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tDATE\tMIN\tSLUG\tTITLE")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.State, r.Date, r.ReadingMinutes, r.Slug, r.Title)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
