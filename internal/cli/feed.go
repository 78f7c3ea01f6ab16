package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scribe/internal/blog"
	"github.com/roach88/scribe/internal/feed"
)

// FeedOptions holds flags for the feed command.
type FeedOptions struct {
	*RootOptions
	Limit int
}

// NewFeedCommand creates the feed command.
func NewFeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "feed <username>",
		Short: "Print a user's RSS feed",
		Long: `Render a user's RSS feed to stdout, exactly as served at
/@username/feed.xml. The --format flag does not apply.

Example:
  scribe feed alice > alice.xml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of items (defaults to feed.limit)")

	return cmd
}

func runFeed(opts *FeedOptions, handle string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	limit := a.cfg.Feed.Limit
	if opts.Limit > 0 {
		limit = opts.Limit
	}

	u, posts, err := a.svc.FeedPosts(ctx, handle, limit)
	if errors.Is(err, blog.ErrNotFound) {
		return NewExitError(ExitFailure, "User not found")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load feed", err)
	}

	site := feed.Site{Name: a.cfg.Site.Name, BaseURL: a.cfg.Site.BaseURL}
	if err := feed.Render(cmd.OutOrStdout(), feed.Build(site, u, posts, time.Now())); err != nil {
		return WrapExitError(ExitFailure, "failed to render feed", err)
	}
	return nil
}
