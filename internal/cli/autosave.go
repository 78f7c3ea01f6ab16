package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scribe/internal/apiclient"
	"github.com/roach88/scribe/internal/autosave"
	"github.com/roach88/scribe/internal/config"
)

// AutosaveOptions holds flags for the autosave command.
type AutosaveOptions struct {
	*RootOptions
	API    string
	Token  string
	PostID string
	File   string
	Title  string
	Poll   time.Duration
}

// NewAutosaveCommand creates the autosave command.
func NewAutosaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AutosaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "autosave",
		Short: "Watch a local file and autosave it to a post",
		Long: `Watch a local markup file and save its content to an existing post.

Changes are debounced by autosave.interval. The publication state of the
post is never changed. Pending changes are saved on Ctrl-C.

Example:
  scribe autosave --api https://blog.example --token $TOKEN \
    --post 0190c7e4-... --file draft.html`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAutosave(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.API, "api", "", "API base URL (defaults to site.base_url)")
	cmd.Flags().StringVar(&opts.Token, "token", os.Getenv("SCRIBE_TOKEN"), "bearer token (or SCRIBE_TOKEN)")
	cmd.Flags().StringVar(&opts.PostID, "post", "", "post id (required)")
	_ = cmd.MarkFlagRequired("post")
	cmd.Flags().StringVar(&opts.File, "file", "", "markup file to watch (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&opts.Title, "title", "", "post title (defaults to the stored title)")
	cmd.Flags().DurationVar(&opts.Poll, "poll", time.Second, "file poll interval")

	return cmd
}

func runAutosave(opts *AutosaveOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Format, opts.Verbose)
	if opts.Token == "" {
		return NewExitError(ExitCommandError, "a token is required (--token or SCRIBE_TOKEN)")
	}
	api := opts.API
	if api == "" {
		api = cfg.Site.BaseURL
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, flushing", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	client := apiclient.New(api, opts.Token)
	post, err := client.GetPost(ctx, opts.PostID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load post", err)
	}
	title := post.Title
	if opts.Title != "" {
		title = opts.Title
	}

	out := cmd.OutOrStdout()
	ctrl := autosave.New(client, post.ID, post.Title, post.Content,
		autosave.WithInterval(cfg.Autosave.Interval),
		autosave.WithLogger(logger),
		autosave.OnSave(func(at time.Time) {
			fmt.Fprintf(out, "Saved at %s\n", at.Format(time.TimeOnly))
		}),
		autosave.OnError(func(err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Save failed: %v\n", err)
		}),
	)
	defer ctrl.Close()

	fmt.Fprintf(out, "Watching %s for post %q (every %s)\n", opts.File, title, cfg.Autosave.Interval)
	if err := watchFile(ctx, opts.File, opts.Poll, func(content string) {
		ctrl.Edit(title, content)
	}); err != nil {
		return WrapExitError(ExitCommandError, "failed to read file", err)
	}

	if !ctrl.Dirty() {
		return nil
	}
	flushCtx, flushCancel := context.WithTimeout(context.Background(), autosave.DefaultTimeout)
	defer flushCancel()
	if err := ctrl.SaveNow(flushCtx); err != nil {
		return WrapExitError(ExitFailure, "failed to save pending changes", err)
	}
	return nil
}

// watchFile calls onChange with the file content at start and whenever it
// changes, until ctx is done. A missing file at start is an error; later
// read errors are skipped.
func watchFile(ctx context.Context, path string, poll time.Duration, onChange func(string)) error {
	last, err := readFile(path)
	if err != nil {
		return err
	}
	onChange(last)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			content, err := readFile(path)
			if err != nil || content == last {
				continue
			}
			last = content
			onChange(content)
		}
	}
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}
