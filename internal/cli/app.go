package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/scribe/internal/blog"
	"github.com/roach88/scribe/internal/config"
	"github.com/roach88/scribe/internal/pgstore"
	"github.com/roach88/scribe/internal/store"
)

// app bundles what a command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	repo   blog.Repository
	closer io.Closer
	svc    *blog.Service
}

// openApp loads configuration and opens the configured repository.
// The caller must call Close.
func openApp(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Format, opts.Verbose)

	repo, closer, err := openRepository(ctx, cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", "driver", cfg.Database.Driver)

	return &app{
		cfg:    cfg,
		logger: logger,
		repo:   repo,
		closer: closer,
		svc:    blog.NewService(repo, blog.WithLogger(logger)),
	}, nil
}

func (a *app) Close() {
	if err := a.closer.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// openRepository opens the storage backend named by db.Driver.
func openRepository(ctx context.Context, db config.Database) (blog.Repository, io.Closer, error) {
	switch db.Driver {
	case "sqlite":
		st, err := store.Open(db.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case "postgres":
		st, err := pgstore.Open(ctx, db.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

// newLogger builds the process logger. Verbose enables debug records.
func newLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// commandContext returns the command's context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
