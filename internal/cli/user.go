package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scribe/internal/auth"
	"github.com/roach88/scribe/internal/blog"
)

// UserCreateOptions holds flags for user create.
type UserCreateOptions struct {
	*RootOptions
	blog.NewUser
}

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCommand(rootOpts))
	cmd.AddCommand(newUserTokenCommand(rootOpts))
	return cmd
}

func newUserCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long: `Create an account.

The username is normalized to lowercase letters and digits. When omitted
it is derived from the email address, then the display name. A taken
username gets a numeric suffix (alice, alice1, alice2, ...).

Examples:
  scribe user create --email alice@example.com --name "Alice"
  scribe user create --username alice --bio "Writes about Go"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "requested username")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.DisplayName, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Bio, "bio", "", "profile bio")
	cmd.Flags().StringVar(&opts.AvatarURL, "avatar", "", "avatar image URL")

	return cmd
}

func runUserCreate(opts *UserCreateOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	formatter := newFormatter(cmd, opts.RootOptions)
	u, err := a.svc.CreateUser(ctx, opts.NewUser)
	if err != nil {
		var ve *blog.ValidationError
		if errors.As(err, &ve) {
			_ = formatter.Error(ErrCodeInvalid, ve.Message, map[string]string{"field": ve.Field})
			return WrapExitError(ExitFailure, "invalid user", err)
		}
		return WrapExitError(ExitFailure, "failed to create user", err)
	}

	return formatter.Success(u, fmt.Sprintf("Created user %s (%s)", u.Username, u.ID))
}

// UserTokenOptions holds flags for user token.
type UserTokenOptions struct {
	*RootOptions
	TTL time.Duration
}

func newUserTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserTokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token <username>",
		Short: "Issue an API bearer token",
		Long: `Issue a signed bearer token for an existing account.

Example:
  scribe user token alice --ttl 72h`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserToken(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")

	return cmd
}

func runUserToken(opts *UserTokenOptions, handle string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireSecret(); err != nil {
		return WrapExitError(ExitCommandError, "cannot issue token", err)
	}

	formatter := newFormatter(cmd, opts.RootOptions)
	u, err := a.svc.UserByUsername(ctx, handle)
	if errors.Is(err, blog.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, "user not found", map[string]string{"username": handle})
		return NewExitError(ExitFailure, "user not found: "+handle)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up user", err)
	}

	ttl := a.cfg.Auth.TokenTTL
	if opts.TTL > 0 {
		ttl = opts.TTL
	}
	token, err := auth.NewIssuer(a.cfg.Auth.JWTSecret, ttl).Issue(auth.Identity{UserID: u.ID, Username: u.Username})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to issue token", err)
	}

	return formatter.Success(map[string]string{"username": u.Username, "token": token}, token)
}
