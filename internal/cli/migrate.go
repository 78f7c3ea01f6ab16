package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Long: `Open the configured database and apply the schema.

Applying the schema is idempotent; serve does the same on startup.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(commandContext(cmd), cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			db := a.cfg.Database
			return newFormatter(cmd, rootOpts).Success(
				map[string]string{"driver": db.Driver, "dsn": db.DSN},
				fmt.Sprintf("Database ready (%s: %s)", db.Driver, db.DSN),
			)
		},
	}
}
