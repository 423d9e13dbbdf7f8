package cli

import (
	"github.com/spf13/cobra"
)

var rootAdmCmd = &cobra.Command{
	Use:   "lifehubadm",
	Short: "Administrative CLI for the lifehub store, backups and libraries",
	Long: `lifehubadm works on the same store, backup directory and libraries as the
API server. Use it to migrate the schema, import exported records, take or
prune backups and inspect the media libraries without going through HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// dbPathFlag overrides DB_PATH for every subcommand.
var dbPathFlag string

// ExecuteAdmin runs the admin root command
func ExecuteAdmin() error {
	return rootAdmCmd.Execute()
}

func init() {
	rootAdmCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Path to database file (overrides DB_PATH)")
}
