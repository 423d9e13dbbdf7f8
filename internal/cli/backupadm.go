package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"lifehub/internal/backup"
)

var backupAdmCmd = &cobra.Command{
	Use:   "backup",
	Short: "Store backup operations",
	Long: `Commands for taking, listing and pruning timestamped copies of the store
file. Backups live in BACKUP_DIR and are named after the store file.`,
}

var backupSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Copy the store file into the backup directory",
	Long: `Snapshot copies the store while holding the store's exclusive lock, so the
copy never contains a half-written transaction. Old backups are not pruned;
run "backup prune" afterwards or pass --prune.`,
	Args: cobra.NoArgs,
	RunE: runBackupSnapshot,
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest backups",
	Args:  cobra.NoArgs,
	RunE:  runBackupPrune,
}

var backupLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List backups, newest first",
	Args:  cobra.NoArgs,
	RunE:  runBackupLs,
}

var (
	backupSnapshotPrune bool
	backupPruneRetain   int
	backupLsJSON        bool
)

func init() {
	rootAdmCmd.AddCommand(backupAdmCmd)
	backupAdmCmd.AddCommand(backupSnapshotCmd)
	backupAdmCmd.AddCommand(backupPruneCmd)
	backupAdmCmd.AddCommand(backupLsCmd)

	backupSnapshotCmd.Flags().BoolVar(&backupSnapshotPrune, "prune", false, "Prune to BACKUP_RETAIN after the snapshot")
	backupPruneCmd.Flags().IntVar(&backupPruneRetain, "retain", -1, "Number of backups to keep (default BACKUP_RETAIN)")
	backupLsCmd.Flags().BoolVar(&backupLsJSON, "json", false, "Output JSON")
}

func (e *adminEnv) backups() (*backup.Manager, error) {
	return backup.NewManager(backup.ConfigFor(e.cfg.DBPath, e.cfg.BackupDir, e.cfg.BackupRetain))
}

func runBackupSnapshot(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	backups, err := env.backups()
	if err != nil {
		return err
	}
	ctx := env.context(cmd)

	var created string
	var pruned []string
	err = env.db.Exclusive(func(path string) error {
		var snapErr error
		if backupSnapshotPrune {
			created, pruned, snapErr = backups.Rotate(ctx, path)
			return snapErr
		}
		created, snapErr = backups.Snapshot(ctx, path)
		return snapErr
	})
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created backup: %s\n", created)
	for _, p := range pruned {
		fmt.Fprintf(out, "  pruned %s\n", p)
	}
	return nil
}

func runBackupPrune(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	backups, err := env.backups()
	if err != nil {
		return err
	}

	retain := backupPruneRetain
	if retain < 0 {
		retain = backups.Retain()
	}
	removed, err := backups.PruneTo(env.context(cmd), retain)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Pruned %d backups, keeping %d\n", len(removed), retain)
	for _, p := range removed {
		fmt.Fprintf(out, "  %s\n", p)
	}
	return nil
}

func runBackupLs(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	backups, err := env.backups()
	if err != nil {
		return err
	}
	names, err := backups.List(env.context(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if backupLsJSON {
		if names == nil {
			names = []string{}
		}
		return json.NewEncoder(out).Encode(names)
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}
