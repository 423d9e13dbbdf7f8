package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lifehub/internal/library"
)

var libraryAdmCmd = &cobra.Command{
	Use:   "library",
	Short: "Inspect the configured media libraries",
}

var libraryLsCmd = &cobra.Command{
	Use:   "ls <kind> [collection]",
	Short: "List the collections of a library, or the files of one collection",
	Long: `Without a collection, ls prints the collections (albums, books) of the
library. With one, it prints the files of that collection exactly as the API
lists them under /api/library/{kind}.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLibraryLs,
}

func init() {
	rootAdmCmd.AddCommand(libraryAdmCmd)
	libraryAdmCmd.AddCommand(libraryLsCmd)
}

func runLibraryLs(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	libs, err := library.NewRegistry(env.cfg.LibraryRoots())
	if err != nil {
		return err
	}
	catalog, err := libs.Catalog(args[0])
	if err != nil {
		return fmt.Errorf("%w (configured: %v)", err, libs.Kinds())
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		names, err := catalog.Collections()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(out, n)
		}
		return nil
	}

	files, err := catalog.Files(args[1])
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(out, f.Name)
	}
	return nil
}
