package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema, seed departments and ensure the blob bucket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark documents stuck in processing as failed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := application.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %d stale document(s) as failed.\n", n)
		return nil
	},
}

var directoryCmd = &cobra.Command{
	Use:   "directory <file.yaml>",
	Short: "Import departments and users from a YAML file",
	Long: `Directory upserts departments and replaces the memberships of every listed user.

Example file:
  departments:
    - id: eng
      name: Engineering
  users:
    - id: alice
      name: Alice
      memberships:
        - department: eng
          roleTitle: Engineering Manager
          roleLevel: management`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		if err := application.Migrate(cmd.Context()); err != nil {
			return err
		}
		depts, users, err := application.ImportDirectory(cmd.Context(), raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d department(s) and %d user(s).\n", depts, users)
		return nil
	},
}
