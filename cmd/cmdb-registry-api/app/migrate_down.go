package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/cmdb-registry-server/database"
)

func newMigrateDownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert database migrations",
		Long: `Revert database migrations. By default every migration is reverted,
which drops all registry data. Use --num-steps to revert only the most recent ones.`,
		RunE: runMigrateDown,
	}
	cmd.Flags().UintP("num-steps", "n", 0, "Number of migrations to revert (0 reverts all)")
	return cmd
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	steps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}

	connString, target, err := migrationTarget(cmd)
	if err != nil {
		return err
	}

	what := "all migrations"
	if steps > 0 {
		what = fmt.Sprintf("%d migration(s)", steps)
	}
	ok, err := confirm(cmd, cmd.InOrStdin(), cmd.OutOrStdout(),
		fmt.Sprintf("About to revert %s on database %s. This may delete data.", what, target))
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("Migration cancelled by user")
		return nil
	}

	if err := database.MigrateDown(connString, steps); err != nil {
		return err
	}

	version, dirty, err := database.GetVersion(connString)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	slog.Info("Migrations reverted", "version", version, "dirty", dirty)
	return nil
}
