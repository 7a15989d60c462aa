package app

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stacklok/cmdb-registry-server/internal/config"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage the PostgreSQL schema used by the postgres store and lock backends.
Migrations are embedded in the binary.`,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML format)")
	cmd.PersistentFlags().BoolP("yes", "y", false, "Skip confirmation prompt")
	if err := cmd.MarkPersistentFlagRequired("config"); err != nil {
		slog.Error("Failed to mark config flag required", "error", err)
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())

	return cmd
}

// migrationTarget loads the config named by --config and returns its
// connection string together with a printable description of the database
func migrationTarget(cmd *cobra.Command) (string, string, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", "", fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return "", "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database == nil {
		return "", "", fmt.Errorf("database configuration is required")
	}

	connString, err := cfg.Database.GetConnectionString()
	if err != nil {
		return "", "", fmt.Errorf("failed to get connection string: %w", err)
	}

	target := fmt.Sprintf("%s@%s:%d/%s",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	return connString, target, nil
}

// confirm asks the question on out unless --yes was given and reports
// whether the answer read from in was affirmative
func confirm(cmd *cobra.Command, in io.Reader, out io.Writer, question string) (bool, error) {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return false, fmt.Errorf("failed to get yes flag: %w", err)
	}
	if yes {
		return true, nil
	}

	if _, err := fmt.Fprintf(out, "%s Continue? (yes/no): ", question); err != nil {
		return false, err
	}
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(response)) {
	case "yes", "y":
		return true, nil
	default:
		return false, nil
	}
}
