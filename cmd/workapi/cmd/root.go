package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/workstack/workstack/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "workapi",
	Short: "Workstack API server",
	Long: `Workstack API server provides the multi-tenant task and project tracker API.
It exposes local and federated login, role- and ownership-aware authorization,
and cached project/task operations over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
