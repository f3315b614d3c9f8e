package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/uekb-mcp/internal/config"
	"github.com/dshills/uekb-mcp/internal/logging"
	"github.com/dshills/uekb-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configPath string
	v          = config.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "uekb",
		Short: "Unreal Engine knowledge base MCP server",
		Long: `uekb stores what an agent learns about an Unreal Engine source tree
(notes, classes, functions, properties and analysis coverage) and serves
it back over the Model Context Protocol on stdio.

Running uekb with no subcommand starts the MCP server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default ~/.ue-knowledge/config.yaml)")
	flags.String("db", "", "database path (env UEKB_DB_PATH)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text, json")
	_ = v.BindPFlag("db_path", flags.Lookup("db"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads configuration, builds the logger and opens the store.
// Logs go to stderr; stdout is reserved for protocol and command output.
func setup(v *viper.Viper) (*config.Config, *slog.Logger, *storage.SQLiteStorage, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath, storage.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open knowledge base %s: %w", cfg.DBPath, err)
	}
	return cfg, logger, store, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "UE Knowledge Base MCP Server\n")
			fmt.Fprintf(out, "Version: %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(out, "Schema Version: %s\n", storage.CurrentSchemaVersion)
		},
	}
}
