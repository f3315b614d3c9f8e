package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/uekb-mcp/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "# Effective configuration (defaults + file + env + flags)")
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			p := configPath
			if p == "" {
				p = config.DefaultConfigPath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), config.ExpandHome(p))
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := configPath
			if p == "" {
				p = config.DefaultConfigPath()
			}
			if err := config.WriteFile(p, config.DefaultConfig(), force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", config.ExpandHome(p))
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(show, path, initCmd)
	return cmd
}
