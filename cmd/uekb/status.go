package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dshills/uekb-mcp/internal/storage"
)

var statsJSON bool

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record counts and coverage of the knowledge base",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	cmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, _, store, err := setup(v)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return err
	}
	if statsJSON {
		return writeJSON(cmd.OutOrStdout(), stats)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Knowledge base: %s\n", cfg.DBPath)
	fmt.Fprintln(w, "==============")
	fmt.Fprintf(w, "Notes:          %d\n", stats.Notes)
	fmt.Fprintf(w, "Types:          %d\n", stats.Types)
	fmt.Fprintf(w, "Callables:      %d\n", stats.Callables)
	fmt.Fprintf(w, "Fields:         %d\n", stats.Fields)
	fmt.Fprintf(w, "Files analyzed: %d\n", stats.FilesAnalyzed)
	printCounts(cmd, "Notes by subsystem", stats.BySubsystem)
	printCounts(cmd, "Notes by category", stats.ByCategory)
	printCounts(cmd, "Types by depth", stats.TypesByDepth)
	return nil
}

func printCounts(cmd *cobra.Command, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-16s %d\n", k, counts[k])
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the knowledge base schema",
		Long: `Opens the knowledge base, applying any pending schema migrations,
and prints the resulting schema version. Every other command migrates
on open as well; this one only does that.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, store, err := setup(v)
			if err != nil {
				return err
			}
			defer store.Close()

			ver, err := store.SchemaVersion(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %s (current %s)\n",
				cfg.DBPath, ver, storage.CurrentSchemaVersion)
			return nil
		},
	}
}
