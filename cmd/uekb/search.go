package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/uekb-mcp/internal/searcher"
	"github.com/dshills/uekb-mcp/internal/storage"
)

var (
	searchTables    []string
	searchLimit     int
	searchOffset    int
	searchSubsystem string
	searchCategory  string
	searchTags      []string
	searchJSON      bool
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge base",
		Long: `Full-text search across notes, types, callables and fields.

Examples:
  uekb search "replication"
  uekb search "begin play" --tables types,callables --limit 5
  uekb search "gameplay ability" --subsystem gas --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().StringSliceVarP(&searchTables, "tables", "t", nil, "tables to search (notes, types, callables, fields)")
	cmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "maximum results (default from config)")
	cmd.Flags().IntVar(&searchOffset, "offset", 0, "results to skip")
	cmd.Flags().StringVarP(&searchSubsystem, "subsystem", "s", "", "filter by subsystem")
	cmd.Flags().StringVar(&searchCategory, "category", "", "filter notes by category")
	cmd.Flags().StringSliceVar(&searchTags, "tag", nil, "filter notes by tag (repeatable)")
	cmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, _, store, err := setup(v)
	if err != nil {
		return err
	}
	defer store.Close()

	srch, err := searcher.NewSearcher(store, searcher.Options{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	})
	if err != nil {
		return err
	}

	tables := make([]storage.Table, 0, len(searchTables))
	for _, t := range searchTables {
		tables = append(tables, storage.Table(t))
	}

	resp, err := srch.Search(context.Background(), searcher.SearchRequest{
		Query:  strings.Join(args, " "),
		Tables: tables,
		Filters: storage.SearchFilters{
			Subsystem: searchSubsystem,
			Category:  searchCategory,
			Tags:      searchTags,
		},
		Limit:  searchLimit,
		Offset: searchOffset,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	outputHuman(cmd.OutOrStdout(), resp)
	return nil
}

func outputHuman(w io.Writer, resp *searcher.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintf(w, "No results for %q\n", resp.Query)
		return
	}

	fmt.Fprintf(w, "Showing %d-%d of %d results for %q\n\n",
		resp.Offset+1, resp.Offset+len(resp.Results), resp.TotalMatches, resp.Query)
	for i, hit := range resp.Results {
		fmt.Fprintf(w, "%d. [%s #%d] %s (%.2f)\n", resp.Offset+i+1, hit.Table, hit.ID, hit.Key, hit.Score)
		if hit.Subsystem != "" {
			fmt.Fprintf(w, "   Subsystem: %s\n", hit.Subsystem)
		}
		if hit.Summary != "" {
			fmt.Fprintf(w, "   %s\n", hit.Summary)
		}
		if len(hit.Tags) > 0 {
			fmt.Fprintf(w, "   Tags: %s\n", strings.Join(hit.Tags, ", "))
		}
	}
}

func writeJSON(w io.Writer, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
