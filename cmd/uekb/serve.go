package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/uekb-mcp/internal/graph"
	"github.com/dshills/uekb-mcp/internal/mcp"
	"github.com/dshills/uekb-mcp/internal/searcher"
	"github.com/dshills/uekb-mcp/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := setup(v)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(store, mcp.Options{
		Logger:  logger,
		Version: version,
		Search: searcher.Options{
			DefaultLimit: cfg.Search.DefaultLimit,
			MaxLimit:     cfg.Search.MaxLimit,
			CacheSize:    cfg.Search.CacheSize,
		},
		Hierarchy: graph.Limits{
			DepthLimit:          cfg.Hierarchy.DepthLimit,
			MaxChildrenPerLevel: cfg.Hierarchy.MaxChildrenPerLevel,
			MaxTotal:            cfg.Hierarchy.MaxTotal,
		},
	})
	if err != nil {
		_ = store.Close()
		return err
	}
	defer func() {
		if err := server.Close(); err != nil {
			logger.Error("failed to close knowledge base", "error", err)
		}
	}()

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server ready, listening on stdio",
		"version", version,
		"db", cfg.DBPath,
		"build_mode", storage.BuildMode,
		"driver", storage.DriverName,
	)
	err = server.Serve(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
