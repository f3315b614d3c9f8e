package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/uekb-mcp/internal/graph"
	"github.com/dshills/uekb-mcp/internal/logging"
	"github.com/dshills/uekb-mcp/internal/searcher"
	"github.com/dshills/uekb-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "ue-knowledge"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Options configures a Server
type Options struct {
	Logger    *slog.Logger
	Search    searcher.Options
	Hierarchy graph.Limits
	Version   string
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	searcher *searcher.Searcher
	graph    *graph.Graph
	logger   *slog.Logger
}

// NewServer creates a new MCP server over an open store. The server owns
// the store from here on and closes it in Close.
func NewServer(store storage.Storage, opts Options) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Version == "" {
		opts.Version = ServerVersion
	}

	srch, err := searcher.NewSearcher(store, opts.Search)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize searcher: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		opts.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  store,
		searcher: srch,
		graph:    graph.New(store, opts.Hierarchy),
		logger:   opts.Logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve runs the MCP protocol over the given streams until ctx is done or
// stdin closes.
func (s *Server) Serve(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, stdin, stdout)
}

// Close releases the store
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	// Notes
	s.mcp.AddTool(saveTool(), s.handleSave)
	s.mcp.AddTool(getTool(), s.handleGet)
	s.mcp.AddTool(listTool(), s.handleList)
	s.mcp.AddTool(updateTool(), s.handleUpdate)
	s.mcp.AddTool(deleteTool(), s.handleDelete)

	// Search and status
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(searchAllTool(), s.handleSearchAll)
	s.mcp.AddTool(statsTool(), s.handleStats)

	// Structured entities
	s.mcp.AddTool(saveClassTool(), s.handleSaveClass)
	s.mcp.AddTool(saveFunctionTool(), s.handleSaveFunction)
	s.mcp.AddTool(savePropertyTool(), s.handleSaveProperty)
	s.mcp.AddTool(saveBatchTool(), s.handleSaveBatch)
	s.mcp.AddTool(queryClassTool(), s.handleQueryClass)
	s.mcp.AddTool(queryHierarchyTool(), s.handleQueryHierarchy)
	s.mcp.AddTool(queryCallsTool(), s.handleQueryCalls)

	// Coverage
	s.mcp.AddTool(logAnalysisTool(), s.handleLogAnalysis)
	s.mcp.AddTool(analysisStatusTool(), s.handleAnalysisStatus)

	return nil
}
