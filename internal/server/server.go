package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/config"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/metrics"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/pkg/kinship"
)

const poolStatsInterval = 5 * time.Second

// MCPServer handles MCP protocol communication
type MCPServer struct {
	server   *mcp.Server
	svc      *kinship.Service
	defaults config.QueryConfig
}

// NewMCPServer creates a new MCP server over svc. defaults fill query
// arguments the caller leaves out.
func NewMCPServer(svc *kinship.Service, defaults config.QueryConfig) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "kinmatch",
		Version: buildinfo.Version,
	}, nil)

	s := &MCPServer{
		server:   server,
		svc:      svc,
		defaults: defaults,
	}
	s.setupToolHandlers()
	return s
}

// setupToolHandlers registers all MCP tools
func (s *MCPServer) setupToolHandlers() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "register_profile",
		Title:       "Register Profile",
		Description: "Register or replace a person with identity data and optional face descriptor and voice print.",
	}, s.handleRegisterProfile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "compare_profiles",
		Title:       "Compare Profiles",
		Description: "Score two registered profiles (0-100 per modality) and optionally store the connection.",
	}, s.handleCompareProfiles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_matching",
		Title:       "Run Matching",
		Description: "Compare a profile against likely candidates in the registry and store the resulting connections.",
	}, s.handleRunMatching)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "top_matches",
		Title:       "Top Matches",
		Description: "List a profile's strongest stored connections.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleTopMatches)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "connection_graph",
		Title:       "Connection Graph",
		Description: "Expand the connection graph around a profile up to a hop limit.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleConnectionGraph)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_connection_type",
		Title:       "Set Connection Type",
		Description: "Record a review decision (potential, verified, rejected) on a stored connection.",
	}, s.handleSetConnectionType)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_profiles",
		Title:       "Search Profiles",
		Description: "Find registered profiles by name, place of birth or last known location, optionally by birth year or age.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleSearchProfiles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Title:       "Stats",
		Description: "Count stored connections, high-confidence matches and connections per review state.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "health",
		Title:       "Health",
		Description: "Check database connectivity and report index size.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleHealth)
}

// Server exposes the underlying MCP server, e.g. for in-memory transports.
func (s *MCPServer) Server() *mcp.Server { return s.server }

// Run starts the MCP server over stdio
func (s *MCPServer) Run(ctx context.Context) error {
	go s.reportPoolStats(ctx)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP at addr and endpoint
// until ctx is cancelled.
func (s *MCPServer) RunHTTP(ctx context.Context, addr, endpoint string) error {
	go s.reportPoolStats(ctx)
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.server }, nil)
	mux := http.NewServeMux()
	mux.Handle(endpoint, handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("HTTP MCP server listening on %s%s", addr, endpoint)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// reportPoolStats publishes connection pool usage until ctx ends.
func (s *MCPServer) reportPoolStats(ctx context.Context) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			inUse, idle := s.svc.PoolStats()
			metrics.Default().ObservePoolStats(inUse, idle)
		}
	}
}
