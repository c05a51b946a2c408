// Package mcp exposes the repository analyzer as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/askrepo/askrepo/internal/analysis"
	"github.com/askrepo/askrepo/internal/deps"
	"github.com/askrepo/askrepo/internal/repo"
)

// Server implements the MCP server.
type Server struct {
	mcpServer *server.MCPServer
	session   *repo.Session
	osv       *deps.OSVClient
}

// New creates an MCP server bound to the session.
func New(session *repo.Session, version string) *Server {
	s := &Server{
		session: session,
		osv:     deps.NewOSVClient(),
	}

	mcpServer := server.NewMCPServer(
		"askrepo",
		version,
		server.WithLogging(),
	)
	s.registerTools(mcpServer)
	s.mcpServer = mcpServer
	return s
}

// registerTools registers all MCP tools.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("load_repository",
		mcp.WithDescription("Load a GitHub repository by URL or a local path for analysis"),
		mcp.WithString("source", mcp.Required(), mcp.Description("GitHub URL or local directory")),
	), s.handleLoadRepository)

	mcpServer.AddTool(mcp.NewTool("get_summary",
		mcp.WithDescription("Get statistics for the loaded repository"),
	), s.handleGetSummary)

	mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Render the repository directory tree"),
		mcp.WithNumber("depth", mcp.Description("Maximum depth (default 3)")),
	), s.handleGetTree)

	mcpServer.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Ask a free-text question about the loaded repository"),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question")),
	), s.handleAsk)

	mcpServer.AddTool(mcp.NewTool("search_code",
		mcp.WithDescription("Search the repository for code matching a query"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 10)")),
	), s.handleSearchCode)

	mcpServer.AddTool(mcp.NewTool("get_issues",
		mcp.WithDescription("List fetched GitHub issues for the loaded repository"),
	), s.handleGetIssues)

	mcpServer.AddTool(mcp.NewTool("get_pull_requests",
		mcp.WithDescription("List fetched GitHub pull requests for the loaded repository"),
	), s.handleGetPullRequests)

	mcpServer.AddTool(mcp.NewTool("scan_vulnerabilities",
		mcp.WithDescription("Check the repository's declared dependencies against the OSV database"),
	), s.handleScanVulnerabilities)

	mcpServer.AddTool(mcp.NewTool("get_todos",
		mcp.WithDescription("Scan the repository for TODO, FIXME and HACK markers"),
	), s.handleGetTodos)
}

func textResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleLoadRepository(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source := req.GetString("source", "")
	if source == "" {
		return mcp.NewToolResultError("source is required"), nil
	}

	summary, err := s.session.Load(ctx, source)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading repository failed: %v", err)), nil
	}
	return textResult(summary)
}

func (s *Server) handleGetSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary := s.session.Summary()
	if summary == nil {
		return mcp.NewToolResultError("no repository loaded"), nil
	}
	return textResult(summary)
}

func (s *Server) handleGetTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := analysis.DefaultTreeOptions
	if depth := req.GetInt("depth", 0); depth > 0 {
		opts.MaxDepth = depth
	}

	tree, err := s.session.Tree(opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(tree), nil
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := req.GetString("question", "")
	if question == "" {
		return mcp.NewToolResultError("question is required"), nil
	}

	answer, category := s.session.Ask(ctx, question)
	return textResult(map[string]string{
		"answer":   answer,
		"category": string(category),
	})
}

func (s *Server) handleSearchCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	limit := req.GetInt("limit", 10)

	results, err := s.session.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return textResult(results)
}

func (s *Server) handleGetIssues(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data := s.session.Data()
	if data == nil {
		return mcp.NewToolResultError("no GitHub data for this repository"), nil
	}
	return textResult(data.Issues)
}

func (s *Server) handleGetPullRequests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data := s.session.Data()
	if data == nil {
		return mcp.NewToolResultError("no GitHub data for this repository"), nil
	}
	return textResult(data.PullRequests)
}

func (s *Server) handleScanVulnerabilities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root := s.session.Root()
	if root == "" {
		return mcp.NewToolResultError("no repository loaded"), nil
	}

	packages, err := deps.Scan(root)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scanning manifests failed: %v", err)), nil
	}
	findings, err := s.osv.Check(ctx, packages)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("osv query failed: %v", err)), nil
	}
	return textResult(map[string]any{
		"packages": len(packages),
		"findings": findings,
	})
}

func (s *Server) handleGetTodos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	todos, err := s.session.Todos()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return textResult(todos)
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
