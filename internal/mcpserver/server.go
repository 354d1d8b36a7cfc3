// Package mcpserver exposes outline extraction and section ranking as MCP tools over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/pipeline"
	"github.com/dgallion1/docinsight/internal/report"
)

const serverName = "docinsight"

// Tool argument keys, shared by the schemas and the handlers.
const (
	argPath    = "path"
	argPaths   = "paths"
	argPersona = "persona"
	argJob     = "job"
	argTopK    = "top_k"
)

// Service runs batches. *pipeline.Runner implements it.
type Service interface {
	Outline(ctx context.Context, sources []pipeline.Source) *pipeline.OutlineResult
	Rank(ctx context.Context, sources []pipeline.Source, query doctree.PersonaQuery, topK int) *pipeline.RankResult
}

// New builds an MCP server with the docinsight tools registered.
func New(svc Service, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(serverName, version)
	registerTools(s, &tools{svc: svc, log: log})
	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

type tools struct {
	svc Service
	log *slog.Logger
}

func registerTools(s *server.MCPServer, t *tools) {
	s.AddTool(
		mcp.NewTool("extract_outline",
			mcp.WithDescription("Extract the title and H1/H2/H3 outline of a document. "+
				"Supported formats: PDF, Markdown, HTML, DOCX, TXT."),
			mcp.WithString(argPath,
				mcp.Required(),
				mcp.Description("Absolute path of the document"),
			),
		),
		t.extractOutline,
	)

	s.AddTool(
		mcp.NewTool("rank_sections",
			mcp.WithDescription("Rank the sections of one or more documents by relevance to a persona "+
				"and the job they need done. Returns the top sections with a refined excerpt each."),
			mcp.WithString(argPaths,
				mcp.Required(),
				mcp.Description("Absolute document paths, separated by commas or newlines"),
			),
			mcp.WithString(argPersona,
				mcp.Required(),
				mcp.Description("Who is asking, e.g. \"Investment Analyst\""),
			),
			mcp.WithString(argJob,
				mcp.Required(),
				mcp.Description("The task to accomplish"),
			),
			mcp.WithNumber(argTopK,
				mcp.Description("Number of sections to return (1-100, default 10)"),
			),
		),
		t.rankSections,
	)
}

func (t *tools) extractOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, ok := req.Params.Arguments[argPath].(string)
	if !ok || strings.TrimSpace(path) == "" {
		return mcp.NewToolResultError(argPath + " is required"), nil
	}

	res := t.svc.Outline(ctx, []pipeline.Source{{Path: strings.TrimSpace(path)}})
	if len(res.Documents) == 0 {
		return mcp.NewToolResultError(skipMessage(res.Skipped)), nil
	}
	return jsonResult(report.NewOutline(res.Documents[0]), report.SchemaOutline)
}

func (t *tools) rankSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.Params.Arguments
	rawPaths, _ := args[argPaths].(string)
	persona, _ := args[argPersona].(string)
	job, _ := args[argJob].(string)

	paths := splitPaths(rawPaths)
	if len(paths) == 0 {
		return mcp.NewToolResultError(argPaths + " is required"), nil
	}
	query := doctree.PersonaQuery{Persona: strings.TrimSpace(persona), Job: strings.TrimSpace(job)}
	if query.Persona == "" || query.Job == "" {
		return mcp.NewToolResultError(argPersona + " and " + argJob + " are required"), nil
	}
	topK := 0
	if v, ok := args[argTopK].(float64); ok {
		topK = int(v)
	}

	sources := make([]pipeline.Source, len(paths))
	for i, p := range paths {
		sources[i] = pipeline.Source{Path: p}
	}
	res := t.svc.Rank(ctx, sources, query, topK)
	if t.log != nil {
		t.log.Info("rank_sections", "run_id", res.RunID, "status", res.Status().String(),
			"documents", len(res.Documents), "degraded", res.Degraded)
	}
	if res.Status() == pipeline.RunNoValidInput {
		return mcp.NewToolResultError(skipMessage(res.Skipped)), nil
	}
	return jsonResult(report.NewRanking(res), report.SchemaRanking)
}

func jsonResult(v any, schema string) (*mcp.CallToolResult, error) {
	if err := report.Validate(schema, v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := report.Encode(&buf, v); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func skipMessage(skipped []pipeline.Skip) string {
	if len(skipped) == 0 {
		return "no document could be processed"
	}
	parts := make([]string, len(skipped))
	for i, s := range skipped {
		parts[i] = fmt.Sprintf("%s (%s): %s", s.Document, s.Kind, s.Reason)
	}
	return "no document could be processed: " + strings.Join(parts, "; ")
}
