// Package mcp exposes the workflow engine as Model Context Protocol tools so
// that agents can inspect the workflow and run steps.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"blogflow/backend/internal/auth"
	"blogflow/backend/internal/workflow"
	"blogflow/backend/pkg/models"
)

// TriggeredBy is recorded on runs started through MCP without an editor.
const TriggeredBy = "mcp"

// WorkflowReader reads the workflow hierarchy.
type WorkflowReader interface {
	WorkflowTree(ctx context.Context) ([]*models.WorkflowStage, error)
}

// StepRunner resolves and executes workflow steps.
type StepRunner interface {
	Resolve(ctx context.Context, ref workflow.StepRef) (*models.WorkflowStep, workflow.Binding, error)
	Run(ctx context.Context, req workflow.RunRequest) (*workflow.RunResult, error)
}

type Server struct {
	mcpServer *server.MCPServer
	workflow  WorkflowReader
	engine    StepRunner
}

func NewServer(wf WorkflowReader, engine StepRunner, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Blog Workflow",
			version,
			server.WithToolCapabilities(true),
		),
		workflow: wf,
		engine:   engine,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func stepRefOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("step_id", mcp.Description("Step id; alternatively give stage, sub_stage and step")),
		mcp.WithString("stage", mcp.Description("Stage name")),
		mcp.WithString("sub_stage", mcp.Description("Substage name")),
		mcp.WithString("step", mcp.Description("Step name")),
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflow",
			mcp.WithDescription("List workflow stages, substages and steps"),
		),
		s.handleListWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("resolve_mapping", append([]mcp.ToolOption{
			mcp.WithDescription("Show which columns a step reads and which column it writes"),
		}, stepRefOptions()...)...),
		s.handleResolveMapping,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("run_step", append([]mcp.ToolOption{
			mcp.WithDescription("Run a workflow step for a post and store the result"),
			mcp.WithNumber("post_id", mcp.Required(), mcp.Description("The post to run the step for")),
			mcp.WithNumber("section_id", mcp.Description("Section for section-scoped steps")),
			mcp.WithString("provider", mcp.Description("LLM provider override")),
			mcp.WithString("model", mcp.Description("Model override")),
		}, stepRefOptions()...)...),
		s.handleRunStep,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"extract_json",
			mcp.WithDescription("Extract the structured JSON payload from model output"),
			mcp.WithString("text", mcp.Required(), mcp.Description("Raw model output")),
		),
		s.handleExtractJSON,
	)
}

func stepRef(request mcp.CallToolRequest) (workflow.StepRef, error) {
	ref := workflow.StepRef{
		ID:       int64(request.GetInt("step_id", 0)),
		Stage:    request.GetString("stage", ""),
		SubStage: request.GetString("sub_stage", ""),
		Step:     request.GetString("step", ""),
	}
	if ref.ID == 0 && (ref.Stage == "" || ref.SubStage == "" || ref.Step == "") {
		return ref, fmt.Errorf("either step_id or stage, sub_stage and step are required")
	}
	return ref, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree, err := s.workflow.WorkflowTree(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list workflow: %v", err)), nil
	}
	return jsonResult(tree)
}

func (s *Server) handleResolveMapping(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := stepRef(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, binding, err := s.engine.Resolve(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve mapping: %v", err)), nil
	}
	return jsonResult(binding)
}

func (s *Server) handleRunStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	postID := int64(request.GetInt("post_id", 0))
	if postID <= 0 {
		return mcp.NewToolResultError("Missing required parameter: post_id"), nil
	}
	ref, err := stepRef(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := workflow.RunRequest{
		PostID:      postID,
		Step:        ref,
		Provider:    request.GetString("provider", ""),
		Model:       request.GetString("model", ""),
		TriggeredBy: auth.EditorFromContext(ctx),
	}
	if req.TriggeredBy == "" {
		req.TriggeredBy = TriggeredBy
	}
	if sectionID := int64(request.GetInt("section_id", 0)); sectionID > 0 {
		req.SectionID = &sectionID
	}

	res, err := s.engine.Run(ctx, req)
	if err != nil {
		msg := fmt.Sprintf("Failed to run step: %v", err)
		if res != nil && workflow.IsWritePhase(err) {
			msg += "\n\nGenerated text:\n" + res.RawResponse
		}
		return mcp.NewToolResultError(msg), nil
	}
	return jsonResult(res)
}

func (s *Server) handleExtractJSON(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil || text == "" {
		return mcp.NewToolResultError("Missing required parameter: text"), nil
	}
	value, tier, ok := workflow.ExtractTier(text)
	if !ok {
		return mcp.NewToolResultError("No JSON found in text"), nil
	}
	return jsonResult(map[string]any{"tier": tier, "value": value})
}

// MountHTTPHandlers serves the streamable HTTP transport at /mcp and the SSE
// transport at /mcp/sse and /mcp/message.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	streamable := server.NewStreamableHTTPServer(mcpServer, server.WithEndpointPath("/mcp"))
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.Handle("/mcp", streamable)
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
