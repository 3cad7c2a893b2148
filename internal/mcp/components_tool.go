package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/archextract/internal/component"
)

// ComponentsResponse is the JSON payload of archextract_components.
type ComponentsResponse struct {
	Total      int                   `json:"total"`
	Components []component.Component `json:"components"`
}

// ModulesResponse is the JSON payload of archextract_modules.
type ModulesResponse struct {
	Modules []component.ModuleSummary `json:"modules"`
}

// AddComponentsTool registers the archextract_components tool with an MCP server.
func AddComponentsTool(s *server.MCPServer, source ComponentSource) {
	tool := mcp.NewTool(
		"archextract_components",
		mcp.WithDescription("List architectural components (APIs, use cases, domain operations, events, event handlers, UI and custom types) extracted from the codebase. Filter by module and component type."),
		mcp.WithString("module",
			mcp.Description("Only return components of this module")),
		mcp.WithString("type",
			mcp.Description("Only return components of this type: api, useCase, domainOp, event, eventHandler, ui or a custom type name")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createComponentsHandler(source))
}

// AddModulesTool registers the archextract_modules tool with an MCP server.
func AddModulesTool(s *server.MCPServer, source ComponentSource) {
	tool := mcp.NewTool(
		"archextract_modules",
		mcp.WithDescription("Summarize extracted components per module with counts per component type."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createModulesHandler(source))
}

func createComponentsHandler(source ComponentSource) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok && request.Params.Arguments != nil {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		module, err := optionalString(argsMap, "module")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kind, err := optionalString(argsMap, "type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		comps, err := source.Components(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extraction failed: %v", err)), nil
		}

		filtered := component.Filter(comps, module, kind)
		return jsonResult(ComponentsResponse{Total: len(filtered), Components: filtered})
	}
}

func createModulesHandler(source ComponentSource) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		comps, err := source.Components(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extraction failed: %v", err)), nil
		}

		g, err := component.NewGraph(comps)
		if err != nil {
			return nil, fmt.Errorf("failed to build component graph: %w", err)
		}
		summaries, err := component.Summarize(g)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize modules: %w", err)
		}
		return jsonResult(ModulesResponse{Modules: summaries})
	}
}

func optionalString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
