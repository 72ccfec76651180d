package engine

import (
	"context"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ToolFunc executes a tool with already-validated arguments.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a capability the model may invoke during a run.
type Tool struct {
	Name        string
	Description string
	SchemaJSON  string
	Fn          ToolFunc
	Retryable   bool // true only for idempotent tools
}

// ValidateArgs validates the provided arguments against the tool's JSON schema.
func (t Tool) ValidateArgs(args map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(t.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errorMsgs []string
		for _, err := range result.Errors() {
			errorMsgs = append(errorMsgs, err.String())
		}
		return &ToolValidationError{
			ToolName: t.Name,
			Errors:   errorMsgs,
		}
	}

	return nil
}

// ToolRegistry maps tool names to tools.
type ToolRegistry map[string]Tool

// Schemas returns the provider-facing schemas for every registered tool.
func (r ToolRegistry) Schemas() []ToolSchema {
	s := make([]ToolSchema, 0, len(r))
	for _, t := range r {
		s = append(s, ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			JSONSchema:  t.SchemaJSON,
			Retryable:   t.Retryable,
		})
	}
	return s
}

// executeTool validates arguments and runs a single tool call.
func executeTool(ctx context.Context, call ToolCall, reg ToolRegistry) (string, error) {
	tool, ok := reg[call.Name]
	if !ok {
		return "", fmt.Errorf("tool not found: %s", call.Name)
	}
	if err := tool.ValidateArgs(call.Args); err != nil {
		return "", err
	}
	return tool.Fn(ctx, call.Args)
}
