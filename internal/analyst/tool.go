package analyst

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hbenali/csvchat/internal/engine"
	"github.com/hbenali/csvchat/internal/sandbox"
)

const pythonToolSchema = `{
	"type": "object",
	"properties": {
		"code": {
			"type": "string",
			"description": "Self-contained Python code cell to execute"
		}
	},
	"required": ["code"],
	"additionalProperties": false
}`

// newPythonTool builds the single tool the model gets: run a Python code
// cell against the session workspace. Not retryable; a cell may have side
// effects (plot files) that a blind re-run would duplicate.
func newPythonTool(runner sandbox.Runner, workDir string, timeout time.Duration) engine.Tool {
	return engine.Tool{
		Name: "run_python",
		Description: "Execute a self-contained Python code cell in the analysis workspace. " +
			"pandas and matplotlib are installed. The dataset is available as " + datasetFile + ". " +
			"Returns the cell's stdout and stderr; print anything you want to see.",
		SchemaJSON: pythonToolSchema,
		Retryable:  false,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			code, _ := args["code"].(string)
			if strings.TrimSpace(code) == "" {
				return "", fmt.Errorf("code must not be empty")
			}

			res, err := sandbox.RunPython(ctx, runner, workDir, code, timeout)
			if err != nil && res.Stdout == "" && res.Stderr == "" {
				return "", fmt.Errorf("python execution failed: %w", err)
			}

			// A nonzero exit with output is a normal tool result: the model
			// sees the traceback and can correct its code.
			return formatCellResult(res), nil
		},
	}
}

// formatCellResult folds a sandbox result into the text returned to the
// model.
func formatCellResult(res sandbox.Result) string {
	var b strings.Builder

	if res.TimedOut {
		b.WriteString("Execution timed out.\n")
	}
	if res.Code != 0 {
		fmt.Fprintf(&b, "Exit code: %d\n", res.Code)
	}
	if res.Stdout != "" {
		b.WriteString(res.Stdout)
	}
	if res.Stderr != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("stderr:\n")
		b.WriteString(res.Stderr)
	}
	if b.Len() == 0 {
		return "(no output)"
	}
	return b.String()
}
