// Package sandbox executes model-generated Python analysis code against a
// session workspace, preferably inside a locked-down Docker container.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Result captures output of a command.
type Result struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// Runner defines the interface for running commands in a sandboxed
// environment. Implementations should isolate the command from the host so
// generated code cannot affect anything outside the session workspace.
type Runner interface {
	// RunCmd runs a command in the given working directory with a timeout.
	// - ctx: base context for cancellation
	// - workDir: session workspace on disk (dataset CSV + plot output)
	// - name: executable name, e.g. "python"
	// - args: arguments
	// - timeout: optional timeout (<=0 uses default)
	RunCmd(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (Result, error)
}

// cellFile is the name the generated code is written to before execution.
const cellFile = "cell.py"

// RunPython writes a code cell into the workspace and executes it.
// The cell file is overwritten on every call; only one cell runs at a time
// per session.
func RunPython(ctx context.Context, r Runner, workDir, code string, timeout time.Duration) (Result, error) {
	path := filepath.Join(workDir, cellFile)
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		return Result{}, fmt.Errorf("failed to write code cell: %w", err)
	}
	return r.RunCmd(ctx, workDir, "python", []string{cellFile}, timeout)
}
