package analyst

import (
	"errors"
	"strings"
	"testing"

	"github.com/hbenali/csvchat/internal/engine"
)

func TestSoftenOutputPreservesPartialContent(t *testing.T) {
	raw := "The mean of column X is 4.2\n\n" + engine.StoppedMaxIterations

	out, limited := softenOutput(raw)
	if !limited {
		t.Fatalf("Expected the marker to trigger a rewrite")
	}
	if strings.Contains(out, engine.StoppedMaxIterations) {
		t.Errorf("Softened output must not carry the raw marker: %q", out)
	}
	if !strings.Contains(out, "The mean of column X is 4.2") {
		t.Errorf("Softened output must preserve partial content: %q", out)
	}
	if !strings.Contains(out, "iteration limit") {
		t.Errorf("Softened output should explain the limit: %q", out)
	}
}

func TestSoftenOutputPassesCleanTextThrough(t *testing.T) {
	out, limited := softenOutput("a complete answer")
	if limited {
		t.Errorf("Clean output must not be rewritten")
	}
	if out != "a complete answer" {
		t.Errorf("Expected unchanged output, got %q", out)
	}
}

func TestClassifyErrorIterationLimit(t *testing.T) {
	err := errors.New("run aborted: " + engine.StoppedMaxIterations)

	msg := classifyError(err)
	if !strings.Contains(msg, "more specific question") {
		t.Errorf("Iteration-limit failures should suggest a narrower question: %q", msg)
	}
	if !strings.Contains(msg, "insights were discovered") {
		t.Errorf("Iteration-limit failures should promise partial insights: %q", msg)
	}
	if strings.Contains(msg, engine.StoppedMaxIterations) {
		t.Errorf("Raw marker must not leak into the user message: %q", msg)
	}
}

func TestClassifyErrorGeneric(t *testing.T) {
	err := errors.New("provider unreachable")

	msg := classifyError(err)
	if !strings.Contains(msg, "Error processing query:") {
		t.Errorf("Generic failures use the standard wrapper: %q", msg)
	}
	if !strings.Contains(msg, "provider unreachable") {
		t.Errorf("Generic failures surface the raw error text: %q", msg)
	}
}
