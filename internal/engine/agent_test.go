package engine

import (
	"context"
	"strings"
	"testing"
)

func TestAgentRunFinalAnswer(t *testing.T) {
	client := &scriptedClient{responses: []LLMResponse{textResponse("42")}}
	agent := NewAgent(client, ToolRegistry{}, "be helpful", AgentConfig{Model: "m"})

	out, err := agent.Run(context.Background(), "what is the answer?")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "42" {
		t.Errorf("Expected %q, got %q", "42", out)
	}
}

func TestAgentRunEmitsMarkerOnCapExhaustion(t *testing.T) {
	looping := toolResponse("c1", "echo", map[string]any{"text": "x"})
	client := &scriptedClient{responses: []LLMResponse{looping, looping}}

	var executed []string
	agent := NewAgent(client, echoRegistry(t, &executed), "system", AgentConfig{
		Model:         "m",
		MaxIterations: 2,
	})

	out, err := agent.Run(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out, StoppedMaxIterations) {
		t.Errorf("Expected output to carry the iteration marker, got %q", out)
	}
}

func TestAgentPreservesHistoryAcrossRuns(t *testing.T) {
	client := &scriptedClient{responses: []LLMResponse{
		textResponse("first answer"),
		textResponse("second answer"),
	}}
	agent := NewAgent(client, ToolRegistry{}, "system", AgentConfig{Model: "m"})

	if _, err := agent.Run(context.Background(), "first question"); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if _, err := agent.Run(context.Background(), "second question"); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	// The second call must see the first exchange.
	var sawFirstQuestion, sawFirstAnswer bool
	for _, m := range client.lastMsgs {
		if m.Role == RoleUser && m.Content == "first question" {
			sawFirstQuestion = true
		}
		if m.Role == RoleAssistant && m.Content == "first answer" {
			sawFirstAnswer = true
		}
	}
	if !sawFirstQuestion || !sawFirstAnswer {
		t.Errorf("Expected prior exchange in history (question=%v answer=%v)", sawFirstQuestion, sawFirstAnswer)
	}
}

func TestAgentTokenTotals(t *testing.T) {
	resp := textResponse("done")
	resp.Usage = Usage{Prompt: 10, Completion: 5, Total: 15}
	client := &scriptedClient{responses: []LLMResponse{resp}}

	agent := NewAgent(client, ToolRegistry{}, "system", AgentConfig{Model: "m"})
	if _, err := agent.Run(context.Background(), "q"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	totals := agent.TokenTotals()
	if totals.Total != 15 {
		t.Errorf("Expected total 15, got %d", totals.Total)
	}
}
