package engine

import (
	"context"
)

// DefaultMaxIterations caps how many reasoning/acting cycles a single
// question may consume before the run is cut short.
const DefaultMaxIterations = 10

// AgentConfig holds configuration for an agent instance.
type AgentConfig struct {
	Model           string
	MaxIterations   int
	Temperature     float32
	MaxOutputTokens int
	RetryConfig     *RetryConfig
}

// Agent runs user questions through the loop while preserving conversation
// history across calls. It is not safe for concurrent use; callers serialize
// questions per session.
type Agent struct {
	llm       LLMClient
	tools     ToolRegistry
	config    AgentConfig
	system    string
	lastState *State
}

// NewAgent creates an agent with the given client, tools and system prompt.
func NewAgent(llm LLMClient, tools ToolRegistry, system string, config AgentConfig) *Agent {
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultMaxIterations
	}
	if config.MaxOutputTokens <= 0 {
		config.MaxOutputTokens = 4096
	}
	return &Agent{
		llm:    llm,
		tools:  tools,
		config: config,
		system: system,
	}
}

// Run executes a single user message and returns the model's final text.
// If the iteration cap is exhausted before the model finishes, the returned
// text carries whatever partial answer exists followed by the
// StoppedMaxIterations marker; that is a normal return, not an error.
func (a *Agent) Run(ctx context.Context, userMessage string) (string, error) {
	st := a.nextState()
	st.Append(ChatMessage{Role: RoleUser, Content: userMessage})

	opts := ChatOptions{
		Temperature:     a.config.Temperature,
		MaxOutputTokens: a.config.MaxOutputTokens,
		RetryConfig:     a.config.RetryConfig,
	}

	err := Run(ctx, a.llm, a.tools, st, opts)
	a.lastState = st
	if err != nil {
		return "", err
	}

	if st.Done {
		return st.LastAssistantText(), nil
	}

	out := st.LastAssistantText()
	if out != "" {
		out += "\n\n"
	}
	return out + StoppedMaxIterations, nil
}

// nextState builds the state for the next run, carrying over history and
// token totals from previous runs of the same agent.
func (a *Agent) nextState() *State {
	if a.lastState != nil && len(a.lastState.History) > 0 {
		st := &State{
			History:  make([]ChatMessage, len(a.lastState.History)),
			Model:    a.config.Model,
			MaxSteps: a.config.MaxIterations,
			Totals:   a.lastState.Totals,
		}
		copy(st.History, a.lastState.History)
		return st
	}
	return &State{
		History:  []ChatMessage{{Role: RoleSystem, Content: a.system}},
		Model:    a.config.Model,
		MaxSteps: a.config.MaxIterations,
	}
}

// TokenTotals returns accumulated token usage across all runs.
func (a *Agent) TokenTotals() Usage {
	if a.lastState == nil {
		return Usage{}
	}
	return a.lastState.Totals
}
