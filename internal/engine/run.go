package engine

import (
	"context"
	"fmt"
	"log"
	"time"
)

// StoppedMaxIterations is the terminal marker emitted when a run exhausts its
// iteration cap without the model producing a final answer. Downstream
// consumers detect this condition by substring; there is no structured
// signal, so the exact text is load-bearing.
const StoppedMaxIterations = "Agent stopped due to max iterations"

// Run executes the tool-calling loop until the model gives a final answer,
// the iteration cap is reached, or an error occurs. The state is modified in
// place; steps increment only on successful completion.
func Run(ctx context.Context, llm LLMClient, reg ToolRegistry, st *State, opts ChatOptions) error {
	st.Step = 0

	for st.Step < st.MaxSteps && !st.Done {
		select {
		case <-ctx.Done():
			return fmt.Errorf("execution cancelled: %w", ctx.Err())
		default:
		}

		if err := stepOnce(ctx, llm, reg, st, opts); err != nil {
			// stepOnce handles retries internally; whatever reaches here
			// is exhausted or non-retryable.
			return err
		}
		st.Step++
	}
	return nil
}

// stepOnce performs one reasoning/acting cycle: a chat call followed by the
// execution of any requested tool calls.
func stepOnce(ctx context.Context, llm LLMClient, reg ToolRegistry, st *State, opts ChatOptions) error {
	retryConfig := opts.RetryConfig
	if retryConfig == nil {
		defaults := DefaultRetryConfig()
		retryConfig = &defaults
	}

	msgs := append([]ChatMessage(nil), st.History...)

	resp, err := RetryLLMCall(ctx, retryConfig.LLMPolicy, llm, st.Model, msgs, reg.Schemas(), opts,
		func(attempt int, delay time.Duration, retryErr error) {
			log.Printf("WARNING: LLM call failed (attempt %d, retrying in %s): %v", attempt, delay, retryErr)
		})
	if err != nil {
		return fmt.Errorf("llm call failed at step %d: %w", st.Step, err)
	}

	st.Totals.Prompt += resp.Usage.Prompt
	st.Totals.Completion += resp.Usage.Completion
	st.Totals.Total += resp.Usage.Total

	st.Append(resp.Assistant)

	if len(resp.ToolCalls) == 0 {
		st.Done = true
		return nil
	}

	// Tool calls run in request order: generated code cells may depend on
	// the side effects of earlier ones (files written to the workspace).
	for _, call := range resp.ToolCalls {
		result, toolErr := RetryToolCall(ctx, retryConfig.ToolPolicy, call, reg,
			func(attempt int, delay time.Duration, retryErr error) {
				log.Printf("WARNING: tool %s failed (attempt %d, retrying in %s): %v", call.Name, attempt, delay, retryErr)
			})
		if toolErr != nil {
			// Fold tool failures back into the conversation so the model
			// can correct itself instead of aborting the whole run.
			result = fmt.Sprintf("tool error: %v", toolErr)
		}
		st.Append(ChatMessage{
			Role:    RoleTool,
			Name:    call.ID,
			Content: result,
		})
	}

	return nil
}
