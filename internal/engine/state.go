package engine

// State tracks one conversation run through the loop.
type State struct {
	History  []ChatMessage // conversation history, system prompt first
	Step     int           // current step (increments only on success)
	Done     bool          // true when the model answers without tool calls
	Model    string        // LLM model name
	MaxSteps int           // iteration cap before stopping
	Totals   Usage         // accumulated token usage across all calls
}

func (s *State) Append(msg ChatMessage) { s.History = append(s.History, msg) }

// LastAssistantText returns the content of the most recent assistant message.
func (s *State) LastAssistantText() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleAssistant && s.History[i].Content != "" {
			return s.History[i].Content
		}
	}
	return ""
}
