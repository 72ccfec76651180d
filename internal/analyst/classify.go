package analyst

import (
	"fmt"
	"strings"

	"github.com/hbenali/csvchat/internal/engine"
)

// iterationLimitMarkers are the substrings that identify an engine run cut
// short by its step cap. The engine has no structured signal for this
// condition, so classification is text matching; keeping the strings here
// means control flow never changes when a marker does.
var iterationLimitMarkers = []string{
	engine.StoppedMaxIterations,
}

// hitIterationLimit reports whether the text carries an iteration-limit
// marker.
func hitIterationLimit(text string) bool {
	for _, m := range iterationLimitMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// softenOutput rewrites an iteration-limited response into a user-facing
// message that keeps whatever partial analysis survived. The second return
// is true when a rewrite happened.
func softenOutput(output string) (string, bool) {
	if !hitIterationLimit(output) {
		return output, false
	}

	partial := output
	for _, m := range iterationLimitMarkers {
		partial = strings.ReplaceAll(partial, m, "")
	}
	partial = strings.TrimSpace(partial)

	softened := "**Analysis Results:**\nThe analysis was extensive and reached the iteration limit, but here's what was processed:\n" + partial
	softened += "\n\n💡 **Tip:** The analysis was comprehensive but hit the iteration limit. The results above show the insights discovered. You can ask more specific questions to get detailed analysis on particular aspects of your data."
	return softened, true
}

// classifyError converts an engine failure into the user-facing output for a
// failed QueryResult. Iteration-limit failures get an actionable message;
// everything else is surfaced verbatim inside a generic wrapper.
func classifyError(err error) string {
	if hitIterationLimit(err.Error()) {
		return "The analysis was quite extensive and reached the processing limit. " +
			"Let me try to provide what insights were discovered. " +
			"Try asking a more specific question about your data " +
			"(e.g., 'Show me correlations between columns' or 'Create a histogram of column X') for faster results."
	}
	return fmt.Sprintf("Error processing query: %v", err)
}
