package analyst

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hbenali/csvchat/internal/dataset"
	"github.com/hbenali/csvchat/internal/prompts"
)

// datasetFile is the name the active dataset is written under in the session
// workspace. Generated code loads it from there.
const datasetFile = "data.csv"

// buildSystemPrompt renders the analyst system prompt with the active
// dataset's shape and columns baked in.
func buildSystemPrompt(ds *dataset.Dataset) (string, error) {
	rows, cols := ds.Shape()

	builder, err := prompts.NewPromptBuilder(prompts.DefaultRegistry(), "analyst")
	if err != nil {
		return "", fmt.Errorf("failed to build analyst prompt: %w", err)
	}

	return builder.
		SetVariable("dataset_file", datasetFile).
		SetVariable("rows", strconv.Itoa(rows)).
		SetVariable("columns", strconv.Itoa(cols)).
		SetVariable("column_names", strings.Join(ds.ColumnNames(), ", ")).
		Build()
}

// buildInstruction composes the per-question instruction: the raw question,
// the dataset shape, and the visualization protocol pointing at the plot
// file reserved for this question.
func buildInstruction(ds *dataset.Dataset, question, plotName string) (string, error) {
	registry := prompts.DefaultRegistry()

	viz, err := registry.GetLatest("visualization")
	if err != nil {
		return "", fmt.Errorf("failed to get visualization prompt: %w", err)
	}

	builder, err := prompts.NewPromptBuilder(registry, "question")
	if err != nil {
		return "", fmt.Errorf("failed to build question prompt: %w", err)
	}

	rows, cols := ds.Shape()
	return builder.
		AddFragment(viz.Content).
		SetVariable("question", question).
		SetVariable("rows", strconv.Itoa(rows)).
		SetVariable("columns", strconv.Itoa(cols)).
		SetVariable("column_names", strings.Join(ds.ColumnNames(), ", ")).
		SetVariable("plot_path", plotName).
		Build()
}
