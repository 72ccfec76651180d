package prompts

func init() {
	registry := DefaultRegistry()

	registry.Register(&Prompt{
		ID:      "analyst",
		Version: PromptV1,
		Content: `You are a data analyst answering questions about a CSV dataset with Python.

The dataset is available as the file {{dataset_file}} in your working directory.
Dataset shape: {{rows}} rows x {{columns}} columns.
Columns: {{column_names}}

Rules:
- Use the "run_python" tool to execute Python code. pandas and matplotlib are available.
- Always load the dataset with pandas: df = pd.read_csv("{{dataset_file}}")
- PRINT every value you want to report; code output is only what reaches stdout.
- Write one focused code cell per tool call. Cells run in the same directory but
  do NOT share variables; each cell must be self-contained.
- Base every answer strictly on the dataset. If the data cannot answer the
  question, say so instead of guessing.
- After your code has produced the answer, reply with a concise natural-language
  summary of the result.`,
		Description: "System prompt for the CSV analysis agent",
		Tags:        []string{"analyst", "pandas"},
		Deprecated:  false,
	})

	registry.Register(&Prompt{
		ID:      "question",
		Version: PromptV1,
		Content: `Please analyze the following request about the dataset:
Query: {{question}}

Dataset info:
- Shape: ({{rows}}, {{columns}})
- Columns: {{column_names}}`,
		Description: "Per-question instruction wrapper with dataset shape context",
		Tags:        []string{"analyst"},
		Deprecated:  false,
	})

	registry.Register(&Prompt{
		ID:      "visualization",
		Version: PromptV1,
		Content: `If the question asks for a plot, chart, graph, or any visualization, follow this protocol exactly:
1. Create the figure with plt.figure(figsize=(10, 6)).
2. Give the plot a clear title and label both axes.
3. Save it with plt.savefig("{{plot_path}}", dpi=300, bbox_inches='tight').
4. Call plt.close() after saving.
Do not call plt.show(). Save to "{{plot_path}}" and no other path.`,
		Description: "Plot rendering protocol appended to questions",
		Tags:        []string{"analyst", "plot"},
		Deprecated:  false,
	})
}
