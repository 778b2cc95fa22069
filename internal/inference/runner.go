// Package inference runs a model over benchmark entries to produce a
// predictions file that the scoring pipeline can consume.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stellarlinkco/cotbench/internal/dataset"
	"github.com/stellarlinkco/cotbench/internal/llm"
)

// SystemPrompt instructs the model to name the first flawed reasoning step.
const SystemPrompt = `You are an expert in logical consistency checking.

You are given:
- A visual reasoning question,
- A step-by-step chain-of-thought reasoning to justify the answer,
- A list of step labels (e.g., "Step 1", ..., "Step n", "None of the steps are incorrect").

Your task is to determine:
→ At which step the reasoning first becomes flawed, if any.
→ If all reasoning is valid, return: "None of the steps are incorrect".

Return exactly one of the step labels as your final answer. Do not explain your answer.`

// Runner drives one inference pass over a benchmark file.
type Runner struct {
	Provider llm.Provider

	// PredictionKey names the output field; empty means "<provider>_prediction".
	PredictionKey string

	// Progress receives per-entry status lines; nil silences it.
	Progress io.Writer
}

// Stats summarizes one inference pass.
type Stats struct {
	Total   int
	Errored int
}

// Run loads the benchmark, queries the provider per entry, and writes every
// input record augmented with the prediction field to outputPath as JSONL.
// Provider failures are recorded in-band as "[ERROR] ..." values so a pass
// always yields a complete output file.
func (r *Runner) Run(ctx context.Context, inputPath, outputPath string) (Stats, error) {
	var stats Stats
	if r == nil || r.Provider == nil {
		return stats, errors.New("inference: nil provider")
	}
	if ctx == nil {
		return stats, errors.New("inference: nil context")
	}

	entries, err := dataset.LoadFile(inputPath)
	if err != nil {
		return stats, err
	}

	out, err := os.Create(strings.TrimSpace(outputPath))
	if err != nil {
		return stats, fmt.Errorf("inference: create %q: %w", outputPath, err)
	}
	defer out.Close()

	key := strings.TrimSpace(r.PredictionKey)
	if key == "" {
		key = r.Provider.Name() + "_prediction"
	}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stats.Total++
		prediction, err := r.runEntry(ctx, entry)
		if err != nil {
			stats.Errored++
			prediction = "[ERROR] " + err.Error()
		}
		entry[key] = prediction

		line, err := json.Marshal(entry)
		if err != nil {
			return stats, fmt.Errorf("inference: encode entry %d: %w", i+1, err)
		}
		if _, err := out.Write(append(line, '\n')); err != nil {
			return stats, fmt.Errorf("inference: write %q: %w", outputPath, err)
		}

		if r.Progress != nil {
			fmt.Fprintf(r.Progress, "[%d/%d] %s\n", i+1, len(entries), entryLabel(entry))
		}
	}

	return stats, nil
}

func (r *Runner) runEntry(ctx context.Context, entry dataset.Record) (string, error) {
	resp, err := r.Provider.Complete(ctx, &llm.Request{
		System: SystemPrompt,
		Messages: []llm.Message{{
			Role:    "user",
			Content: buildUserPrompt(entry),
		}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func buildUserPrompt(entry dataset.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n", fieldText(entry, "question_text"))
	fmt.Fprintf(&sb, "Image path: %s\n", fieldText(entry, "image"))
	fmt.Fprintf(&sb, "Step-by-step reasoning:\n%s\n\n", fieldText(entry, "corrupted_cot"))
	fmt.Fprintf(&sb, "Step options:\n%s\n", fieldText(entry, "step_options"))
	return sb.String()
}

// fieldText renders a field for prompting. Step options arrive as JSON
// arrays; keeping them in JSON form preserves the exact label strings.
func fieldText(entry dataset.Record, key string) string {
	v, ok := entry[key]
	if !ok || v == nil {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return dataset.Stringify(v)
	}
	return string(b)
}

func entryLabel(entry dataset.Record) string {
	if id, ok := entry.ID(); ok {
		return fmt.Sprintf("id=%s", dataset.Stringify(id))
	}
	return "id=?"
}
