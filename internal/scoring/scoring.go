// Package scoring joins prediction records to benchmark entries and
// aggregates accuracy overall and per corruption type. Evaluate is a pure
// function of its inputs: no state survives between runs.
package scoring

import (
	"fmt"
	"strings"

	"github.com/stellarlinkco/cotbench/internal/dataset"
	"github.com/stellarlinkco/cotbench/internal/evaluator"
	"github.com/stellarlinkco/cotbench/internal/extract"
)

// DefaultMismatchLimit caps the mismatch sample kept for manual review.
const DefaultMismatchLimit = 10

// Task selects ground-truth fields, the extraction cascade, and the matching
// policy for one benchmark flavor.
type Task string

const (
	// TaskFirstError scores identification of the first flawed reasoning step.
	TaskFirstError Task = "first_error"
	// TaskVQA scores open-ended visual question answering.
	TaskVQA Task = "vqa"
)

// ParseTask resolves a user-supplied task name.
func ParseTask(s string) (Task, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first_error", "first-error":
		return TaskFirstError, nil
	case "vqa":
		return TaskVQA, nil
	default:
		return "", fmt.Errorf("scoring: unknown task %q (expected first-error|vqa)", s)
	}
}

// GroundTruthKeys lists the benchmark fields holding ground truth, in
// precedence order. Both step-task names are kept: benchmark files exist with
// either, and the first present non-null wins.
func (t Task) GroundTruthKeys() []string {
	switch t {
	case TaskFirstError:
		return []string{"first_error", "correct_step_label"}
	case TaskVQA:
		return []string{"vqa_answer"}
	default:
		return nil
	}
}

// Cascade returns the task's extraction cascade.
func (t Task) Cascade() extract.Cascade {
	if t == TaskVQA {
		return extract.VQA()
	}
	return extract.FirstError()
}

// Matcher returns the task's matching policy.
func (t Task) Matcher() evaluator.Matcher {
	if t == TaskVQA {
		return evaluator.AnswerMatcher{}
	}
	return evaluator.StepMatcher{}
}

// Options tunes aggregation. The zero value uses defaults.
type Options struct {
	// MismatchLimit bounds the mismatch sample; <= 0 means DefaultMismatchLimit.
	MismatchLimit int
}

// Mismatch is one incorrect prediction retained for manual review.
type Mismatch struct {
	ID        any    `json:"id"`
	Predicted string `json:"predicted"`
	Expected  string `json:"expected"`
	Category  string `json:"category"`
}

// Summary aggregates one evaluation run.
//
// Valid is always Processed minus Missing; OverallAccuracy is
// Correct/Valid, or 0 when no prediction was scoreable (an empty run is a
// reportable state, not an error).
type Summary struct {
	Task             Task               `json:"task"`
	OverallAccuracy  float64            `json:"overall_accuracy"`
	Correct          int                `json:"correct_predictions"`
	Valid            int                `json:"valid_predictions"`
	TotalBenchmark   int                `json:"total_benchmark_entries"`
	TotalPredictions int                `json:"total_predictions"`
	Processed        int                `json:"processed_predictions"`
	Missing          int                `json:"missing_predictions"`
	PerCategory      map[string]float64 `json:"per_category_accuracy"`
	Mismatches       []Mismatch         `json:"mismatches_sample,omitempty"`
}

// Evaluate scores predictions against the benchmark for one task.
//
// Predictions are visited in input order. A prediction is excluded outright
// when its id is absent from the benchmark index or the matched benchmark
// entry has no ground truth; it counts as missing when no extraction rule
// yields an answer. Duplicate benchmark ids resolve to the last entry.
func Evaluate(predictions, benchmark []dataset.Record, task Task, opts Options) (*Summary, error) {
	if len(task.GroundTruthKeys()) == 0 {
		return nil, fmt.Errorf("scoring: unknown task %q", task)
	}

	limit := opts.MismatchLimit
	if limit <= 0 {
		limit = DefaultMismatchLimit
	}

	index := make(map[any]dataset.Record, len(benchmark))
	for _, entry := range benchmark {
		if id, ok := entry.ID(); ok {
			index[id] = entry
		}
	}

	cascade := task.Cascade()
	matcher := task.Matcher()

	sum := &Summary{
		Task:             task,
		TotalBenchmark:   len(benchmark),
		TotalPredictions: len(predictions),
		PerCategory:      make(map[string]float64),
	}
	catTotal := make(map[string]int)
	catCorrect := make(map[string]int)

	for _, pred := range predictions {
		id, ok := pred.ID()
		if !ok {
			continue
		}
		entry, ok := index[id]
		if !ok {
			continue
		}

		truth, ok := groundTruth(entry, task)
		if !ok {
			continue
		}

		sum.Processed++
		category := categoryOf(entry)
		catTotal[category]++

		predicted, ok := cascade.Extract(pred)
		if !ok {
			sum.Missing++
			continue
		}

		if matcher.Match(predicted, truth) {
			sum.Correct++
			catCorrect[category]++
			continue
		}
		if len(sum.Mismatches) < limit {
			sum.Mismatches = append(sum.Mismatches, Mismatch{
				ID:        id,
				Predicted: predicted,
				Expected:  truth,
				Category:  category,
			})
		}
	}

	sum.Valid = sum.Processed - sum.Missing
	if sum.Valid > 0 {
		sum.OverallAccuracy = float64(sum.Correct) / float64(sum.Valid)
	}
	for category, total := range catTotal {
		if total > 0 {
			sum.PerCategory[category] = float64(catCorrect[category]) / float64(total)
		} else {
			sum.PerCategory[category] = 0
		}
	}

	return sum, nil
}

func groundTruth(entry dataset.Record, task Task) (string, bool) {
	for _, key := range task.GroundTruthKeys() {
		if v, ok := entry.String(key); ok {
			return v, true
		}
	}
	return "", false
}

func categoryOf(entry dataset.Record) string {
	if v, ok := entry.String("corruption_type"); ok {
		return v
	}
	return "unknown"
}
