package scoring

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stellarlinkco/cotbench/internal/dataset"
)

func TestParseTask(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Task
	}{
		{"first_error", TaskFirstError},
		{"first-error", TaskFirstError},
		{"  VQA ", TaskVQA},
	}
	for _, c := range cases {
		got, err := ParseTask(c.in)
		if err != nil || got != c.want {
			t.Fatalf("ParseTask(%q): got %q err=%v", c.in, got, err)
		}
	}

	if _, err := ParseTask("classification"); err == nil {
		t.Fatalf("expected error for unknown task")
	}
}

func TestEvaluateVQACaseInsensitive(t *testing.T) {
	t.Parallel()

	benchmark := []dataset.Record{{"id": float64(1), "vqa_answer": "cat"}}
	predictions := []dataset.Record{{"id": float64(1), "answer": "Cat"}}

	sum, err := Evaluate(predictions, benchmark, TaskVQA, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sum.Correct != 1 || sum.Valid != 1 || sum.OverallAccuracy != 1.0 {
		t.Fatalf("got correct=%d valid=%d accuracy=%v", sum.Correct, sum.Valid, sum.OverallAccuracy)
	}
	if len(sum.Mismatches) != 0 {
		t.Fatalf("unexpected mismatches: %v", sum.Mismatches)
	}
}

func TestEvaluateFirstErrorMismatch(t *testing.T) {
	t.Parallel()

	benchmark := []dataset.Record{{"id": float64(1), "first_error": "Step 2", "corruption_type": "logic"}}
	predictions := []dataset.Record{{
		"id":         float64(1),
		"prediction": "<think>reasoning</think><answer>Step 3</answer>",
	}}

	sum, err := Evaluate(predictions, benchmark, TaskFirstError, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sum.Correct != 0 || sum.Valid != 1 || sum.OverallAccuracy != 0.0 {
		t.Fatalf("got correct=%d valid=%d accuracy=%v", sum.Correct, sum.Valid, sum.OverallAccuracy)
	}
	if len(sum.Mismatches) != 1 {
		t.Fatalf("got %d mismatches, want 1", len(sum.Mismatches))
	}
	m := sum.Mismatches[0]
	if m.Predicted != "Step 3" || m.Expected != "Step 2" || m.Category != "logic" {
		t.Fatalf("mismatch: %+v", m)
	}
}

func TestEvaluateStepCaseSensitive(t *testing.T) {
	t.Parallel()

	benchmark := []dataset.Record{{"id": float64(1), "first_error": "Step 2"}}
	predictions := []dataset.Record{{"id": float64(1), "prediction": "step 2"}}

	sum, err := Evaluate(predictions, benchmark, TaskFirstError, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sum.Correct != 0 || sum.Valid != 1 {
		t.Fatalf("step match must be case-sensitive: correct=%d valid=%d", sum.Correct, sum.Valid)
	}
}

func TestEvaluateUnjoinablePrediction(t *testing.T) {
	t.Parallel()

	benchmark := []dataset.Record{{"id": float64(1), "vqa_answer": "cat"}}
	predictions := []dataset.Record{{"id": float64(99), "answer": "cat"}}

	sum, err := Evaluate(predictions, benchmark, TaskVQA, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sum.Processed != 0 || sum.Valid != 0 || sum.Missing != 0 {
		t.Fatalf("unjoinable id must be excluded: %+v", sum)
	}
	if sum.TotalPredictions != 1 || sum.TotalBenchmark != 1 {
		t.Fatalf("totals must still reflect input sizes: %+v", sum)
	}
	if sum.OverallAccuracy != 0 {
		t.Fatalf("empty denominator must give accuracy 0, got %v", sum.OverallAccuracy)
	}
}

func TestEvaluateMissingExtraction(t *testing.T) {
	t.Parallel()

	benchmark := []dataset.Record{{"id": float64(1), "first_error": "Step 2"}}
	predictions := []dataset.Record{{"id": float64(1), "notes": "no recognizable field"}}

	sum, err := Evaluate(predictions, benchmark, TaskFirstError, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sum.Processed != 1 || sum.Missing != 1 || sum.Valid != 0 {
		t.Fatalf("extraction failure must count as missing: %+v", sum)
	}
	if sum.OverallAccuracy != 0 {
		t.Fatalf("accuracy: got %v", sum.OverallAccuracy)
	}
}

func TestEvaluateMissingGroundTruthExcluded(t *testing.T) {
	t.Parallel()

	benchmark := []dataset.Record{
		{"id": float64(1), "vqa_answer": "cat"},
		{"id": float64(2)},
	}
	predictions := []dataset.Record{
		{"id": float64(1), "answer": "cat"},
		{"id": float64(2), "answer": "dog"},
	}

	sum, err := Evaluate(predictions, benchmark, TaskVQA, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sum.Processed != 1 || sum.Valid != 1 || sum.Correct != 1 {
		t.Fatalf("entry without ground truth must be excluded: %+v", sum)
	}
	if sum.OverallAccuracy != 1.0 {
		t.Fatalf("accuracy: got %v", sum.OverallAccuracy)
	}
}

func TestEvaluateGroundTruthKeyFallback(t *testing.T) {
	t.Parallel()

	benchmark := []dataset.Record{{"id": float64(1), "correct_step_label": "Step 4"}}
	predictions := []dataset.Record{{"id": float64(1), "prediction": "Step 4"}}

	sum, err := Evaluate(predictions, benchmark, TaskFirstError, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sum.Correct != 1 || sum.Valid != 1 {
		t.Fatalf("correct_step_label fallback: %+v", sum)
	}
}

func TestEvaluateDuplicateBenchmarkID(t *testing.T) {
	t.Parallel()

	benchmark := []dataset.Record{
		{"id": float64(1), "vqa_answer": "cat"},
		{"id": float64(1), "vqa_answer": "dog"},
	}
	predictions := []dataset.Record{{"id": float64(1), "answer": "dog"}}

	sum, err := Evaluate(predictions, benchmark, TaskVQA, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sum.Correct != 1 {
		t.Fatalf("last duplicate benchmark entry must win: %+v", sum)
	}
}

func TestEvaluatePerCategory(t *testing.T) {
	t.Parallel()

	benchmark := []dataset.Record{
		{"id": float64(1), "first_error": "Step 1", "corruption_type": "logic"},
		{"id": float64(2), "first_error": "Step 2", "corruption_type": "logic"},
		{"id": float64(3), "first_error": "Step 3"},
	}
	predictions := []dataset.Record{
		{"id": float64(1), "prediction": "Step 1"},
		{"id": float64(2), "prediction": "Step 9"},
		{"id": float64(3), "prediction": "Step 3"},
	}

	sum, err := Evaluate(predictions, benchmark, TaskFirstError, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := sum.PerCategory["logic"]; got != 0.5 {
		t.Fatalf("logic accuracy: got %v", got)
	}
	if got := sum.PerCategory["unknown"]; got != 1.0 {
		t.Fatalf("unlabeled entries fall under unknown: got %v", got)
	}
}

func TestEvaluateMismatchCap(t *testing.T) {
	t.Parallel()

	var benchmark, predictions []dataset.Record
	for i := 0; i < 12; i++ {
		id := float64(i)
		benchmark = append(benchmark, dataset.Record{"id": id, "first_error": "Step 1"})
		predictions = append(predictions, dataset.Record{"id": id, "prediction": fmt.Sprintf("Step %d", i+2)})
	}

	sum, err := Evaluate(predictions, benchmark, TaskFirstError, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(sum.Mismatches) != DefaultMismatchLimit {
		t.Fatalf("got %d mismatches, want %d", len(sum.Mismatches), DefaultMismatchLimit)
	}
	// Samples keep prediction input order.
	for i, m := range sum.Mismatches {
		if m.ID != float64(i) {
			t.Fatalf("sample %d: got id %v", i, m.ID)
		}
	}

	small, err := Evaluate(predictions, benchmark, TaskFirstError, Options{MismatchLimit: 3})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(small.Mismatches) != 3 {
		t.Fatalf("custom limit: got %d mismatches", len(small.Mismatches))
	}
}

func TestEvaluateInvariants(t *testing.T) {
	t.Parallel()

	benchmark := []dataset.Record{
		{"id": float64(1), "vqa_answer": "cat"},
		{"id": float64(2), "vqa_answer": "dog"},
		{"id": float64(3), "vqa_answer": "bird"},
	}
	predictions := []dataset.Record{
		{"id": float64(1), "answer": "cat"},
		{"id": float64(2), "notes": "nothing usable"},
		{"id": float64(3), "answer": "fish"},
		{"id": float64(4), "answer": "stray"},
	}

	sum, err := Evaluate(predictions, benchmark, TaskVQA, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sum.Valid != sum.Processed-sum.Missing {
		t.Fatalf("valid=%d processed=%d missing=%d", sum.Valid, sum.Processed, sum.Missing)
	}
	if sum.Correct < 0 || sum.Correct > sum.Valid {
		t.Fatalf("correct=%d out of range [0,%d]", sum.Correct, sum.Valid)
	}
	if sum.Processed != 3 || sum.Missing != 1 || sum.Correct != 1 {
		t.Fatalf("counts: %+v", sum)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	t.Parallel()

	benchmark := []dataset.Record{
		{"id": float64(1), "first_error": "Step 2", "corruption_type": "math"},
		{"id": float64(2), "first_error": "Step 5", "corruption_type": "logic"},
	}
	predictions := []dataset.Record{
		{"id": float64(1), "prediction": "Step 2"},
		{"id": float64(2), "prediction": "Step 4"},
	}

	first, err := Evaluate(predictions, benchmark, TaskFirstError, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	second, err := Evaluate(predictions, benchmark, TaskFirstError, Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ between runs:\n%+v\n%+v", first, second)
	}
}

func TestEvaluateUnknownTask(t *testing.T) {
	t.Parallel()

	if _, err := Evaluate(nil, nil, Task("bogus"), Options{}); err == nil {
		t.Fatalf("expected error for unknown task")
	}
}
