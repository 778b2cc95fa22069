package extract

import (
	"strings"
	"testing"

	"github.com/stellarlinkco/cotbench/internal/dataset"
)

func TestFirstErrorThinkingTags(t *testing.T) {
	t.Parallel()

	c := FirstError()

	{
		rec := dataset.Record{"prediction": "<think>long reasoning here</think><answer>Step 3</answer>"}
		v, ok := c.Extract(rec)
		if !ok || v != "Step 3" {
			t.Fatalf("answer tag: got %q ok=%v", v, ok)
		}
	}
	{
		rec := dataset.Record{"prediction": "<think>hm</think><answer><|begin_of_box|>Step 2<|end_of_box|></answer>"}
		v, ok := c.Extract(rec)
		if !ok || v != "Step 2" {
			t.Fatalf("boxed answer: got %q ok=%v", v, ok)
		}
	}
	{
		rec := dataset.Record{"prediction": "<think>hm</think><|begin_of_box|>Step 5<|end_of_box|>"}
		v, ok := c.Extract(rec)
		if !ok || v != "Step 5" {
			t.Fatalf("box without answer tag: got %q ok=%v", v, ok)
		}
	}
}

func TestFirstErrorThinkingBeatsKeyScan(t *testing.T) {
	t.Parallel()

	rec := dataset.Record{
		"prediction":       "<think>x</think><answer>Step 1</answer>",
		"model_prediction": "Step 9",
	}
	v, ok := FirstError().Extract(rec)
	if !ok || v != "Step 1" {
		t.Fatalf("thinking must win over key scan: got %q ok=%v", v, ok)
	}
}

func TestFirstErrorCanonicalKeys(t *testing.T) {
	t.Parallel()

	c := FirstError()

	{
		rec := dataset.Record{"prediction": "Step 4"}
		v, ok := c.Extract(rec)
		if !ok || v != "Step 4" {
			t.Fatalf("plain prediction: got %q ok=%v", v, ok)
		}
	}
	{
		rec := dataset.Record{"answer": "  Step 2  "}
		v, ok := c.Extract(rec)
		if !ok || v != "Step 2" {
			t.Fatalf("answer fallback: got %q ok=%v", v, ok)
		}
	}
	{
		// Non-string values take their decoded string form.
		rec := dataset.Record{"prediction": float64(3)}
		v, ok := c.Extract(rec)
		if !ok || v != "3" {
			t.Fatalf("numeric prediction: got %q ok=%v", v, ok)
		}
	}
	{
		// Null canonical key falls through to the next one.
		rec := dataset.Record{"prediction": nil, "answer": "Step 6"}
		v, ok := c.Extract(rec)
		if !ok || v != "Step 6" {
			t.Fatalf("null prediction: got %q ok=%v", v, ok)
		}
	}
}

func TestFirstErrorAssistantTurn(t *testing.T) {
	t.Parallel()

	rec := dataset.Record{"prediction": "User: which step?\nAssistant: Step 7.\nSome trailing text"}
	v, ok := FirstError().Extract(rec)
	if !ok || v != "Step 7" {
		t.Fatalf("assistant turn: got %q ok=%v", v, ok)
	}
}

func TestFirstErrorAnswerLabel(t *testing.T) {
	t.Parallel()

	c := FirstError()

	{
		rec := dataset.Record{"prediction": "Reasoning...\nFinal Answer: **Step 2**\nmore text"}
		v, ok := c.Extract(rec)
		if !ok || v != "Step 2" {
			t.Fatalf("labeled answer: got %q ok=%v", v, ok)
		}
	}
	{
		// Marker present but nothing after it: fall back to the last
		// "key: value" tail.
		rec := dataset.Record{"prediction": "verdict: Step 8\nFinal Answer:"}
		v, ok := c.Extract(rec)
		if !ok || v != "Step 8" {
			t.Fatalf("line-scan fallback: got %q ok=%v", v, ok)
		}
	}
}

func TestFirstErrorKeyScan(t *testing.T) {
	t.Parallel()

	rec := dataset.Record{"gpt4o_prediction": "Step 3", "question": "ignored"}
	v, ok := FirstError().Extract(rec)
	if !ok || v != "Step 3" {
		t.Fatalf("key scan: got %q ok=%v", v, ok)
	}
}

func TestFirstErrorNoAnswer(t *testing.T) {
	t.Parallel()

	c := FirstError()
	rec := dataset.Record{"question": "what", "id": float64(1)}

	if _, ok := c.Extract(rec); ok {
		t.Fatalf("expected missing extraction")
	}

	_, err := c.ExtractStrict(rec)
	if err == nil {
		t.Fatalf("strict path must fail")
	}
	if !strings.Contains(err.Error(), "id") || !strings.Contains(err.Error(), "question") {
		t.Fatalf("strict error should list available keys: %v", err)
	}
}

func TestNormalizeFreeText(t *testing.T) {
	t.Parallel()

	{
		rec := dataset.Record{"prediction": "<think>x</think><answer>Answer: Step 2...</answer>"}
		v, ok := FirstError().Extract(rec)
		if !ok || v != "Step 2" {
			t.Fatalf("prefix+punctuation: got %q ok=%v", v, ok)
		}
	}
	{
		rec := dataset.Record{"prediction": "<think>x</think><answer>The answer is: Step 4!!</answer>"}
		v, ok := FirstError().Extract(rec)
		if !ok || v != "Step 4" {
			t.Fatalf("the-answer-is prefix: got %q ok=%v", v, ok)
		}
	}
}

func TestVQACascade(t *testing.T) {
	t.Parallel()

	c := VQA()

	{
		rec := dataset.Record{"vqa_answer": " yes ", "answer": "no"}
		v, ok := c.Extract(rec)
		if !ok || v != "yes" {
			t.Fatalf("vqa_answer wins: got %q ok=%v", v, ok)
		}
	}
	{
		rec := dataset.Record{"vqa_prediction": "blue"}
		v, ok := c.Extract(rec)
		if !ok || v != "blue" {
			t.Fatalf("vqa_prediction fallback: got %q ok=%v", v, ok)
		}
	}
	{
		rec := dataset.Record{"answer": "cat"}
		v, ok := c.Extract(rec)
		if !ok || v != "cat" {
			t.Fatalf("answer fallback: got %q ok=%v", v, ok)
		}
	}
	{
		rec := dataset.Record{"model_vqa_answer_raw": "dog"}
		v, ok := c.Extract(rec)
		if !ok || v != "dog" {
			t.Fatalf("vqa+answer key scan: got %q ok=%v", v, ok)
		}
	}
	{
		rec := dataset.Record{"question": "what color"}
		if _, ok := c.Extract(rec); ok {
			t.Fatalf("expected missing extraction")
		}
	}
}

func TestVQAThinkingTags(t *testing.T) {
	t.Parallel()

	rec := dataset.Record{"answer": "<think>looking...</think><answer>green</answer>"}
	v, ok := VQA().Extract(rec)
	if !ok || v != "green" {
		t.Fatalf("vqa thinking: got %q ok=%v", v, ok)
	}
}

func TestKeyScanDeterminism(t *testing.T) {
	t.Parallel()

	// Two matching keys: the lexicographically first must win every time.
	rec := dataset.Record{
		"b_prediction": "Step 2",
		"a_prediction": "Step 1",
	}
	for i := 0; i < 20; i++ {
		v, ok := FirstError().Extract(rec)
		if !ok || v != "Step 1" {
			t.Fatalf("run %d: got %q ok=%v", i, v, ok)
		}
	}
}
