// Package extract derives a single normalized answer string from a model
// prediction record. Model output formats vary widely, so extraction runs an
// ordered cascade of format-specific rules before generic fallbacks; the
// first applicable rule wins.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/stellarlinkco/cotbench/internal/dataset"
)

var (
	answerTagRe    = regexp.MustCompile(`(?s)<answer>(.*?)</answer>`)
	boxedAnswerRe  = regexp.MustCompile(`(?s)<\|begin_of_box\|>(.*?)<\|end_of_box\|>`)
	assistantRe    = regexp.MustCompile(`(?s)Assistant:\s*(.+?)(?:\n|$)`)
	answerLabelRe  = regexp.MustCompile(`(?i)(?:Final Answer:|Answer:)\s*([^\n]+)`)
	emphasisRe     = regexp.MustCompile(`\*+`)
	trailingStopRe = regexp.MustCompile(`[.!?]+$`)
	leadingLabelRe = regexp.MustCompile(`(?i)^(Answer:|The answer is:?|Response:)\s*`)
)

// Rule is one extraction strategy. Apply reports whether the rule produced an
// answer for the record.
type Rule struct {
	Name  string
	Apply func(rec dataset.Record) (string, bool)
}

// Cascade is an ordered rule list for one task. Rules are tried in order and
// the first hit is returned, so format-specific rules always shadow the
// generic key scan.
type Cascade struct {
	task  string
	rules []Rule
}

// Task names the task this cascade extracts for.
func (c Cascade) Task() string { return c.task }

// Extract runs the cascade. ok is false when no rule applies; that is a
// missing-extraction signal, distinct from an empty answer.
func (c Cascade) Extract(rec dataset.Record) (string, bool) {
	for _, rule := range c.rules {
		if v, ok := rule.Apply(rec); ok {
			return v, true
		}
	}
	return "", false
}

// ExtractStrict is the single-record debugging path: instead of a silent
// missing-extraction signal it fails with the record's available keys.
func (c Cascade) ExtractStrict(rec dataset.Record) (string, error) {
	if v, ok := c.Extract(rec); ok {
		return v, nil
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "", fmt.Errorf("extract: no %s answer in record (keys: %s)", c.task, strings.Join(keys, ", "))
}

// FirstError builds the cascade for first-error-detection predictions.
func FirstError() Cascade {
	return Cascade{
		task: "first_error",
		rules: []Rule{
			thinkingRule("prediction"),
			canonicalRule("prediction", "answer"),
			keyScanRule("prediction"),
		},
	}
}

// VQA builds the cascade for VQA predictions.
func VQA() Cascade {
	return Cascade{
		task: "vqa",
		rules: []Rule{
			thinkingRule("vqa_answer", "vqa_prediction", "answer"),
			canonicalRule("vqa_answer", "vqa_prediction", "answer"),
			keyScanRule("vqa", "answer"),
		},
	}
}

// thinkingRule handles chain-of-thought outputs that wrap reasoning in
// <think> tags and bury the answer in nested <answer> / boxed markup.
func thinkingRule(fields ...string) Rule {
	return Rule{
		Name: "thinking",
		Apply: func(rec dataset.Record) (string, bool) {
			for _, field := range fields {
				s, ok := rec[field].(string)
				if !ok || !strings.Contains(s, "<think>") {
					continue
				}
				return normalizeFreeText(extractThinking(s)), true
			}
			return "", false
		},
	}
}

// canonicalRule takes the first present non-null key. String values carrying
// a known turn marker or answer label get the matching sub-extractor; plain
// values are used in trimmed string form.
func canonicalRule(keys ...string) Rule {
	return Rule{
		Name: "canonical",
		Apply: func(rec dataset.Record) (string, bool) {
			for _, key := range keys {
				v, ok := rec[key]
				if !ok || v == nil {
					continue
				}
				if s, isStr := v.(string); isStr {
					if strings.Contains(s, "Assistant:") {
						return extractAssistantTurn(s), true
					}
					if strings.Contains(s, "Final Answer:") {
						return extractLabeledAnswer(s), true
					}
				}
				return strings.TrimSpace(dataset.Stringify(v)), true
			}
			return "", false
		},
	}
}

// keyScanRule is the last-resort duck-typed field discovery: any key whose
// lowercase name contains every given substring. Keys are scanned in sorted
// order so the result does not depend on map iteration.
func keyScanRule(substrings ...string) Rule {
	return Rule{
		Name: "key-scan",
		Apply: func(rec dataset.Record) (string, bool) {
			keys := make([]string, 0, len(rec))
			for k := range rec {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				lower := strings.ToLower(k)
				match := true
				for _, sub := range substrings {
					if !strings.Contains(lower, sub) {
						match = false
						break
					}
				}
				if !match || rec[k] == nil {
					continue
				}
				return strings.TrimSpace(dataset.Stringify(rec[k])), true
			}
			return "", false
		},
	}
}

func extractThinking(text string) string {
	if m := answerTagRe.FindStringSubmatch(text); m != nil {
		content := strings.TrimSpace(m[1])
		if bm := boxedAnswerRe.FindStringSubmatch(content); bm != nil {
			return strings.TrimSpace(bm[1])
		}
		return content
	}
	if bm := boxedAnswerRe.FindStringSubmatch(text); bm != nil {
		return strings.TrimSpace(bm[1])
	}
	return strings.TrimSpace(text)
}

func extractAssistantTurn(text string) string {
	if m := assistantRe.FindStringSubmatch(text); m != nil {
		return normalizeFreeText(m[1])
	}
	return strings.TrimSpace(text)
}

func extractLabeledAnswer(text string) string {
	if m := answerLabelRe.FindStringSubmatch(text); m != nil {
		return normalizeFreeText(emphasisRe.ReplaceAllString(m[1], ""))
	}

	// No label line matched despite the marker; take the last "key: value"
	// tail, which is where these formats put the verdict.
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if idx := strings.Index(lines[i], ":"); idx >= 0 {
			if tail := strings.TrimSpace(lines[i][idx+1:]); tail != "" {
				return tail
			}
		}
	}
	return strings.TrimSpace(text)
}

// normalizeFreeText trims, strips leading answer-label prefixes, and
// collapses trailing sentence punctuation on free-text answers.
func normalizeFreeText(s string) string {
	s = strings.TrimSpace(s)
	s = leadingLabelRe.ReplaceAllString(s, "")
	s = trailingStopRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
