// Package evaluator holds the matching policies that decide whether a
// normalized prediction equals ground truth. Matching is exact in both
// policies; there is no fuzzy or partial credit.
package evaluator

import "strings"

// Matcher decides equality between a predicted and an expected value.
type Matcher interface {
	Name() string
	Match(predicted, expected string) bool
}

// StepMatcher compares step labels. Labels like "Step 2" are exact benchmark
// vocabulary, so the comparison is case-sensitive.
type StepMatcher struct{}

// Name returns the matcher identifier.
func (StepMatcher) Name() string { return "step" }

// Match reports whitespace-trimmed, case-sensitive equality.
func (StepMatcher) Match(predicted, expected string) bool {
	return strings.TrimSpace(predicted) == strings.TrimSpace(expected)
}

// AnswerMatcher compares open-ended VQA answers case-insensitively.
type AnswerMatcher struct{}

// Name returns the matcher identifier.
func (AnswerMatcher) Name() string { return "answer" }

// Match reports whitespace-trimmed, case-insensitive equality.
func (AnswerMatcher) Match(predicted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(predicted), strings.TrimSpace(expected))
}
