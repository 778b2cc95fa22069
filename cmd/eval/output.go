package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/stellarlinkco/cotbench/internal/scoring"
)

type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
)

func parseOutputFormat(s string) OutputFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table":
		return FormatTable
	case "json", "jsonl":
		return FormatJSON
	default:
		return ""
	}
}

func resolveOutputFormat(flagValue string, configValue string) (OutputFormat, error) {
	if strings.TrimSpace(flagValue) != "" {
		out := parseOutputFormat(flagValue)
		if out == "" {
			return "", fmt.Errorf("invalid --output %q (expected table|json)", flagValue)
		}
		return out, nil
	}
	if out := parseOutputFormat(configValue); out != "" {
		return out, nil
	}
	return FormatTable, nil
}

func FormatSummary(sum *scoring.Summary, format OutputFormat) string {
	switch format {
	case FormatTable:
		return formatSummaryTable(sum)
	case FormatJSON:
		return formatSummaryJSON(sum)
	default:
		return fmt.Sprintf("error: unknown output format %q\n", format)
	}
}

func formatSummaryTable(sum *scoring.Summary) string {
	if sum == nil {
		return "no evaluation summary\n"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Task: %s\n", sum.Task)
	fmt.Fprintf(&buf, "Overall Accuracy: %.4f (%d/%d)\n", sum.OverallAccuracy, sum.Correct, sum.Valid)
	fmt.Fprintf(&buf, "Processed Predictions: %d/%d\n", sum.Processed, sum.TotalPredictions)
	if sum.Missing > 0 {
		pct := float64(sum.Missing) / float64(sum.Processed) * 100
		fmt.Fprintf(&buf, "Missing/Failed Predictions: %d (%.1f%%)\n", sum.Missing, pct)
	}

	if len(sum.PerCategory) > 0 {
		buf.WriteString("\nAccuracy by Corruption Type:\n")
		categories := make([]string, 0, len(sum.PerCategory))
		for c := range sum.PerCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)

		tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tACCURACY")
		for _, c := range categories {
			fmt.Fprintf(tw, "%s\t%.4f\n", c, sum.PerCategory[c])
		}
		_ = tw.Flush()
	}

	if len(sum.Mismatches) > 0 {
		buf.WriteString("\nSample of Mismatched Predictions:\n")
		for _, m := range sum.Mismatches {
			fmt.Fprintf(&buf, "  ID %v (type: %s):\n", m.ID, m.Category)
			fmt.Fprintf(&buf, "    - Predicted: '%s'\n", m.Predicted)
			fmt.Fprintf(&buf, "    - Expected:  '%s'\n", m.Expected)
		}
	}

	buf.WriteByte('\n')
	return buf.String()
}

func formatSummaryJSON(sum *scoring.Summary) string {
	if sum == nil {
		return "{\"error\":\"nil evaluation summary\"}\n"
	}
	b, err := json.Marshal(sum)
	if err != nil {
		return fmt.Sprintf("{\"error\":%q}\n", err.Error())
	}
	return string(b) + "\n"
}
