// Package history keeps an append-only JSONL log of saved evaluation runs.
// JSONL is the only persistence format in this tool, so the log is a plain
// file and each saved run is one line.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stellarlinkco/cotbench/internal/scoring"
)

const DefaultPath = "data/history.jsonl"

// Entry records one saved evaluation run.
type Entry struct {
	Timestamp   time.Time        `json:"timestamp"`
	Task        scoring.Task     `json:"task"`
	Predictions string           `json:"prediction_file"`
	Benchmark   string           `json:"benchmark_file"`
	Summary     *scoring.Summary `json:"summary"`
}

// Append writes one entry to the end of the log, creating the file and its
// directory as needed.
func Append(path string, e *Entry) error {
	if e == nil {
		return errors.New("history: nil entry")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("history: create dir: %w", err)
		}
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("history: encode entry: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("history: open %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("history: write %q: %w", path, err)
	}
	return nil
}

// List returns all saved entries, oldest first. A log that does not exist
// yet is an empty history, not an error.
func List(path string) ([]*Entry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var out []*Entry
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("history: parse %q line %d: %w", path, lineNum, err)
		}
		out = append(out, &e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("history: read %q: %w", path, err)
	}
	return out, nil
}
