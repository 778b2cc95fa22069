package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Record is one line of a JSONL file, decoded as-is. Benchmark and prediction
// files share this shape because prediction fields vary across model output
// formats.
type Record map[string]any

// LoadFile reads a line-delimited JSON file into records, one per non-blank
// line. A line that is not valid JSON fails the whole load with an error
// naming the line; a missing file surfaces the open error unchanged.
func LoadFile(path string) ([]Record, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("dataset: empty jsonl path")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var out []Record
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("dataset: parse %q line %d: %w", path, lineNum, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read %q: %w", path, err)
	}
	return out, nil
}

// ID returns the record's join key. Only comparable scalars are usable as
// map keys, so composite values are rejected along with absent/null ids.
func (r Record) ID() (any, bool) {
	v, ok := r["id"]
	if !ok || v == nil {
		return nil, false
	}
	switch v.(type) {
	case string, float64, bool, int, int64, json.Number:
		return v, true
	default:
		return nil, false
	}
}

// String returns the trimmed string form of a field, reporting whether the
// field is present and non-null. Non-string scalars are formatted the way
// encoding/json decoded them.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	return strings.TrimSpace(Stringify(v)), true
}

// Stringify renders a decoded JSON value as a string. Floats that carry no
// fractional part print without a trailing ".0" so numeric ids and labels
// round-trip the way they were written.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
