// Package download fetches the images a dataset references so evaluation and
// inference can run against local files. It is a plain resumable fetch loop:
// one GET per record, bounded retries, existing files skipped.
package download

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultDir     = "downloaded_images"
	defaultTimeout = 30 * time.Second
	defaultRetries = 3
	defaultDelay   = 500 * time.Millisecond
	retryDelay     = 2 * time.Second

	// Some image hosts reject requests without a browser user agent.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Options configures a download pass. The zero value uses defaults with
// resume enabled semantics left to the caller.
type Options struct {
	Dir     string
	Resume  bool
	Timeout time.Duration
	Retries int
	Delay   time.Duration

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client

	// Progress receives per-record status lines; nil silences it.
	Progress io.Writer
}

// Stats summarizes one download pass.
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// Run walks the dataset JSONL and downloads every record that carries both an
// image path and an image URL into Dir, preserving the dataset's relative
// path layout. Records missing either field and unparseable lines are passed
// over; only a missing dataset file or a cancelled context aborts the pass.
func Run(ctx context.Context, datasetPath string, opts Options) (Stats, error) {
	var stats Stats
	if ctx == nil {
		return stats, errors.New("download: nil context")
	}

	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		dir = defaultDir
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = defaultDelay
	}

	f, err := os.Open(strings.TrimSpace(datasetPath))
	if err != nil {
		return stats, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	lineNum := 0
	for sc.Scan() {
		lineNum++
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			progressf(opts.Progress, "line %d: skipping unparseable record: %v\n", lineNum, err)
			continue
		}

		imagePath, _ := rec["image"].(string)
		imageURL, _ := rec["image_url"].(string)
		if strings.TrimSpace(imagePath) == "" || strings.TrimSpace(imageURL) == "" {
			progressf(opts.Progress, "line %d: missing image path or url, skipping\n", lineNum)
			continue
		}

		stats.Total++
		local := filepath.Join(dir, filepath.FromSlash(imagePath))

		if opts.Resume {
			if _, err := os.Stat(local); err == nil {
				stats.Skipped++
				progressf(opts.Progress, "[%d] exists, skipping %s\n", lineNum, local)
				continue
			}
		}

		if err := fetch(ctx, client, imageURL, local, retries, opts.Progress); err != nil {
			stats.Failed++
			progressf(opts.Progress, "[%d] failed %s: %v\n", lineNum, imagePath, err)
		} else {
			stats.Succeeded++
			progressf(opts.Progress, "[%d] saved %s\n", lineNum, local)
		}

		if err := sleepWithContext(ctx, delay); err != nil {
			return stats, err
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("download: read %q: %w", datasetPath, err)
	}

	return stats, nil
}

func fetch(ctx context.Context, client *http.Client, url, local string, retries int, progress io.Writer) error {
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, retryDelay); err != nil {
				return err
			}
		}

		lastErr = fetchOnce(ctx, client, url, local)
		if lastErr == nil {
			return nil
		}
		progressf(progress, "  attempt %d/%d failed: %v\n", attempt+1, retries, lastErr)
	}
	return lastErr
}

func fetchOnce(ctx context.Context, client *http.Client, url, local string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download: unexpected status %s", resp.Status)
	}

	if dir := filepath.Dir(local); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("download: create dir: %w", err)
		}
	}

	out, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("download: create file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(local)
		return fmt.Errorf("download: write file: %w", err)
	}
	return out.Close()
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func progressf(w io.Writer, format string, args ...any) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, format, args...)
}
