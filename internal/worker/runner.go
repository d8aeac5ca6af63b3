package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"tessera/internal/port"
)

// SpawnError reports that the worker process could not be started.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string { return fmt.Sprintf("spawning worker: %v", e.Err) }
func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError reports a worker process that started but exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("worker exited with code %d", e.Code)
}

// ParseError reports worker output that contained no usable result
// block. Raw preserves the full stdout for diagnosis.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing worker output: %s", e.Reason)
}

// Markers recognized in legacy free-text worker output.
const (
	markerRunStarted = "EXTRACTION RUN"
	markerResults    = "EXTRACTION RESULTS"
)

var recordCountRe = regexp.MustCompile(`(\d+) records extracted`)

// progressLine is the structured line-delimited protocol: one JSON
// object per stdout line, keyed by event. Workers that predate the
// protocol emit plain text; those lines are matched against the legacy
// markers instead.
type progressLine struct {
	Event       string            `json:"event"`
	Progress    int               `json:"progress"`
	Step        string            `json:"step"`
	RecordCount int               `json:"record_count"`
	Facts       []port.WorkerFact `json:"facts"`
}

// legacyResult is the JSON block a legacy worker prints after the
// results marker.
type legacyResult struct {
	RecordCount int               `json:"record_count"`
	Facts       []port.WorkerFact `json:"facts"`
}

// Runner invokes the external extraction worker as a child process.
// Input goes to the worker's stdin as one JSON object; stdout is
// consumed incrementally for progress and the final result; stderr is
// captured for the job log on failure.
type Runner struct {
	command string
	args    []string
	workDir string
}

// NewRunner creates a Runner for the given worker command line.
func NewRunner(command string, args []string, workDir string) *Runner {
	return &Runner{command: command, args: args, workDir: workDir}
}

// Run executes one extraction pass. Cancelling ctx kills the worker
// process; the returned error then wraps ctx.Err so callers can tell
// cancellation from worker failure.
func (r *Runner) Run(ctx context.Context, input port.WorkerInput, onProgress func(port.WorkerProgress)) (*port.WorkerResult, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encoding worker input: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.command, r.args...)
	cmd.Dir = r.workDir
	cmd.Stdin = bytes.NewReader(payload)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Err: err}
	}
	log.Printf("worker.Runner.Run: session %s pass %d: started %s (pid %d)", input.SessionID, input.ExtractionNumber, r.command, cmd.Process.Pid)

	result, raw, scanErr := r.consume(stdout, onProgress)

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("worker terminated: %w", ctx.Err())
	}
	if waitErr != nil {
		code := -1
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return nil, &ExitError{Code: code, Stderr: stderr.String()}
	}
	if stderr.Len() > 0 {
		log.Printf("worker.Runner.Run: session %s pass %d: worker stderr: %s", input.SessionID, input.ExtractionNumber, strings.TrimSpace(stderr.String()))
	}

	if result == nil {
		reason := "no result block found"
		if scanErr != nil {
			reason = fmt.Sprintf("reading worker output: %v", scanErr)
		}
		return nil, &ParseError{Raw: raw, Reason: reason}
	}
	if scanErr != nil {
		log.Printf("worker.Runner.Run: session %s pass %d: stdout truncated after result: %v", input.SessionID, input.ExtractionNumber, scanErr)
	}
	result.RawOutput = raw
	return result, nil
}

// consume scans stdout line by line until EOF. Structured JSON lines
// take precedence; anything else is matched against the legacy markers,
// with the lines after the results marker collected as the legacy
// result block. A scan error (an over-long line, a broken pipe) stops
// consumption and is returned alongside whatever was read.
func (r *Runner) consume(stdout io.Reader, onProgress func(port.WorkerProgress)) (*port.WorkerResult, string, error) {
	var (
		all        strings.Builder
		resultBuf  strings.Builder
		inResults  bool
		result     *port.WorkerResult
		recordsSet bool
		records    int
	)
	report := func(p port.WorkerProgress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		all.WriteString(line)
		all.WriteByte('\n')

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") {
			var pl progressLine
			if err := json.Unmarshal([]byte(trimmed), &pl); err == nil && pl.Event != "" {
				switch pl.Event {
				case "progress":
					report(port.WorkerProgress{Progress: pl.Progress, Step: pl.Step})
				case "result":
					result = &port.WorkerResult{RecordCount: pl.RecordCount, Facts: pl.Facts}
				}
				continue
			}
		}

		switch {
		case strings.Contains(trimmed, markerResults):
			inResults = true
			report(port.WorkerProgress{Progress: 90, Step: "collecting results"})
		case strings.Contains(trimmed, markerRunStarted):
			report(port.WorkerProgress{Progress: 10, Step: "extraction run"})
		default:
			if m := recordCountRe.FindStringSubmatch(trimmed); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					records = n
					recordsSet = true
				}
				continue
			}
			if inResults {
				resultBuf.WriteString(trimmed)
			}
		}
	}

	if result == nil && resultBuf.Len() > 0 {
		result = parseLegacyResult(resultBuf.String())
	}
	if result != nil && result.RecordCount == 0 && recordsSet {
		result.RecordCount = records
	}
	return result, all.String(), scanner.Err()
}

func parseLegacyResult(block string) *port.WorkerResult {
	var obj legacyResult
	if err := json.Unmarshal([]byte(block), &obj); err == nil && (len(obj.Facts) > 0 || obj.RecordCount > 0) {
		return &port.WorkerResult{RecordCount: obj.RecordCount, Facts: obj.Facts}
	}
	var facts []port.WorkerFact
	if err := json.Unmarshal([]byte(block), &facts); err == nil {
		return &port.WorkerResult{Facts: facts}
	}
	return nil
}
