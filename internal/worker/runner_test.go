package worker

import (
	"bufio"
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/port"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests drive the worker through /bin/sh")
	}
}

func shRunner(script string) *Runner {
	return NewRunner("/bin/sh", []string{"-c", script}, "")
}

func TestConsume_StructuredProtocol(t *testing.T) {
	out := strings.Join([]string{
		`{"event":"progress","progress":10,"step":"loading documents"}`,
		`{"event":"progress","progress":60,"step":"extracting"}`,
		`{"event":"result","record_count":2,"facts":[{"record_index":0,"field_name":"SKU","value":"SKU-A","confidence":91}]}`,
	}, "\n")

	var progress []port.WorkerProgress
	r := &Runner{}
	result, raw, err := r.consume(strings.NewReader(out), func(p port.WorkerProgress) {
		progress = append(progress, p)
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.RecordCount)
	require.Len(t, result.Facts, 1)
	assert.Equal(t, "SKU", result.Facts[0].FieldName)
	assert.Equal(t, "SKU-A", *result.Facts[0].Value)
	assert.Equal(t, 91.0, result.Facts[0].Confidence)

	require.Len(t, progress, 2)
	assert.Equal(t, 10, progress[0].Progress)
	assert.Equal(t, "extracting", progress[1].Step)
	assert.Contains(t, raw, "loading documents")
}

func TestConsume_LegacyMarkers(t *testing.T) {
	out := strings.Join([]string{
		"EXTRACTION RUN 1 starting",
		"processing document batch",
		"3 records extracted",
		"EXTRACTION RESULTS",
		`{"record_count":3,"facts":[`,
		`{"record_index":0,"field_name":"Description","value":"Paper","confidence":80},`,
		`{"record_index":1,"field_name":"Description","value":"Pens","confidence":85}]}`,
	}, "\n")

	var progress []port.WorkerProgress
	r := &Runner{}
	result, _, err := r.consume(strings.NewReader(out), func(p port.WorkerProgress) {
		progress = append(progress, p)
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.RecordCount)
	assert.Len(t, result.Facts, 2)
	require.Len(t, progress, 2)
	assert.Equal(t, 10, progress[0].Progress)
	assert.Equal(t, 90, progress[1].Progress)
}

func TestConsume_LegacyBareFactArray(t *testing.T) {
	out := strings.Join([]string{
		"EXTRACTION RESULTS",
		`[{"record_index":0,"field_name":"Total","value":"118.00","confidence":95}]`,
	}, "\n")

	r := &Runner{}
	result, _, err := r.consume(strings.NewReader(out), nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Facts, 1)
	assert.Equal(t, "Total", result.Facts[0].FieldName)
}

func TestConsume_RecordCountLineFillsMissingCount(t *testing.T) {
	out := strings.Join([]string{
		"5 records extracted",
		"EXTRACTION RESULTS",
		`{"facts":[{"record_index":0,"field_name":"A","value":"1","confidence":50}]}`,
	}, "\n")

	r := &Runner{}
	result, _, err := r.consume(strings.NewReader(out), nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 5, result.RecordCount)
}

func TestConsume_NoResultBlock(t *testing.T) {
	r := &Runner{}
	result, raw, err := r.consume(strings.NewReader("just chatter\nnothing useful\n"), nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Contains(t, raw, "just chatter")
}

// brokenReader yields its payload and then fails.
type brokenReader struct {
	data io.Reader
	err  error
	done bool
}

func (b *brokenReader) Read(p []byte) (int, error) {
	if !b.done {
		n, err := b.data.Read(p)
		if err == io.EOF {
			b.done = true
			return n, nil
		}
		return n, err
	}
	return 0, b.err
}

func TestConsume_ScanErrorIsReported(t *testing.T) {
	r := &Runner{}
	readErr := errors.New("read /dev/stdout: input/output error")
	result, raw, err := r.consume(&brokenReader{
		data: strings.NewReader("EXTRACTION RUN 1 starting\n"),
		err:  readErr,
	}, nil)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, readErr)
	// The lines read before the failure are still preserved.
	assert.Contains(t, raw, "EXTRACTION RUN")
}

func TestConsume_OverlongLineSurfacesScanError(t *testing.T) {
	var out strings.Builder
	out.WriteString(strings.Repeat("x", 5*1024*1024))
	out.WriteString("\n")

	r := &Runner{}
	result, _, err := r.consume(strings.NewReader(out.String()), nil)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestRun_EchoesStructuredResult(t *testing.T) {
	skipWithoutShell(t)
	// The script ignores stdin and prints a structured result.
	r := shRunner(`cat > /dev/null; echo '{"event":"result","record_count":1,"facts":[{"record_index":0,"field_name":"Total","value":"42","confidence":88}]}'`)

	result, err := r.Run(context.Background(), port.WorkerInput{SessionID: uuid.New()}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RecordCount)
	require.Len(t, result.Facts, 1)
	assert.Equal(t, "42", *result.Facts[0].Value)
	assert.NotEmpty(t, result.RawOutput)
}

func TestRun_ReceivesInputOnStdin(t *testing.T) {
	skipWithoutShell(t)
	// Echo the session id read from stdin back as a fact value.
	r := shRunner(`read line; id=$(printf '%s' "$line" | sed 's/.*"session_id":"\([^"]*\)".*/\1/'); printf '{"event":"result","record_count":1,"facts":[{"record_index":0,"field_name":"echo","value":"%s","confidence":100}]}\n' "$id"`)

	sessionID := uuid.New()
	result, err := r.Run(context.Background(), port.WorkerInput{SessionID: sessionID}, nil)
	require.NoError(t, err)
	require.Len(t, result.Facts, 1)
	assert.Equal(t, sessionID.String(), *result.Facts[0].Value)
}

func TestRun_NonZeroExitCapturesStderr(t *testing.T) {
	skipWithoutShell(t)
	r := shRunner(`cat > /dev/null; echo "model quota exhausted" >&2; exit 3`)

	_, err := r.Run(context.Background(), port.WorkerInput{}, nil)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Stderr, "model quota exhausted")
}

func TestRun_MissingResultIsParseError(t *testing.T) {
	skipWithoutShell(t)
	r := shRunner(`cat > /dev/null; echo "worker booted"; echo "done"`)

	_, err := r.Run(context.Background(), port.WorkerInput{}, nil)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, parseErr.Raw, "worker booted")
}

func TestRun_CancellationKillsProcess(t *testing.T) {
	skipWithoutShell(t)
	r := shRunner(`cat > /dev/null; sleep 30`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := r.Run(ctx, port.WorkerInput{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_TimeoutKillsProcess(t *testing.T) {
	skipWithoutShell(t)
	r := shRunner(`cat > /dev/null; sleep 30`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, port.WorkerInput{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_MissingCommandIsSpawnError(t *testing.T) {
	r := NewRunner("/nonexistent/extraction-worker", nil, "")
	_, err := r.Run(context.Background(), port.WorkerInput{}, nil)
	var spawnErr *SpawnError
	assert.True(t, errors.As(err, &spawnErr))
}
