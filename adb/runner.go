package adb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
)

// Executor starts processes. The runner talks to the OS only through it.
type Executor interface {
	// Run executes c and waits, wiring its output streams to the writers.
	Run(ctx context.Context, c Command, stdout, stderr io.Writer) error
	// Start launches c without waiting; wait reaps it.
	Start(c Command) (wait func() error, err error)
}

// OSExecutor runs commands with os/exec.
type OSExecutor struct{}

func (OSExecutor) Run(ctx context.Context, c Command, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setRawCmdLine(cmd, c.RawCmdLine)
	return cmd.Run()
}

func (OSExecutor) Start(c Command) (func() error, error) {
	cmd := exec.Command(c.Path, c.Args...)
	setRawCmdLine(cmd, c.RawCmdLine)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd.Wait, nil
}

// Runner executes tool commands in capture, interactive or detached form.
//
// Capture deliberately collapses a failed process to "" so callers see the
// same value for "tool missing", "device offline" and "empty output". The
// discarded text is logged; use CaptureErr when the detail matters.
//
// Nothing here applies a timeout unless one is configured: a hung adb call
// hangs the calling goroutine.
type Runner struct {
	exec    Executor
	log     zerolog.Logger
	timeout time.Duration
	goos    string
}

// NewRunner returns a runner backed by the OS. timeout <= 0 means none.
func NewRunner(log zerolog.Logger, timeout time.Duration) *Runner {
	return NewRunnerWith(OSExecutor{}, log, timeout, runtime.GOOS)
}

// NewRunnerWith builds a runner over an arbitrary executor and target OS.
func NewRunnerWith(e Executor, log zerolog.Logger, timeout time.Duration, goos string) *Runner {
	return &Runner{
		exec:    e,
		log:     log.With().Str("component", "runner").Logger(),
		timeout: timeout,
		goos:    goos,
	}
}

func (r *Runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

// CaptureErr runs c, returning merged stdout/stderr decoded permissively with
// trailing whitespace trimmed. On failure the output is kept and the error
// returned alongside it.
func (r *Runner) CaptureErr(ctx context.Context, c Command) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var buf bytes.Buffer
	err := r.exec.Run(ctx, c, &buf, &buf)
	out := normalize(buf.Bytes())
	if err != nil {
		return out, fmt.Errorf("%s: %w", c.String(), err)
	}
	return out, nil
}

// Capture is CaptureErr with failures collapsed to "".
func (r *Runner) Capture(ctx context.Context, c Command) string {
	out, err := r.CaptureErr(ctx, c)
	if err != nil {
		r.log.Warn().Err(err).Str("output", out).Msg("capture failed, output discarded")
		return ""
	}
	r.log.Debug().Str("cmd", c.String()).Int("bytes", len(out)).Msg("captured")
	return out
}

// CaptureTo writes the stdout of c to path, truncating it first. Stderr is
// logged, not written.
func (r *Runner) CaptureTo(ctx context.Context, c Command, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var stderr bytes.Buffer
	if err := r.exec.Run(ctx, c, f, &stderr); err != nil {
		r.log.Warn().Err(err).Str("cmd", c.String()).Str("stderr", normalize(stderr.Bytes())).
			Msg("capture to file failed")
		return fmt.Errorf("%s: %w", c.String(), err)
	}
	return nil
}

// Detached starts c and returns immediately. The process is reaped in the
// background and its outcome is only logged.
func (r *Runner) Detached(c Command) {
	wait, err := r.exec.Start(c)
	if err != nil {
		r.log.Warn().Err(err).Str("cmd", c.String()).Msg("detached start failed")
		return
	}
	r.log.Debug().Str("cmd", c.String()).Msg("detached")
	go func() {
		if err := wait(); err != nil {
			r.log.Debug().Err(err).Str("cmd", c.String()).Msg("detached command exited")
		}
	}()
}

// Interactive opens a new terminal window running c. It never waits and
// never reports failure to the caller.
func (r *Runner) Interactive(c Command, title string) {
	tc := terminalCommand(r.goos, c, title)
	wait, err := r.exec.Start(tc)
	if err != nil {
		r.log.Error().Err(err).Str("os", r.goos).Str("cmd", c.String()).
			Msg("no terminal emulator could be launched")
		return
	}
	r.log.Info().Str("title", title).Str("cmd", c.String()).Msg("terminal opened")
	go func() { _ = wait() }()
}

// normalize decodes tool output, replacing invalid UTF-8, and trims
// trailing whitespace.
func normalize(b []byte) string {
	return strings.TrimRightFunc(strings.ToValidUTF8(string(b), "\uFFFD"), unicode.IsSpace)
}
