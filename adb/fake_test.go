package adb

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// fakeExec scripts process outcomes keyed by the rendered command line.
type fakeExec struct {
	mu       sync.Mutex
	outputs  map[string]string
	fail     map[string]error
	startErr error
	ran      []string
	started  []Command
}

func newFakeExec() *fakeExec {
	return &fakeExec{outputs: map[string]string{}, fail: map[string]error{}}
}

func (f *fakeExec) Run(_ context.Context, c Command, stdout, _ io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := c.String()
	f.ran = append(f.ran, line)
	io.WriteString(stdout, f.outputs[line])
	return f.fail[line]
}

func (f *fakeExec) Start(c Command) (func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, c)
	return func() error { return nil }, nil
}

func (f *fakeExec) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ran...)
}

var errExit = errors.New("exit status 1")

func testClient(f *fakeExec) *ADBClient {
	r := NewRunnerWith(f, zerolog.Nop(), 0, "linux")
	return &ADBClient{ADBPath: "adb", ScrcpyPath: "scrcpy", runner: r, log: zerolog.Nop()}
}
