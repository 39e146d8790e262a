package service

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"adbdeck/adb"
	"adbdeck/config"
	"adbdeck/models"
	"adbdeck/registry"
)

// fakeExec scripts process outcomes keyed by the rendered command line.
type fakeExec struct {
	mu      sync.Mutex
	outputs map[string]string
	fail    map[string]error
	// startFail fails Start for every command whose line contains the key.
	startFail map[string]error
	ran       []string
	started   []adb.Command
}

func newFakeExec() *fakeExec {
	return &fakeExec{outputs: map[string]string{}, fail: map[string]error{}, startFail: map[string]error{}}
}

func (f *fakeExec) Run(_ context.Context, c adb.Command, stdout, _ io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := c.String()
	f.ran = append(f.ran, line)
	io.WriteString(stdout, f.outputs[line])
	return f.fail[line]
}

func (f *fakeExec) Start(c adb.Command) (func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := c.String()
	for key, err := range f.startFail {
		if strings.Contains(line, key) {
			return nil, err
		}
	}
	f.started = append(f.started, c)
	return func() error { return nil }, nil
}

func (f *fakeExec) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ran...)
}

func (f *fakeExec) starts() []adb.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]adb.Command(nil), f.started...)
}

func testClient(e adb.Executor) *adb.ADBClient {
	r := adb.NewRunnerWith(e, zerolog.Nop(), 0, "linux")
	c := adb.NewADBClient(r, "", zerolog.Nop())
	c.ADBPath, c.ScrcpyPath = "adb", "scrcpy"
	return c
}

func testDispatcher(f *fakeExec) *ActionDispatcher {
	d := NewActionDispatcher(testClient(f), registry.New(nil), OptionsFromConfig(config.Default()), zerolog.Nop())
	d.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local) }
	return d
}

// startManager runs a device manager until the test ends.
func startManager(t *testing.T, f *fakeExec) *DeviceManager {
	t.Helper()
	m := NewDeviceManager(testClient(f), registry.New(nil), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-m.Stopped()
	})
	return m
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := config.InitDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// recordingHub collects broadcast frames.
type recordingHub struct {
	mu   sync.Mutex
	msgs []models.WSMessage
}

func (h *recordingHub) BroadcastToAll(msg models.WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
}

func (h *recordingHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, m := range h.msgs {
		out = append(out, m.Type)
	}
	return out
}

const devicesOut = "List of devices attached\nR9TR90HQ6GL\tdevice\nWJD06AR03662\tdevice\nZZ\toffline\n"
