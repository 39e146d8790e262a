package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"adbdeck/adb"
	"adbdeck/models"
)

func TestEnrichEmitsFoundLabels(t *testing.T) {
	f := newFakeExec()
	client := testClient(f)
	for pkg, dump := range map[string]string{
		"com.android.settings": "  applicationLabel=Settings\n",
		"com.example.notes":    "  applicationLabel=Notes\n",
		"com.example.hidden":   "  versionName=1.0\n",
	} {
		cmd, _ := client.PMDumpCmd(dev, pkg)
		f.outputs[cmd.String()] = dump
	}
	cache := NewLabelCache(testDB(t))
	e := NewEnricher(client, cache, 2, zerolog.Nop())

	pkgs := adb.ParsePackages("package:com.android.settings\npackage:com.example.notes\npackage:com.example.hidden\n")
	var got []models.LabelUpdate
	if err := e.Enrich(context.Background(), dev, pkgs, func(u models.LabelUpdate) { got = append(got, u) }); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	sort.Slice(got, func(i, j int) bool { return got[i].Package < got[j].Package })
	want := []models.LabelUpdate{
		{DeviceID: dev, Package: "com.android.settings", Label: "Settings"},
		{DeviceID: dev, Package: "com.example.notes", Label: "Notes"},
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("updates = %+v", got)
	}

	// Second pass is served from the cache.
	before := len(f.lines())
	if err := e.EnrichInPlace(context.Background(), dev, pkgs); err != nil {
		t.Fatalf("EnrichInPlace: %v", err)
	}
	names := map[string]string{}
	for _, p := range pkgs {
		names[p.Name] = p.DisplayName
	}
	if names["com.android.settings"] != "Settings" || names["com.example.notes"] != "Notes" || names["com.example.hidden"] != "hidden" {
		t.Errorf("display names = %v", names)
	}
	if ran := len(f.lines()) - before; ran != 1 {
		t.Errorf("second pass ran %d dumps, want 1 (the uncached package)", ran)
	}
}

// slowExec records how many dumps run at once.
type slowExec struct {
	inFlight, peak atomic.Int32
	mu             sync.Mutex
}

func (s *slowExec) Run(_ context.Context, _ adb.Command, stdout, _ io.Writer) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	s.mu.Lock()
	if n > s.peak.Load() {
		s.peak.Store(n)
	}
	s.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	io.WriteString(stdout, "applicationLabel=App\n")
	return nil
}

func (s *slowExec) Start(adb.Command) (func() error, error) {
	return func() error { return nil }, nil
}

func TestEnrichBoundsConcurrency(t *testing.T) {
	s := &slowExec{}
	e := NewEnricher(testClient(s), nil, 0, zerolog.Nop())

	var pkgs []models.Package
	for _, name := range []string{"a.a", "a.b", "a.c", "a.d", "a.e", "a.f", "a.g", "a.h", "a.i", "a.j", "a.k", "a.l"} {
		pkgs = append(pkgs, models.Package{Name: name, DisplayName: models.ShortName(name)})
	}
	n := 0
	if err := e.Enrich(context.Background(), dev, pkgs, func(models.LabelUpdate) { n++ }); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if n != len(pkgs) {
		t.Errorf("emitted %d, want %d", n, len(pkgs))
	}
	if peak := s.peak.Load(); peak > defaultLabelWorkers || peak < 1 {
		t.Errorf("peak concurrency = %d, limit %d", peak, defaultLabelWorkers)
	}
}

func TestEnrichCancelled(t *testing.T) {
	e := NewEnricher(testClient(&slowExec{}), nil, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pkgs := []models.Package{{Name: "a.a"}, {Name: "a.b"}}
	if err := e.Enrich(ctx, dev, pkgs, func(models.LabelUpdate) { t.Error("emitted after cancel") }); err == nil {
		t.Error("Enrich returned nil after cancel")
	}
}
