package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestRotatingFileRotatesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")
	rf, err := NewRotatingFile(path, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	chunk := bytes.Repeat([]byte("x"), 700*1024)
	for i := 0; i < 5; i++ {
		if _, err := rf.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	rotated, _ := filepath.Glob(filepath.Join(dir, "run.*.log"))
	if len(rotated) > 2 {
		t.Errorf("kept %d rotated files, want <= 2", len(rotated))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != int64(len(chunk)) {
		t.Errorf("current file size %d", info.Size())
	}
}

func TestInitWithoutDir(t *testing.T) {
	c, err := Init(Config{Level: "debug"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	Logger.Debug().Msg("hello")
}

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func TestPruneKeepsNewestAcrossMidnight(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2025, 12, 8, 0, 0, 0, 0, time.Local)
	// Suffixes that sort by time of day alone would put the newest first.
	beforeMidnight1 := filepath.Join(dir, "run.20251207-235958.000000.log")
	beforeMidnight2 := filepath.Join(dir, "run.20251207-235959.000000.log")
	afterMidnight := filepath.Join(dir, "run.20251208-000001.000000.log")
	touch(t, beforeMidnight1, day.Add(-2*time.Second))
	touch(t, beforeMidnight2, day.Add(-time.Second))
	touch(t, afterMidnight, day.Add(time.Second))

	rf, err := NewRotatingFile(filepath.Join(dir, "run.log"), 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	for path, want := range map[string]bool{
		beforeMidnight1: false,
		beforeMidnight2: true,
		afterMidnight:   true,
	} {
		if _, err := os.Stat(path); (err == nil) != want {
			t.Errorf("%s exists = %v, want %v", filepath.Base(path), err == nil, want)
		}
	}
}

func TestPruneCountsEarlierRuns(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	for i, name := range []string{
		"2025-12-01_10-00-00.log",
		"2025-12-01_10-00-00.20251201-103000.000000.log",
		"2025-12-02_09-00-00.log",
		"2025-12-03_09-00-00.log",
	} {
		touch(t, filepath.Join(dir, name), now.Add(time.Duration(i-10)*time.Minute))
	}
	notes := filepath.Join(dir, "notes.txt")
	touch(t, notes, now.Add(-time.Hour))

	current := filepath.Join(dir, "2025-12-04_09-00-00.log")
	rf, err := NewRotatingFile(current, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	logs, _ := filepath.Glob(filepath.Join(dir, "*.log"))
	want := []string{
		filepath.Join(dir, "2025-12-02_09-00-00.log"),
		filepath.Join(dir, "2025-12-03_09-00-00.log"),
		current,
	}
	if !reflect.DeepEqual(logs, want) {
		t.Errorf("logs = %q, want %q", logs, want)
	}
	if _, err := os.Stat(notes); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}
