package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// rotateLayout suffixes rotated files; it sorts in time order across days.
const rotateLayout = "20060102-150405.000000"

// RotatingFile is an io.Writer that starts a new file once the current one
// exceeds maxSizeMB. The log directory is owned by the writer: besides the
// current file it keeps at most maxBackups files with the same extension,
// rotated ones and those of earlier runs alike, dropping the oldest first.
type RotatingFile struct {
	mu         sync.Mutex
	path       string
	maxBytes   int64
	maxBackups int
	file       *os.File
	size       int64
}

// NewRotatingFile opens (or appends to) path, creating its directory.
func NewRotatingFile(path string, maxSizeMB, maxBackups int) (*RotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	rf := &RotatingFile{
		path:       path,
		maxBytes:   int64(maxSizeMB) * 1024 * 1024,
		maxBackups: maxBackups,
	}
	if err := rf.open(); err != nil {
		return nil, err
	}
	rf.prune()
	return rf, nil
}

func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.maxBytes > 0 && rf.size+int64(len(p)) > rf.maxBytes {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

func (rf *RotatingFile) open() error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	rf.file = f
	rf.size = info.Size()
	return nil
}

func (rf *RotatingFile) rotate() error {
	if rf.file != nil {
		rf.file.Close()
	}
	ext := filepath.Ext(rf.path)
	rotated := strings.TrimSuffix(rf.path, ext) + "." + time.Now().Format(rotateLayout) + ext
	if err := os.Rename(rf.path, rotated); err != nil {
		return rf.open()
	}
	rf.prune()
	return rf.open()
}

type backup struct {
	path string
	mod  time.Time
}

// prune removes the oldest log files in the directory beyond maxBackups.
// The current file never counts.
func (rf *RotatingFile) prune() {
	if rf.maxBackups <= 0 {
		return
	}
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(rf.path), "*"+filepath.Ext(rf.path)))
	if err != nil {
		return
	}
	var old []backup
	for _, m := range matches {
		if m == rf.path {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		old = append(old, backup{path: m, mod: info.ModTime()})
	}
	if len(old) <= rf.maxBackups {
		return
	}
	sort.Slice(old, func(i, j int) bool {
		if !old[i].mod.Equal(old[j].mod) {
			return old[i].mod.Before(old[j].mod)
		}
		return old[i].path < old[j].path
	})
	for _, b := range old[:len(old)-rf.maxBackups] {
		os.Remove(b.path)
	}
}

// Close closes the current file.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file != nil {
		return rf.file.Close()
	}
	return nil
}
