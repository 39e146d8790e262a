// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. It discards until Init is called.
var Logger = zerolog.Nop()

// Config controls where log lines go.
type Config struct {
	Level      string // debug, info, warn, error
	Dir        string // empty disables the log file
	MaxSizeMB  int
	MaxBackups int
}

// Init installs Logger: a console writer on stderr plus, when cfg.Dir is
// set, a size-rotated file named after the start time. The returned closer
// flushes the file.
func Init(cfg Config) (io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}}

	var closer io.Closer = nopCloser{}
	if cfg.Dir != "" {
		// log/2025-12-08_21-52-35.log
		name := time.Now().Format("2006-01-02_15-04-05") + ".log"
		rf, err := NewRotatingFile(filepath.Join(cfg.Dir, name), cfg.MaxSizeMB, cfg.MaxBackups)
		if err != nil {
			return nil, fmt.Errorf("failed to setup file logging: %w", err)
		}
		writers = append(writers, rf)
		closer = rf
	}

	Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
