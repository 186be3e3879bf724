package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB = 5
	defaultMaxFiles  = 3
)

// RotationConfig bounds how much disk the log file may occupy. Zero
// values fall back to small defaults sized for a single-user tool.
type RotationConfig struct {
	File      string
	MaxSizeMB int
	MaxFiles  int
}

func (c RotationConfig) withDefaults() RotationConfig {
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = defaultMaxSizeMB
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = defaultMaxFiles
	}
	return c
}

// NewRotatingWriter opens cfg.File for appending behind a size-capped
// rotating writer. The parent directory is created owner-only because
// log lines name secret entries even after redaction.
func NewRotatingWriter(cfg RotationConfig) (io.WriteCloser, error) {
	cfg = cfg.withDefaults()
	if cfg.File == "" {
		return nil, fmt.Errorf("rotation file path must not be empty")
	}
	if info, err := os.Stat(cfg.File); err == nil && info.IsDir() {
		return nil, fmt.Errorf("log file %s is a directory", cfg.File)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
		Compress:   false,
	}, nil
}
