// Package logging configures the global slog logger to write to both the
// console and a timestamped log file. The file path is returned so the run
// report can attach it.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Setup creates the log directory if needed, opens a per-run log file and
// installs a text handler writing to it and to stdout.
func Setup(logDir string, debug bool) (string, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("etl.%s.log", time.Now().Format("20060102_150405")))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	slog.Info("log file", "path", logPath)
	return logPath, nil
}
