package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tecton-ai/tecton-mcp/internal/config"
)

// SetupLogging installs the default slog logger for a subcommand. Records go
// to stderr and, when cfg.File is set, also to a per-run file under
// {dataDir}/logs. The returned func closes that file.
func SetupLogging(cfg config.LogConfig, dataDir, subcommand string) (func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	closer := func() error { return nil }
	logPath := ""

	if cfg.File {
		logDir := filepath.Join(dataDir, "logs")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		timestamp := time.Now().Format("20060102-150405")
		logPath = filepath.Join(logDir, fmt.Sprintf("tecton-mcp-%s-%s.log", subcommand, timestamp))
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, logFile)
		closer = logFile.Close
	}

	slog.SetDefault(slog.New(NewHandler(w, cfg.Format, level)))
	if logPath != "" {
		slog.Debug("Log file", "path", logPath)
	}
	return closer, nil
}

// NewHandler builds a JSON or text handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// ParseLevel maps debug/info/warn/error to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
