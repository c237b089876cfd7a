package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Subsystem tags every log line so operators can filter one concern
// across the node (config, chain, nucleus, training, ...).
type Subsystem string

const (
	Config   Subsystem = "config"
	Chain    Subsystem = "chain"
	Registry Subsystem = "registry"
	Nucleus  Subsystem = "nucleus"
	Scores   Subsystem = "scores"
	Weights  Subsystem = "weights"
	Training Subsystem = "training"
	Commit   Subsystem = "commit"
	Storage  Subsystem = "storage"
	Server   Subsystem = "server"
	Pool     Subsystem = "pool"
)

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ring   = newWarningRing(128)
)

// Init replaces the process logger. level is one of debug|info|warn|error,
// format is json|text. Unknown values fall back to info/json.
func Init(level, format string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(handler)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func log(level slog.Level, msg string, subsystem Subsystem, keyvals ...interface{}) {
	args := make([]interface{}, 0, len(keyvals)+2)
	args = append(args, "subsystem", string(subsystem))
	args = append(args, keyvals...)
	current().Log(context.Background(), level, msg, args...)
}

func Debug(msg string, subsystem Subsystem, keyvals ...interface{}) {
	log(slog.LevelDebug, msg, subsystem, keyvals...)
}

func Info(msg string, subsystem Subsystem, keyvals ...interface{}) {
	log(slog.LevelInfo, msg, subsystem, keyvals...)
}

func Warn(msg string, subsystem Subsystem, keyvals ...interface{}) {
	log(slog.LevelWarn, msg, subsystem, keyvals...)
	ring.add(msg, subsystem)
}

func Error(msg string, subsystem Subsystem, keyvals ...interface{}) {
	log(slog.LevelError, msg, subsystem, keyvals...)
	ring.add(msg, subsystem)
}
