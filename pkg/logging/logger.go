// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for typybench commands.
//
// Built on log/slog with two destinations:
//
//   - stderr, text by default, so evaluation progress reads cleanly in
//     a terminal and never mixes with result output on stdout
//   - an optional JSON log file per service and day, for machine
//     processing of long benchmark runs
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("evaluation starting", slog.String("data_dir", dir))
//
// With file logging:
//
//	logger, closeFn := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    LogDir:  "~/.typybench/logs",
//	    Service: "evaluate",
//	})
//	defer closeFn()
//
// # Thread Safety
//
// The returned *slog.Logger is safe for concurrent use.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// =============================================================================
// LEVELS
// =============================================================================

// Level is the minimum severity a logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a flag or config string to a Level. Unknown strings
// default to Info.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug
	case "warn", "WARN", "warning":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config configures logger construction. The zero value logs Info and
// above to stderr as text.
type Config struct {
	// Level is the minimum severity emitted.
	Level Level

	// LogDir enables file logging. The file is named
	// "{Service}_{YYYY-MM-DD}.log", always JSON, appended across runs.
	// Supports a leading ~ for the home directory.
	LogDir string

	// Service tags every entry with a "service" attribute and names
	// the log file. Empty means no attribute and the "typybench"
	// file name.
	Service string

	// JSON switches the stderr stream to JSON.
	JSON bool

	// Quiet suppresses stderr output; only the file receives entries.
	Quiet bool
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// New builds a logger from the configuration.
//
// Description:
//
//	Assembles stderr and optional file handlers behind one logger. An
//	unwritable log directory degrades to stderr-only; logging setup
//	never fails a run.
//
// Outputs:
//
//	*slog.Logger - The configured logger.
//	func() error - Cleanup that syncs and closes the log file. Always
//	               non-nil; a no-op without file logging.
func New(cfg Config) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: cfg.Level.toSlogLevel()}

	var handlers []slog.Handler
	if !cfg.Quiet {
		if cfg.JSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}

	closeFn := func() error { return nil }
	if cfg.LogDir != "" {
		if file, err := openLogFile(cfg.LogDir, cfg.Service); err == nil {
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
			closeFn = func() error {
				if err := file.Sync(); err != nil {
					return fmt.Errorf("sync log file: %w", err)
				}
				return file.Close()
			}
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(os.Stderr, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}
	return slog.New(handler), closeFn
}

// Default returns a stderr-only Info logger tagged "typybench".
func Default() *slog.Logger {
	logger, _ := New(Config{Service: "typybench"})
	return logger
}

// openLogFile opens the per-service daily log file, creating the
// directory as needed.
func openLogFile(dir, service string) (*os.File, error) {
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	if service == "" {
		service = "typybench"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// =============================================================================
// MULTI-HANDLER
// =============================================================================

// multiHandler fans one record out to every destination, letting
// stderr stay text while the file stays JSON.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
