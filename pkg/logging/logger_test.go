// Copyright (C) 2025 The typybench authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	logger, closeFn := New(Config{
		Level:   LevelDebug,
		LogDir:  dir,
		Service: "evaluate",
		Quiet:   true,
	})

	logger.Info("repository evaluated",
		slog.String("repo", "demo"),
		slog.Int("vars", 42))
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	name := "evaluate_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	var entry map[string]any
	line := strings.TrimSpace(string(data))
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("file entry is not JSON: %v", err)
	}
	if entry["msg"] != "repository evaluated" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["repo"] != "demo" {
		t.Errorf("repo = %v", entry["repo"])
	}
	if entry["service"] != "evaluate" {
		t.Errorf("service attribute missing, got %v", entry["service"])
	}
}

func TestNewLevelFilter(t *testing.T) {
	dir := t.TempDir()
	logger, closeFn := New(Config{
		Level:  LevelWarn,
		LogDir: dir,
		Quiet:  true,
	})

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Warn("kept")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	name := "typybench_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "dropped") {
		t.Errorf("filtered levels leaked into file: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn entry missing: %s", out)
	}
}

func TestNewUnwritableDirDegrades(t *testing.T) {
	// A file where the directory should be makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger, closeFn := New(Config{LogDir: filepath.Join(blocker, "logs"), Quiet: true})
	logger.Info("still works")
	if err := closeFn(); err != nil {
		t.Errorf("close of degraded logger: %v", err)
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default returned nil")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandPath(~/logs) = %s", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("absolute path changed: %s", got)
	}
}
