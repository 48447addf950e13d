// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the process-wide *slog.Logger from the
// historical LOOL_LOG* environment variables, so every worker binary
// gets the same handler configuration without duplicating the parsing.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Config mirrors the LOOL_LOG* environment variables.
type Config struct {
	// File is LOOL_LOGFILE's value, a path to append to instead of
	// stderr. Empty means stderr.
	File string
	// Name tags every record's "component" attribute (LOOL_LOGFILENAME
	// historically named the log file itself; here it labels records
	// since one process now owns exactly one log destination).
	Name string
	// Level is LOOL_LOGLEVEL: one of debug, info, warn, error.
	// Defaults to info.
	Level string
	// Color is LOOL_LOGCOLOR. Only meaningful when File is empty and
	// stderr is a terminal; otherwise ignored.
	Color bool
}

// FromEnvironment reads LOOL_LOGFILE, LOOL_LOGFILENAME, LOOL_LOGLEVEL,
// and LOOL_LOGCOLOR.
func FromEnvironment() Config {
	return Config{
		File:  os.Getenv("LOOL_LOGFILE"),
		Name:  os.Getenv("LOOL_LOGFILENAME"),
		Level: os.Getenv("LOOL_LOGLEVEL"),
		Color: os.Getenv("LOOL_LOGCOLOR") == "true",
	}
}

// New builds a *slog.Logger per cfg. The returned closer, if non-nil,
// must be closed by the caller at shutdown.
func New(cfg Config) (*slog.Logger, func() error, error) {
	level := parseLevel(cfg.Level)

	var (
		out    *os.File
		closer func() error
	)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %q: %w", cfg.File, err)
		}
		out = f
		closer = f.Close
	} else {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Color && cfg.File == "" && term.IsTerminal(int(out.Fd())) {
		opts.ReplaceAttr = colorizeLevel
	}

	handler := slog.NewTextHandler(out, opts)
	logger := slog.New(handler)
	if cfg.Name != "" {
		logger = logger.With("component", cfg.Name)
	}
	return logger, closer, nil
}

// colorizeLevel tints the level attribute by severity, matching
// LOOL_LOGCOLOR's historical effect of coloring the console log.
func colorizeLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	code := "36" // debug/info: cyan
	switch {
	case level >= slog.LevelError:
		code = "31" // red
	case level >= slog.LevelWarn:
		code = "33" // yellow
	}
	a.Value = slog.StringValue(fmt.Sprintf("\x1b[%sm%s\x1b[0m", code, level.String()))
	return a
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
