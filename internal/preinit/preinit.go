// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

// Package preinit exposes the one-time, pre-fork engine warmup step as
// a small CLI-callable operation, kept separate from cmd/inkwell-kit
// because the (out-of-scope) supervisor invokes it exactly once before
// forking any kit worker, never once per worker.
package preinit

import (
	"fmt"
	"log/slog"

	"github.com/inkwell-project/inkwell/internal/engine"
)

// Config parametrizes Run.
type Config struct {
	LOTemplate     string
	UserProfileURL string
	Logger         *slog.Logger
}

// Run performs the dlopen(RTLD_GLOBAL)+lok_preinit warmup once.
func Run(cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := engine.Preinit(cfg.LOTemplate, cfg.UserProfileURL); err != nil {
		return fmt.Errorf("preinit: %w", err)
	}
	logger.Info("preinit: engine shared library warmed for forking", "loTemplate", cfg.LOTemplate)
	return nil
}
