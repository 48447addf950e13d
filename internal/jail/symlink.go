// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package jail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// symlinkAbsolutePath plants a relative symlink inside jailPath so
// that the absolute path abs, resolved from inside a chroot rooted at
// jailPath, reaches target (itself relative to jailPath). The link is
// a chain of ".." matching abs's depth followed by target, so it
// works regardless of where jailPath actually lives on the host.
func symlinkAbsolutePath(jailPath, abs, target string) error {
	source := filepath.Join(jailPath, strings.TrimPrefix(abs, "/"))
	if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
		return fmt.Errorf("jail: mkdir %q: %w", filepath.Dir(source), err)
	}

	depth := len(strings.Split(strings.Trim(abs, "/"), "/"))
	link := strings.Repeat("../", depth) + target

	if err := os.Symlink(link, source); err != nil {
		return fmt.Errorf("jail: symlink(%q, %q): %w", link, source, err)
	}
	return nil
}
