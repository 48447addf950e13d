// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package jail

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSymlinkAbsolutePathDepthMatchesTarget(t *testing.T) {
	t.Parallel()

	jailPath := t.TempDir()
	if err := symlinkAbsolutePath(jailPath, "/opt/inkwell/lo", "lo"); err != nil {
		t.Fatalf("symlinkAbsolutePath: %v", err)
	}

	link := filepath.Join(jailPath, "opt", "inkwell", "lo")
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	want := "../../../lo"
	if target != want {
		t.Fatalf("link target = %q, want %q", target, want)
	}
}

func TestSymlinkAbsolutePathResolvesFromInsideJail(t *testing.T) {
	t.Parallel()

	jailPath := t.TempDir()
	if err := symlinkAbsolutePath(jailPath, "/opt/inkwell/lo", "lo"); err != nil {
		t.Fatalf("symlinkAbsolutePath: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(jailPath, "lo"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(jailPath, "lo", "marker"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// Resolve the link the way an in-chroot open() would: relative to
	// jailPath as if it were "/", where ".." at the root stays at the
	// root.
	target, err := os.Readlink(filepath.Join(jailPath, "opt", "inkwell", "lo"))
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	resolved := filepath.Join(jailPath, filepath.Join("/opt/inkwell", target))
	if _, err := os.Stat(filepath.Join(resolved, "marker")); err != nil {
		t.Fatalf("marker not reachable through the resolved link: %v", err)
	}
	if resolved != filepath.Join(jailPath, "lo") {
		t.Fatalf("resolved = %q, want %q", resolved, filepath.Join(jailPath, "lo"))
	}
}
