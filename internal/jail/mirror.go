// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package jail

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// CopyMode selects which subtrees Mirror skips while walking a
// template tree.
type CopyMode int

const (
	// CopyAll mirrors every entry.
	CopyAll CopyMode = iota
	// CopyNoUsr mirrors everything except "usr", used when usr is
	// already reachable via a bind mount.
	CopyNoUsr
	// CopyLO mirrors an office-engine installation, skipping the
	// subtrees never touched at render time.
	CopyLO
)

// excludedLOSubtrees lists the office-engine subtrees CopyLO skips.
// share/config/wizard is listed twice — a harmless duplication kept
// intentionally rather than "corrected", since it changes nothing
// about which directories are excluded.
var excludedLOSubtrees = []string{
	"program/wizards",
	"sdk",
	"share/basic",
	"share/gallery",
	"share/Scripts",
	"share/template",
	"share/config/wizard",
	"share/config/wizard",
}

func shouldCopyDir(mode CopyMode, rel string) bool {
	switch mode {
	case CopyNoUsr:
		return rel != "usr"
	case CopyLO:
		for _, excluded := range excludedLOSubtrees {
			if rel == excluded {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Mirror reproduces source under dest: every directory is recreated
// with its original mtime/atime, every regular file or symlink is
// hardlinked rather than copied. mode controls which directories are
// skipped entirely (and their subtrees with them).
func Mirror(source, dest string, mode CopyMode) error {
	source = strings.TrimSuffix(source, "/")

	return filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("jail: walking %q: %w", path, err)
		}
		if path == source {
			return nil
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return fmt.Errorf("jail: relativizing %q against %q: %w", path, source, err)
		}
		newPath := filepath.Join(dest, rel)

		if d.IsDir() {
			if !shouldCopyDir(mode, rel) {
				return fs.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("jail: stat %q: %w", path, err)
			}
			if err := os.MkdirAll(newPath, 0o755); err != nil {
				return fmt.Errorf("jail: mkdir %q: %w", newPath, err)
			}
			return preserveTimes(path, newPath, info)
		}

		// Regular files and symlinks (WalkDir does not follow
		// symlinks into directories, so a symlink dirent lands here
		// exactly like the original's FTW_SLN case) are hardlinked.
		if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
			return fmt.Errorf("jail: mkdir %q: %w", filepath.Dir(newPath), err)
		}
		if err := os.Link(path, newPath); err != nil {
			return fmt.Errorf("jail: link(%q, %q): %w", path, newPath, err)
		}
		return nil
	})
}

func preserveTimes(source, dest string, info fs.FileInfo) error {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}
	atime := timeFromTimespec(stat.Atim)
	mtime := timeFromTimespec(stat.Mtim)
	if err := os.Chtimes(dest, atime, mtime); err != nil {
		return fmt.Errorf("jail: chtimes %q: %w", dest, err)
	}
	return nil
}

func timeFromTimespec(ts syscall.Timespec) time.Time {
	return time.Unix(ts.Sec, ts.Nsec)
}
