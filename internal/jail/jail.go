// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

// Package jail builds a chroot-able file tree for one kit worker from
// a system template and an office-engine template, then enters it and
// drops the capabilities that were needed to build it. A jail is
// scoped to a single worker process and is torn down by the
// out-of-scope supervisor when the worker exits.
package jail

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// Config parametrizes jail construction. SysTemplate and LOTemplate
// are host paths to the two template trees; LOTemplate is also the
// absolute path the office engine expects to find itself at once
// inside the chroot, and LOSubPath is where the engine template
// actually lands relative to the jail root.
type Config struct {
	ChildRoot      string
	SysTemplate    string
	LOTemplate     string
	LOSubPath      string
	NoCapabilities bool
	BindMountUsr   bool
	Logger         *slog.Logger
}

// Result describes the jail Build produced.
type Result struct {
	// JailPath is the chroot's root on the host, or LOTemplate
	// unchanged when NoCapabilities skipped jail construction.
	JailPath string
	// UsrMounted reports whether the sys template's usr subtree was
	// bind-mounted rather than hardlinked.
	UsrMounted bool
}

// Build constructs the jail for a worker identified by pid, then
// chroots and drops capabilities. Any failure that leaves the jail
// unsafe to run in (a failed link, chroot, chdir, or capability drop)
// is returned as an error; the caller must treat it as fatal and must
// not proceed to load a document.
//
// In NoCapabilities mode, steps 2 through 9 are skipped entirely and
// the worker runs unjailed at the engine's original install path —
// intended for developer builds only.
func Build(cfg Config, pid int) (*Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.NoCapabilities {
		logger.Warn("jail: no-capabilities mode active, running without a jail")
		return &Result{JailPath: cfg.LOTemplate}, nil
	}

	jailPath := filepath.Join(cfg.ChildRoot, strconv.Itoa(pid))
	if err := mkdirAllJail(jailPath); err != nil {
		return nil, err
	}

	if err := symlinkAbsolutePath(jailPath, cfg.LOTemplate, cfg.LOSubPath); err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(cfg.LOTemplate); err == nil && resolved != cfg.LOTemplate {
		if err := symlinkAbsolutePath(jailPath, resolved, cfg.LOSubPath); err != nil {
			return nil, err
		}
	}

	usrMounted := false
	if cfg.BindMountUsr {
		if err := bindMountUsr(cfg.SysTemplate, jailPath); err != nil {
			logger.Warn("jail: usr bind mount failed, falling back to hardlinks", "err", err)
		} else {
			usrMounted = true
		}
	}

	sysMode := CopyAll
	if usrMounted {
		sysMode = CopyNoUsr
	}
	if err := Mirror(cfg.SysTemplate, jailPath, sysMode); err != nil {
		return nil, fmt.Errorf("jail: mirror system template: %w", err)
	}

	jailLOPath := filepath.Join(jailPath, cfg.LOSubPath)
	if err := Mirror(cfg.LOTemplate, jailLOPath, CopyLO); err != nil {
		return nil, fmt.Errorf("jail: mirror office-engine template: %w", err)
	}

	copyNetworkFiles(jailPath, logger)
	createDeviceNodes(jailPath, logger)

	if err := unix.Chroot(jailPath); err != nil {
		return nil, fmt.Errorf("jail: chroot(%q): %w", jailPath, err)
	}
	if err := unix.Chdir("/"); err != nil {
		return nil, fmt.Errorf("jail: chdir(\"/\"): %w", err)
	}
	if err := dropCapabilities(); err != nil {
		return nil, err
	}

	return &Result{JailPath: jailPath, UsrMounted: usrMounted}, nil
}

func mkdirAllJail(jailPath string) error {
	if err := unix.Mkdir(jailPath, 0o750); err != nil && !isExist(err) {
		return fmt.Errorf("jail: mkdir %q: %w", jailPath, err)
	}
	return nil
}

func isExist(err error) bool { return err == unix.EEXIST }

// bindMountUsr shells out to the loolmount helper to bind-mount the
// system template's usr subtree onto the jail's usr, avoiding a full
// hardlink pass over the largest subtree in the system template.
func bindMountUsr(sysTemplate, jailPath string) error {
	src := filepath.Join(sysTemplate, "usr")
	dst := filepath.Join(jailPath, "usr")
	if err := unix.Mkdir(dst, 0o755); err != nil && !isExist(err) {
		return fmt.Errorf("jail: mkdir %q: %w", dst, err)
	}

	cmd := exec.Command("loolmount", src, dst)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("jail: loolmount %s %s: %w (%s)", src, dst, err, out)
	}
	return nil
}
