// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package jail

import (
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

type deviceNode struct {
	name         string
	major, minor uint32
}

var deviceNodes = []deviceNode{
	{name: "random", major: 1, minor: 8},
	{name: "urandom", major: 1, minor: 9},
}

// createDeviceNodes creates the character device nodes the engine
// needs for entropy inside the jail. Failures are logged, not fatal:
// a jail missing /dev/urandom still renders, just with weaker
// randomness available to whatever inside it asks for it.
func createDeviceNodes(jailPath string, logger *slog.Logger) {
	devDir := filepath.Join(jailPath, "dev")
	if err := os.MkdirAll(devDir, 0o755); err != nil {
		logger.Warn("jail: mkdir /dev in jail failed", "err", err)
		return
	}

	for _, dn := range deviceNodes {
		path := filepath.Join(devDir, dn.name)
		dev := unix.Mkdev(dn.major, dn.minor)
		if err := unix.Mknod(path, unix.S_IFCHR|0o666, int(dev)); err != nil {
			logger.Warn("jail: mknod failed", "path", path, "err", err)
		}
	}
}

// networkFiles are copied (not hardlinked) into the jail so DNS
// resolution keeps working; hardlinking them would let a change to
// the jailed copy corrupt the host's.
var networkFiles = []string{
	"/etc/host.conf",
	"/etc/hosts",
	"/etc/nsswitch.conf",
	"/etc/resolv.conf",
}

func copyNetworkFiles(jailPath string, logger *slog.Logger) {
	for _, src := range networkFiles {
		dst := filepath.Join(jailPath, src)
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			logger.Warn("jail: read network file failed", "path", src, "err", err)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			logger.Warn("jail: mkdir for network file failed", "path", dst, "err", err)
			continue
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			logger.Warn("jail: write network file failed", "path", dst, "err", err)
		}
	}
}
