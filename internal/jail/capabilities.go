// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package jail

import (
	"fmt"

	"github.com/moby/sys/capability"
)

// droppedCapabilities are the ones needed to build the jail
// (CAP_SYS_CHROOT for chroot itself, CAP_MKNOD for the device nodes,
// CAP_FOWNER for the hardlink/mkdir tree construction) and nothing
// else. Once the jail is entered they serve no further purpose and
// worker code must not regain them.
var droppedCapabilities = []capability.Cap{
	capability.CAP_SYS_CHROOT,
	capability.CAP_MKNOD,
	capability.CAP_FOWNER,
}

// dropCapabilities clears droppedCapabilities from both the effective
// and permitted sets of the calling process.
func dropCapabilities() error {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return fmt.Errorf("jail: capability.NewPid2: %w", err)
	}
	if err := caps.Load(); err != nil {
		return fmt.Errorf("jail: load process capabilities: %w", err)
	}

	caps.Unset(capability.EFFECTIVE|capability.PERMITTED, droppedCapabilities...)

	if err := caps.Apply(capability.CAPS); err != nil {
		return fmt.Errorf("jail: apply dropped capabilities: %w", err)
	}
	return nil
}
