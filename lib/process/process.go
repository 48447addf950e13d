// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers shared by
// inkwell's worker binaries: raw stderr reporting for errors that
// occur before the structured logger exists, and process exit after
// an unrecoverable error in main().
package process

import (
	"fmt"
	"os"
)

// ExitSoftwareFailure is the exit code for a jail-fatal condition: jail
// construction failed (link, chroot, chdir, capability drop), the
// engine library or lok_preinit failed to load, or a documentLoad
// failure was not attributable to a wrong password. The worker cannot
// make progress and must not be restarted into the same broken state
// without supervisor intervention.
const ExitSoftwareFailure = 70

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors returned by run(), where the structured logger may
// not yet be initialized.
func Fatal(err error) {
	FatalCode(err, 1)
}

// FatalCode writes "error: err" to stderr and exits with code. Use it
// for failures that must be distinguished from a generic error exit,
// such as [ExitSoftwareFailure].
func FatalCode(err error, code int) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(code)
}
