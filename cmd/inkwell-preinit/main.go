// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

// inkwell-preinit performs the one-time, pre-fork engine warmup: it
// opens the office-engine shared library with global symbol
// visibility so that every kit worker forked afterward shares its
// mapped pages read-only. The supervisor (out of scope here) runs this
// exactly once, before forking the first worker — never once per
// worker.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/inkwell-project/inkwell/internal/logging"
	"github.com/inkwell-project/inkwell/internal/preinit"
	"github.com/inkwell-project/inkwell/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var loTemplate, userProfileURL string

	flagSet := pflag.NewFlagSet("inkwell-preinit", pflag.ContinueOnError)
	flagSet.StringVar(&loTemplate, "lo-template", "", "path to the office-engine template installation")
	flagSet.StringVar(&userProfileURL, "user-profile", "file:///opt/inkwell/systemplate/opt/inkwellwsd/user", "file:// URL for the warmup user profile")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if loTemplate == "" {
		return fmt.Errorf("inkwell-preinit: --lo-template is required")
	}

	logger, closer, err := logging.New(logging.FromEnvironment())
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	if err := preinit.Run(preinit.Config{LOTemplate: loTemplate, UserProfileURL: userProfileURL, Logger: logger}); err != nil {
		// Jail-fatal per spec: lok_preinit failure means every worker
		// forked afterward would load an unwarmed or broken library.
		process.FatalCode(fmt.Errorf("inkwell-preinit: %w", err), process.ExitSoftwareFailure)
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `inkwell-preinit — warm the office-engine shared library before forking kit workers.

Usage:
  inkwell-preinit --lo-template=/opt/inkwell/lotemplate [flags]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
