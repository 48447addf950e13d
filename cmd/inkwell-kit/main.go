// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

// inkwell-kit is the single-document rendering worker: one process per
// open document, forked by an out-of-scope supervisor after
// inkwell-preinit has warmed the office-engine shared library. It
// builds its own chroot jail, loads exactly one document inside it,
// and serves every session for that document over one control
// connection back to the supervisor until the last session
// disconnects.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/inkwell-project/inkwell/internal/control"
	"github.com/inkwell-project/inkwell/internal/dispatch"
	"github.com/inkwell-project/inkwell/internal/document"
	"github.com/inkwell-project/inkwell/internal/engine"
	"github.com/inkwell-project/inkwell/internal/jail"
	"github.com/inkwell-project/inkwell/internal/logging"
	"github.com/inkwell-project/inkwell/internal/tilequeue"
	"github.com/inkwell-project/inkwell/lib/process"
)

const purgeInterval = 5 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type flags struct {
	childRoot      string
	sysTemplate    string
	loTemplate     string
	loSubPath      string
	noCapabilities bool
	masterPort     int
	queryVersion   bool
	displayVersion bool
	debugRenderIDs bool
}

func run() error {
	var f flags

	flagSet := pflag.NewFlagSet("inkwell-kit", pflag.ContinueOnError)
	flagSet.StringVar(&f.childRoot, "child-root", "", "directory under which this worker's jail is built")
	flagSet.StringVar(&f.sysTemplate, "sys-template", "", "path to the base system template tree")
	flagSet.StringVar(&f.loTemplate, "lo-template", "", "path to the office-engine template installation")
	flagSet.StringVar(&f.loSubPath, "lo-subpath", "lo", "path, relative to the jail root, where the office-engine template is mirrored")
	flagSet.BoolVar(&f.noCapabilities, "no-capabilities", false, "run unjailed at the engine's original install path (developer builds only)")
	flagSet.IntVar(&f.masterPort, "master-port", 0, "TCP port of the supervisor's control listener")
	flagSet.BoolVar(&f.queryVersion, "query-version", false, "print the office engine's version info as JSON and exit")
	flagSet.BoolVar(&f.displayVersion, "display-version", false, "print inkwell-kit's own version and exit")
	flagSet.BoolVar(&f.debugRenderIDs, "debug-render-ids", false, "tag every rendered tile with a random render id for tracing")
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

	if f.displayVersion {
		fmt.Println("inkwell-kit (dev)")
		return nil
	}

	logger, closer, err := logging.New(logging.FromEnvironment())
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	if f.queryVersion {
		return runQueryVersion(f)
	}

	if f.loTemplate == "" {
		return fmt.Errorf("inkwell-kit: --lo-template is required")
	}
	if !f.noCapabilities && (f.childRoot == "" || f.sysTemplate == "") {
		return fmt.Errorf("inkwell-kit: --child-root and --sys-template are required unless --no-capabilities")
	}
	if f.masterPort == 0 {
		return fmt.Errorf("inkwell-kit: --master-port is required")
	}

	pid := os.Getpid()

	jailResult, err := jail.Build(jail.Config{
		ChildRoot:      f.childRoot,
		SysTemplate:    f.sysTemplate,
		LOTemplate:     f.loTemplate,
		LOSubPath:      f.loSubPath,
		NoCapabilities: f.noCapabilities,
		BindMountUsr:   !f.noCapabilities,
		Logger:         logger,
	}, pid)
	if err != nil {
		// Jail-fatal: a broken jail cannot be made safe by continuing,
		// so this exits immediately rather than returning to main's
		// generic error path.
		process.FatalCode(fmt.Errorf("inkwell-kit: build jail: %w", err), process.ExitSoftwareFailure)
	}

	engineRoot := jailResult.JailPath
	if !f.noCapabilities {
		engineRoot = "/" + f.loSubPath
	}
	office, err := engine.Init(engineRoot, "file:///user")
	if err != nil {
		// Jail-fatal: same as above, an unloadable engine library
		// leaves the worker permanently unable to serve any session.
		process.FatalCode(fmt.Errorf("inkwell-kit: init engine: %w", err), process.ExitSoftwareFailure)
	}

	versionInfo, err := office.GetVersionInfo()
	if err != nil {
		logger.Warn("inkwell-kit: engine version unavailable", "err", err)
	}

	conn, err := control.Dial("127.0.0.1:"+strconv.Itoa(f.masterPort), pid, versionInfo)
	if err != nil {
		return fmt.Errorf("inkwell-kit: dial controller: %w", err)
	}
	defer conn.Close()

	queue := tilequeue.New()

	channel := control.New(conn, control.Config{
		Queue:          queue,
		DebugRenderIDs: f.debugRenderIDs,
		Logger:         logger,
	})

	doc := document.New(document.Config{
		Office:    office,
		Queue:     queue,
		Transport: channel,
		Logger:    logger,
	})
	channel.SetDocument(doc)

	sessions := control.NewSessions(doc, channel, logger)
	loop := dispatch.New(queue, doc, sessions, logger)

	go runPurgeLoop(doc, queue, logger)
	go loop.Run()

	if err := channel.Run(); err != nil {
		logger.Info("inkwell-kit: control connection closed", "err", err)
	}
	return nil
}

// runPurgeLoop polls the session table at a fixed interval and exits
// the process once every session has disconnected, matching the
// historical "last session gone" worker lifetime.
func runPurgeLoop(doc *document.Manager, queue *tilequeue.Queue, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		result := doc.PurgeSessions()
		if result.Unavailable {
			continue
		}
		if result.ShouldExit {
			logger.Info("inkwell-kit: last session closed, exiting")
			queue.PutEOF()
			os.Exit(0)
		}
	}
}

func runQueryVersion(f flags) error {
	office, err := engine.Init(f.loTemplate, "file:///tmp/inkwell-query-version")
	if err != nil {
		return fmt.Errorf("inkwell-kit: init engine: %w", err)
	}
	versionInfo, err := office.GetVersionInfo()
	if err != nil {
		return fmt.Errorf("inkwell-kit: get version info: %w", err)
	}

	out, err := json.Marshal(map[string]string{"LOKitVersion": versionInfo})
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `inkwell-kit — single-document rendering worker.

One process per open document. Forked by the supervisor after
inkwell-preinit has warmed the office-engine shared library; builds
its own chroot jail, then serves every session for one document over
a single control connection until the last session disconnects.

Usage:
  inkwell-kit --lo-template=DIR --sys-template=DIR --child-root=DIR --master-port=PORT

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
