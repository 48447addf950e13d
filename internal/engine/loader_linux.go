// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package engine

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef int (*lok_preinit_fn)(const char *install_path, const char *user_profile_url);
typedef void *(*lok_init_2_fn)(const char *install_path, const char *user_profile_url);

static int call_preinit(void *fn, const char *install_path, const char *user_profile_url) {
	return ((lok_preinit_fn)fn)(install_path, user_profile_url);
}

static void *call_init2(void *fn, const char *install_path, const char *user_profile_url) {
	return ((lok_init_2_fn)fn)(install_path, user_profile_url);
}
*/
import "C"

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"
)

const (
	libSofficeapp = "libsofficeapp.so"
	libMerged     = "libmergedlo.so"
)

// resolveEngineLibrary picks the merged library when present, falling
// back to the standalone app library, matching globalPreinit's search
// order.
func resolveEngineLibrary(installDir string) (string, error) {
	merged := filepath.Join(installDir, "program", libMerged)
	if _, err := os.Stat(merged); err == nil {
		return merged, nil
	}
	standalone := filepath.Join(installDir, "program", libSofficeapp)
	if _, err := os.Stat(standalone); err == nil {
		return standalone, nil
	}
	return "", fmt.Errorf("engine: neither %s nor %s exist under %s", libMerged, libSofficeapp, installDir)
}

// Preinit opens the engine shared library with global symbol
// visibility and immediate binding so that pages mapped now are
// shared read-only across every process this one later forks, then
// calls lok_preinit once. It must run before the supervisor forks any
// kit worker.
func Preinit(installDir, userProfileURL string) error {
	libPath, err := resolveEngineLibrary(installDir)
	if err != nil {
		return err
	}

	cLibPath := C.CString(libPath)
	defer C.free(unsafe.Pointer(cLibPath))

	handle := C.dlopen(cLibPath, C.RTLD_GLOBAL|C.RTLD_NOW)
	if handle == nil {
		return fmt.Errorf("engine: dlopen(%s) failed: %s", libPath, C.GoString(C.dlerror()))
	}

	cSymbol := C.CString("lok_preinit")
	defer C.free(unsafe.Pointer(cSymbol))
	sym := C.dlsym(handle, cSymbol)
	if sym == nil {
		return fmt.Errorf("engine: no lok_preinit symbol in %s: %s", libPath, C.GoString(C.dlerror()))
	}

	cInstallDir := C.CString(filepath.Join(installDir, "program"))
	defer C.free(unsafe.Pointer(cInstallDir))
	cUserProfile := C.CString(userProfileURL)
	defer C.free(unsafe.Pointer(cUserProfile))

	if rc := C.call_preinit(sym, cInstallDir, cUserProfile); rc != 0 {
		return fmt.Errorf("engine: lok_preinit() in %s failed (rc=%d)", libPath, int(rc))
	}
	return nil
}
