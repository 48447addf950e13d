// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package engine

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include <stdbool.h>
#include <stdint.h>

// The vtable-of-function-pointers shape below mirrors
// LibreOfficeKit.h's C ABI: a LibreOfficeKit/LibreOfficeKitDocument
// handle is just a pointer to a struct whose first (and only) field
// is a pointer to a class struct of function pointers, each taking
// the handle as its first argument. cgo cannot call a C function
// pointer value directly, so every entry point gets a tiny static
// trampoline that does the indirect call.

typedef void LibreOfficeKitDocument;
typedef void LibreOfficeKitCallback_t(int type, const char *payload, void *data);

typedef struct {
	size_t nSize;
	void (*destroy)(void *pThis);
	LibreOfficeKitDocument* (*documentLoad)(void *pThis, const char *pURL);
	char* (*getError)(void *pThis);
	void (*freeError)(char *pFree);
	void (*registerCallback)(void *pThis, LibreOfficeKitCallback_t *pCallback, void *pData);
	LibreOfficeKitDocument* (*documentLoad2)(void *pThis, const char *pURL, const char *pOptions);
	char* (*getFilterTypes)(void *pThis);
	void (*setOptionalFeatures)(void *pThis, uint64_t features);
	void (*setDocumentPassword)(void *pThis, const char *pURL, const char *pPassword);
	char* (*getVersionInfo)(void *pThis);
} LibreOfficeKitClass;

typedef struct {
	LibreOfficeKitClass *pClass;
} LibreOfficeKit;

typedef struct {
	size_t nSize;
	void (*destroy)(LibreOfficeKitDocument *pThis);
	void (*paintTile)(LibreOfficeKitDocument *pThis, unsigned char *pBuffer,
		int nCanvasWidth, int nCanvasHeight,
		int nTilePosX, int nTilePosY, int nTileWidth, int nTileHeight);
	void (*paintPartTile)(LibreOfficeKitDocument *pThis, unsigned char *pBuffer,
		int nPart, int nCanvasWidth, int nCanvasHeight,
		int nTilePosX, int nTilePosY, int nTileWidth, int nTileHeight);
	int (*getTileMode)(LibreOfficeKitDocument *pThis);
	void (*getDocumentSize)(LibreOfficeKitDocument *pThis, long *pWidth, long *pHeight);
	void (*initializeForRendering)(LibreOfficeKitDocument *pThis, const char *pArguments);
	void (*registerCallback)(LibreOfficeKitDocument *pThis, LibreOfficeKitCallback_t *pCallback, void *pData);
	char* (*getCommandValues)(LibreOfficeKitDocument *pThis, const char *pCommand);
	int (*getViewsCount)(LibreOfficeKitDocument *pThis);
	bool (*getViewIds)(LibreOfficeKitDocument *pThis, int *pArray, size_t nSize);
	int (*createView)(LibreOfficeKitDocument *pThis);
	void (*destroyView)(LibreOfficeKitDocument *pThis, int nId);
	void (*setView)(LibreOfficeKitDocument *pThis, int nId);
	int (*getView)(LibreOfficeKitDocument *pThis);
} LibreOfficeKitDocumentClass;

typedef struct {
	LibreOfficeKitDocumentClass *pClass;
} LibreOfficeKitDocumentHandle;

typedef LibreOfficeKit* (*lok_init_2_fn)(const char *install_path, const char *user_profile_url);

static void *call_init2(void *fn, const char *install_path, const char *user_profile_url) {
	return ((lok_init_2_fn)fn)(install_path, user_profile_url);
}

static LibreOfficeKitDocument *office_documentLoad(LibreOfficeKit *o, const char *url) {
	return o->pClass->documentLoad(o, url);
}
static char *office_getError(LibreOfficeKit *o) { return o->pClass->getError(o); }
static void office_freeError(LibreOfficeKit *o, char *msg) { o->pClass->freeError(msg); }
static void office_setDocumentPassword(LibreOfficeKit *o, const char *url, const char *pw) {
	o->pClass->setDocumentPassword(o, url, pw);
}
static void office_setOptionalFeatures(LibreOfficeKit *o, uint64_t flags) {
	o->pClass->setOptionalFeatures(o, flags);
}
static char *office_getVersionInfo(LibreOfficeKit *o) { return o->pClass->getVersionInfo(o); }
static void office_destroy(LibreOfficeKit *o) { o->pClass->destroy(o); }

extern void goOfficeCallback(int type, char *payload, void *data);
extern void goDocumentCallback(int type, char *payload, void *data);

static void office_registerCallback(LibreOfficeKit *o, void *data) {
	o->pClass->registerCallback(o, (LibreOfficeKitCallback_t*)goOfficeCallback, data);
}
static void office_unregisterCallback(LibreOfficeKit *o) {
	o->pClass->registerCallback(o, NULL, NULL);
}

static void doc_registerCallback(LibreOfficeKitDocumentHandle *d, void *data) {
	d->pClass->registerCallback(d, (LibreOfficeKitCallback_t*)goDocumentCallback, data);
}
static void doc_unregisterCallback(LibreOfficeKitDocumentHandle *d) {
	d->pClass->registerCallback(d, NULL, NULL);
}
static int doc_getViewsCount(LibreOfficeKitDocumentHandle *d) { return d->pClass->getViewsCount(d); }
static bool doc_getViewIds(LibreOfficeKitDocumentHandle *d, int *out, size_t n) {
	return d->pClass->getViewIds(d, out, n);
}
static int doc_createView(LibreOfficeKitDocumentHandle *d) { return d->pClass->createView(d); }
static void doc_destroyView(LibreOfficeKitDocumentHandle *d, int id) { d->pClass->destroyView(d, id); }
static void doc_setView(LibreOfficeKitDocumentHandle *d, int id) { d->pClass->setView(d, id); }
static int doc_getView(LibreOfficeKitDocumentHandle *d) { return d->pClass->getView(d); }
static void doc_initializeForRendering(LibreOfficeKitDocumentHandle *d, const char *args) {
	d->pClass->initializeForRendering(d, args);
}
static void doc_paintPartTile(LibreOfficeKitDocumentHandle *d, unsigned char *buf, int part,
		int cw, int ch, int x, int y, int w, int h) {
	d->pClass->paintPartTile(d, buf, part, cw, ch, x, y, w, h);
}
static int doc_getTileMode(LibreOfficeKitDocumentHandle *d) { return d->pClass->getTileMode(d); }
static char *doc_getCommandValues(LibreOfficeKitDocumentHandle *d, const char *cmd) {
	return d->pClass->getCommandValues(d, cmd);
}
static void doc_destroy(LibreOfficeKitDocumentHandle *d) { d->pClass->destroy(d); }
*/
import "C"

import (
	"fmt"
	"path/filepath"
	"sync"
	"unsafe"
)

// callbackRegistry maps the opaque void* data cgo hands back on
// each callback invocation to the Go CallbackFunc that should run. A
// registry indexed by a small integer token avoids passing Go pointers
// through C, which cgo's pointer-passing rules forbid.
var (
	callbackRegistry   sync.Map // int64 token -> CallbackFunc
	callbackTokenNext  int64
	callbackTokenMutex sync.Mutex
)

func registerCallbackToken(cb CallbackFunc) int64 {
	callbackTokenMutex.Lock()
	defer callbackTokenMutex.Unlock()
	callbackTokenNext++
	token := callbackTokenNext
	callbackRegistry.Store(token, cb)
	return token
}

func unregisterCallbackToken(token int64) {
	callbackRegistry.Delete(token)
}

//export goOfficeCallback
func goOfficeCallback(cType C.int, payload *C.char, data unsafe.Pointer) {
	dispatchCallback(cType, payload, data)
}

//export goDocumentCallback
func goDocumentCallback(cType C.int, payload *C.char, data unsafe.Pointer) {
	dispatchCallback(cType, payload, data)
}

func dispatchCallback(cType C.int, payload *C.char, data unsafe.Pointer) {
	token := int64(uintptr(data))
	v, ok := callbackRegistry.Load(token)
	if !ok {
		return
	}
	cb := v.(CallbackFunc)
	if cb == nil {
		return
	}
	cb(CallbackType(cType), C.GoString(payload))
}

// RealOffice is the cgo-backed Office implementation, built on
// lok_init_2 from the shared library [Preinit] already opened.
type RealOffice struct {
	handle *C.LibreOfficeKit

	mu    sync.Mutex
	token int64
}

// Init obtains the process's one engine handle. installDir is the
// office-engine template root as it appears from inside the worker's
// jail; userProfileURL is a file:// URL for the sandboxed user
// profile directory.
func Init(installDir, userProfileURL string) (*RealOffice, error) {
	libPath, err := resolveEngineLibrary(installDir)
	if err != nil {
		return nil, err
	}

	cLibPath := C.CString(libPath)
	defer C.free(unsafe.Pointer(cLibPath))

	dlHandle := C.dlopen(cLibPath, C.RTLD_GLOBAL|C.RTLD_NOW)
	if dlHandle == nil {
		return nil, fmt.Errorf("engine: dlopen(%s) failed: %s", libPath, C.GoString(C.dlerror()))
	}

	cSymbol := C.CString("lok_init_2")
	defer C.free(unsafe.Pointer(cSymbol))
	sym := C.dlsym(dlHandle, cSymbol)
	if sym == nil {
		return nil, fmt.Errorf("engine: no lok_init_2 symbol in %s: %s", libPath, C.GoString(C.dlerror()))
	}

	cInstallDir := C.CString(filepath.Join(installDir, "program"))
	defer C.free(unsafe.Pointer(cInstallDir))
	cUserProfile := C.CString(userProfileURL)
	defer C.free(unsafe.Pointer(cUserProfile))

	handle := (*C.LibreOfficeKit)(C.call_init2(sym, cInstallDir, cUserProfile))
	if handle == nil {
		return nil, fmt.Errorf("%w: lok_init_2 returned NULL from %s", ErrEngineUnavailable, libPath)
	}
	return &RealOffice{handle: handle}, nil
}

func (o *RealOffice) DocumentLoad(uri string) (Document, error) {
	cURL := C.CString(uri)
	defer C.free(unsafe.Pointer(cURL))

	handle := C.office_documentLoad(o.handle, cURL)
	if handle == nil {
		return nil, nil
	}
	return &RealDocument{handle: (*C.LibreOfficeKitDocumentHandle)(handle)}, nil
}

func (o *RealOffice) SetDocumentPassword(uri string, password *string) {
	cURL := C.CString(uri)
	defer C.free(unsafe.Pointer(cURL))

	var cPassword *C.char
	if password != nil {
		cPassword = C.CString(*password)
		defer C.free(unsafe.Pointer(cPassword))
	}
	C.office_setDocumentPassword(o.handle, cURL, cPassword)
}

func (o *RealOffice) SetOptionalFeatures(flags OptionalFeature) {
	C.office_setOptionalFeatures(o.handle, C.uint64_t(flags))
}

func (o *RealOffice) RegisterCallback(cb CallbackFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.token != 0 {
		unregisterCallbackToken(o.token)
		o.token = 0
	}
	if cb == nil {
		C.office_unregisterCallback(o.handle)
		return
	}
	o.token = registerCallbackToken(cb)
	C.office_registerCallback(o.handle, unsafe.Pointer(uintptr(o.token)))
}

func (o *RealOffice) GetVersionInfo() (string, error) {
	cStr := C.office_getVersionInfo(o.handle)
	if cStr == nil {
		return "", fmt.Errorf("engine: getVersionInfo returned NULL")
	}
	defer C.office_freeError(o.handle, cStr)
	return C.GoString(cStr), nil
}

func (o *RealOffice) GetError() string {
	cStr := C.office_getError(o.handle)
	if cStr == nil {
		return ""
	}
	defer C.office_freeError(o.handle, cStr)
	return C.GoString(cStr)
}

// RealDocument is the cgo-backed Document implementation returned by
// RealOffice.DocumentLoad.
type RealDocument struct {
	handle *C.LibreOfficeKitDocumentHandle

	mu    sync.Mutex
	token int64
}

func (d *RealDocument) GetViewsCount() int {
	return int(C.doc_getViewsCount(d.handle))
}

func (d *RealDocument) GetViewIds() []int {
	n := d.GetViewsCount()
	if n <= 0 {
		return nil
	}
	buf := make([]C.int, n)
	if !bool(C.doc_getViewIds(d.handle, (*C.int)(unsafe.Pointer(&buf[0])), C.size_t(n))) {
		return nil
	}
	ids := make([]int, n)
	for i, v := range buf {
		ids[i] = int(v)
	}
	return ids
}

func (d *RealDocument) CreateView() int {
	return int(C.doc_createView(d.handle))
}

func (d *RealDocument) DestroyView(viewID int) {
	C.doc_destroyView(d.handle, C.int(viewID))
}

func (d *RealDocument) SetView(viewID int) {
	C.doc_setView(d.handle, C.int(viewID))
}

func (d *RealDocument) GetView() int {
	return int(C.doc_getView(d.handle))
}

func (d *RealDocument) InitializeForRendering(jsonOptions string) error {
	var cArgs *C.char
	if jsonOptions != "" {
		cArgs = C.CString(jsonOptions)
		defer C.free(unsafe.Pointer(cArgs))
	}
	C.doc_initializeForRendering(d.handle, cArgs)
	return nil
}

func (d *RealDocument) PaintPartTile(buf []byte, part, pxW, pxH, twipsX, twipsY, twipsW, twipsH int) error {
	if len(buf) < 4*pxW*pxH {
		return fmt.Errorf("engine: paint buffer too small: have %d want %d", len(buf), 4*pxW*pxH)
	}
	C.doc_paintPartTile(d.handle, (*C.uchar)(unsafe.Pointer(&buf[0])), C.int(part),
		C.int(pxW), C.int(pxH), C.int(twipsX), C.int(twipsY), C.int(twipsW), C.int(twipsH))
	return nil
}

func (d *RealDocument) GetTileMode() TileMode {
	return TileMode(C.doc_getTileMode(d.handle))
}

func (d *RealDocument) RegisterCallback(cb CallbackFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.token != 0 {
		unregisterCallbackToken(d.token)
		d.token = 0
	}
	if cb == nil {
		C.doc_unregisterCallback(d.handle)
		return
	}
	d.token = registerCallbackToken(cb)
	C.doc_registerCallback(d.handle, unsafe.Pointer(uintptr(d.token)))
}

func (d *RealDocument) GetCommandValues(command string) (string, bool) {
	cCmd := C.CString(command)
	defer C.free(unsafe.Pointer(cCmd))

	cStr := C.doc_getCommandValues(d.handle, cCmd)
	if cStr == nil {
		return "", false
	}
	defer C.free(unsafe.Pointer(cStr))
	return C.GoString(cStr), true
}
