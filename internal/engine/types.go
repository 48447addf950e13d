// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine declares the ABI surface the kit worker calls through
// to reach the headless office-document engine (a dynamically loaded
// shared library). The engine's own internals — layout, formulas,
// rendering algorithms — are out of scope; this package only names the
// operations the rest of the worker depends on, so that
// [internal/document] can be tested against a fake implementation
// without a real engine installed.
//
// [Init] (returning [RealOffice]) and [Preinit] provide the one real
// implementation, built on cgo dlopen bindings. Everything else in
// this package is engine-agnostic.
package engine

import "fmt"

// CallbackType mirrors the engine's LOK_CALLBACK_* integer constants.
// Only the values the worker inspects directly are named; all other
// values pass through the callback router unexamined.
type CallbackType int

const (
	CallbackDocumentPassword         CallbackType = 5
	CallbackDocumentPasswordToModify CallbackType = 6
	CallbackInvalidateVisibleCursor  CallbackType = 1
	CallbackCellCursor               CallbackType = 21
	CallbackInvalidateViewCursor     CallbackType = 15
	CallbackCellViewCursor           CallbackType = 27
)

// OptionalFeature is a bit flag passed to Office.SetOptionalFeatures.
type OptionalFeature uint64

const (
	FeatureDocumentPassword         OptionalFeature = 1 << 0
	FeatureDocumentPasswordToModify OptionalFeature = 1 << 1
	FeaturePartInInvalidationCallback OptionalFeature = 1 << 2
)

// TileMode describes the pixel layout the engine paints into. The
// raster encoder must know this to emit correct PNG color values.
type TileMode int

const (
	// TileModeBGRA is byte order B,G,R,A with straight (non-premultiplied) alpha.
	TileModeBGRA TileMode = iota
	// TileModeRGBA is byte order R,G,B,A with straight alpha.
	TileModeRGBA
)

// CallbackFunc receives an engine callback: its type and a string
// payload (already UTF-8 decoded from the engine's char*). Registering
// a nil CallbackFunc unregisters any previously registered callback,
// matching the original's registerCallback(nullptr, nullptr) idiom.
type CallbackFunc func(callbackType CallbackType, payload string)

// Office is the engine-wide handle, analogous to lok::Office. One
// Office exists per worker process, created once by [Init] (or
// a fake for tests) and held by the document manager for the process
// lifetime.
type Office interface {
	// DocumentLoad loads the document at uri. Returns an error only
	// for conditions unrelated to password protection; a
	// password-protected document with no or a wrong password
	// returns (nil, nil) — see GetError for the human-readable reason,
	// and rely on the PASSWORD callback fired during this call to
	// distinguish the two cases (this mirrors the original's
	// nullable-return-plus-callback-side-channel design, which the
	// worker's password state machine depends on).
	DocumentLoad(uri string) (Document, error)

	// SetDocumentPassword answers a pending password callback. A nil
	// password means "no password available"; passing one aborts the
	// current load attempt via the engine's own retry protocol.
	SetDocumentPassword(uri string, password *string)

	// SetOptionalFeatures enables non-default engine behaviors. Called
	// once, before the first DocumentLoad.
	SetOptionalFeatures(flags OptionalFeature)

	// RegisterCallback installs the process-wide (non-view-specific)
	// callback. Fires for events not attributable to any one view,
	// most importantly password requests during DocumentLoad.
	RegisterCallback(cb CallbackFunc)

	// GetVersionInfo returns the engine's self-reported version string.
	GetVersionInfo() (string, error)

	// GetError returns the last error message the engine recorded,
	// or "" if none.
	GetError() string
}

// Document is a loaded document handle, analogous to lok::Document.
// Every call must be made while the caller holds the document's own
// mutex (see [internal/document].Manager, which owns exactly this
// serialization) — the engine is not reentrant.
type Document interface {
	GetViewsCount() int
	GetViewIds() []int
	CreateView() int
	DestroyView(viewID int)
	SetView(viewID int)
	GetView() int

	// InitializeForRendering must be called after CreateView (or after
	// the initial DocumentLoad, for the first view) and before
	// RegisterCallback for that view.
	InitializeForRendering(jsonOptions string) error

	// PaintPartTile renders the rectangle
	// (twipsX,twipsY,twipsW,twipsH) of part into a pxW*pxH pixel
	// buffer at buf, which must be exactly 4*pxW*pxH bytes.
	PaintPartTile(buf []byte, part, pxW, pxH, twipsX, twipsY, twipsW, twipsH int) error

	GetTileMode() TileMode

	// RegisterCallback installs the per-view callback for whichever
	// view is currently selected by SetView. Pass nil to unregister
	// (done before DestroyView, matching the original's teardown
	// order).
	RegisterCallback(cb CallbackFunc)

	// GetCommandValues queries a .uno: command and returns its raw
	// JSON result, or ok=false if the engine has no answer.
	GetCommandValues(command string) (json string, ok bool)
}

// ErrEngineUnavailable is returned, wrapped, by Init when lok_init_2
// returns NULL. A shared library that cannot be located or opened is
// reported with a different error.
var ErrEngineUnavailable = fmt.Errorf("engine: shared library unavailable")
