// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import "sort"

// FakeOffice is a deterministic, in-process Office used by tests that
// exercise [internal/document].Manager without a real engine
// installation. It reproduces the one piece of engine behavior the
// password state machine depends on: DocumentLoad synchronously
// invokes the registered global callback when the target document is
// password-protected, and blocks on whatever password the callback
// handler submits via SetDocumentPassword before deciding success or
// failure.
type FakeOffice struct {
	callback CallbackFunc
	version  string

	protected map[string]passwordSpec
	loadErr   map[string]error

	submitted      *string
	haveSubmission bool
}

type passwordSpec struct {
	kind     CallbackType
	password string
}

// NewFakeOffice returns an Office with no configured documents; any
// URI loads immediately with no password prompt.
func NewFakeOffice() *FakeOffice {
	return &FakeOffice{version: "FakeOffice 1.0", protected: make(map[string]passwordSpec)}
}

// ProtectDocument marks uri as password-protected: kind must be
// [CallbackDocumentPassword] or [CallbackDocumentPasswordToModify],
// and password is the one value DocumentLoad will accept.
func (o *FakeOffice) ProtectDocument(uri string, kind CallbackType, password string) {
	o.protected[uri] = passwordSpec{kind: kind, password: password}
}

// FailLoad makes DocumentLoad(uri) return err instead of succeeding,
// simulating a documentLoad failure not attributable to a password
// (a corrupt file, an engine crash, an unsupported format).
func (o *FakeOffice) FailLoad(uri string, err error) {
	if o.loadErr == nil {
		o.loadErr = make(map[string]error)
	}
	o.loadErr[uri] = err
}

func (o *FakeOffice) DocumentLoad(uri string) (Document, error) {
	if err, failing := o.loadErr[uri]; failing {
		return nil, err
	}

	spec, protected := o.protected[uri]
	if !protected {
		return newFakeDocument(), nil
	}

	if !o.promptOnce(spec) {
		return nil, nil
	}
	if *o.submitted != spec.password {
		// Wrong password: the engine re-prompts once more; the
		// caller's password handler recognizes the second callback
		// in the same load attempt as "wrong password" and submits
		// nil to abort.
		o.promptOnce(spec)
		return nil, nil
	}
	return newFakeDocument(), nil
}

// promptOnce fires the global callback and reports whether a non-nil
// password was submitted in response.
func (o *FakeOffice) promptOnce(spec passwordSpec) bool {
	o.submitted = nil
	o.haveSubmission = false
	if o.callback != nil {
		o.callback(spec.kind, "")
	}
	return o.haveSubmission && o.submitted != nil
}

func (o *FakeOffice) SetDocumentPassword(uri string, password *string) {
	o.submitted = password
	o.haveSubmission = true
}

func (o *FakeOffice) SetOptionalFeatures(flags OptionalFeature) {}

func (o *FakeOffice) RegisterCallback(cb CallbackFunc) { o.callback = cb }

func (o *FakeOffice) GetVersionInfo() (string, error) { return o.version, nil }

func (o *FakeOffice) GetError() string { return "" }

// FireGlobalCallback lets a test simulate an engine-originated global
// callback unrelated to password handling (e.g. a fatal alert).
func (o *FakeOffice) FireGlobalCallback(t CallbackType, payload string) {
	if o.callback != nil {
		o.callback(t, payload)
	}
}

// FakeDocument is a deterministic Document. PaintPartTile fills each
// pixel as a pure function of the absolute document coordinate it
// covers, so that painting a large rectangle once and slicing it
// produces byte-identical pixels to painting each sub-rectangle
// individually — the property the combined-tile fast path depends on.
type FakeDocument struct {
	tileMode  TileMode
	nextView  int
	views     map[int]bool
	callbacks map[int]CallbackFunc
	current   int

	trackedChangeAuthorsJSON string
}

func newFakeDocument() *FakeDocument {
	return &FakeDocument{
		tileMode:  TileModeBGRA,
		views:     make(map[int]bool),
		callbacks: make(map[int]CallbackFunc),
	}
}

func (d *FakeDocument) GetViewsCount() int { return len(d.views) }

func (d *FakeDocument) GetViewIds() []int {
	ids := make([]int, 0, len(d.views))
	for id := range d.views {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (d *FakeDocument) CreateView() int {
	id := d.nextView
	d.nextView++
	d.views[id] = true
	d.current = id
	return id
}

func (d *FakeDocument) DestroyView(viewID int) {
	delete(d.views, viewID)
	delete(d.callbacks, viewID)
}

func (d *FakeDocument) SetView(viewID int) { d.current = viewID }

func (d *FakeDocument) GetView() int { return d.current }

func (d *FakeDocument) InitializeForRendering(jsonOptions string) error { return nil }

func (d *FakeDocument) PaintPartTile(buf []byte, part, pxW, pxH, twipsX, twipsY, twipsW, twipsH int) error {
	if len(buf) < 4*pxW*pxH {
		panic("engine: PaintPartTile buffer too small")
	}
	scaleX := twipsW / pxW
	scaleY := twipsH / pxH
	if scaleX == 0 {
		scaleX = 1
	}
	if scaleY == 0 {
		scaleY = 1
	}
	for py := 0; py < pxH; py++ {
		ay := twipsY + py*scaleY
		for px := 0; px < pxW; px++ {
			ax := twipsX + px*scaleX
			v := byte((part*7919 + ax*131 + ay*17) & 0xFF)
			off := 4 * (py*pxW + px)
			buf[off+0] = v
			buf[off+1] = v ^ 0x55
			buf[off+2] = v ^ 0xAA
			buf[off+3] = 0xFF
		}
	}
	return nil
}

func (d *FakeDocument) GetTileMode() TileMode { return d.tileMode }

func (d *FakeDocument) RegisterCallback(cb CallbackFunc) {
	if cb == nil {
		delete(d.callbacks, d.current)
		return
	}
	d.callbacks[d.current] = cb
}

func (d *FakeDocument) GetCommandValues(command string) (string, bool) {
	if command == ".uno:TrackedChangeAuthors" && d.trackedChangeAuthorsJSON != "" {
		return d.trackedChangeAuthorsJSON, true
	}
	return "", false
}

// SetTrackedChangeAuthors configures the JSON GetCommandValues returns
// for ".uno:TrackedChangeAuthors", used by view-color tests.
func (d *FakeDocument) SetTrackedChangeAuthors(json string) { d.trackedChangeAuthorsJSON = json }

// FireViewCallback lets a test simulate a per-view engine callback for
// whichever session currently owns viewID.
func (d *FakeDocument) FireViewCallback(viewID int, t CallbackType, payload string) {
	if cb, ok := d.callbacks[viewID]; ok && cb != nil {
		cb(t, payload)
	}
}
