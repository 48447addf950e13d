// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package callback

import (
	"testing"

	"github.com/inkwell-project/inkwell/internal/engine"
	"github.com/inkwell-project/inkwell/internal/tilequeue"
)

func TestGlobalRoutesPasswordCallbacksToHandler(t *testing.T) {
	t.Parallel()

	q := tilequeue.New()
	var gotType engine.CallbackType
	var gotPayload string
	r := New(q, func(t engine.CallbackType, payload string) {
		gotType = t
		gotPayload = payload
	})

	r.Global(engine.CallbackDocumentPassword, "irrelevant")

	if gotType != engine.CallbackDocumentPassword {
		t.Fatalf("onPassword called with type %v, want %v", gotType, engine.CallbackDocumentPassword)
	}
	if gotPayload != "irrelevant" {
		t.Fatalf("onPassword payload = %q", gotPayload)
	}
}

func TestGlobalEnqueuesNonPasswordCallbacks(t *testing.T) {
	t.Parallel()

	q := tilequeue.NewWithoutPriority()
	r := New(q, func(engine.CallbackType, string) {
		t.Fatal("onPassword should not be called for a non-password callback type")
	})

	r.Global(engine.CallbackType(999), "hello")

	got := q.Get()
	if got.Kind != tilequeue.KindCallback {
		t.Fatalf("Kind = %v, want KindCallback", got.Kind)
	}
	if got.Body != "-1 999 hello" {
		t.Fatalf("Body = %q, want %q", got.Body, "-1 999 hello")
	}
}

func TestPerViewEnqueuesWithViewID(t *testing.T) {
	t.Parallel()

	q := tilequeue.NewWithoutPriority()
	r := New(q, nil)

	cb := r.PerView(7)
	cb(engine.CallbackType(42), "payload")

	got := q.Get()
	if got.Body != "7 42 payload" {
		t.Fatalf("Body = %q, want %q", got.Body, "7 42 payload")
	}
}

func TestPerViewTracksPlainCursorAtViewZeroPartZero(t *testing.T) {
	t.Parallel()

	q := tilequeue.New()
	r := New(q, nil)

	// Registered for view 9, but the plain cursor-invalidation
	// callback carries no view id, so tracking always lands on
	// (viewId=0, part=0) regardless of which view fired it.
	cb := r.PerView(9)
	cb(engine.CallbackInvalidateVisibleCursor, "10,10,5,5")
	q.Get() // drain the raw callback enqueue from cb(...) above

	q.Put(tilequeue.Payload{Kind: tilequeue.KindCallback, Body: "unrelated"})
	q.Put(tilequeue.Payload{Kind: tilequeue.KindTile, Part: 0, Rect: tilequeue.Rectangle{X: 0, Y: 0, W: 100, H: 100}})

	// The tile intersecting the tracked cursor jumps ahead of the
	// already-queued, non-intersecting callback message.
	first := q.Get()
	if first.Kind != tilequeue.KindTile {
		t.Fatalf("Get().Kind = %v, want KindTile (cursor-intersecting tile should be prioritized)", first.Kind)
	}
	second := q.Get()
	if second.Body != "unrelated" {
		t.Fatalf("Get().Body = %q, want %q", second.Body, "unrelated")
	}
}

func TestPerViewTracksViewCursorJSON(t *testing.T) {
	t.Parallel()

	q := tilequeue.New()
	r := New(q, nil)

	cb := r.PerView(3)
	cb(engine.CallbackInvalidateViewCursor, `{"viewId":3,"part":2,"rectangle":"1,1,20,20"}`)
	q.Get() // drain the raw callback enqueue from cb(...) above

	q.Put(tilequeue.Payload{Kind: tilequeue.KindCallback, Body: "unrelated"})
	q.Put(tilequeue.Payload{Kind: tilequeue.KindTile, Part: 2, Rect: tilequeue.Rectangle{X: 5, Y: 5, W: 10, H: 10}})

	first := q.Get()
	if first.Kind != tilequeue.KindTile {
		t.Fatalf("Get().Kind = %v, want KindTile (tracked view cursor should prioritize the intersecting tile)", first.Kind)
	}
}

func TestParseCommaRectEmpty(t *testing.T) {
	t.Parallel()

	rect, ok := parseCommaRect("EMPTY")
	if !ok {
		t.Fatal("parseCommaRect(\"EMPTY\") ok = false")
	}
	if rect != (tilequeue.Rectangle{}) {
		t.Fatalf("parseCommaRect(\"EMPTY\") = %+v, want zero value", rect)
	}
}

func TestParseCommaRectMalformed(t *testing.T) {
	t.Parallel()

	if _, ok := parseCommaRect("1,2,3"); ok {
		t.Fatal("parseCommaRect with 3 fields should fail")
	}
	if _, ok := parseCommaRect("a,b,c,d"); ok {
		t.Fatal("parseCommaRect with non-numeric fields should fail")
	}
}
