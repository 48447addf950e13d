// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package tilequeue

import "testing"

func TestQueueFIFOOrder(t *testing.T) {
	t.Parallel()

	q := NewWithoutPriority()
	q.Put(Payload{Kind: KindCallback, Body: "one"})
	q.Put(Payload{Kind: KindCallback, Body: "two"})
	q.Put(Payload{Kind: KindCallback, Body: "three"})

	for _, want := range []string{"one", "two", "three"} {
		got := q.Get()
		if got.Body != want {
			t.Fatalf("Get() = %q, want %q", got.Body, want)
		}
	}
}

func TestQueueCursorPrioritization(t *testing.T) {
	t.Parallel()

	q := New()
	cursor := Rectangle{X: 0, Y: 0, W: 100, H: 100}
	q.UpdateCursorPosition(0, 0, cursor)

	far := Payload{Kind: KindTile, Part: 0, Rect: Rectangle{X: 5000, Y: 5000, W: 100, H: 100}, Body: "far"}
	near := Payload{Kind: KindTile, Part: 0, Rect: Rectangle{X: 10, Y: 10, W: 50, H: 50}, Body: "near"}

	q.Put(far)
	q.Put(near)

	got := q.Get()
	if got.Body != "near" {
		t.Fatalf("Get() = %q, want %q (cursor-intersecting tile should jump the queue)", got.Body, "near")
	}
	got = q.Get()
	if got.Body != "far" {
		t.Fatalf("Get() = %q, want %q", got.Body, "far")
	}
}

func TestQueueCursorPrioritizationIgnoresOtherParts(t *testing.T) {
	t.Parallel()

	q := New()
	q.UpdateCursorPosition(0, 0, Rectangle{X: 0, Y: 0, W: 100, H: 100})

	otherPart := Payload{Kind: KindTile, Part: 1, Rect: Rectangle{X: 10, Y: 10, W: 50, H: 50}, Body: "other-part"}
	samePart := Payload{Kind: KindTile, Part: 0, Rect: Rectangle{X: 200, Y: 200, W: 50, H: 50}, Body: "same-part-no-overlap"}

	q.Put(otherPart)
	q.Put(samePart)

	got := q.Get()
	if got.Body != "other-part" {
		t.Fatalf("Get() = %q, want %q (neither payload intersects the cursor, so FIFO order holds)", got.Body, "other-part")
	}
}

func TestUpdateCursorPositionEmptyClears(t *testing.T) {
	t.Parallel()

	q := New()
	q.UpdateCursorPosition(0, 0, Rectangle{X: 0, Y: 0, W: 100, H: 100})
	q.UpdateCursorPosition(0, 0, Rectangle{}) // EMPTY

	tile := Payload{Kind: KindTile, Part: 0, Rect: Rectangle{X: 10, Y: 10, W: 50, H: 50}, Body: "tile"}
	other := Payload{Kind: KindCallback, Body: "callback"}

	q.Put(other)
	q.Put(tile)

	got := q.Get()
	if got.Body != "callback" {
		t.Fatalf("Get() = %q, want %q (cleared cursor must not prioritize)", got.Body, "callback")
	}
}

func TestCancelTilesDropsOnlyTileKinds(t *testing.T) {
	t.Parallel()

	q := NewWithoutPriority()
	q.Put(Payload{Kind: KindTile, Body: "tile"})
	q.Put(Payload{Kind: KindTileCombine, Body: "tilecombine"})
	q.Put(Payload{Kind: KindCallback, Body: "callback"})
	q.Put(Payload{Kind: KindChild, Body: "child"})

	q.CancelTiles()

	got := q.Get()
	if got.Body != "callback" {
		t.Fatalf("Get() = %q, want %q", got.Body, "callback")
	}
	got = q.Get()
	if got.Body != "child" {
		t.Fatalf("Get() = %q, want %q", got.Body, "child")
	}
}

func TestRemoveCursorPositionScopedToView(t *testing.T) {
	t.Parallel()

	q := New()
	q.UpdateCursorPosition(1, 0, Rectangle{X: 0, Y: 0, W: 10, H: 10})
	q.UpdateCursorPosition(2, 0, Rectangle{X: 0, Y: 0, W: 10, H: 10})
	q.RemoveCursorPosition(1)

	tile := Payload{Kind: KindTile, Part: 0, Rect: Rectangle{X: 0, Y: 0, W: 10, H: 10}, Body: "tile"}
	other := Payload{Kind: KindCallback, Body: "callback"}
	q.Put(other)
	q.Put(tile)

	// view 2's cursor still overlaps, so the tile still jumps ahead.
	got := q.Get()
	if got.Body != "tile" {
		t.Fatalf("Get() = %q, want %q (view 2's cursor entry should survive)", got.Body, "tile")
	}
}

func TestRectangleIntersects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Rectangle
		want bool
	}{
		{"overlapping", Rectangle{0, 0, 10, 10}, Rectangle{5, 5, 10, 10}, true},
		{"disjoint", Rectangle{0, 0, 10, 10}, Rectangle{100, 100, 10, 10}, false},
		{"touching edges do not intersect", Rectangle{0, 0, 10, 10}, Rectangle{10, 0, 10, 10}, false},
		{"one empty", Rectangle{0, 0, 0, 0}, Rectangle{0, 0, 10, 10}, false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.a.Intersects(tc.b); got != tc.want {
				t.Errorf("Intersects() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPutEOF(t *testing.T) {
	t.Parallel()

	q := New()
	q.PutEOF()
	got := q.Get()
	if got.Kind != KindEOF {
		t.Fatalf("Get().Kind = %v, want KindEOF", got.Kind)
	}
}
