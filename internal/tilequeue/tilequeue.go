// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

// Package tilequeue implements the single-consumer work queue that
// decouples the control channel and engine callbacks (both potential
// producers) from the document manager (the sole consumer). Its one
// piece of domain logic is cursor-aware prioritization:
// tiles that cover a client's current cursor position are dequeued
// ahead of tiles that don't, without disturbing relative order within
// either group.
package tilequeue

import "sync"

// Kind tags a queued message. Only Tile and TileCombine participate
// in cursor prioritization; every other kind is delivered strictly
// in arrival order.
type Kind int

const (
	KindTile Kind = iota
	KindTileCombine
	KindCallback
	KindChild
	KindEOF
)

// Rectangle is an axis-aligned region in twips.
type Rectangle struct {
	X, Y, W, H int
}

// Empty reports whether r covers no area — the "EMPTY" cursor payload
// from the engine decodes to this.
func (r Rectangle) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Intersects reports whether r and o overlap. Two empty rectangles
// never intersect.
func (r Rectangle) Intersects(o Rectangle) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Payload is a single queued message. Body carries the original text
// framing so the dispatch loop and downstream handlers can reparse or
// forward it verbatim.
type Payload struct {
	Kind Kind

	// ChildSessionID is set for KindChild: the session id parsed out of
	// the "child-<id>" token. It names a session directly, the same
	// string CreateSession registered it under — not an engine-assigned
	// view id, which may not exist yet (a session's first "load" also
	// arrives through a child-<id> envelope, before it has a view).
	ChildSessionID string

	// Part and Rect are set for KindTile/KindTileCombine, used only
	// for cursor-intersection prioritization.
	Part int
	Rect Rectangle

	Body string

	// Parsed carries the already-decoded request (a
	// document.TileRequest or document.TileCombinedRequest) for
	// KindTile/KindTileCombine, so the dispatch loop never has to
	// re-parse Body. Opaque here to avoid an import cycle with the
	// document package, which itself depends on this one.
	Parsed any
}

type cursorKey struct {
	viewID int
	part   int
}

// Queue is a FIFO of Payload with cursor-aware reordering for tile
// requests. The zero value is not usable; construct with [New].
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	priority []Payload
	normal   []Payload

	cursors map[cursorKey]Rectangle

	// disablePriority lets tests get a plain FIFO, matching the
	// design notes' call for a strategy that "can be disabled for
	// deterministic tests".
	disablePriority bool
}

// New creates an empty Queue with cursor prioritization enabled.
func New() *Queue {
	q := &Queue{cursors: make(map[cursorKey]Rectangle)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// NewWithoutPriority creates a Queue that never reorders — plain
// FIFO — for tests that want deterministic dequeue order independent
// of cursor state.
func NewWithoutPriority() *Queue {
	q := New()
	q.disablePriority = true
	return q
}

// Put enqueues payload, using accumulated cursor state to decide
// whether a tile/tilecombine message jumps ahead of every payload
// already in the normal bucket (non-intersecting tiles, callbacks and
// child messages alike).
func (q *Queue) Put(payload Payload) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shouldPrioritize(payload) {
		q.priority = append(q.priority, payload)
	} else {
		q.normal = append(q.normal, payload)
	}
	q.cond.Signal()
}

func (q *Queue) shouldPrioritize(payload Payload) bool {
	if q.disablePriority {
		return false
	}
	if payload.Kind != KindTile && payload.Kind != KindTileCombine {
		return false
	}
	for key, rect := range q.cursors {
		if key.part == payload.Part && rect.Intersects(payload.Rect) {
			return true
		}
	}
	return false
}

// Get blocks until a payload is available and returns it, draining
// the priority bucket before the normal bucket.
func (q *Queue) Get() Payload {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.priority) == 0 && len(q.normal) == 0 {
		q.cond.Wait()
	}

	if len(q.priority) > 0 {
		item := q.priority[0]
		q.priority = q.priority[1:]
		return item
	}
	item := q.normal[0]
	q.normal = q.normal[1:]
	return item
}

// PutEOF enqueues the sentinel that tells the dispatch loop to
// terminate. There is exactly one producer of eof per document: the
// purge loop in cmd/inkwell-kit, just before the process exits.
func (q *Queue) PutEOF() {
	q.Put(Payload{Kind: KindEOF})
}

// CancelTiles drops every pending tile/tilecombine payload, leaving
// callbacks and forwarded child messages untouched. Only commands
// enqueued before this call are affected (spec's cancellation
// guarantee) because Go's slice mutation here happens under the same
// lock Put uses, so nothing enqueued concurrently can be silently
// dropped or retained inconsistently.
func (q *Queue) CancelTiles() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.priority = filterOutTiles(q.priority)
	q.normal = filterOutTiles(q.normal)
}

func filterOutTiles(items []Payload) []Payload {
	kept := items[:0]
	for _, item := range items {
		if item.Kind == KindTile || item.Kind == KindTileCombine {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// UpdateCursorPosition records the most recent cursor rectangle for
// (viewID, part). An empty rectangle clears the entry, matching the
// engine's literal "EMPTY" cursor payload.
func (q *Queue) UpdateCursorPosition(viewID, part int, rect Rectangle) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := cursorKey{viewID: viewID, part: part}
	if rect.Empty() {
		delete(q.cursors, key)
		return
	}
	q.cursors[key] = rect
}

// RemoveCursorPosition drops every cursor entry belonging to viewID,
// called on view unload.
func (q *Queue) RemoveCursorPosition(viewID int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for key := range q.cursors {
		if key.viewID == viewID {
			delete(q.cursors, key)
		}
	}
}
