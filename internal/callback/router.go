// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

// Package callback classifies engine callbacks into global (process-
// wide) and per-view categories and turns them into tile-queue
// payloads, so that engine-internal callback threads never touch
// session state directly — they only ever push onto the queue, and
// the dispatch loop (the queue's sole consumer) is what actually acts
// on them.
package callback

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/inkwell-project/inkwell/internal/engine"
	"github.com/inkwell-project/inkwell/internal/tilequeue"
)

// PasswordHandler is invoked for password-request callback types
// instead of being enqueued; it drives the document manager's
// password state machine.
type PasswordHandler func(callbackType engine.CallbackType, payload string)

// Router turns engine callbacks into tile-queue payloads.
type Router struct {
	queue      *tilequeue.Queue
	onPassword PasswordHandler
}

// New returns a Router that enqueues onto queue and defers password
// callbacks to onPassword.
func New(queue *tilequeue.Queue, onPassword PasswordHandler) *Router {
	return &Router{queue: queue, onPassword: onPassword}
}

func isPasswordRequest(t engine.CallbackType) bool {
	return t == engine.CallbackDocumentPassword || t == engine.CallbackDocumentPasswordToModify
}

// Global handles the process-wide callback registered once on the
// engine handle. Password requests go to onPassword; everything else
// is enqueued with viewId -1, meaning "deliver to every live
// session".
func (r *Router) Global(t engine.CallbackType, payload string) {
	if isPasswordRequest(t) {
		r.onPassword(t, payload)
		return
	}
	r.enqueue(-1, t, payload)
}

// PerView returns the callback function to register for viewID. It
// tracks cursor-movement payloads into the tile queue's cursor state
// before enqueueing every callback unconditionally.
func (r *Router) PerView(viewID int) engine.CallbackFunc {
	return func(t engine.CallbackType, payload string) {
		switch t {
		case engine.CallbackInvalidateVisibleCursor, engine.CallbackCellCursor:
			// The engine reports these without a view id, so cursor
			// tracking for them is hardcoded to (viewId=0, part=0)
			// regardless of which view is actually active. Carried
			// forward as-is rather than "fixed".
			if rect, ok := parseCommaRect(payload); ok {
				r.queue.UpdateCursorPosition(0, 0, rect)
			}
		case engine.CallbackInvalidateViewCursor, engine.CallbackCellViewCursor:
			if vc, ok := parseViewCursor(payload); ok {
				r.queue.UpdateCursorPosition(vc.viewID, vc.part, vc.rect)
			}
		}
		r.enqueue(viewID, t, payload)
	}
}

func (r *Router) enqueue(viewID int, t engine.CallbackType, payload string) {
	r.queue.Put(tilequeue.Payload{
		Kind: tilequeue.KindCallback,
		Body: fmt.Sprintf("%d %d %s", viewID, int(t), payload),
	})
}

// parseCommaRect parses "x,y,w,h" into a Rectangle. The literal
// "EMPTY" decodes to the zero Rectangle (absent cursor), which
// clears any tracked cursor for the key it's stored under.
func parseCommaRect(payload string) (tilequeue.Rectangle, bool) {
	if payload == "EMPTY" {
		return tilequeue.Rectangle{}, true
	}
	fields := strings.Split(payload, ",")
	if len(fields) != 4 {
		return tilequeue.Rectangle{}, false
	}
	var vals [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return tilequeue.Rectangle{}, false
		}
		vals[i] = n
	}
	return tilequeue.Rectangle{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, true
}

type viewCursor struct {
	viewID int
	part   int
	rect   tilequeue.Rectangle
}

func parseViewCursor(payload string) (viewCursor, bool) {
	var raw struct {
		ViewID    int    `json:"viewId"`
		Part      int    `json:"part"`
		Rectangle string `json:"rectangle"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return viewCursor{}, false
	}
	rect, ok := parseCommaRect(raw.Rectangle)
	if !ok {
		return viewCursor{}, false
	}
	return viewCursor{viewID: raw.ViewID, part: raw.Part, rect: rect}, true
}
