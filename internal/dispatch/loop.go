// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch runs the single consumer thread that drains the
// tile queue and turns each payload into a document manager or
// session operation. Funneling every payload through one goroutine
// keeps engine access and session state single-threaded even though
// the control channel and engine callbacks both produce work
// concurrently.
package dispatch

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/inkwell-project/inkwell/internal/document"
	"github.com/inkwell-project/inkwell/internal/tilequeue"
)

// SessionHandler is the narrow capability the loop needs to reach
// session behavior that lives outside this module: interpreting a
// forwarded command body, and delivering a callback event.
type SessionHandler interface {
	HandleInput(sessionID, body string) error
	DeliverCallback(sessionID string, callbackType int, payload string) error
}

// Loop is the dispatch thread.
type Loop struct {
	queue    *tilequeue.Queue
	doc      *document.Manager
	sessions SessionHandler
	logger   *slog.Logger
}

// New constructs a Loop. logger defaults to slog.Default() when nil.
func New(queue *tilequeue.Queue, doc *document.Manager, sessions SessionHandler, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{queue: queue, doc: doc, sessions: sessions, logger: logger}
}

// Run blocks, draining the queue until it sees an eof payload.
func (l *Loop) Run() {
	for {
		payload := l.queue.Get()
		if payload.Kind == tilequeue.KindEOF {
			return
		}
		l.dispatch(payload)
	}
}

func (l *Loop) dispatch(p tilequeue.Payload) {
	switch p.Kind {
	case tilequeue.KindTile:
		l.dispatchTile(p)
	case tilequeue.KindTileCombine:
		l.dispatchTileCombine(p)
	case tilequeue.KindChild:
		l.dispatchChild(p)
	case tilequeue.KindCallback:
		l.dispatchCallback(p)
	default:
		l.logger.Warn("dispatch: dropped payload of unknown kind", "kind", p.Kind)
	}
}

func (l *Loop) dispatchTile(p tilequeue.Payload) {
	req, ok := p.Parsed.(document.TileRequest)
	if !ok {
		l.logger.Error("dispatch: tile payload missing parsed request")
		return
	}
	if err := l.doc.RenderTile(req); err != nil {
		l.logger.Warn("dispatch: render tile failed", "err", err)
	}
}

func (l *Loop) dispatchTileCombine(p tilequeue.Payload) {
	req, ok := p.Parsed.(document.TileCombinedRequest)
	if !ok {
		l.logger.Error("dispatch: tilecombine payload missing parsed request")
		return
	}
	if err := l.doc.RenderCombinedTiles(req); err != nil {
		l.logger.Warn("dispatch: render tilecombine failed", "err", err)
	}
}

// dispatchChild resolves a child-<id> envelope by session id, which
// CreateSession registers as soon as the "session" command arrives —
// unlike a view id, which does not exist until a session's first
// "load" has already succeeded. Resolving by view id here would make
// that very first "load" unroutable.
func (l *Loop) dispatchChild(p tilequeue.Payload) {
	sessionID := p.ChildSessionID
	if !l.doc.HasSession(sessionID) {
		l.logger.Warn("dispatch: child forward to unknown session", "session", sessionID)
		return
	}
	if p.Body == "disconnect" {
		l.doc.OnUnload(sessionID)
		return
	}
	if err := l.sessions.HandleInput(sessionID, p.Body); err != nil {
		l.logger.Warn("dispatch: session input failed", "session", sessionID, "err", err)
	}
}

func (l *Loop) dispatchCallback(p tilequeue.Payload) {
	viewID, callbackType, payload, ok := parseCallbackBody(p.Body)
	if !ok {
		l.logger.Warn("dispatch: malformed callback payload", "body", p.Body)
		return
	}
	for _, sessionID := range l.doc.LiveSessionIDsForCallback(viewID) {
		if err := l.sessions.DeliverCallback(sessionID, callbackType, payload); err != nil {
			l.logger.Warn("dispatch: deliver callback failed", "session", sessionID, "err", err)
		}
	}
}

func parseCallbackBody(body string) (viewID, callbackType int, payload string, ok bool) {
	fields := strings.SplitN(body, " ", 3)
	if len(fields) < 2 {
		return 0, 0, "", false
	}
	viewID, err1 := strconv.Atoi(fields[0])
	callbackType, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return 0, 0, "", false
	}
	if len(fields) == 3 {
		payload = fields[2]
	}
	return viewID, callbackType, payload, true
}
