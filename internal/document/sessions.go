// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"encoding/json"
	"sync/atomic"

	"github.com/inkwell-project/inkwell/internal/tilequeue"
)

// TileQueue returns the tile queue this manager drains work from.
func (m *Manager) TileQueue() *tilequeue.Queue { return m.queue }

// OnUnload tears down sessionID's view (if it has one) and removes it
// from the session table. It is the shared teardown path for an
// explicit "child-<id> disconnect" and for a session reaped by
// PurgeSessions.
func (m *Manager) OnUnload(sessionID string) {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, sessionID)
	if session.ViewID >= 0 {
		delete(m.viewToSession, session.ViewID)
	}
	active := session.Active
	viewID := session.ViewID
	m.mu.Unlock()

	m.queue.RemoveCursorPosition(viewID)

	if active {
		m.mu.Lock()
		if m.doc != nil {
			m.doc.SetView(viewID)
			m.doc.RegisterCallback(nil)
			m.doc.DestroyView(viewID)
		}
		m.mu.Unlock()
		atomic.AddInt32(&m.clientViews, -1)
	}

	m.NotifyViewInfo()
}

// HasSession reports whether sessionID was registered by CreateSession
// and has not since been unloaded. It is available immediately —
// before any view exists — so a child-<id> envelope's first "load"
// command can be resolved against it.
func (m *Manager) HasSession(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	return ok
}

// SessionIDForView returns the session id owning viewID, if any.
func (m *Manager) SessionIDForView(viewID int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.viewToSession[viewID]
	if !ok {
		return "", false
	}
	return s.ID, true
}

// LiveSessionIDsForCallback returns the session ids a callback with
// this viewId should be delivered to: every live, active session for
// viewID == -1, or just the one session owning that view.
func (m *Manager) LiveSessionIDsForCallback(viewID int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	if viewID == -1 {
		for id, s := range m.sessions {
			if s.Active && !s.CloseFrame {
				ids = append(ids, id)
			}
		}
		return ids
	}
	if s, ok := m.viewToSession[viewID]; ok && s.Active && !s.CloseFrame {
		ids = append(ids, s.ID)
	}
	return ids
}

// ClientViews returns the number of sessions with a successfully
// created, not-yet-destroyed view.
func (m *Manager) ClientViews() int32 {
	return atomic.LoadInt32(&m.clientViews)
}

// MarkAllClosed sets the close-frame flag on every session. There is
// one control connection per worker, so its failure or closure is a
// close-frame event for every session multiplexed on it.
func (m *Manager) MarkAllClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.CloseFrame = true
	}
}

// PurgeResult is the three-valued outcome of PurgeSessions. Unavailable
// means the document mutex was contended and nothing was inspected;
// callers must not treat that the same as "zero sessions" even though
// both leave nothing purged this cycle, since only Count == 0 (with
// Unavailable false) is a basis for exiting.
type PurgeResult struct {
	Unavailable bool
	ShouldExit  bool
	Count       int
}

// PurgeSessions attempts a non-blocking pass over the session table.
// If every session has its close-frame flag set (including the
// trivial case of no sessions at all), it reports ShouldExit — the
// caller must terminate the process, matching the historical
// "last session gone" exit path. Otherwise it reaps closed sessions
// and reports how many remain.
func (m *Manager) PurgeSessions() PurgeResult {
	if !m.mu.TryLock() {
		return PurgeResult{Unavailable: true}
	}

	live := 0
	var closed []string
	for id, s := range m.sessions {
		if s.CloseFrame {
			closed = append(closed, id)
		} else {
			live++
		}
	}
	m.mu.Unlock()

	if live == 0 {
		return PurgeResult{ShouldExit: true}
	}

	for _, id := range closed {
		m.OnUnload(id)
	}

	m.mu.Lock()
	remaining := len(m.sessions)
	m.mu.Unlock()
	return PurgeResult{Count: remaining}
}

type viewInfoEntry struct {
	ID       int    `json:"id"`
	UserName string `json:"username"`
	Color    int    `json:"color"`
}

// NotifyViewInfo broadcasts the current view list to the shared
// control connection: one entry per engine-reported view id, with a
// username and color looked up from the tracked-change-authors table.
func (m *Manager) NotifyViewInfo() {
	m.mu.Lock()
	if m.doc == nil {
		m.mu.Unlock()
		return
	}
	ids := m.doc.GetViewIds()
	authorsJSON, haveAuthors := m.doc.GetCommandValues(".uno:TrackedChangeAuthors")
	viewToSession := make(map[int]*Session, len(m.viewToSession))
	for id, s := range m.viewToSession {
		viewToSession[id] = s
	}
	m.mu.Unlock()

	colors := map[string]int{}
	if haveAuthors {
		colors = parseAuthorColors(authorsJSON)
	}

	entries := make([]viewInfoEntry, 0, len(ids))
	for _, id := range ids {
		name := "Unknown"
		if session, ok := viewToSession[id]; ok && session.UserName != "" {
			name = session.UserName
		}
		entries = append(entries, viewInfoEntry{ID: id, UserName: name, Color: colors[name]})
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		m.logger.Warn("document: marshal viewinfo failed", "err", err)
		return
	}
	if err := m.transport.SendText("viewinfo: " + string(payload)); err != nil {
		m.logger.Warn("document: send viewinfo failed", "err", err)
	}
}

func parseAuthorColors(rawJSON string) map[string]int {
	var authors []struct {
		Name  string `json:"name"`
		Color int    `json:"color"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &authors); err != nil {
		return map[string]int{}
	}
	colors := make(map[string]int, len(authors))
	for _, a := range authors {
		colors[a.Name] = a.Color
	}
	return colors
}
