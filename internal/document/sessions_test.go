// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package document

import "testing"

func TestPurgeSessionsExitsWhenAllClosed(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	m.CreateSession("s1", "file:///a.docx")
	m.OnLoad("s1", "file:///a.docx", "Alice", nil, "", false)

	m.MarkAllClosed()
	result := m.PurgeSessions()
	if !result.ShouldExit {
		t.Fatal("PurgeSessions should report ShouldExit once every session is closed")
	}
}

func TestPurgeSessionsExitsWithNoSessions(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	result := m.PurgeSessions()
	if !result.ShouldExit {
		t.Fatal("PurgeSessions with zero sessions should report ShouldExit")
	}
}

func TestPurgeSessionsKeepsLiveSessions(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	m.CreateSession("s1", "file:///a.docx")
	m.CreateSession("s2", "file:///a.docx")
	m.OnLoad("s1", "file:///a.docx", "Alice", nil, "", false)
	m.OnLoad("s2", "file:///a.docx", "Bob", nil, "", false)

	result := m.PurgeSessions()
	if result.ShouldExit {
		t.Fatal("PurgeSessions should not exit while sessions lack their close frame")
	}
	if result.Count != 2 {
		t.Fatalf("Count = %d, want 2", result.Count)
	}
}

func TestOnUnloadRemovesSessionAndView(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	m.CreateSession("s1", "file:///a.docx")
	m.OnLoad("s1", "file:///a.docx", "Alice", nil, "", false)

	if m.ClientViews() != 1 {
		t.Fatalf("ClientViews() = %d, want 1", m.ClientViews())
	}

	m.OnUnload("s1")
	if m.ClientViews() != 0 {
		t.Fatalf("ClientViews() after unload = %d, want 0", m.ClientViews())
	}
	if _, ok := m.SessionIDForView(0); ok {
		t.Fatal("view should no longer resolve to a session after unload")
	}
}

func TestSessionIDForView(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	m.CreateSession("s1", "file:///a.docx")
	m.OnLoad("s1", "file:///a.docx", "Alice", nil, "", false)

	id, ok := m.SessionIDForView(0)
	if !ok || id != "s1" {
		t.Fatalf("SessionIDForView(0) = (%q, %v), want (s1, true)", id, ok)
	}
}

func TestLiveSessionIDsForCallbackBroadcast(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	m.CreateSession("s1", "file:///a.docx")
	m.CreateSession("s2", "file:///a.docx")
	m.OnLoad("s1", "file:///a.docx", "Alice", nil, "", false)
	m.OnLoad("s2", "file:///a.docx", "Bob", nil, "", false)

	ids := m.LiveSessionIDsForCallback(-1)
	if len(ids) != 2 {
		t.Fatalf("len(ids) = %d, want 2", len(ids))
	}
}

func TestLiveSessionIDsForCallbackSingleView(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	m.CreateSession("s1", "file:///a.docx")
	m.OnLoad("s1", "file:///a.docx", "Alice", nil, "", false)

	ids := m.LiveSessionIDsForCallback(0)
	if len(ids) != 1 || ids[0] != "s1" {
		t.Fatalf("LiveSessionIDsForCallback(0) = %v, want [s1]", ids)
	}
}

func TestMarkAllClosedAffectsEverySession(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	m.CreateSession("s1", "file:///a.docx")
	m.CreateSession("s2", "file:///a.docx")

	m.MarkAllClosed()
	result := m.PurgeSessions()
	if !result.ShouldExit {
		t.Fatal("marking every session closed should let PurgeSessions exit")
	}
}
