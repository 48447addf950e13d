// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"testing"

	"github.com/inkwell-project/inkwell/internal/document"
	"github.com/inkwell-project/inkwell/internal/engine"
	"github.com/inkwell-project/inkwell/internal/tilequeue"
)

type recordingTransport struct {
	texts  []string
	binary [][]byte
}

func (r *recordingTransport) SendText(message string) error {
	r.texts = append(r.texts, message)
	return nil
}

func (r *recordingTransport) SendBinary(data []byte) error {
	r.binary = append(r.binary, data)
	return nil
}

func newTestManager() (*document.Manager, *recordingTransport) {
	transport := &recordingTransport{}
	m := document.New(document.Config{
		Office:    engine.NewFakeOffice(),
		Queue:     tilequeue.New(),
		Transport: transport,
	})
	return m, transport
}

func TestSessionsHandleLoad(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	if !m.CreateSession("session-1", "file:///Blank.docx") {
		t.Fatal("CreateSession failed")
	}

	s := NewSessions(m, &recordingTransport{}, nil)
	err := s.HandleInput("session-1", "load url=file:///Blank.docx userName=Alice options={}")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if m.ClientViews() != 1 {
		t.Fatalf("ClientViews() = %d, want 1", m.ClientViews())
	}
}

func TestSessionsHandleLoadUnknownSession(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	s := NewSessions(m, &recordingTransport{}, nil)

	err := s.HandleInput("ghost", "load url=file:///Blank.docx")
	if err == nil {
		t.Fatal("expected an error for a session never created via CreateSession")
	}
}

func TestSessionsHandleInputUnknownCommandIgnored(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	m.CreateSession("session-1", "file:///Blank.docx")
	s := NewSessions(m, &recordingTransport{}, nil)

	if err := s.HandleInput("session-1", "keyevent type=input char=97"); err != nil {
		t.Fatalf("HandleInput for an out-of-scope command should not error: %v", err)
	}
}

func TestSessionsHandleInputEmptyBody(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	s := NewSessions(m, &recordingTransport{}, nil)

	if err := s.HandleInput("session-1", ""); err == nil {
		t.Fatal("expected an error for an empty command body")
	}
}

func TestSessionsDeliverCallback(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager()
	transport := &recordingTransport{}
	s := NewSessions(m, transport, nil)

	if err := s.DeliverCallback("session-1", 42, "some payload"); err != nil {
		t.Fatalf("DeliverCallback: %v", err)
	}
	if len(transport.texts) != 1 {
		t.Fatalf("len(texts) = %d, want 1", len(transport.texts))
	}
	want := "child-session-1 callback 42 some payload"
	if transport.texts[0] != want {
		t.Fatalf("texts[0] = %q, want %q", transport.texts[0], want)
	}
}
