// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"errors"
	"testing"

	"github.com/inkwell-project/inkwell/internal/engine"
	"github.com/inkwell-project/inkwell/internal/tilequeue"
	"github.com/inkwell-project/inkwell/lib/process"
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

func newManager(t *testing.T) (*Manager, *engine.FakeOffice, *recordingTransport) {
	t.Helper()
	office := engine.NewFakeOffice()
	transport := &recordingTransport{}
	m := New(Config{Office: office, Queue: tilequeue.New(), Transport: transport})
	return m, office, transport
}

func TestCreateSessionSingleDocumentInvariant(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	if !m.CreateSession("s1", "file:///a.docx") {
		t.Fatal("first CreateSession should succeed")
	}
	if !m.CreateSession("s2", "file:///a.docx") {
		t.Fatal("second session on the same URL should succeed")
	}
	if m.CreateSession("s3", "file:///b.docx") {
		t.Fatal("a session bound to a second document URL must be rejected")
	}
}

func TestCreateSessionIdempotent(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	m.CreateSession("s1", "file:///a.docx")
	if !m.CreateSession("s1", "file:///a.docx") {
		t.Fatal("re-creating the same session id with the same URL should succeed")
	}
}

func TestOnLoadUnknownSession(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	err := m.OnLoad("ghost", "file:///a.docx", "Alice", nil, "", false)
	if err != ErrUnknownSession {
		t.Fatalf("err = %v, want ErrUnknownSession", err)
	}
}

func TestOnLoadFirstLoadCreatesView(t *testing.T) {
	t.Parallel()

	m, _, transport := newManager(t)
	m.CreateSession("s1", "file:///a.docx")

	if err := m.OnLoad("s1", "file:///a.docx", "Alice", nil, "", false); err != nil {
		t.Fatalf("OnLoad: %v", err)
	}
	if m.ClientViews() != 1 {
		t.Fatalf("ClientViews() = %d, want 1", m.ClientViews())
	}

	foundViewInfo := false
	for _, msg := range transport.texts {
		if len(msg) >= 9 && msg[:9] == "viewinfo:" {
			foundViewInfo = true
		}
	}
	if !foundViewInfo {
		t.Fatal("expected a viewinfo: broadcast after the first successful load")
	}
}

func TestOnLoadSecondSessionJoinsExistingDocument(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)
	m.CreateSession("s1", "file:///a.docx")
	m.CreateSession("s2", "file:///a.docx")

	if err := m.OnLoad("s1", "file:///a.docx", "Alice", nil, "", false); err != nil {
		t.Fatalf("OnLoad s1: %v", err)
	}
	if err := m.OnLoad("s2", "file:///a.docx", "Bob", nil, "", false); err != nil {
		t.Fatalf("OnLoad s2: %v", err)
	}
	if m.ClientViews() != 2 {
		t.Fatalf("ClientViews() = %d, want 2", m.ClientViews())
	}
}

func TestPasswordProtectedDocumentRequiresPassword(t *testing.T) {
	t.Parallel()

	m, office, transport := newManager(t)
	office.ProtectDocument("file:///secret.docx", engine.CallbackDocumentPassword, "hunter2")
	m.CreateSession("s1", "file:///secret.docx")

	err := m.OnLoad("s1", "file:///secret.docx", "Alice", nil, "", false)
	if err != ErrPasswordRequired {
		t.Fatalf("err = %v, want ErrPasswordRequired", err)
	}
	if len(transport.texts) == 0 {
		t.Fatal("expected a passwordrequired error: frame")
	}
}

func TestPasswordProtectedDocumentWrongPasswordThenCorrect(t *testing.T) {
	t.Parallel()

	m, office, _ := newManager(t)
	office.ProtectDocument("file:///secret.docx", engine.CallbackDocumentPassword, "hunter2")
	m.CreateSession("s1", "file:///secret.docx")

	wrong := "wrong"
	err := m.OnLoad("s1", "file:///secret.docx", "Alice", &wrong, "", false)
	if err != ErrPasswordRequired {
		t.Fatalf("err = %v, want ErrPasswordRequired for a wrong password", err)
	}

	right := "hunter2"
	if err := m.OnLoad("s1", "file:///secret.docx", "Alice", &right, "", false); err != nil {
		t.Fatalf("OnLoad with the correct password: %v", err)
	}
	if m.ClientViews() != 1 {
		t.Fatalf("ClientViews() = %d, want 1", m.ClientViews())
	}
}

func TestSubsequentLoadWithStalePasswordRejected(t *testing.T) {
	t.Parallel()

	m, office, _ := newManager(t)
	office.ProtectDocument("file:///secret.docx", engine.CallbackDocumentPassword, "hunter2")
	m.CreateSession("s1", "file:///secret.docx")
	m.CreateSession("s2", "file:///secret.docx")

	right := "hunter2"
	if err := m.OnLoad("s1", "file:///secret.docx", "Alice", &right, "", false); err != nil {
		t.Fatalf("first OnLoad: %v", err)
	}

	wrong := "guess"
	err := m.OnLoad("s2", "file:///secret.docx", "Bob", &wrong, "", false)
	if err != ErrPasswordRequired {
		t.Fatalf("err = %v, want ErrPasswordRequired for a second session's wrong password", err)
	}
}

func TestMergeAuthorOptionInjectsAuthor(t *testing.T) {
	t.Parallel()

	merged, decoded, err := mergeAuthorOption(`{"other":{"type":"boolean","value":true}}`, "Alice%20Smith")
	if err != nil {
		t.Fatalf("mergeAuthorOption: %v", err)
	}
	if decoded != "Alice Smith" {
		t.Fatalf("decoded = %q, want %q", decoded, "Alice Smith")
	}
	if merged == "" {
		t.Fatal("merged options should not be empty")
	}
}

func TestAlertAllBroadcasts(t *testing.T) {
	t.Parallel()

	m, _, transport := newManager(t)
	m.AlertAll("load", "docunloading")

	if len(transport.texts) != 1 {
		t.Fatalf("len(texts) = %d, want 1", len(transport.texts))
	}
	want := "errortoall: cmd=load kind=docunloading"
	if transport.texts[0] != want {
		t.Fatalf("texts[0] = %q, want %q", transport.texts[0], want)
	}
}

func TestOnLoadNonPasswordFailureIsJailFatal(t *testing.T) {
	t.Parallel()

	m, office, transport := newManager(t)
	office.FailLoad("file:///a.docx", errors.New("mmap failed"))
	m.CreateSession("s1", "file:///a.docx")

	var exitCode int
	exitCalled := false
	m.exit = func(code int) {
		exitCode = code
		exitCalled = true
	}

	m.OnLoad("s1", "file:///a.docx", "Alice", nil, "", false)

	if !exitCalled {
		t.Fatal("expected a jail-fatal load failure to call exit")
	}
	if exitCode != process.ExitSoftwareFailure {
		t.Fatalf("exit code = %d, want %d", exitCode, process.ExitSoftwareFailure)
	}

	foundAlert := false
	for _, msg := range transport.texts {
		if msg == "errortoall: cmd=load kind=docloadfailed" {
			foundAlert = true
		}
	}
	if !foundAlert {
		t.Fatalf("expected an errortoall broadcast before exit, got %v", transport.texts)
	}
}
