// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkwell-project/inkwell/internal/document"
)

// Sessions is the minimal child-session behavior this worker
// implements directly: recognizing the one command (load) the
// document manager's public contract depends on. Every other
// command's per-type semantics are outside this module's scope, so
// they're logged and otherwise ignored rather than acted on.
type Sessions struct {
	doc       *document.Manager
	transport document.Transport
	logger    *slog.Logger
}

// NewSessions builds a Sessions bound to doc and transport (normally
// the same *Channel).
func NewSessions(doc *document.Manager, transport document.Transport, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{doc: doc, transport: transport, logger: logger}
}

// HandleInput implements dispatch.SessionHandler.
func (s *Sessions) HandleInput(sessionID, body string) error {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return fmt.Errorf("control: empty child command")
	}

	switch fields[0] {
	case "load":
		return s.handleLoad(sessionID, fields[1:])
	default:
		s.logger.Debug("control: no handler for child command, ignoring", "session", sessionID, "command", fields[0])
		return nil
	}
}

func (s *Sessions) handleLoad(sessionID string, fields []string) error {
	kv := parseKV(fields)

	var password *string
	if pw, ok := kv["password"]; ok {
		password = &pw
	}
	haveDocPassword := kv["haveDocPassword"] == "true"

	err := s.doc.OnLoad(sessionID, kv["url"], kv["userName"], password, kv["options"], haveDocPassword)
	if err != nil && !errors.Is(err, document.ErrPasswordRequired) {
		return err
	}
	return nil
}

// DeliverCallback implements dispatch.SessionHandler. Translating
// each LOK_CALLBACK type into its historical wire token (invalidatetiles:,
// statechanged:, and so on) is outside this module's scope; this
// forwards the raw (type, payload) pair tagged with the destination
// session so a fuller controller implementation can still act on it.
func (s *Sessions) DeliverCallback(sessionID string, callbackType int, payload string) error {
	return s.transport.SendText(fmt.Sprintf("child-%s callback %d %s", sessionID, callbackType, payload))
}
