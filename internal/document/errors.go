// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package document

import "errors"

var (
	// ErrUnknownSession is returned by OnLoad for a session id that
	// was never created via CreateSession.
	ErrUnknownSession = errors.New("document: unknown session")

	// ErrPasswordRequired is returned by OnLoad when the document is
	// password-protected and the caller must retry with a password.
	// The document manager has already sent the corresponding
	// error: frame to the requesting session; this is load-recoverable,
	// not jail-fatal.
	ErrPasswordRequired = errors.New("document: password required")

	// ErrNoDocument is returned by render operations when no document
	// has been loaded yet.
	ErrNoDocument = errors.New("document: no document loaded")

	// ErrNoViews is returned by render operations when the document
	// has no active views.
	ErrNoViews = errors.New("document: no views")
)
