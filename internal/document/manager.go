// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

// Package document implements the single in-process document manager:
// it owns the engine handle, creates and destroys views, serializes
// every call through the non-reentrant engine, and mediates between
// child sessions and the tile queue. Exactly one Manager instance
// exists per worker process (the single-document invariant); once its
// underlying engine document is torn down the process exits.
package document

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"sync/atomic"

	"github.com/inkwell-project/inkwell/internal/callback"
	"github.com/inkwell-project/inkwell/internal/engine"
	"github.com/inkwell-project/inkwell/internal/tilequeue"
	"github.com/inkwell-project/inkwell/lib/process"
)

// Transport is the narrow capability the document manager needs from
// the control channel: one shared connection per worker process, not
// one per session — every session's output is multiplexed onto it,
// and the controller on the other end is responsible for demuxing.
// It is the only way bytes leave the manager, keeping wire framing
// entirely out of this package.
type Transport interface {
	SendText(message string) error
	SendBinary(data []byte) error
}

// Session is per-view bookkeeping the manager owns. Everything about
// how a session interprets commands lives outside this package; the
// manager only tracks enough to route callbacks and broadcast
// viewinfo.
type Session struct {
	ID         string
	ViewID     int
	UserName   string
	CloseFrame bool
	Active     bool
}

type passwordState int

const (
	passwordUnknown passwordState = iota
	passwordWaiting
	passwordSatisfied
)

// Config configures a Manager. Office and Queue and Transport are
// required.
type Config struct {
	Office    engine.Office
	Queue     *tilequeue.Queue
	Transport Transport
	Logger    *slog.Logger

	// SmallMessageSize is the threshold past which a nextmessage:
	// sentinel precedes a frame. Defaults to 1024.
	SmallMessageSize int
}

// Manager is the process-wide document singleton.
type Manager struct {
	office    engine.Office
	queue     *tilequeue.Queue
	transport Transport
	logger    *slog.Logger
	smallMsg  int

	router *callback.Router

	mu   sync.Mutex
	cond *sync.Cond

	sourceURL string
	jailedURL string
	doc       engine.Document
	docLoaded bool

	sessions      map[string]*Session
	viewToSession map[int]*Session

	pwState        passwordState
	pwKind         engine.CallbackType
	pwStoredValue  string
	pwAttemptValue *string

	isLoading bool

	clientViews int32

	globalCallbackOnce sync.Once

	// exit terminates the process for a jail-fatal condition. It
	// defaults to os.Exit; tests override it to observe the call
	// without ending the test binary.
	exit func(code int)
}

// New constructs a Manager. It does not touch the engine until the
// first session's load command arrives.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	smallMsg := cfg.SmallMessageSize
	if smallMsg <= 0 {
		smallMsg = 1024
	}

	m := &Manager{
		office:        cfg.Office,
		queue:         cfg.Queue,
		transport:     cfg.Transport,
		logger:        logger,
		smallMsg:      smallMsg,
		sessions:      make(map[string]*Session),
		viewToSession: make(map[int]*Session),
		exit:          os.Exit,
	}
	m.cond = sync.NewCond(&m.mu)
	m.router = callback.New(cfg.Queue, m.handlePasswordCallback)
	return m
}

// CreateSession binds the process-wide document to url on first call
// and creates a session record for sessionID. A url that disagrees
// with an already-bound document is rejected: the single-document
// invariant means a second URL never spawns a second Document, it
// simply fails to create a session.
func (m *Manager) CreateSession(sessionID, sourceURL string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sourceURL == "" {
		m.sourceURL = sourceURL
		m.jailedURL = sourceURL
	} else if m.sourceURL != sourceURL {
		return false
	}

	if _, exists := m.sessions[sessionID]; exists {
		return true
	}
	m.sessions[sessionID] = &Session{ID: sessionID, ViewID: -1}
	return true
}

// OnLoad processes a session's load command: it loads the document on
// first use, validates the password on subsequent loads, and creates
// a view for sessionID. password is the caller-supplied password, or
// nil if none was given.
func (m *Manager) OnLoad(sessionID, uri, userName string, password *string, renderOpts string, haveDocPassword bool) error {
	m.mu.Lock()
	for m.isLoading {
		m.cond.Wait()
	}
	m.isLoading = true

	session, ok := m.sessions[sessionID]
	if !ok {
		m.isLoading = false
		m.cond.Broadcast()
		m.mu.Unlock()
		return ErrUnknownSession
	}

	firstLoad := !m.docLoaded
	m.mu.Unlock()

	if firstLoad {
		return m.firstLoad(sessionID, session, uri, password, renderOpts, userName, haveDocPassword)
	}
	return m.subsequentLoad(sessionID, session, password, renderOpts, userName, haveDocPassword)
}

func (m *Manager) firstLoad(sessionID string, session *Session, uri string, password *string, renderOpts, userName string, haveDocPassword bool) error {
	m.registerGlobalCallbackOnce()

	m.mu.Lock()
	// Each call here is a fresh DocumentLoad attempt (docLoaded is
	// still false, or this wouldn't be firstLoad); reset the password
	// state machine so a callback fired during this attempt is never
	// mistaken for the second callback of a previous, already-failed
	// attempt.
	m.pwState = passwordUnknown
	m.pwAttemptValue = password
	m.mu.Unlock()

	loaded, err := m.office.DocumentLoad(uri)

	m.mu.Lock()
	m.pwAttemptValue = nil
	if err != nil {
		m.isLoading = false
		m.cond.Broadcast()
		m.mu.Unlock()
		wrapped := fmt.Errorf("document: load %q: %w", uri, err)
		m.jailFatal(wrapped)
		return wrapped // reached only if exit was overridden, e.g. in tests
	}
	if loaded == nil {
		waiting := m.pwState == passwordWaiting
		kind := m.pwKind
		m.isLoading = false
		m.cond.Broadcast()
		m.mu.Unlock()

		if !waiting {
			wrapped := fmt.Errorf("document: load %q: %s", uri, m.office.GetError())
			m.jailFatal(wrapped)
			return wrapped // reached only if exit was overridden, e.g. in tests
		}
		if haveDocPassword {
			m.sendLoadError(sessionID, "wrongpassword")
		} else {
			m.sendLoadError(sessionID, passwordRequiredKind(kind))
		}
		return ErrPasswordRequired
	}

	m.doc = loaded
	m.docLoaded = true
	if m.pwState == passwordWaiting {
		m.pwState = passwordSatisfied
		if password != nil {
			m.pwStoredValue = *password
		}
	}
	m.mu.Unlock()

	if err := m.createView(session, uri, userName, renderOpts); err != nil {
		m.finishLoading()
		return err
	}
	m.finishLoading()
	m.NotifyViewInfo()
	return nil
}

func (m *Manager) subsequentLoad(sessionID string, session *Session, password *string, renderOpts, userName string, haveDocPassword bool) error {
	m.mu.Lock()
	protected := m.pwState == passwordSatisfied
	stored := m.pwStoredValue
	m.mu.Unlock()

	if protected {
		if password == nil || *password != stored {
			m.finishLoading()
			m.sendLoadError(sessionID, "wrongpassword")
			return ErrPasswordRequired
		}
	}

	if err := m.createView(session, m.sourceURL, userName, renderOpts); err != nil {
		m.finishLoading()
		return err
	}
	m.finishLoading()
	m.NotifyViewInfo()
	return nil
}

func (m *Manager) finishLoading() {
	m.mu.Lock()
	m.isLoading = false
	m.cond.Broadcast()
	m.mu.Unlock()
}

// createView performs the engine sequence to attach a new view for
// session: create it, select it, initialize rendering options
// (injecting .uno:Author from userName when present), and register
// its per-view callback. All of it happens under the single
// engine-serializing mutex.
func (m *Manager) createView(session *Session, uri, userName, renderOpts string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	viewID := m.doc.CreateView()
	m.doc.SetView(viewID)

	mergedOpts, decodedUser, err := mergeAuthorOption(renderOpts, userName)
	if err != nil {
		m.doc.DestroyView(viewID)
		return fmt.Errorf("document: decode render options: %w", err)
	}

	if err := m.doc.InitializeForRendering(mergedOpts); err != nil {
		m.doc.DestroyView(viewID)
		return fmt.Errorf("document: initialize view %d: %w", viewID, err)
	}

	session.ViewID = viewID
	session.UserName = decodedUser
	session.Active = true
	m.viewToSession[viewID] = session

	m.doc.RegisterCallback(m.router.PerView(viewID))
	atomic.AddInt32(&m.clientViews, 1)
	return nil
}

func mergeAuthorOption(renderOpts, userName string) (merged string, decodedUser string, err error) {
	decodedUser = userName
	if userName != "" {
		if decoded, err := url.QueryUnescape(userName); err == nil {
			decodedUser = decoded
		}
	}

	opts := map[string]any{}
	if renderOpts != "" {
		if err := json.Unmarshal([]byte(renderOpts), &opts); err != nil {
			return "", "", err
		}
	}
	if decodedUser != "" {
		opts[".uno:Author"] = map[string]any{"type": "string", "value": decodedUser}
	}

	out, err := json.Marshal(opts)
	if err != nil {
		return "", "", err
	}
	return string(out), decodedUser, nil
}

func (m *Manager) registerGlobalCallbackOnce() {
	m.globalCallbackOnce.Do(func() {
		m.office.SetOptionalFeatures(engine.FeatureDocumentPassword | engine.FeatureDocumentPasswordToModify)
		m.office.RegisterCallback(m.router.Global)
	})
}

func passwordRequiredKind(kind engine.CallbackType) string {
	if kind == engine.CallbackDocumentPasswordToModify {
		return "passwordrequired:to-modify"
	}
	return "passwordrequired:to-view"
}

// handlePasswordCallback implements the password state machine
// transitions triggered by PASSWORD callbacks during DocumentLoad.
func (m *Manager) handlePasswordCallback(t engine.CallbackType, _ string) {
	m.mu.Lock()
	switch m.pwState {
	case passwordUnknown:
		m.pwState = passwordWaiting
		m.pwKind = t
		attempt := m.pwAttemptValue
		m.mu.Unlock()
		m.office.SetDocumentPassword(m.sourceURL, attempt)
	case passwordWaiting:
		// A second PASSWORD callback in the same load attempt means
		// the password we just submitted was wrong.
		m.mu.Unlock()
		m.office.SetDocumentPassword(m.sourceURL, nil)
	default:
		m.mu.Unlock()
	}
}

// sendLoadError writes a load error frame to the shared control
// socket. It is attributed to sessionID logically (the controller
// correlates it against that session's outstanding load), but nothing
// on the wire identifies the session — the frame format is fixed by
// the protocol.
func (m *Manager) sendLoadError(sessionID, kind string) {
	if err := m.transport.SendText(fmt.Sprintf("error: cmd=load kind=%s", kind)); err != nil {
		m.logger.Warn("document: send load error failed", "session", sessionID, "err", err)
	}
}

// AlertAll broadcasts a fatal engine alert, the errortoall: frame.
// Within this package it is called by jailFatal, for a documentLoad
// failure not attributable to a password prompt.
func (m *Manager) AlertAll(cmd, kind string) {
	if err := m.transport.SendText(fmt.Sprintf("errortoall: cmd=%s kind=%s", cmd, kind)); err != nil {
		m.logger.Warn("document: alertAll send failed", "err", err)
	}
}

// jailFatal handles a documentLoad failure not attributable to a
// password prompt: it is jail-fatal, the same class as a failed
// hardlink, chroot, chdir, capability drop, or engine-library load.
// It alerts every connected session, logs the cause, and terminates
// the process with the software-failure exit code; it never returns
// to its caller under the real os.Exit.
func (m *Manager) jailFatal(err error) {
	m.AlertAll("load", "docloadfailed")
	m.logger.Error("document: jail-fatal load failure", "err", err)
	m.exit(process.ExitSoftwareFailure)
}
