// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

// Package control implements the worker's one connection to the
// controller: a persistent, framed websocket carrying the text/binary
// protocol described by the wire format this worker speaks. It is the
// Go analogue of the original's Poco::Net::WebSocket control socket.
package control

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/inkwell-project/inkwell/internal/document"
	"github.com/inkwell-project/inkwell/internal/tilequeue"
)

// Config parametrizes a Channel.
type Config struct {
	Queue          *tilequeue.Queue
	Doc            *document.Manager
	DebugRenderIDs bool
	Logger         *slog.Logger
}

// Channel is the worker's control connection. It implements
// [document.Transport], and its Run loop is the only reader of the
// underlying socket.
type Channel struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	cfg     Config
	logger  *slog.Logger
}

// Dial opens the control connection to the controller at masterAddr
// ("host:port"), registering this worker's pid and, if non-empty, its
// engine version string.
func Dial(masterAddr string, pid int, version string) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: masterAddr, Path: "/NEW_CHILD_URI"}
	q := u.Query()
	q.Set("pid", strconv.Itoa(pid))
	if version != "" {
		q.Set("version", version)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("control: dial %s: %w", u.String(), err)
	}
	return conn, nil
}

// New wraps an already-established connection. cfg.Doc may be left
// nil and supplied later via SetDocument, since a Channel is normally
// constructed before the document.Manager that depends on it as a
// Transport.
func New(conn *websocket.Conn, cfg Config) *Channel {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{conn: conn, cfg: cfg, logger: logger}
}

// SetDocument binds the document manager this channel's Run loop
// notifies on disconnect. Must be called once, before Run.
func (c *Channel) SetDocument(doc *document.Manager) {
	c.cfg.Doc = doc
}

// SendText implements document.Transport.
func (c *Channel) SendText(message string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(message))
}

// SendBinary implements document.Transport.
func (c *Channel) SendBinary(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Run reads and dispatches inbound frames until the connection fails
// or is closed, at which point every session is marked closed so the
// next purge cycle exits the process.
func (c *Channel) Run() error {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.cfg.Doc.MarkAllClosed()
			return fmt.Errorf("control: read: %w", err)
		}
		if msgType != websocket.TextMessage {
			c.logger.Warn("control: dropped unexpected binary inbound frame")
			continue
		}
		c.handle(string(data))
	}
}

func (c *Channel) handle(line string) {
	switch {
	case strings.HasPrefix(line, "session "):
		c.handleSession(line)
	case strings.HasPrefix(line, "tile "):
		c.handleTile(line)
	case strings.HasPrefix(line, "tilecombine "):
		c.handleTileCombine(line)
	case line == "canceltiles":
		c.cfg.Queue.CancelTiles()
	case strings.HasPrefix(line, "child-"):
		c.handleChild(line)
	default:
		c.logger.Warn("control: dropped unrecognized command", "line", line)
	}
}

func (c *Channel) handleSession(line string) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		c.logger.Warn("control: malformed session command", "line", line)
		return
	}
	sessionID := fields[1]
	docURL, err := decodeDocKey(fields[2])
	if err != nil {
		c.logger.Warn("control: malformed doc key", "session", sessionID, "err", err)
		return
	}
	if !c.cfg.Doc.CreateSession(sessionID, docURL) {
		c.logger.Warn("control: rejected session bound to a second document URL", "session", sessionID)
	}
}

func (c *Channel) handleTile(line string) {
	req, err := parseTile(line)
	if err != nil {
		c.logger.Warn("control: malformed tile command", "err", err)
		return
	}
	if c.cfg.DebugRenderIDs {
		req.DebugRenderID = uuid.New().String()
	}
	c.cfg.Queue.Put(tilequeue.Payload{Kind: tilequeue.KindTile, Part: req.Part, Rect: tileRect(req), Parsed: req})
}

func (c *Channel) handleTileCombine(line string) {
	req, err := parseTileCombine(line)
	if err != nil {
		c.logger.Warn("control: malformed tilecombine command", "err", err)
		return
	}
	if c.cfg.DebugRenderIDs {
		req.DebugRenderID = uuid.New().String()
	}
	c.cfg.Queue.Put(tilequeue.Payload{Kind: tilequeue.KindTileCombine, Part: req.Part, Rect: combinedRect(req), Parsed: req})
}

// handleChild routes a "child-<sessionId> <body>" envelope by session
// id, not by engine-assigned view id: a session's first "load" also
// arrives this way, before it has a view, so a view-id lookup would
// never resolve it.
func (c *Channel) handleChild(line string) {
	rest := strings.TrimPrefix(line, "child-")
	sessionID, body, _ := strings.Cut(rest, " ")
	if sessionID == "" {
		c.logger.Warn("control: malformed child tag", "line", line)
		return
	}
	c.cfg.Queue.Put(tilequeue.Payload{Kind: tilequeue.KindChild, ChildSessionID: sessionID, Body: body})
}

func decodeDocKey(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode doc key: %w", err)
	}
	return string(decoded), nil
}
