// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell-project/inkwell/internal/engine"
	"github.com/inkwell-project/inkwell/internal/raster"
)

// TileRequest describes a parsed "tile" command.
type TileRequest struct {
	Part                                     int
	PixelWidth, PixelHeight                  int
	TwipsX, TwipsY, TwipsWidth, TwipsHeight  int
	Version                                  int
	ID                                       int // -1 if absent
	DebugRenderID                            string
}

// TilePosition is one sub-tile of a combined-tile request.
type TilePosition struct {
	TwipsX, TwipsY int
}

// TileCombinedRequest describes a parsed "tilecombine" command.
type TileCombinedRequest struct {
	Part                     int
	PixelWidth, PixelHeight  int
	TwipsWidth, TwipsHeight  int
	Version                  int
	Positions                []TilePosition
	DebugRenderID            string
}

// RenderTile paints and encodes a single tile, then writes the
// "tile: ..." binary frame (preceded by a nextmessage: sentinel when
// large) to the shared control connection.
func (m *Manager) RenderTile(req TileRequest) error {
	buf, mode, err := m.paint(req.Part, req.PixelWidth, req.PixelHeight, req.TwipsX, req.TwipsY, req.TwipsWidth, req.TwipsHeight)
	if err != nil {
		return err
	}

	png, err := raster.EncodeBuffer(buf, req.PixelWidth, req.PixelHeight, mode)
	if err != nil {
		return fmt.Errorf("document: encode tile: %w", err)
	}

	header := fmt.Sprintf("tile: part=%d width=%d height=%d tileposx=%d tileposy=%d tilewidth=%d tileheight=%d ver=%d",
		req.Part, req.PixelWidth, req.PixelHeight, req.TwipsX, req.TwipsY, req.TwipsWidth, req.TwipsHeight, req.Version)
	if req.ID >= 0 {
		header += fmt.Sprintf(" id=%d", req.ID)
	}
	if req.DebugRenderID != "" {
		header += " renderid=" + req.DebugRenderID
	}

	return m.sendFramedBinary(header, png)
}

// RenderCombinedTiles paints the bounding rectangle of every requested
// sub-tile once, then slices and encodes each sub-tile independently,
// writing one "tilecombine: ..." binary frame with per-tile sizes
// recorded in the header.
func (m *Manager) RenderCombinedTiles(req TileCombinedRequest) error {
	if len(req.Positions) == 0 {
		return fmt.Errorf("document: tilecombine with no positions")
	}

	minX, minY := req.Positions[0].TwipsX, req.Positions[0].TwipsY
	maxX, maxY := minX, minY
	for _, p := range req.Positions[1:] {
		if p.TwipsX < minX {
			minX = p.TwipsX
		}
		if p.TwipsY < minY {
			minY = p.TwipsY
		}
		if p.TwipsX > maxX {
			maxX = p.TwipsX
		}
		if p.TwipsY > maxY {
			maxY = p.TwipsY
		}
	}
	renderAreaWidth := maxX - minX + req.TwipsWidth
	renderAreaHeight := maxY - minY + req.TwipsHeight

	tilesByX := renderAreaWidth / req.TwipsWidth
	tilesByY := renderAreaHeight / req.TwipsHeight
	if tilesByX <= 0 {
		tilesByX = 1
	}
	if tilesByY <= 0 {
		tilesByY = 1
	}

	pixmapW := tilesByX * req.PixelWidth
	pixmapH := tilesByY * req.PixelHeight

	buf, mode, err := m.paint(req.Part, pixmapW, pixmapH, minX, minY, renderAreaWidth, renderAreaHeight)
	if err != nil {
		return err
	}

	var body []byte
	sizes := make([]int, len(req.Positions))
	for i, pos := range req.Positions {
		originX := (pos.TwipsX - minX) * req.PixelWidth / req.TwipsWidth
		originY := (pos.TwipsY - minY) * req.PixelHeight / req.TwipsHeight

		png, err := raster.EncodeSubBuffer(buf, originX, originY, req.PixelWidth, req.PixelHeight, pixmapW, pixmapH, mode)
		if err != nil {
			return fmt.Errorf("document: encode sub-tile %d: %w", i, err)
		}
		sizes[i] = len(png)
		body = append(body, png...)
	}

	header := fmt.Sprintf("tilecombine: part=%d width=%d height=%d tilewidth=%d tileheight=%d ver=%d imgsizes=%s",
		req.Part, req.PixelWidth, req.PixelHeight, req.TwipsWidth, req.TwipsHeight, req.Version, joinInts(sizes))
	if req.DebugRenderID != "" {
		header += " renderid=" + req.DebugRenderID
	}

	return m.sendFramedBinary(header, body)
}

// paint acquires the engine mutex, verifies a view exists, and paints
// the requested rectangle, logging elapsed time and throughput the
// way the original's render-timing trace did.
func (m *Manager) paint(part, pxW, pxH, twipsX, twipsY, twipsW, twipsH int) ([]byte, engine.TileMode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.doc == nil {
		return nil, 0, ErrNoDocument
	}
	if m.doc.GetViewsCount() == 0 {
		return nil, 0, ErrNoViews
	}

	buf := make([]byte, 4*pxW*pxH)
	start := time.Now()
	if err := m.doc.PaintPartTile(buf, part, pxW, pxH, twipsX, twipsY, twipsW, twipsH); err != nil {
		return nil, 0, fmt.Errorf("document: paint tile: %w", err)
	}
	elapsed := time.Since(start)

	megapixels := float64(pxW*pxH) / 1e6
	throughput := 0.0
	if elapsed > 0 {
		throughput = megapixels / elapsed.Seconds()
	}
	m.logger.Debug("painted tile",
		"part", part, "pixelWidth", pxW, "pixelHeight", pxH,
		"elapsed", elapsed, "megapixelsPerSecond", throughput)

	return buf, m.doc.GetTileMode(), nil
}

func (m *Manager) sendFramedBinary(header string, body []byte) error {
	frame := append([]byte(header+"\n"), body...)
	if len(frame) > m.smallMsg {
		if err := m.transport.SendText(fmt.Sprintf("nextmessage: size=%d", len(frame))); err != nil {
			return fmt.Errorf("document: send nextmessage sentinel: %w", err)
		}
	}
	if err := m.transport.SendBinary(frame); err != nil {
		return fmt.Errorf("document: send tile frame: %w", err)
	}
	return nil
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
