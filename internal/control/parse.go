// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inkwell-project/inkwell/internal/document"
	"github.com/inkwell-project/inkwell/internal/tilequeue"
)

func parseKV(fields []string) map[string]string {
	kv := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if ok {
			kv[k] = v
		}
	}
	return kv
}

func intField(kv map[string]string, key string) (int, error) {
	v, ok := kv[key]
	if !ok {
		return 0, fmt.Errorf("control: missing field %q", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("control: field %q: %w", key, err)
	}
	return n, nil
}

func parseTile(line string) (document.TileRequest, error) {
	kv := parseKV(strings.Fields(line)[1:])
	req := document.TileRequest{ID: -1}

	var err error
	if req.Part, err = intField(kv, "part"); err != nil {
		return req, err
	}
	if req.PixelWidth, err = intField(kv, "width"); err != nil {
		return req, err
	}
	if req.PixelHeight, err = intField(kv, "height"); err != nil {
		return req, err
	}
	if req.TwipsX, err = intField(kv, "tileposx"); err != nil {
		return req, err
	}
	if req.TwipsY, err = intField(kv, "tileposy"); err != nil {
		return req, err
	}
	if req.TwipsWidth, err = intField(kv, "tilewidth"); err != nil {
		return req, err
	}
	if req.TwipsHeight, err = intField(kv, "tileheight"); err != nil {
		return req, err
	}
	if req.Version, err = intField(kv, "ver"); err != nil {
		return req, err
	}
	if v, ok := kv["id"]; ok {
		if id, err := strconv.Atoi(v); err == nil {
			req.ID = id
		}
	}
	return req, nil
}

func parseTileCombine(line string) (document.TileCombinedRequest, error) {
	kv := parseKV(strings.Fields(line)[1:])
	var req document.TileCombinedRequest

	var err error
	if req.Part, err = intField(kv, "part"); err != nil {
		return req, err
	}
	if req.PixelWidth, err = intField(kv, "width"); err != nil {
		return req, err
	}
	if req.PixelHeight, err = intField(kv, "height"); err != nil {
		return req, err
	}
	if req.TwipsWidth, err = intField(kv, "tilewidth"); err != nil {
		return req, err
	}
	if req.TwipsHeight, err = intField(kv, "tileheight"); err != nil {
		return req, err
	}
	if req.Version, err = intField(kv, "ver"); err != nil {
		return req, err
	}

	xs := strings.Split(kv["tileposx"], ",")
	ys := strings.Split(kv["tileposy"], ",")
	if len(xs) == 0 || len(xs) != len(ys) {
		return req, fmt.Errorf("control: tilecombine tileposx/tileposy length mismatch")
	}
	req.Positions = make([]document.TilePosition, len(xs))
	for i := range xs {
		x, err1 := strconv.Atoi(xs[i])
		y, err2 := strconv.Atoi(ys[i])
		if err1 != nil || err2 != nil {
			return req, fmt.Errorf("control: tilecombine malformed position %d", i)
		}
		req.Positions[i] = document.TilePosition{TwipsX: x, TwipsY: y}
	}
	return req, nil
}

func tileRect(req document.TileRequest) tilequeue.Rectangle {
	return tilequeue.Rectangle{X: req.TwipsX, Y: req.TwipsY, W: req.TwipsWidth, H: req.TwipsHeight}
}

func combinedRect(req document.TileCombinedRequest) tilequeue.Rectangle {
	if len(req.Positions) == 0 {
		return tilequeue.Rectangle{}
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
	return tilequeue.Rectangle{X: minX, Y: minY, W: maxX - minX + req.TwipsWidth, H: maxY - minY + req.TwipsHeight}
}
