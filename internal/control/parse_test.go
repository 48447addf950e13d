// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

package control

import "testing"

func TestParseTile(t *testing.T) {
	t.Parallel()

	line := "tile part=0 width=256 height=256 tileposx=0 tileposy=0 tilewidth=3840 tileheight=3840 ver=1 id=5"
	req, err := parseTile(line)
	if err != nil {
		t.Fatalf("parseTile: %v", err)
	}
	if req.Part != 0 || req.PixelWidth != 256 || req.PixelHeight != 256 {
		t.Fatalf("parseTile dims = %+v", req)
	}
	if req.TwipsWidth != 3840 || req.TwipsHeight != 3840 {
		t.Fatalf("parseTile twips = %+v", req)
	}
	if req.Version != 1 {
		t.Fatalf("Version = %d, want 1", req.Version)
	}
	if req.ID != 5 {
		t.Fatalf("ID = %d, want 5", req.ID)
	}
}

func TestParseTileMissingID(t *testing.T) {
	t.Parallel()

	line := "tile part=2 width=256 height=256 tileposx=0 tileposy=0 tilewidth=3840 tileheight=3840 ver=3"
	req, err := parseTile(line)
	if err != nil {
		t.Fatalf("parseTile: %v", err)
	}
	if req.ID != -1 {
		t.Fatalf("ID = %d, want -1 when absent", req.ID)
	}
}

func TestParseTileMissingRequiredField(t *testing.T) {
	t.Parallel()

	if _, err := parseTile("tile part=0 width=256"); err == nil {
		t.Fatal("expected an error for a truncated tile command")
	}
}

func TestParseTileCombine(t *testing.T) {
	t.Parallel()

	line := "tilecombine part=0 width=256 height=256 tileposx=0,3840,7680 tileposy=0,0,0 tilewidth=3840 tileheight=3840 ver=2"
	req, err := parseTileCombine(line)
	if err != nil {
		t.Fatalf("parseTileCombine: %v", err)
	}
	if len(req.Positions) != 3 {
		t.Fatalf("len(Positions) = %d, want 3", len(req.Positions))
	}
	if req.Positions[1].TwipsX != 3840 {
		t.Fatalf("Positions[1].TwipsX = %d, want 3840", req.Positions[1].TwipsX)
	}
}

func TestParseTileCombineMismatchedPositions(t *testing.T) {
	t.Parallel()

	line := "tilecombine part=0 width=256 height=256 tileposx=0,3840 tileposy=0 tilewidth=3840 tileheight=3840 ver=2"
	if _, err := parseTileCombine(line); err == nil {
		t.Fatal("expected an error for mismatched tileposx/tileposy lengths")
	}
}

func TestCombinedRectBoundingBox(t *testing.T) {
	t.Parallel()

	req, err := parseTileCombine("tilecombine part=0 width=256 height=256 tileposx=0,3840 tileposy=0,0 tilewidth=3840 tileheight=3840 ver=1")
	if err != nil {
		t.Fatalf("parseTileCombine: %v", err)
	}
	rect := combinedRect(req)
	if rect.X != 0 || rect.Y != 0 {
		t.Fatalf("origin = (%d,%d), want (0,0)", rect.X, rect.Y)
	}
	if rect.W != 3840*2 {
		t.Fatalf("W = %d, want %d", rect.W, 3840*2)
	}
}

func TestDecodeDocKey(t *testing.T) {
	t.Parallel()

	// Matches the base64 doc-key literal used to bind a session to
	// Blank.docx.
	got, err := decodeDocKey("QmxhbmsuZG9jeA==")
	if err != nil {
		t.Fatalf("decodeDocKey: %v", err)
	}
	if got != "Blank.docx" {
		t.Fatalf("decodeDocKey = %q, want %q", got, "Blank.docx")
	}
}

func TestDecodeDocKeyInvalid(t *testing.T) {
	t.Parallel()

	if _, err := decodeDocKey("not valid base64!!"); err == nil {
		t.Fatal("expected an error for invalid base64")
	}
}
