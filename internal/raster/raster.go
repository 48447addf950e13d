// Copyright 2026 The Inkwell Authors
// SPDX-License-Identifier: Apache-2.0

// Package raster encodes rendered pixmaps to a compressed raster
// format. It is a pure function (pixmap, rect, mode) → bytes; the PNG
// codec itself is stdlib [image/png] — there is no domain logic here
// beyond translating the engine's tile pixel layout ([engine.TileMode])
// into the color model [image/png] expects and slicing a sub-rectangle
// out of a larger pixmap without an intermediate copy.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/inkwell-project/inkwell/internal/engine"
)

// pixmapImage adapts a raw BGRA/RGBA byte buffer to image.Image so
// image/png can encode it without a full copy into an image.RGBA.
type pixmapImage struct {
	pix           []byte // full backing pixmap, stride*height bytes
	stride        int    // bytes per full pixmap row (4 * pixmap width)
	rect          image.Rectangle
	originX       int // left-column offset (pixels) into pix's row
	originY       int // top-row offset (pixels) into pix
	mode          engine.TileMode
}

func (p *pixmapImage) ColorModel() color.Model { return color.NRGBAModel }

func (p *pixmapImage) Bounds() image.Rectangle { return p.rect }

func (p *pixmapImage) At(x, y int) color.Color {
	row := p.originY + (y - p.rect.Min.Y)
	col := p.originX + (x - p.rect.Min.X)
	off := row*p.stride + col*4
	b0, b1, b2, b3 := p.pix[off], p.pix[off+1], p.pix[off+2], p.pix[off+3]

	var r, g, b, a byte
	switch p.mode {
	case engine.TileModeBGRA:
		b, g, r, a = b0, b1, b2, b3
	default: // TileModeRGBA
		r, g, b, a = b0, b1, b2, b3
	}
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// EncodeBuffer encodes an entire pxW x pxH BGRA/RGBA pixmap to PNG.
func EncodeBuffer(pixmap []byte, pxW, pxH int, mode engine.TileMode) ([]byte, error) {
	return EncodeSubBuffer(pixmap, 0, 0, pxW, pxH, pxW, pxH, mode)
}

// EncodeSubBuffer encodes the pxW x pxH rectangle at (originX,originY)
// out of a larger pixmapW x pixmapH pixmap to PNG. This is the
// combined-tile fast path: paint once into a big pixmap, then call
// this once per requested sub-tile.
func EncodeSubBuffer(pixmap []byte, originX, originY, pxW, pxH, pixmapW, pixmapH int, mode engine.TileMode) ([]byte, error) {
	if originX < 0 || originY < 0 || originX+pxW > pixmapW || originY+pxH > pixmapH {
		return nil, fmt.Errorf("raster: sub-rectangle (%d,%d,%dx%d) out of bounds of %dx%d pixmap", originX, originY, pxW, pxH, pixmapW, pixmapH)
	}
	if len(pixmap) < 4*pixmapW*pixmapH {
		return nil, fmt.Errorf("raster: pixmap buffer too small: have %d bytes, need %d", len(pixmap), 4*pixmapW*pixmapH)
	}

	img := &pixmapImage{
		pix:     pixmap,
		stride:  4 * pixmapW,
		rect:    image.Rect(0, 0, pxW, pxH),
		originX: originX,
		originY: originY,
		mode:    mode,
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("raster: png encode: %w", err)
	}
	return buf.Bytes(), nil
}
