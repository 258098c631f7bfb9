// Package pyramid maps XYZ tile pyramids onto mosaic tiles.
//
// A pyramid tile (x, y, z) of a layout with tile size T and maximum zoom M covers
// the destination region starting at (x*T*s, y*T*s), where s = 2^(M-z) is its
// subsampling. The region size comes from the probed image size times s, so
// partial edge tiles are handled naturally.
package pyramid

import (
	"fmt"
	"image"

	"github.com/eak1mov/go-tilemosaic/tile"
)

// ID identifies a tile of an XYZ pyramid.
type ID struct {
	X uint32
	Y uint32
	Z uint32
}

func (id ID) String() string {
	return fmt.Sprintf("%d/%d/%d", id.Z, id.X, id.Y)
}

// Layout describes the geometry of a pyramid.
type Layout struct {
	TileSize int
	MaxZoom  uint32
}

// MaxZoomLimit bounds Layout.MaxZoom, keeping destination coordinates within int.
const MaxZoomLimit = 30

// Check reports whether the layout geometry is usable.
func (l Layout) Check() error {
	if l.TileSize <= 0 {
		return fmt.Errorf("%w: tile size %d", tile.ErrGeometry, l.TileSize)
	}
	if l.MaxZoom > MaxZoomLimit {
		return fmt.Errorf("%w: max zoom %d exceeds %d", tile.ErrGeometry, l.MaxZoom, MaxZoomLimit)
	}
	return nil
}

// Validate checks that id lies within the layout.
func (l Layout) Validate(id ID) error {
	if err := l.Check(); err != nil {
		return err
	}
	if id.Z > l.MaxZoom {
		return fmt.Errorf("%w: tile %v beyond max zoom %d", tile.ErrGeometry, id, l.MaxZoom)
	}
	if n := uint32(1) << id.Z; id.X >= n || id.Y >= n {
		return fmt.Errorf("%w: tile %v outside zoom level", tile.ErrGeometry, id)
	}
	return nil
}

// Subsampling returns the subsampling of tiles at zoom level z.
func (l Layout) Subsampling(z uint32) tile.Subsampling {
	s := 1 << (l.MaxZoom - z)
	return tile.Subsampling{X: s, Y: s}
}

// Origin returns the top left corner of id in destination pixels.
func (l Layout) Origin(id ID) image.Point {
	span := l.TileSize << (l.MaxZoom - id.Z)
	return image.Pt(int(id.X)*span, int(id.Y)*span)
}

// Region returns the destination region of id, given the pixel size of its image.
func (l Layout) Region(id ID, size image.Point) image.Rectangle {
	s := l.Subsampling(id.Z)
	origin := l.Origin(id)
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(size.X*s.X, size.Y*s.Y))}
}
