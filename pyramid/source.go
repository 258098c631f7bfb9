package pyramid

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/eak1mov/go-tilemosaic/tile"
	_ "golang.org/x/image/webp"
)

// ErrTileNotFound indicates a pyramid tile without data.
var ErrTileNotFound = errors.New("mosaic: tile not found")

// Source is a pyramid tile store, such as an MBTiles database or an XYZ directory.
type Source interface {
	// TileIDs lists the stored tiles without reading their data.
	TileIDs() ([]ID, error)

	// ReadTile returns the encoded image of id, or empty data if id is missing.
	ReadTile(id ID) ([]byte, error)
}

// ProbeSize returns the pixel size of an encoded PNG, JPEG or WebP image
// by decoding its header only.
func ProbeSize(data []byte) (image.Point, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Point{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Point{}, fmt.Errorf("%w: empty %s image", tile.ErrGeometry, format)
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

// Decoder probes the regions of pyramid tiles stored in a Source.
// Tile inputs are pyramid IDs.
type Decoder struct {
	Source Source
	Layout Layout
}

func (d *Decoder) Region(input any, imageIndex int) (image.Rectangle, error) {
	id, ok := input.(ID)
	if !ok {
		return image.Rectangle{}, fmt.Errorf("unexpected tile input %T", input)
	}
	if imageIndex != 0 {
		return image.Rectangle{}, fmt.Errorf("tile %v has no image %d", id, imageIndex)
	}
	data, err := d.Source.ReadTile(id)
	if err != nil {
		return image.Rectangle{}, err
	}
	if len(data) == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %v", ErrTileNotFound, id)
	}
	size, err := ProbeSize(data)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("tile %v: %w", id, err)
	}
	return d.Layout.Region(id, size), nil
}

// Tiles lists the tiles of src as lazy mosaic tiles in Hilbert order.
// Regions are probed on first use, through the returned tiles' Decoder.
func Tiles(src Source, layout Layout) ([]*tile.Tile, error) {
	ids, err := src.TileIDs()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := layout.Validate(id); err != nil {
			return nil, err
		}
	}
	Sort(ids)

	decoder := &Decoder{Source: src, Layout: layout}
	tiles := make([]*tile.Tile, 0, len(ids))
	for _, id := range ids {
		t, err := tile.NewLazyAt(layout.Origin(id), layout.Subsampling(id.Z), decoder, id, 0)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, t)
	}
	return tiles, nil
}

// Sink stores pyramid tiles, such as an MBTiles writer or an XYZ directory writer.
type Sink interface {
	WriteTile(id ID, data []byte) error

	// Finalize completes the store once every tile is written.
	Finalize() error
}

// Copy writes the data of tiles, read from src, into dst and finalizes dst.
// Tile inputs must be pyramid IDs, as produced by Tiles.
func Copy(dst Sink, src Source, tiles []*tile.Tile) error {
	for _, t := range tiles {
		id, ok := t.Input().(ID)
		if !ok {
			return fmt.Errorf("unexpected tile input %T", t.Input())
		}
		data, err := src.ReadTile(id)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return fmt.Errorf("%w: %v", ErrTileNotFound, id)
		}
		if err := dst.WriteTile(id, data); err != nil {
			return err
		}
	}
	return dst.Finalize()
}
