// Package catalog provides a flat binary catalog of mosaic tiles.
//
// A catalog is a sequence of fixed-width little-endian records, each describing the
// destination region and subsampling of one tile together with the location of its
// encoded image in a separate data file. Regions are stored, so tiles loaded from a
// catalog never need to be probed. It is designed to be easily portable to other
// languages and utilities.
package catalog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/eak1mov/go-tilemosaic/tile"
)

var ErrInvalidCatalog = errors.New("mosaic: invalid catalog")

// Item is a single catalog record.
type Item struct {
	X            int32
	Y            int32
	Width        uint32
	Height       uint32
	XSubsampling uint16
	YSubsampling uint16
	ImageIndex   uint32
	Length       uint32
	Offset       uint64
}

// ItemSize is the encoded size of one record.
var ItemSize = binary.Size(Item{})

// Location is the position of the encoded image of a tile in the data file.
type Location struct {
	Offset uint64
	Length uint32
}

func (i Item) Region() image.Rectangle {
	return image.Rect(int(i.X), int(i.Y), int(i.X)+int(i.Width), int(i.Y)+int(i.Height))
}

func (i Item) Subsampling() tile.Subsampling {
	return tile.Subsampling{X: int(i.XSubsampling), Y: int(i.YSubsampling)}
}

func (i Item) Location() Location {
	return Location{Offset: i.Offset, Length: i.Length}
}

// NewItem describes t, whose image is stored at loc. The tile region is probed.
func NewItem(t *tile.Tile, loc Location) (Item, error) {
	region, err := t.Region()
	if err != nil {
		return Item{}, err
	}
	sub := t.Subsampling()
	if !fitsInt32(region.Min.X) || !fitsInt32(region.Min.Y) ||
		int64(region.Dx()) > math.MaxUint32 || int64(region.Dy()) > math.MaxUint32 ||
		sub.X > math.MaxUint16 || sub.Y > math.MaxUint16 ||
		int64(t.ImageIndex()) > math.MaxUint32 {
		return Item{}, fmt.Errorf("%w: tile %v does not fit a catalog record", ErrInvalidCatalog, t)
	}
	return Item{
		X:            int32(region.Min.X),
		Y:            int32(region.Min.Y),
		Width:        uint32(region.Dx()),
		Height:       uint32(region.Dy()),
		XSubsampling: uint16(sub.X),
		YSubsampling: uint16(sub.Y),
		ImageIndex:   uint32(t.ImageIndex()),
		Length:       loc.Length,
		Offset:       loc.Offset,
	}, nil
}

func fitsInt32(v int) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

// Tile returns the tile described by i. Its input is the item's data Location.
func (i Item) Tile(decoder tile.Decoder) (*tile.Tile, error) {
	return tile.New(i.Region(), i.Subsampling(), decoder, i.Location(), int(i.ImageIndex))
}

// Tiles returns the tiles described by items, in order.
func Tiles(items []Item, decoder tile.Decoder) ([]*tile.Tile, error) {
	tiles := make([]*tile.Tile, 0, len(items))
	for n, item := range items {
		t, err := item.Tile(decoder)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrInvalidCatalog, n, err)
		}
		tiles = append(tiles, t)
	}
	return tiles, nil
}

func WriteAll(items []Item, writer io.Writer) error {
	return binary.Write(writer, binary.LittleEndian, items)
}

func ReadAll(catalogData []byte) ([]Item, error) {
	if len(catalogData)%ItemSize != 0 {
		return nil, fmt.Errorf("%w: size %d is not a multiple of %d", ErrInvalidCatalog, len(catalogData), ItemSize)
	}
	items := make([]Item, len(catalogData)/ItemSize)

	err := binary.Read(bytes.NewReader(catalogData), binary.LittleEndian, items)
	if err != nil {
		return nil, err
	}

	return items, nil
}
