// Package tile provides the tile descriptor and geometry shared by the mosaic index.
package tile

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

var (
	// ErrGeometry indicates an empty or otherwise invalid tile region or subsampling.
	ErrGeometry = errors.New("mosaic: invalid tile geometry")

	// ErrRegionProbe indicates that a Decoder failed to determine a tile region.
	ErrRegionProbe = errors.New("mosaic: region probe failed")
)

// Subsampling is an integer downsampling factor relative to the finest resolution.
// {1, 1} is full resolution.
type Subsampling struct {
	X int
	Y int
}

func (s Subsampling) Valid() bool {
	return s.X > 0 && s.Y > 0
}

// Product returns the number of destination pixels covered by one native pixel.
func (s Subsampling) Product() int64 {
	return int64(s.X) * int64(s.Y)
}

// Max returns the component-wise maximum of s and o.
func (s Subsampling) Max(o Subsampling) Subsampling {
	return Subsampling{X: max(s.X, o.X), Y: max(s.Y, o.Y)}
}

func (s Subsampling) String() string {
	return fmt.Sprintf("%dx%d", s.X, s.Y)
}

// Decoder is the collaborator able to read the image behind a tile.
// Only the region probe is needed by the index; pixel decoding is done elsewhere.
type Decoder interface {
	// Region returns the absolute destination region of the image at imageIndex in input.
	// It may be expensive: Tile calls it at most once and caches the result.
	Region(input any, imageIndex int) (image.Rectangle, error)
}

// Tile describes one source fragment. It is immutable once created,
// except for the one-time lazy region probe, and safe for concurrent use.
type Tile struct {
	decoder     Decoder
	input       any
	imageIndex  int
	subsampling Subsampling
	origin      image.Point
	hasOrigin   bool

	once   sync.Once
	region image.Rectangle
	err    error
}

// New creates a tile with a region known up front.
func New(region image.Rectangle, subsampling Subsampling, decoder Decoder, input any, imageIndex int) (*Tile, error) {
	if region.Empty() {
		return nil, fmt.Errorf("%w: empty region %v", ErrGeometry, region)
	}
	if !subsampling.Valid() {
		return nil, fmt.Errorf("%w: subsampling %v", ErrGeometry, subsampling)
	}
	if imageIndex < 0 {
		return nil, fmt.Errorf("%w: negative image index %d", ErrGeometry, imageIndex)
	}
	t := &Tile{
		decoder:     decoder,
		input:       input,
		imageIndex:  imageIndex,
		subsampling: subsampling,
		origin:      region.Min,
		hasOrigin:   true,
		region:      region,
	}
	t.once.Do(func() {})
	return t, nil
}

// NewLazy creates a tile whose region is probed from decoder on first use.
func NewLazy(subsampling Subsampling, decoder Decoder, input any, imageIndex int) (*Tile, error) {
	if decoder == nil {
		return nil, fmt.Errorf("%w: lazy tile without decoder", ErrRegionProbe)
	}
	if !subsampling.Valid() {
		return nil, fmt.Errorf("%w: subsampling %v", ErrGeometry, subsampling)
	}
	if imageIndex < 0 {
		return nil, fmt.Errorf("%w: negative image index %d", ErrGeometry, imageIndex)
	}
	return &Tile{
		decoder:     decoder,
		input:       input,
		imageIndex:  imageIndex,
		subsampling: subsampling,
	}, nil
}

// NewLazyAt is like NewLazy for tiles whose origin is known but whose size is not.
// The origin lets Intersects reject distant regions without probing.
func NewLazyAt(origin image.Point, subsampling Subsampling, decoder Decoder, input any, imageIndex int) (*Tile, error) {
	t, err := NewLazy(subsampling, decoder, input, imageIndex)
	if err != nil {
		return nil, err
	}
	t.origin = origin
	t.hasOrigin = true
	return t, nil
}

// Region returns the absolute destination region, probing the decoder on first call.
func (t *Tile) Region() (image.Rectangle, error) {
	t.once.Do(func() {
		region, err := t.decoder.Region(t.input, t.imageIndex)
		switch {
		case err != nil:
			t.err = fmt.Errorf("%w: input %v image %d: %w", ErrRegionProbe, t.input, t.imageIndex, err)
		case region.Empty():
			t.err = fmt.Errorf("%w: empty region %v for input %v image %d", ErrGeometry, region, t.input, t.imageIndex)
		case t.hasOrigin && region.Min != t.origin:
			t.err = fmt.Errorf("%w: probed region %v does not start at %v", ErrGeometry, region, t.origin)
		default:
			t.region = region
		}
	})
	return t.region, t.err
}

// Intersects reports whether the tile region overlaps r.
// Trivially disjoint cases are answered without probing the region.
func (t *Tile) Intersects(r image.Rectangle) (bool, error) {
	if r.Empty() {
		return false, nil
	}
	if t.hasOrigin && (t.origin.X >= r.Max.X || t.origin.Y >= r.Max.Y) {
		return false, nil
	}
	region, err := t.Region()
	if err != nil {
		return false, err
	}
	return region.Overlaps(r), nil
}

func (t *Tile) Subsampling() Subsampling { return t.subsampling }
func (t *Tile) Decoder() Decoder { return t.decoder }
func (t *Tile) Input() any { return t.input }
func (t *Tile) ImageIndex() int { return t.imageIndex }

// NativeSize returns the size in native pixels of the tile image.
func (t *Tile) NativeSize() (image.Point, error) {
	region, err := t.Region()
	if err != nil {
		return image.Point{}, err
	}
	return image.Point{
		X: ceilDiv(region.Dx(), t.subsampling.X),
		Y: ceilDiv(region.Dy(), t.subsampling.Y),
	}, nil
}

func (t *Tile) String() string {
	region, err := t.Region()
	if err != nil {
		return fmt.Sprintf("tile(%v #%d, %v)", t.input, t.imageIndex, err)
	}
	return fmt.Sprintf("tile(%v #%d, %v @%v)", t.input, t.imageIndex, region, t.subsampling)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
