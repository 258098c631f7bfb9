package pyramid_test

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"maps"
	"slices"
	"testing"

	"github.com/eak1mov/go-tilemosaic/pyramid"
	"github.com/eak1mov/go-tilemosaic/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestHilbertCodeRoundTrip(t *testing.T) {
	for z := range 8 {
		for x := range 1 << z {
			for y := range 1 << z {
				id := pyramid.ID{X: uint32(x), Y: uint32(y), Z: uint32(z)}
				if diff := cmp.Diff(id, pyramid.FromHilbertCode(pyramid.HilbertCode(id))); diff != "" {
					t.Errorf("FromHilbertCode(HilbertCode(%v)) mismatch (-want+got):\n%v", id, diff)
				}
			}
		}
	}
	require.EqualValues(t, 0, pyramid.HilbertCode(pyramid.ID{}))
	require.EqualValues(t, 1, pyramid.HilbertCode(pyramid.ID{X: 0, Y: 0, Z: 1}))
}

func TestSortKeepsNeighboursClose(t *testing.T) {
	var ids []pyramid.ID
	for x := range uint32(4) {
		for y := range uint32(4) {
			ids = append(ids, pyramid.ID{X: x, Y: y, Z: 2})
		}
	}
	ids = append(ids, pyramid.ID{X: 1, Y: 0, Z: 1}, pyramid.ID{})
	pyramid.Sort(ids)

	require.Equal(t, pyramid.ID{}, ids[0])
	require.Equal(t, pyramid.ID{X: 1, Y: 0, Z: 1}, ids[1])
	for i := 3; i < len(ids); i++ {
		a, b := ids[i-1], ids[i]
		dx, dy := int(a.X)-int(b.X), int(a.Y)-int(b.Y)
		require.Equal(t, 1, dx*dx+dy*dy, "%v and %v are not adjacent", a, b)
	}
}

func TestLayout(t *testing.T) {
	layout := pyramid.Layout{TileSize: 256, MaxZoom: 3}
	for _, tc := range []struct {
		Name   string
		ID     pyramid.ID
		Size   image.Point
		Region image.Rectangle
		Sub    int
	}{
		{Name: "Finest", ID: pyramid.ID{X: 2, Y: 1, Z: 3}, Size: image.Pt(256, 256), Region: image.Rect(512, 256, 768, 512), Sub: 1},
		{Name: "Root", ID: pyramid.ID{}, Size: image.Pt(256, 256), Region: image.Rect(0, 0, 2048, 2048), Sub: 8},
		{Name: "PartialEdge", ID: pyramid.ID{X: 1, Y: 0, Z: 1}, Size: image.Pt(100, 256), Region: image.Rect(1024, 0, 1424, 1024), Sub: 4},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			require.NoError(t, layout.Validate(tc.ID))
			require.Equal(t, tc.Region, layout.Region(tc.ID, tc.Size))
			require.Equal(t, tc.Region.Min, layout.Origin(tc.ID))
			require.Equal(t, tile.Subsampling{X: tc.Sub, Y: tc.Sub}, layout.Subsampling(tc.ID.Z))
		})
	}

	require.ErrorIs(t, layout.Validate(pyramid.ID{Z: 4}), tile.ErrGeometry)
	require.ErrorIs(t, layout.Validate(pyramid.ID{X: 2, Z: 1}), tile.ErrGeometry)
	require.ErrorIs(t, pyramid.Layout{MaxZoom: 3}.Validate(pyramid.ID{}), tile.ErrGeometry)

	deepest := pyramid.Layout{TileSize: 256, MaxZoom: pyramid.MaxZoomLimit}
	require.NoError(t, deepest.Validate(pyramid.ID{X: 1<<30 - 1, Y: 1<<30 - 1, Z: 30}))
	tooDeep := pyramid.Layout{TileSize: 256, MaxZoom: 31}
	require.ErrorIs(t, tooDeep.Check(), tile.ErrGeometry)
	require.ErrorIs(t, tooDeep.Validate(pyramid.ID{}), tile.ErrGeometry)
}

type memSink struct {
	tiles     map[pyramid.ID][]byte
	finalized bool
}

func (m *memSink) WriteTile(id pyramid.ID, data []byte) error {
	m.tiles[id] = data
	return nil
}

func (m *memSink) Finalize() error {
	m.finalized = true
	return nil
}

func TestCopy(t *testing.T) {
	src := memSource{
		{X: 0, Y: 0, Z: 0}: encodePNG(t, 16, 16),
		{X: 0, Y: 0, Z: 1}: encodePNG(t, 16, 16),
		{X: 1, Y: 1, Z: 1}: encodePNG(t, 16, 16),
	}
	tiles, err := pyramid.Tiles(src, pyramid.Layout{TileSize: 16, MaxZoom: 1})
	require.NoError(t, err)
	selected := slices.DeleteFunc(tiles, func(tl *tile.Tile) bool { return tl.Input() == pyramid.ID{} })

	dst := &memSink{tiles: map[pyramid.ID][]byte{}}
	require.NoError(t, pyramid.Copy(dst, src, selected))
	require.True(t, dst.finalized)
	if diff := cmp.Diff(map[pyramid.ID][]byte{
		{X: 0, Y: 0, Z: 1}: src[pyramid.ID{X: 0, Y: 0, Z: 1}],
		{X: 1, Y: 1, Z: 1}: src[pyramid.ID{X: 1, Y: 1, Z: 1}],
	}, dst.tiles); diff != "" {
		t.Errorf("Copy mismatch (-want+got):\n%v", diff)
	}

	delete(src, pyramid.ID{X: 1, Y: 1, Z: 1})
	dst = &memSink{tiles: map[pyramid.ID][]byte{}}
	require.ErrorIs(t, pyramid.Copy(dst, src, selected), pyramid.ErrTileNotFound)
	require.False(t, dst.finalized)
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func TestProbeSize(t *testing.T) {
	size, err := pyramid.ProbeSize(encodePNG(t, 30, 20))
	require.NoError(t, err)
	require.Equal(t, image.Pt(30, 20), size)

	size, err = pyramid.ProbeSize(encodeJPEG(t, 16, 8))
	require.NoError(t, err)
	require.Equal(t, image.Pt(16, 8), size)

	_, err = pyramid.ProbeSize([]byte("not an image"))
	require.Error(t, err)
}

type memSource map[pyramid.ID][]byte

func (m memSource) TileIDs() ([]pyramid.ID, error) {
	return slices.Collect(maps.Keys(m)), nil
}

func (m memSource) ReadTile(id pyramid.ID) ([]byte, error) {
	return m[id], nil
}

func TestTiles(t *testing.T) {
	src := memSource{
		{X: 0, Y: 0, Z: 0}: encodePNG(t, 16, 12),
		{X: 0, Y: 0, Z: 1}: encodePNG(t, 16, 16),
		{X: 1, Y: 0, Z: 1}: encodePNG(t, 8, 16),
		{X: 0, Y: 1, Z: 1}: encodePNG(t, 16, 8),
		{X: 1, Y: 1, Z: 1}: encodePNG(t, 8, 8),
	}
	layout := pyramid.Layout{TileSize: 16, MaxZoom: 1}
	tiles, err := pyramid.Tiles(src, layout)
	require.NoError(t, err)
	require.Len(t, tiles, 5)

	var regions []image.Rectangle
	for _, tl := range tiles {
		region, err := tl.Region()
		require.NoError(t, err)
		regions = append(regions, region)
	}
	require.Equal(t, image.Rect(0, 0, 32, 24), regions[0])
	require.ElementsMatch(t, []image.Rectangle{
		image.Rect(0, 0, 16, 16),
		image.Rect(16, 0, 24, 16),
		image.Rect(0, 16, 16, 24),
		image.Rect(16, 16, 24, 24),
	}, regions[1:])
	require.Equal(t, tile.Subsampling{X: 2, Y: 2}, tiles[0].Subsampling())
	require.Equal(t, pyramid.ID{}, tiles[0].Input())
}

func TestTilesProbeErrors(t *testing.T) {
	src := memSource{
		{X: 0, Y: 0, Z: 1}: []byte("garbage"),
		{X: 1, Y: 0, Z: 1}: nil,
	}
	tiles, err := pyramid.Tiles(src, pyramid.Layout{TileSize: 16, MaxZoom: 1})
	require.NoError(t, err)
	for _, tl := range tiles {
		_, err := tl.Region()
		require.ErrorIs(t, err, tile.ErrRegionProbe)
	}
	missing := slices.IndexFunc(tiles, func(tl *tile.Tile) bool { return tl.Input() == pyramid.ID{X: 1, Y: 0, Z: 1} })
	_, err = tiles[missing].Region()
	require.ErrorIs(t, err, pyramid.ErrTileNotFound)

	_, err = pyramid.Tiles(memSource{{X: 0, Y: 0, Z: 2}: nil}, pyramid.Layout{TileSize: 16, MaxZoom: 1})
	require.ErrorIs(t, err, tile.ErrGeometry)
}
