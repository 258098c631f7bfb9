package rtree_test

import (
	"image"
	"testing"

	"github.com/eak1mov/go-tilemosaic/rtree"
	"github.com/eak1mov/go-tilemosaic/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func pyramidTiles(t *testing.T) []*tile.Tile {
	t.Helper()
	var tiles []*tile.Tile
	add := func(region image.Rectangle, sub int) {
		tl, err := tile.New(region, tile.Subsampling{X: sub, Y: sub}, nil, len(tiles), 0)
		require.NoError(t, err)
		tiles = append(tiles, tl)
	}
	add(image.Rect(0, 0, 512, 512), 2)
	for y := 0; y < 512; y += 256 {
		for x := 0; x < 512; x += 256 {
			add(image.Rect(x, y, x+256, y+256), 1)
		}
	}
	// Partial edge tile overlapping two cells.
	add(image.Rect(200, 0, 312, 100), 1)
	return tiles
}

func TestRTreeAccessors(t *testing.T) {
	tiles := pyramidTiles(t)
	r, err := rtree.Build(tiles, tile.PixelCost{})
	require.NoError(t, err)

	require.Equal(t, image.Rect(0, 0, 512, 512), r.Region())
	require.Equal(t, image.Pt(256, 256), r.TileSize())
	require.Equal(t, tiles, r.Tiles())

	if diff := cmp.Diff(rtree.Stats{Nodes: 8, Tiles: 6, Groups: 2, Overlaps: 1, Depth: 3}, r.Stats()); diff != "" {
		t.Errorf("Stats mismatch (-want+got):\n%v", diff)
	}

	count, err := r.Tree().Validate()
	require.NoError(t, err)
	require.Equal(t, 8, count)
}

func TestRTreeEmpty(t *testing.T) {
	r, err := rtree.Build(nil, tile.PixelCost{})
	require.NoError(t, err)
	require.True(t, r.Region().Empty())
	require.Equal(t, image.Point{}, r.TileSize())
	require.Empty(t, r.Search(image.Rect(0, 0, 10, 10), tile.Subsampling{X: 1, Y: 1}))
	require.Equal(t, rtree.Stats{}, r.Stats())
}

func TestRTreeClonesAgree(t *testing.T) {
	tiles := pyramidTiles(t)
	r, err := rtree.Build(tiles, tile.PixelCost{})
	require.NoError(t, err)
	clone := r.Clone()
	require.Same(t, r.Tree(), clone.Tree())

	roi := image.Rect(100, 50, 400, 300)
	full := tile.Subsampling{X: 1, Y: 1}
	want := r.Search(roi, full)
	require.ElementsMatch(t, want, clone.Search(roi, full))

	// A query on one view does not disturb the other.
	require.Equal(t, []*tile.Tile{tiles[0]}, clone.Search(roi, tile.Subsampling{X: 2, Y: 2}))
	require.ElementsMatch(t, want, r.Search(roi, full))

	_, err = r.Tree().Validate()
	require.NoError(t, err)
}
