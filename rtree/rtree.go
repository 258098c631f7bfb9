// Package rtree provides a queryable view over the containment tree of a tile set.
//
// An RTree is built once per tile set. Its tree is never modified after Build, so
// any number of clones can share it; each clone owns the scratch state used while
// answering queries and must be used by one goroutine at a time.
package rtree

import (
	"cmp"
	"image"
	"maps"
	"slices"

	"github.com/eak1mov/go-tilemosaic/tile"
	"github.com/eak1mov/go-tilemosaic/tree"
)

// RTree answers region of interest queries over one tile set.
type RTree struct {
	grid      *tree.Tree
	tiles     []*tile.Tile
	estimator tile.CostEstimator
	selection *tree.Selection
}

// Build constructs the containment tree of tiles. Every tile region is probed.
func Build(tiles []*tile.Tile, estimator tile.CostEstimator) (*RTree, error) {
	grid, err := tree.Build(tiles, estimator)
	if err != nil {
		return nil, err
	}
	return &RTree{
		grid:      grid,
		tiles:     slices.Clip(tiles),
		estimator: estimator,
	}, nil
}

// Clone returns a view sharing the tree and tiles of r, with its own scratch state.
func (r *RTree) Clone() *RTree {
	return &RTree{
		grid:      r.grid,
		tiles:     r.tiles,
		estimator: r.estimator,
	}
}

// Search returns the tiles to read in order to cover roi at the requested
// subsampling. No two returned tiles have the same footprint within roi.
// The result is empty when roi does not intersect any tile.
func (r *RTree) Search(roi image.Rectangle, requested tile.Subsampling) []*tile.Tile {
	if r.selection == nil {
		r.selection = tree.NewSelection(r.grid, r.estimator)
	}
	return r.selection.Select(roi, requested)
}

// Tree returns the shared containment tree. It must not be modified.
func (r *RTree) Tree() *tree.Tree {
	return r.grid
}

// Tiles returns the indexed tiles in their original order.
func (r *RTree) Tiles() []*tile.Tile {
	return r.tiles
}

// Region returns the union of all tile regions.
func (r *RTree) Region() image.Rectangle {
	if r.grid.Empty() {
		return image.Rectangle{}
	}
	return r.grid.Bounds(r.grid.Root())
}

// TileSize returns the most frequent native tile size. Ties go to the larger size.
func (r *RTree) TileSize() image.Point {
	counts := make(map[image.Point]int)
	for tl := range r.grid.Tiles(r.grid.Root()) {
		size, _ := tl.NativeSize() // probed by Build
		counts[size]++
	}
	if len(counts) == 0 {
		return image.Point{}
	}
	sizes := slices.Collect(maps.Keys(counts))
	return slices.MaxFunc(sizes, func(a, b image.Point) int {
		if c := cmp.Compare(counts[a], counts[b]); c != 0 {
			return c
		}
		if c := cmp.Compare(a.X*a.Y, b.X*b.Y); c != 0 {
			return c
		}
		return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y))
	})
}

// Stats describes the shape of the containment tree.
type Stats struct {
	Nodes    int
	Tiles    int
	Groups   int // grouping nodes, including a synthetic root
	Overlaps int // nodes whose children were split into groups
	Depth    int
}

func (r *RTree) Stats() Stats {
	var s Stats
	if r.grid.Empty() {
		return s
	}
	var walk func(tree.NodeID, int)
	walk = func(id tree.NodeID, depth int) {
		s.Nodes++
		s.Depth = max(s.Depth, depth)
		if r.grid.Kind(id) == tree.Grouping {
			s.Groups++
		} else {
			s.Tiles++
		}
		if r.grid.Overlaps(id) {
			s.Overlaps++
		}
		for c := range r.grid.Children(id) {
			walk(c, depth+1)
		}
	}
	walk(r.grid.Root(), 1)
	return s
}
