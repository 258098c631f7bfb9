package tree

import (
	"image"
	"slices"

	"github.com/eak1mov/go-tilemosaic/tile"
)

// Selection builds, in a private arena, the per-query tree of tiles intersecting a
// region of interest, then removes alternatives so that the remaining tiles cover the
// region at the lowest estimated cost. A Selection is not safe for concurrent use but
// can be reused for successive queries against the same grid.
type Selection struct {
	grid      *Tree
	estimator tile.CostEstimator

	sel        *Tree
	footprints map[image.Rectangle]NodeID
}

// NewSelection returns a Selection reading grid, which is never modified.
func NewSelection(grid *Tree, estimator tile.CostEstimator) *Selection {
	return &Selection{
		grid:       grid,
		estimator:  estimator,
		sel:        New(),
		footprints: make(map[image.Rectangle]NodeID),
	}
}

// Tree returns the selected tree of the last query.
func (s *Selection) Tree() *Tree {
	return s.sel
}

// Select returns the tiles to read for roi at the requested subsampling, in tree order.
func (s *Selection) Select(roi image.Rectangle, requested tile.Subsampling) []*tile.Tile {
	s.sel.Reset()
	clear(s.footprints)
	if s.grid.root == None || roi.Empty() {
		return nil
	}

	root := s.seed(s.grid.root, roi, requested)
	if root == None {
		return nil
	}
	s.sel.root = root

	s.filter(root)
	s.prune(root)

	var result []*tile.Tile
	for tl := range s.sel.Tiles(root) {
		result = append(result, tl)
	}
	return result
}

// seed mirrors the part of the grid subtree at id intersecting roi, clipping every
// bounds to roi. Grouping nodes left without children are dropped.
func (s *Selection) seed(id NodeID, roi image.Rectangle, requested tile.Subsampling) NodeID {
	g := &s.grid.nodes[id]
	clipped := g.bounds.Intersect(roi)
	if clipped.Empty() {
		return None
	}

	var children []NodeID
	for c := g.first; c != None; c = s.grid.nodes[c].next {
		if child := s.seed(c, roi, requested); child != None {
			children = append(children, child)
		}
	}

	var n NodeID
	if g.tile != nil {
		n = s.sel.NewTileNode(clipped, g.tile, s.estimator.Cost(clipped, g.tile.Subsampling(), requested))
	} else {
		if len(children) == 0 {
			return None
		}
		n = s.sel.NewNode(clipped)
	}
	for _, c := range children {
		s.sel.AddChild(n, c)
	}
	return n
}

// filter keeps, children first, a single tile per footprint: the cheaper one.
// A losing ancestor of the winner only gives up its tile; any other loser is
// detached with its subtree.
func (s *Selection) filter(id NodeID) {
	for _, c := range s.sel.ChildList(id) {
		s.filter(c)
	}
	if s.sel.nodes[id].tile == nil {
		return
	}
	fp := s.sel.nodes[id].bounds
	other, found := s.footprints[fp]
	if !found {
		s.footprints[fp] = id
		return
	}

	winner, loser := other, id
	if s.cheaper(id, other) {
		winner, loser = id, other
	}
	if s.sel.IsAncestor(loser, winner) {
		s.sel.ClearTile(loser)
	} else {
		s.forget(loser)
		s.sel.Remove(loser)
	}
	s.footprints[fp] = winner
}

// cheaper compares two nodes claiming the same footprint. When one is an ancestor
// of the other their subtree costs are not comparable, so only own costs count.
func (s *Selection) cheaper(a, b NodeID) bool {
	if s.sel.IsAncestor(a, b) || s.sel.IsAncestor(b, a) {
		ca, cb := s.sel.nodes[a].ownCost, s.sel.nodes[b].ownCost
		if ca != cb {
			return ca < cb
		}
		// Same cost: keep the ancestor, it covers the footprint alone.
		return s.sel.IsAncestor(a, b)
	}
	return s.sel.IsCheaperThan(a, b)
}

func (s *Selection) forget(id NodeID) {
	for c := range s.sel.Children(id) {
		s.forget(c)
	}
	if s.sel.nodes[id].tile != nil {
		fp := s.sel.nodes[id].bounds
		if s.footprints[fp] == id {
			delete(s.footprints, fp)
		}
	}
}

// prune drops redundant reads below tile owning nodes, children first: descendants
// are detached when the node alone is not more expensive, and the node tile is
// cleared when its descendants cover its footprint for less. It reports whether the
// subtree covers the node bounds entirely.
func (s *Selection) prune(id NodeID) bool {
	var covered []image.Rectangle
	for _, c := range s.sel.ChildList(id) {
		if s.prune(c) {
			covered = append(covered, s.sel.nodes[c].bounds)
		}
	}

	n := &s.sel.nodes[id]
	if n.tile == nil {
		return covers(n.bounds, covered)
	}
	if n.first == None {
		return true
	}
	if below := n.cost - n.ownCost; n.ownCost <= below {
		s.sel.SetChildren(id, nil)
	} else if covers(n.bounds, covered) {
		s.sel.ClearTile(id)
	}
	return true
}

// covers reports whether rects, all lying within bounds, cover bounds entirely.
func covers(bounds image.Rectangle, rects []image.Rectangle) bool {
	var area int64
	for _, r := range rects {
		area += tile.Area(r)
	}
	if len(rects) == 0 || area < tile.Area(bounds) {
		return false
	}
	xs := []int{bounds.Min.X, bounds.Max.X}
	ys := []int{bounds.Min.Y, bounds.Max.Y}
	for _, r := range rects {
		xs = append(xs, r.Min.X, r.Max.X)
		ys = append(ys, r.Min.Y, r.Max.Y)
	}
	slices.Sort(xs)
	slices.Sort(ys)
	xs, ys = slices.Compact(xs), slices.Compact(ys)
	for j := range len(ys) - 1 {
		for i := range len(xs) - 1 {
			cell := image.Rect(xs[i], ys[j], xs[i+1], ys[j+1])
			if !slices.ContainsFunc(rects, func(r image.Rectangle) bool { return tile.Contains(r, cell) }) {
				return false
			}
		}
	}
	return true
}
