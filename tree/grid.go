package tree

import (
	"cmp"
	"image"
	"slices"

	"github.com/eak1mov/go-tilemosaic/tile"
)

type gridEntry struct {
	tile   *tile.Tile
	region image.Rectangle
	area   int64
	cost   int64
}

// compareEntries orders by descending area, then descending subsampling product.
// Callers sort stably so that remaining ties keep input order.
func compareEntries(a, b gridEntry) int {
	if c := cmp.Compare(b.area, a.area); c != 0 {
		return c
	}
	return cmp.Compare(b.tile.Subsampling().Product(), a.tile.Subsampling().Product())
}

// Build arranges tiles into a containment tree. Every node lies within its parent.
// Partially overlapping siblings are moved into synthetic grouping nodes whose own
// children are pairwise disjoint, and every node knows the coarsest subsampling
// found in its subtree. Each tile appears exactly once. Node costs are the read
// cost of each tile at its own resolution.
//
// Build probes every tile region; probe failures are returned as is.
func Build(tiles []*tile.Tile, estimator tile.CostEstimator) (*Tree, error) {
	t := New()
	if len(tiles) == 0 {
		return t, nil
	}

	entries := make([]gridEntry, len(tiles))
	for i, tl := range tiles {
		region, err := tl.Region()
		if err != nil {
			return nil, err
		}
		sub := tl.Subsampling()
		entries[i] = gridEntry{
			tile:   tl,
			region: region,
			area:   tile.Area(region),
			cost:   estimator.Cost(region, sub, sub),
		}
	}
	slices.SortStableFunc(entries, compareEntries)

	// The largest tile becomes the root when it covers everything else.
	first := entries[0]
	promote := true
	union := first.region
	for _, e := range entries[1:] {
		if promote && !tile.Contains(first.region, e.region) {
			promote = false
		}
		union = union.Union(e.region)
	}

	var root NodeID
	rest := entries
	if promote {
		root = t.NewTileNode(first.region, first.tile, first.cost)
		rest = entries[1:]
	} else {
		root = t.NewNode(union)
		t.nodes[root].rank = -1
	}
	t.root = root

	rank := len(entries) - len(rest)
	for _, e := range rest {
		id := t.NewTileNode(e.region, e.tile, e.cost)
		t.nodes[id].rank = rank
		rank++
		t.attach(t.findParent(e.region), id)
	}

	t.splitOverlaps(root)
	t.aggregate(root)
	return t, nil
}

// findParent returns the smallest node containing region, preferring nodes on
// which region is grid aligned.
func (t *Tree) findParent(region image.Rectangle) NodeID {
	best, bestAligned := None, None
	var bestArea, bestAlignedArea int64
	var visit func(NodeID)
	visit = func(id NodeID) {
		bounds := t.nodes[id].bounds
		area := tile.Area(bounds)
		if best == None || area < bestArea {
			best, bestArea = id, area
		}
		if (bestAligned == None || area < bestAlignedArea) && tile.GridAligned(bounds, region) {
			bestAligned, bestAlignedArea = id, area
		}
		for c := t.nodes[id].first; c != None; c = t.nodes[c].next {
			if tile.Contains(t.nodes[c].bounds, region) {
				visit(c)
			}
		}
	}
	visit(t.root)
	if bestAligned != None {
		return bestAligned
	}
	return best
}

func (t *Tree) attach(parent, child NodeID) {
	if !t.nodes[parent].overlaps {
		bounds := t.nodes[child].bounds
		for c := range t.Children(parent) {
			if tile.Overlap(t.nodes[c].bounds, bounds) {
				t.nodes[parent].overlaps = true
				break
			}
		}
	}
	t.AddChild(parent, child)
}

// splitOverlaps regroups, children first, the children of every node flagged as
// overlapping into synthetic nodes whose own children are pairwise disjoint.
func (t *Tree) splitOverlaps(id NodeID) {
	for _, c := range t.ChildList(id) {
		t.splitOverlaps(c)
	}
	if !t.nodes[id].overlaps {
		return
	}

	var groups [][]NodeID
	pool := t.ChildList(id)
	for len(pool) > 0 {
		last := pool[0]
		group := []NodeID{last}
		remaining := slices.Clone(pool[1:])
		var leftover []NodeID
		for {
			lastBounds := t.nodes[last].bounds
			keep := remaining[:0]
			for _, c := range remaining {
				if tile.Overlap(lastBounds, t.nodes[c].bounds) {
					leftover = append(leftover, c)
				} else {
					keep = append(keep, c)
				}
			}
			remaining = keep
			if len(remaining) == 0 {
				break
			}
			next := 0
			nextDist := tile.Distance(lastBounds, t.nodes[remaining[0]].bounds)
			for i, c := range remaining[1:] {
				if d := tile.Distance(lastBounds, t.nodes[c].bounds); d < nextDist {
					next, nextDist = i+1, d
				}
			}
			last = remaining[next]
			group = append(group, last)
			remaining = slices.Delete(remaining, next, next+1)
		}
		groups = append(groups, group)
		pool = leftover
	}

	t.SetChildren(id, nil)
	for _, group := range groups {
		slices.SortFunc(group, func(a, b NodeID) int {
			return cmp.Compare(t.nodes[a].rank, t.nodes[b].rank)
		})
		bounds := image.Rectangle{}
		for _, c := range group {
			bounds = bounds.Union(t.nodes[c].bounds)
		}
		g := t.NewNode(bounds)
		t.nodes[g].rank = t.nodes[group[0]].rank
		for _, c := range group {
			t.AddChild(g, c)
		}
		t.AddChild(id, g)
	}
}

func (t *Tree) aggregate(id NodeID) tile.Subsampling {
	var sub tile.Subsampling
	if tl := t.nodes[id].tile; tl != nil {
		sub = tl.Subsampling()
	}
	for c := t.nodes[id].first; c != None; c = t.nodes[c].next {
		sub = sub.Max(t.aggregate(c))
	}
	t.nodes[id].subsampling = sub
	return sub
}
