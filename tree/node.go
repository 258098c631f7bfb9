// Package tree provides the containment tree used by the mosaic index.
//
// Nodes live in an arena (Tree) and are addressed by NodeID. Links between nodes
// (parent, first/last child, previous/next sibling) are ids, so a Tree can be copied
// with a single slice clone. Every node carries an accumulated cost: the cost of its
// own tile plus the cost of all descendants. Structural mutations keep it up to date
// by walking the ancestor chain with a signed delta.
package tree

import (
	"image"
	"iter"
	"slices"

	"github.com/eak1mov/go-tilemosaic/tile"
)

// NodeID addresses a node inside its Tree.
type NodeID int32

// None is the null NodeID.
const None NodeID = -1

// Kind distinguishes synthetic grouping nodes from nodes owning a tile.
type Kind uint8

const (
	// Grouping nodes own no tile; their bounds are the union of their children.
	Grouping Kind = iota
	// Owned nodes own exactly one tile; their bounds are derived from it.
	Owned
)

type node struct {
	bounds  image.Rectangle
	tile    *tile.Tile // nil for Grouping nodes
	ownCost int64
	cost    int64 // ownCost + sum of children cost
	tiles   int   // owned tiles in the subtree, including this node

	parent NodeID
	first  NodeID
	last   NodeID
	prev   NodeID
	next   NodeID

	// Filled by Build only.
	subsampling tile.Subsampling
	overlaps    bool
	rank        int
}

// Tree is an arena of nodes. The zero value is an empty tree with no root.
type Tree struct {
	nodes []node
	root  NodeID
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: None}
}

// NewNode allocates a detached grouping node.
func (t *Tree) NewNode(bounds image.Rectangle) NodeID {
	return t.alloc(node{bounds: bounds})
}

// NewTileNode allocates a detached node owning tl with the given bounds and cost.
func (t *Tree) NewTileNode(bounds image.Rectangle, tl *tile.Tile, cost int64) NodeID {
	if tl == nil {
		panic("mosaic: NewTileNode without tile")
	}
	return t.alloc(node{bounds: bounds, tile: tl, ownCost: cost, cost: cost, tiles: 1})
}

func (t *Tree) alloc(n node) NodeID {
	n.parent, n.first, n.last, n.prev, n.next = None, None, None, None, None
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	return id
}

// Reset drops every node but keeps the allocated storage.
func (t *Tree) Reset() {
	t.nodes = t.nodes[:0]
	t.root = None
}

// Clone returns an independent copy of the arena.
func (t *Tree) Clone() *Tree {
	return &Tree{nodes: slices.Clone(t.nodes), root: t.root}
}

func (t *Tree) Root() NodeID { return t.root }
func (t *Tree) SetRoot(id NodeID) { t.root = id }
func (t *Tree) Len() int { return len(t.nodes) }
func (t *Tree) Empty() bool { return t.root == None }
func (t *Tree) n(id NodeID) *node { return &t.nodes[id] }

func (t *Tree) Bounds(id NodeID) image.Rectangle { return t.nodes[id].bounds }
func (t *Tree) Tile(id NodeID) *tile.Tile { return t.nodes[id].tile }
func (t *Tree) Cost(id NodeID) int64 { return t.nodes[id].cost }
func (t *Tree) OwnCost(id NodeID) int64 { return t.nodes[id].ownCost }
func (t *Tree) TileCount(id NodeID) int { return t.nodes[id].tiles }
func (t *Tree) Parent(id NodeID) NodeID { return t.nodes[id].parent }
func (t *Tree) FirstChild(id NodeID) NodeID { return t.nodes[id].first }
func (t *Tree) LastChild(id NodeID) NodeID { return t.nodes[id].last }
func (t *Tree) NextSibling(id NodeID) NodeID { return t.nodes[id].next }
func (t *Tree) PrevSibling(id NodeID) NodeID { return t.nodes[id].prev }

// Subsampling returns the maximum subsampling found in the subtree (built trees only).
func (t *Tree) Subsampling(id NodeID) tile.Subsampling { return t.nodes[id].subsampling }

// Overlaps reports whether construction found overlapping direct children under id.
func (t *Tree) Overlaps(id NodeID) bool { return t.nodes[id].overlaps }

func (t *Tree) Kind(id NodeID) Kind {
	if t.nodes[id].tile == nil {
		return Grouping
	}
	return Owned
}

// SetBounds changes the bounds of a grouping node.
func (t *Tree) SetBounds(id NodeID, bounds image.Rectangle) {
	if t.Kind(id) == Owned {
		panic("mosaic: bounds of a tile node are fixed")
	}
	t.nodes[id].bounds = bounds
}

// Children iterates over the direct children of id. The tree must not be
// mutated during iteration; use ChildList for that.
func (t *Tree) Children(id NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for c := t.nodes[id].first; c != None; c = t.nodes[c].next {
			if !yield(c) {
				return
			}
		}
	}
}

// ChildList returns the direct children of id as a new slice.
func (t *Tree) ChildList(id NodeID) []NodeID {
	return slices.Collect(t.Children(id))
}

// IsAncestor reports whether a is a strict ancestor of d.
func (t *Tree) IsAncestor(a, d NodeID) bool {
	for p := t.nodes[d].parent; p != None; p = t.nodes[p].parent {
		if p == a {
			return true
		}
	}
	return false
}

// AddChild appends child, which must be detached, to the children of parent.
// When parent owns a tile the child bounds must lie within the parent bounds.
// Grouping parents get their bounds from the union of children, computed by the caller.
func (t *Tree) AddChild(parent, child NodeID) {
	c := t.n(child)
	if c.parent != None || child == t.root {
		panic("mosaic: AddChild of an attached node")
	}
	p := t.n(parent)
	if p.tile != nil && !tile.Contains(p.bounds, c.bounds) {
		panic("mosaic: child bounds outside parent tile")
	}
	c.parent = parent
	c.prev = p.last
	c.next = None
	if p.last != None {
		t.nodes[p.last].next = child
	} else {
		p.first = child
	}
	p.last = child
	t.propagate(parent, c.cost, c.tiles)
}

// SetChildren replaces the children of parent with children.
func (t *Tree) SetChildren(parent NodeID, children []NodeID) {
	var cost int64
	var tiles int
	for c := t.nodes[parent].first; c != None; {
		next := t.nodes[c].next
		cost += t.nodes[c].cost
		tiles += t.nodes[c].tiles
		t.unlink(c)
		c = next
	}
	p := t.n(parent)
	p.first, p.last = None, None
	t.propagate(parent, -cost, -tiles)
	for _, c := range children {
		t.AddChild(parent, c)
	}
}

// Remove detaches id, with its subtree, from its parent.
func (t *Tree) Remove(id NodeID) {
	n := t.n(id)
	parent := n.parent
	if parent == None {
		if id == t.root {
			t.root = None
		}
		return
	}
	p := t.n(parent)
	if n.prev != None {
		t.nodes[n.prev].next = n.next
	} else {
		p.first = n.next
	}
	if n.next != None {
		t.nodes[n.next].prev = n.prev
	} else {
		p.last = n.prev
	}
	t.unlink(id)
	t.propagate(parent, -n.cost, -n.tiles)
}

// ClearTile turns an owned node into a grouping node, keeping its children.
func (t *Tree) ClearTile(id NodeID) {
	n := t.n(id)
	if n.tile == nil {
		return
	}
	delta := n.ownCost
	n.tile = nil
	n.ownCost = 0
	n.cost -= delta
	n.tiles--
	t.propagate(n.parent, -delta, -1)
}

// IsCheaperThan reports whether a costs less than b. Equal costs are broken in
// favor of the subtree owning fewer tiles.
func (t *Tree) IsCheaperThan(a, b NodeID) bool {
	na, nb := &t.nodes[a], &t.nodes[b]
	if na.cost != nb.cost {
		return na.cost < nb.cost
	}
	return na.tiles < nb.tiles
}

func (t *Tree) unlink(id NodeID) {
	n := t.n(id)
	n.parent, n.prev, n.next = None, None, None
}

func (t *Tree) propagate(from NodeID, cost int64, tiles int) {
	for p := from; p != None; p = t.nodes[p].parent {
		t.nodes[p].cost += cost
		t.nodes[p].tiles += tiles
	}
}

// Tiles iterates, in pre-order, over the tiles owned by the subtree of id.
func (t *Tree) Tiles(id NodeID) iter.Seq[*tile.Tile] {
	return func(yield func(*tile.Tile) bool) {
		var walk func(NodeID) bool
		walk = func(n NodeID) bool {
			if tl := t.nodes[n].tile; tl != nil && !yield(tl) {
				return false
			}
			for c := t.nodes[n].first; c != None; c = t.nodes[c].next {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		if id != None {
			walk(id)
		}
	}
}
