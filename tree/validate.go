package tree

import (
	"errors"
	"fmt"

	"github.com/eak1mov/go-tilemosaic/tile"
)

// ErrInvariant reports a broken tree: a bug in construction or filtering, never bad input.
var ErrInvariant = errors.New("mosaic: tree invariant violated")

// Validate walks the tree from its root and checks that children lie within their
// parent, that costs and tile counts add up, and that parent and sibling links are
// consistent. It returns the number of reachable nodes.
func (t *Tree) Validate() (int, error) {
	if t.root == None {
		return 0, nil
	}
	if p := t.nodes[t.root].parent; p != None {
		return 0, fmt.Errorf("%w: root %d has parent %d", ErrInvariant, t.root, p)
	}
	count := 0
	var walk func(NodeID) error
	walk = func(id NodeID) error {
		count++
		if count > len(t.nodes) {
			return fmt.Errorf("%w: cycle through node %d", ErrInvariant, id)
		}
		n := &t.nodes[id]
		if n.tile == nil && n.ownCost != 0 {
			return fmt.Errorf("%w: grouping node %d has own cost %d", ErrInvariant, id, n.ownCost)
		}
		cost := n.ownCost
		tiles := 0
		if n.tile != nil {
			tiles = 1
		}
		prev := None
		for c := n.first; c != None; c = t.nodes[c].next {
			child := &t.nodes[c]
			if child.parent != id {
				return fmt.Errorf("%w: node %d lists child %d whose parent is %d", ErrInvariant, id, c, child.parent)
			}
			if child.prev != prev {
				return fmt.Errorf("%w: node %d has prev %d, want %d", ErrInvariant, c, child.prev, prev)
			}
			if !tile.Contains(n.bounds, child.bounds) {
				return fmt.Errorf("%w: child %d %v outside parent %d %v", ErrInvariant, c, child.bounds, id, n.bounds)
			}
			if err := walk(c); err != nil {
				return err
			}
			cost += child.cost
			tiles += child.tiles
			prev = c
		}
		if n.last != prev {
			return fmt.Errorf("%w: node %d has last child %d, want %d", ErrInvariant, id, n.last, prev)
		}
		if n.cost != cost {
			return fmt.Errorf("%w: node %d has cost %d, want %d", ErrInvariant, id, n.cost, cost)
		}
		if n.tiles != tiles {
			return fmt.Errorf("%w: node %d has %d tiles, want %d", ErrInvariant, id, n.tiles, tiles)
		}
		return nil
	}
	if err := walk(t.root); err != nil {
		return count, err
	}
	return count, nil
}
