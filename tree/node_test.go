package tree_test

import (
	"image"
	"testing"

	"github.com/eak1mov/go-tilemosaic/tile"
	"github.com/eak1mov/go-tilemosaic/tree"
	"github.com/stretchr/testify/require"
)

func newTile(t *testing.T, name string, region image.Rectangle, sub int) *tile.Tile {
	t.Helper()
	tl, err := tile.New(region, tile.Subsampling{X: sub, Y: sub}, nil, name, 0)
	require.NoError(t, err)
	return tl
}

func requireValid(t *testing.T, tr *tree.Tree, wantNodes int) {
	t.Helper()
	count, err := tr.Validate()
	require.NoError(t, err)
	require.Equal(t, wantNodes, count)
}

func TestTreeMutations(t *testing.T) {
	tr := tree.New()
	root := tr.NewTileNode(image.Rect(0, 0, 100, 100), newTile(t, "root", image.Rect(0, 0, 100, 100), 1), 10)
	tr.SetRoot(root)
	requireValid(t, tr, 1)

	group := tr.NewNode(image.Rect(0, 0, 50, 100))
	a := tr.NewTileNode(image.Rect(0, 0, 50, 50), newTile(t, "a", image.Rect(0, 0, 50, 50), 1), 3)
	b := tr.NewTileNode(image.Rect(0, 50, 50, 100), newTile(t, "b", image.Rect(0, 50, 50, 100), 1), 4)
	tr.AddChild(group, a)
	tr.AddChild(group, b)
	require.EqualValues(t, 7, tr.Cost(group))

	tr.AddChild(root, group)
	requireValid(t, tr, 4)
	require.EqualValues(t, 17, tr.Cost(root))
	require.Equal(t, 3, tr.TileCount(root))
	require.Equal(t, tree.Grouping, tr.Kind(group))
	require.Equal(t, tree.Owned, tr.Kind(a))
	require.True(t, tr.IsAncestor(root, b))
	require.False(t, tr.IsAncestor(b, root))

	c := tr.NewTileNode(image.Rect(50, 0, 100, 100), newTile(t, "c", image.Rect(50, 0, 100, 100), 1), 5)
	tr.AddChild(root, c)
	requireValid(t, tr, 5)
	require.EqualValues(t, 22, tr.Cost(root))
	require.Equal(t, []tree.NodeID{group, c}, tr.ChildList(root))

	tr.Remove(a)
	requireValid(t, tr, 4)
	require.EqualValues(t, 4, tr.Cost(group))
	require.EqualValues(t, 19, tr.Cost(root))
	require.Equal(t, b, tr.FirstChild(group))
	require.Equal(t, tree.None, tr.PrevSibling(b))

	tr.SetChildren(root, []tree.NodeID{c, a})
	requireValid(t, tr, 3)
	require.EqualValues(t, 18, tr.Cost(root))
	require.Equal(t, []tree.NodeID{c, a}, tr.ChildList(root))
	require.Equal(t, tree.None, tr.Parent(group))

	tr.ClearTile(root)
	requireValid(t, tr, 3)
	require.EqualValues(t, 8, tr.Cost(root))
	require.Nil(t, tr.Tile(root))
	require.Equal(t, 2, tr.TileCount(root))

	tr.Remove(c)
	tr.Remove(a)
	requireValid(t, tr, 1)
	require.Zero(t, tr.Cost(root))
}

func TestAddChildOutsideTilePanics(t *testing.T) {
	tr := tree.New()
	root := tr.NewTileNode(image.Rect(0, 0, 10, 10), newTile(t, "root", image.Rect(0, 0, 10, 10), 1), 1)
	tr.SetRoot(root)
	child := tr.NewTileNode(image.Rect(5, 5, 15, 15), newTile(t, "child", image.Rect(5, 5, 15, 15), 1), 1)
	require.Panics(t, func() { tr.AddChild(root, child) })

	// Grouping parents do not check: their bounds are computed afterwards.
	group := tr.NewNode(image.Rectangle{})
	require.NotPanics(t, func() { tr.AddChild(group, child) })
	require.Panics(t, func() { tr.AddChild(group, child) })
}

func TestValidateDetectsBrokenTree(t *testing.T) {
	tr := tree.New()
	root := tr.NewNode(image.Rect(0, 0, 10, 10))
	tr.SetRoot(root)
	child := tr.NewTileNode(image.Rect(0, 0, 20, 20), newTile(t, "child", image.Rect(0, 0, 20, 20), 1), 1)
	tr.AddChild(root, child)

	_, err := tr.Validate()
	require.ErrorIs(t, err, tree.ErrInvariant)

	tr.SetBounds(root, image.Rect(0, 0, 20, 20))
	requireValid(t, tr, 2)
}

func TestIsCheaperThan(t *testing.T) {
	tr := tree.New()
	region := image.Rect(0, 0, 10, 10)
	a := tr.NewTileNode(region, newTile(t, "a", region, 1), 5)
	b := tr.NewTileNode(region, newTile(t, "b", region, 1), 6)
	require.True(t, tr.IsCheaperThan(a, b))
	require.False(t, tr.IsCheaperThan(b, a))

	// Same cost: fewer tiles wins.
	c := tr.NewNode(region)
	d := tr.NewTileNode(region, newTile(t, "d", region, 1), 2)
	e := tr.NewTileNode(region, newTile(t, "e", region, 1), 3)
	tr.AddChild(c, d)
	tr.AddChild(c, e)
	require.EqualValues(t, 5, tr.Cost(c))
	require.True(t, tr.IsCheaperThan(a, c))
	require.False(t, tr.IsCheaperThan(c, a))
}

func TestCloneIsIndependent(t *testing.T) {
	tr := tree.New()
	root := tr.NewNode(image.Rect(0, 0, 10, 10))
	tr.SetRoot(root)
	a := tr.NewTileNode(image.Rect(0, 0, 5, 5), newTile(t, "a", image.Rect(0, 0, 5, 5), 1), 1)
	tr.AddChild(root, a)

	clone := tr.Clone()
	clone.Remove(a)
	requireValid(t, clone, 1)
	requireValid(t, tr, 2)
	require.EqualValues(t, 1, tr.Cost(root))
}
