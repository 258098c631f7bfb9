package pyramid

import (
	"cmp"
	"math/bits"
	"slices"

	"github.com/google/hilbert"
)

// HilbertCode numbers tiles level by level, along the Hilbert curve within a level.
// id must be valid: X and Y below 2^Z.
func HilbertCode(id ID) uint64 {
	h, _ := hilbert.NewHilbert(1 << id.Z)
	code, _ := h.MapInverse(int(id.X), int(id.Y))

	tilesCount := (1<<(id.Z*2) - 1) / 3
	return uint64(code + tilesCount)
}

// FromHilbertCode is the inverse of HilbertCode.
func FromHilbertCode(code uint64) ID {
	z := (bits.Len64(3*code+1) - 1) / 2
	tilesCount := (1<<(z*2) - 1) / 3

	h, _ := hilbert.NewHilbert(1 << z)
	x, y, _ := h.Map(int(code) - tilesCount)

	return ID{X: uint32(x), Y: uint32(y), Z: uint32(z)}
}

// Sort orders ids coarsest level first, then along the Hilbert curve.
// Neighbouring tiles stay close in the result.
func Sort(ids []ID) {
	codes := make(map[ID]uint64, len(ids))
	for _, id := range ids {
		codes[id] = HilbertCode(id)
	}
	slices.SortFunc(ids, func(a, b ID) int {
		return cmp.Compare(codes[a], codes[b])
	})
}
