package tile

import "image"

// CostEstimator estimates the cost of reading region from a tile stored at native
// subsampling when the caller asked for requested subsampling.
// Costs must be non-negative, monotonic in area, and penalize resolution mismatch.
type CostEstimator interface {
	Cost(region image.Rectangle, native, requested Subsampling) int64
}

// PixelCost counts pixels: the pixels the caller wants plus the pixels that are
// decoded and thrown away (native finer than requested) or missing
// (native coarser than requested).
type PixelCost struct{}

func (PixelCost) Cost(region image.Rectangle, native, requested Subsampling) int64 {
	area := Area(region)
	if area == 0 {
		return 0
	}
	want := ceilDiv64(area, requested.Product())
	have := ceilDiv64(area, native.Product())
	if have >= want {
		return have // want + discarded
	}
	return want + (want - have) // want + missing
}

// ReadCost is the cost of reading the whole tile at its own resolution.
func ReadCost(estimator CostEstimator, t *Tile) (int64, error) {
	region, err := t.Region()
	if err != nil {
		return 0, err
	}
	return estimator.Cost(region, t.subsampling, t.subsampling), nil
}

func ceilDiv64(a, b int64) int64 {
	return (a + b - 1) / b
}
