package manager

import (
	"image"
	"log/slog"

	"github.com/eak1mov/go-tilemosaic/tile"
)

const (
	DefaultPoolSize         = 4
	DefaultProbeConcurrency = 8
)

type config struct {
	PoolSize         int
	ProbeConcurrency int
	QueryCacheSize   int
	Bounds           image.Rectangle
	Estimator        tile.CostEstimator
	Logger           *slog.Logger
}

type Option func(*config)

// WithPoolSize sets how many query views are kept for reuse. Queries running
// while every pooled view is busy use a throwaway view instead of waiting.
func WithPoolSize(size int) Option {
	return func(c *config) { c.PoolSize = max(size, 0) }
}

// WithProbeConcurrency bounds the number of concurrent region probes during Build.
func WithProbeConcurrency(n int) Option {
	return func(c *config) { c.ProbeConcurrency = max(n, 1) }
}

// WithQueryCache keeps the results of the last size distinct queries.
func WithQueryCache(size int) Option {
	return func(c *config) { c.QueryCacheSize = size }
}

// WithBounds restricts the index to tiles intersecting bounds. Tiles with a known
// origin past bounds are dropped without probing their region.
func WithBounds(bounds image.Rectangle) Option {
	return func(c *config) { c.Bounds = bounds }
}

func WithCostEstimator(estimator tile.CostEstimator) Option {
	return func(c *config) { c.Estimator = estimator }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}
