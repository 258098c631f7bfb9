// Package manager owns a tile set and answers concurrent region of interest queries.
//
// The containment tree is built once, on the first query or an explicit Build, and
// never modified afterwards. Queries run on clones of the tree view taken from a
// small pool; when every pooled clone is busy a query runs on a throwaway clone, so
// queries never wait for each other.
package manager

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/eak1mov/go-tilemosaic/rtree"
	"github.com/eak1mov/go-tilemosaic/tile"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// ErrDuplicateInput indicates two tiles reading the same image of the same input.
var ErrDuplicateInput = errors.New("mosaic: duplicate tile input")

type queryKey struct {
	roi         image.Rectangle
	subsampling tile.Subsampling
}

// Manager indexes one tile set. It is safe for concurrent use.
type Manager struct {
	tiles  []*tile.Tile
	config config
	logger *slog.Logger
	cache  *lru.Cache[queryKey, []*tile.Tile]

	buildMu  sync.Mutex
	built    bool
	master   *rtree.RTree
	buildErr error

	tileSizeOnce sync.Once
	tileSize     image.Point

	mu    sync.Mutex
	pool  []*rtree.RTree
	inUse []bool
}

// New creates a manager for tiles. The tree is not built until needed.
// Tiles reading the same (input, image index) pair are rejected.
func New(tiles []*tile.Tile, opts ...Option) (*Manager, error) {
	cfg := config{
		PoolSize:         DefaultPoolSize,
		ProbeConcurrency: DefaultProbeConcurrency,
		Estimator:        tile.PixelCost{},
		Logger:           slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := checkDuplicates(tiles); err != nil {
		return nil, err
	}

	m := &Manager{
		tiles:  slices.Clone(tiles),
		config: cfg,
		logger: cfg.Logger,
		pool:   make([]*rtree.RTree, cfg.PoolSize),
		inUse:  make([]bool, cfg.PoolSize),
	}
	if cfg.QueryCacheSize > 0 {
		cache, err := lru.New[queryKey, []*tile.Tile](cfg.QueryCacheSize)
		if err != nil {
			return nil, fmt.Errorf("mosaic: failed to create query cache: %w", err)
		}
		m.cache = cache
	}
	return m, nil
}

func checkDuplicates(tiles []*tile.Tile) error {
	type key struct {
		input any
		index int
	}
	seen := make(map[key]int, len(tiles))
	for i, tl := range tiles {
		if tl == nil {
			return fmt.Errorf("%w: tile %d is nil", tile.ErrGeometry, i)
		}
		input := tl.Input()
		if input == nil || !reflect.TypeOf(input).Comparable() {
			continue
		}
		k := key{input, tl.ImageIndex()}
		if j, found := seen[k]; found {
			return fmt.Errorf("%w: tiles %d and %d read %v image %d", ErrDuplicateInput, j, i, input, tl.ImageIndex())
		}
		seen[k] = i
	}
	return nil
}

// Build probes every tile region and builds the containment tree. Only the first
// completed build does the work; later calls return its result. A build failing on
// a tile is final: create a new Manager, possibly with fewer tiles, to retry.
// A build interrupted by ctx leaves the manager unbuilt, and regions probed so far
// stay cached in their tiles.
func (m *Manager) Build(ctx context.Context) error {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()
	if m.built {
		return m.buildErr
	}

	master, err := m.build(ctx)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		m.logger.Debug("mosaic: build interrupted", "err", err)
		return err
	}
	m.master, m.buildErr, m.built = master, err, true
	return err
}

func (m *Manager) build(ctx context.Context) (*rtree.RTree, error) {
	start := time.Now()
	m.logger.Debug("mosaic: probing regions", "tiles", len(m.tiles))

	bounded := m.config.Bounds != image.Rectangle{}
	keep := make([]bool, len(m.tiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.ProbeConcurrency)
	for i, tl := range m.tiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if bounded {
				ok, err := tl.Intersects(m.config.Bounds)
				keep[i] = ok
				return err
			}
			_, err := tl.Region()
			keep[i] = true
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tiles := m.tiles
	if bounded {
		tiles = nil
		for i, tl := range m.tiles {
			if keep[i] {
				tiles = append(tiles, tl)
			}
		}
	}

	m.logger.Debug("mosaic: building tree", "tiles", len(tiles), "elapsed", time.Since(start))
	master, err := rtree.Build(tiles, m.config.Estimator)
	if err != nil {
		return nil, err
	}

	stats := master.Stats()
	m.logger.Debug("mosaic: done!",
		"nodes", stats.Nodes,
		"groups", stats.Groups,
		"depth", stats.Depth,
		"elapsed", time.Since(start))
	return master, nil
}

// Query returns the tiles to read in order to cover roi at the requested subsampling.
// It builds the tree first if needed. The returned slice belongs to the caller.
func (m *Manager) Query(ctx context.Context, roi image.Rectangle, requested tile.Subsampling) ([]*tile.Tile, error) {
	if !requested.Valid() {
		return nil, fmt.Errorf("%w: requested subsampling %v", tile.ErrGeometry, requested)
	}
	if err := m.Build(ctx); err != nil {
		return nil, err
	}

	key := queryKey{roi.Canon(), requested}
	if m.cache != nil {
		if result, ok := m.cache.Get(key); ok {
			return slices.Clone(result), nil
		}
	}

	view, slot := m.acquire()
	result := view.Search(key.roi, requested)
	m.release(slot)

	if m.cache != nil {
		m.cache.Add(key, slices.Clone(result))
	}
	return result, nil
}

// acquire returns a free pooled view, cloning the master lazily into empty slots.
// When every slot is busy it returns an unpooled clone and slot -1.
func (m *Manager) acquire() (*rtree.RTree, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, busy := range m.inUse {
		if busy {
			continue
		}
		if m.pool[i] == nil {
			m.pool[i] = m.master.Clone()
		}
		m.inUse[i] = true
		return m.pool[i], i
	}
	return m.master.Clone(), -1
}

func (m *Manager) release(slot int) {
	if slot < 0 {
		return
	}
	m.mu.Lock()
	m.inUse[slot] = false
	m.mu.Unlock()
}

// RegionOfAll returns the union of all tile regions.
func (m *Manager) RegionOfAll(ctx context.Context) (image.Rectangle, error) {
	if err := m.Build(ctx); err != nil {
		return image.Rectangle{}, err
	}
	return m.master.Region(), nil
}

// NativeTileSize returns the most frequent tile size in native pixels.
func (m *Manager) NativeTileSize(ctx context.Context) (image.Point, error) {
	if err := m.Build(ctx); err != nil {
		return image.Point{}, err
	}
	m.tileSizeOnce.Do(func() {
		m.tileSize = m.master.TileSize()
	})
	return m.tileSize, nil
}

// Stats describes the containment tree.
func (m *Manager) Stats(ctx context.Context) (rtree.Stats, error) {
	if err := m.Build(ctx); err != nil {
		return rtree.Stats{}, err
	}
	return m.master.Stats(), nil
}

// Tiles returns the tiles of the set in their original order.
func (m *Manager) Tiles() []*tile.Tile {
	return slices.Clone(m.tiles)
}
