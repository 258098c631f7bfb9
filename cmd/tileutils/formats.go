package main

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilemosaic/catalog"
	"github.com/eak1mov/go-tilemosaic/internal/config"
	"github.com/eak1mov/go-tilemosaic/manager"
	"github.com/eak1mov/go-tilemosaic/mb"
	"github.com/eak1mov/go-tilemosaic/pyramid"
	"github.com/eak1mov/go-tilemosaic/tile"
	"github.com/eak1mov/go-tilemosaic/xyz"
)

func deduceFormat(format, filePath string) string {
	if format == "" && strings.HasSuffix(filePath, ".mbtiles") {
		return "mbtiles"
	}
	if format == "" && strings.HasSuffix(filePath, ".catalog") {
		return "catalog"
	}
	if format == "" && strings.Contains(filePath, "{z}") {
		return "xyz"
	}
	return format
}

// input is an opened tile set.
type input struct {
	tiles    []*tile.Tile
	source   pyramid.Source // nil for catalogs
	layout   pyramid.Layout
	metadata map[string]string
	closer   io.Closer
}

func (in *input) Close() error {
	if in.closer == nil {
		return nil
	}
	return in.closer.Close()
}

func openInput(format, filePath string, cfg *config.Config) (*input, error) {
	switch deduceFormat(format, filePath) {
	case "mbtiles":
		reader, err := mb.NewReader(filePath)
		if err != nil {
			return nil, err
		}
		layout, err := reader.Layout(cfg.Pyramid.TileSize)
		if err != nil {
			reader.Close()
			return nil, err
		}
		metadata, err := reader.ReadMetadata()
		if err != nil {
			reader.Close()
			return nil, err
		}
		tiles, err := pyramid.Tiles(reader, layout)
		if err != nil {
			reader.Close()
			return nil, err
		}
		return &input{tiles: tiles, source: reader, layout: layout, metadata: metadata, closer: reader}, nil
	case "xyz":
		reader, err := xyz.NewReader(filePath)
		if err != nil {
			return nil, err
		}
		layout, err := reader.Layout(cfg.Pyramid.TileSize)
		if err != nil {
			return nil, err
		}
		tiles, err := pyramid.Tiles(reader, layout)
		if err != nil {
			return nil, err
		}
		return &input{tiles: tiles, source: reader, layout: layout}, nil
	case "catalog":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		items, err := catalog.Decode(data)
		if err != nil {
			return nil, err
		}
		tiles, err := catalog.Tiles(items, nil)
		if err != nil {
			return nil, err
		}
		return &input{tiles: tiles}, nil
	}
	return nil, fmt.Errorf("invalid input format: %q", format)
}

// output is a pyramid opened for writing.
type output struct {
	sink   pyramid.Sink
	closer io.Closer
}

func (out *output) Close() error {
	if out.closer == nil {
		return nil
	}
	return out.closer.Close()
}

// openOutput creates a pyramid with the layout of in. XYZ outputs keep the layout
// only when they include tiles of the finest level.
func openOutput(format, filePath string, in *input, logger *slog.Logger) (*output, error) {
	switch deduceFormat(format, filePath) {
	case "mbtiles":
		metadata := maps.Clone(in.metadata)
		if metadata == nil {
			metadata = make(map[string]string)
		}
		delete(metadata, "minzoom")
		metadata["maxzoom"] = strconv.FormatUint(uint64(in.layout.MaxZoom), 10)
		writer, err := mb.NewWriter(filePath, mb.WithMetadata(metadata), mb.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &output{sink: writer, closer: writer}, nil
	case "xyz":
		writer, err := xyz.NewWriter(filePath)
		if err != nil {
			return nil, err
		}
		return &output{sink: writer}, nil
	}
	return nil, fmt.Errorf("invalid output format: %q", format)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level}))
}

func newManager(in *input, cfg *config.Config, logger *slog.Logger, opts ...manager.Option) (*manager.Manager, error) {
	return manager.New(in.tiles, append([]manager.Option{
		manager.WithPoolSize(cfg.Index.PoolSize),
		manager.WithQueryCache(cfg.Index.QueryCacheSize),
		manager.WithProbeConcurrency(cfg.Index.ProbeConcurrency),
		manager.WithLogger(logger),
	}, opts...)...)
}
