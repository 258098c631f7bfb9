package mb

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/eak1mov/go-tilemosaic/pyramid"
)

// Writer creates an MBTiles database and implements pyramid.Sink.
// Tiles are inserted in one transaction committed by Finalize: a Writer closed
// without Finalize leaves an empty tile table behind.
type Writer struct {
	db       *sql.DB
	tx       *sql.Tx
	stmt     *sql.Stmt
	logger   *slog.Logger
	metadata map[string]string

	count   int
	minZoom uint32
	maxZoom uint32
}

type writerConfig struct {
	Metadata map[string]string
	Logger   *slog.Logger
}

type WriterOption func(*writerConfig)

// WithMetadata sets the metadata table. Missing "minzoom" and "maxzoom" entries
// are filled from the written tiles.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { c.Metadata = metadata }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

const schema = `
	CREATE TABLE metadata (name TEXT, value TEXT);
	CREATE TABLE tiles (
		zoom_level INTEGER,
		tile_column INTEGER,
		tile_row INTEGER,
		tile_data BLOB
	);
`

// NewWriter creates the MBTiles file at filePath and starts writing tiles.
func NewWriter(filePath string, opts ...WriterOption) (w *Writer, err error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	stmt, err := tx.Prepare("INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	return &Writer{
		db:       db,
		tx:       tx,
		stmt:     stmt,
		logger:   config.Logger,
		metadata: config.Metadata,
	}, nil
}

// Close releases database resources, discarding tiles not yet finalized.
func (w *Writer) Close() error {
	var errs []error
	if w.tx != nil {
		errs = append(errs, w.stmt.Close(), w.tx.Rollback())
		w.tx = nil
	}
	return errors.Join(append(errs, w.db.Close())...)
}

func (w *Writer) WriteTile(tileID pyramid.ID, tileData []byte) error {
	if w.tx == nil {
		return errors.New("mosaic: write to a finalized MBTiles writer")
	}
	x, y, z := tileID.X, tileID.Y, tileID.Z
	y = (1 << z) - 1 - y // XYZ -> TMS

	if _, err := w.stmt.Exec(z, x, y, tileData); err != nil {
		return fmt.Errorf("failed to write tile %v: %w", tileID, err)
	}
	if w.count == 0 || z < w.minZoom {
		w.minZoom = z
	}
	if w.count == 0 || z > w.maxZoom {
		w.maxZoom = z
	}
	w.count++
	return nil
}

// Finalize writes the metadata, indexes the tiles and commits.
func (w *Writer) Finalize() error {
	if w.tx == nil {
		return errors.New("mosaic: MBTiles writer already finalized")
	}

	metadata := make(map[string]string, len(w.metadata)+2)
	if w.count > 0 {
		metadata["minzoom"] = strconv.FormatUint(uint64(w.minZoom), 10)
		metadata["maxzoom"] = strconv.FormatUint(uint64(w.maxZoom), 10)
	}
	for k, v := range w.metadata {
		metadata[k] = v
	}
	for k, v := range metadata {
		if _, err := w.tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}

	w.logger.Debug("mosaic: creating tile index", "tiles", w.count)
	if _, err := w.tx.Exec("CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row)"); err != nil {
		return err
	}

	if err := errors.Join(w.stmt.Close(), w.tx.Commit()); err != nil {
		return err
	}
	w.tx = nil
	w.logger.Debug("mosaic: done!", "tiles", w.count, "zoom", [2]uint32{w.minZoom, w.maxZoom})
	return nil
}
