// Package mb reads and writes tile pyramids stored in MBTiles format.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package mb

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/eak1mov/go-tilemosaic/pyramid"
	"github.com/eak1mov/go-tilemosaic/tile"
)

// Reader implements pyramid.Source for MBTiles databases. It is safe for
// concurrent use, so regions of its tiles can be probed in parallel.
type Reader struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewReader opens the MBTiles file at filePath read-only.
//
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Reader{db: db, stmt: stmt}, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

func (r *Reader) ReadMetadata() (map[string]string, error) {
	metadata := make(map[string]string)

	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metadata, nil
}

// Layout returns the pyramid layout for tiles of tileSize pixels. The maximum zoom
// comes from the "maxzoom" metadata entry, or from the stored tiles when absent.
func (r *Reader) Layout(tileSize int) (pyramid.Layout, error) {
	metadata, err := r.ReadMetadata()
	if err != nil {
		return pyramid.Layout{}, err
	}
	if v, ok := metadata["maxzoom"]; ok {
		maxZoom, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return pyramid.Layout{}, fmt.Errorf("invalid maxzoom metadata %q: %w", v, err)
		}
		layout := pyramid.Layout{TileSize: tileSize, MaxZoom: uint32(maxZoom)}
		return layout, layout.Check()
	}

	var maxZoom sql.NullInt64
	if err := r.db.QueryRow("SELECT MAX(zoom_level) FROM tiles").Scan(&maxZoom); err != nil {
		return pyramid.Layout{}, err
	}
	if maxZoom.Int64 < 0 || maxZoom.Int64 > pyramid.MaxZoomLimit {
		return pyramid.Layout{}, fmt.Errorf("%w: stored zoom level %d", tile.ErrGeometry, maxZoom.Int64)
	}
	layout := pyramid.Layout{TileSize: tileSize, MaxZoom: uint32(maxZoom.Int64)}
	return layout, layout.Check()
}

func (r *Reader) ReadTile(tileID pyramid.ID) ([]byte, error) {
	x, y, z := tileID.X, tileID.Y, tileID.Z
	y = (1 << z) - 1 - y // XYZ -> TMS

	var tileData []byte
	if err := r.stmt.QueryRow(z, x, y).Scan(&tileData); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make([]byte, 0), nil
		}
		return nil, err
	}

	return tileData, nil
}

// TileIDs lists the stored tiles without reading their data.
func (r *Reader) TileIDs() ([]pyramid.ID, error) {
	rows, err := r.db.Query("SELECT zoom_level, tile_column, tile_row FROM tiles")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []pyramid.ID
	for rows.Next() {
		var x, y, z uint32
		if err := rows.Scan(&z, &x, &y); err != nil {
			return nil, err
		}

		y = (1 << z) - 1 - y // TMS -> XYZ

		ids = append(ids, pyramid.ID{X: x, Y: y, Z: z})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
