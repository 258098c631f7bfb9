package xyz

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilemosaic/pyramid"
)

// Reader implements pyramid.Source for tiles stored as individual files.
type Reader struct {
	filePattern string
	rootDir     string
	pathRegexp  *regexp.Regexp
}

// NewReader creates a new Reader for the given file pattern (e.g. "/home/user/tiles/{z}/{x}/{y}.png").
func NewReader(filePattern string) (*Reader, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}

	regexPattern := regexp.QuoteMeta(filepath.Clean(filePattern))
	for _, p := range []string{"x", "y", "z"} {
		placeholder := regexp.QuoteMeta("{" + p + "}")
		regexPattern = strings.ReplaceAll(regexPattern, placeholder, "(?P<"+p+">\\d+)")
	}
	pathRegex, err := regexp.Compile("^" + regexPattern + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	path0 := formatPattern(filePattern, pyramid.ID{X: 0, Y: 0, Z: 0})
	path1 := formatPattern(filePattern, pyramid.ID{X: 1, Y: 1, Z: 1})
	for path0 != path1 {
		path0 = filepath.Dir(path0)
		path1 = filepath.Dir(path1)
	}
	rootDir := path0

	return &Reader{filePattern, rootDir, pathRegex}, nil
}

func (r *Reader) ReadTile(tileID pyramid.ID) ([]byte, error) {
	filePath := formatPattern(r.filePattern, tileID)
	tileData, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, err
	}
	return tileData, nil
}

// TileIDs walks the pattern's root directory and lists the files matching it.
// Other files are ignored.
func (r *Reader) TileIDs() ([]pyramid.ID, error) {
	var ids []pyramid.ID
	err := filepath.WalkDir(r.rootDir, func(filePath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		matches := r.pathRegexp.FindStringSubmatch(filePath)
		if matches == nil {
			return nil
		}

		var coords [3]uint32
		for i, name := range []string{"x", "y", "z"} {
			v, err := strconv.ParseUint(matches[r.pathRegexp.SubexpIndex(name)], 10, 32)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
			}
			coords[i] = uint32(v)
		}

		ids = append(ids, pyramid.ID{X: coords[0], Y: coords[1], Z: coords[2]})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Layout returns the pyramid layout for tiles of tileSize pixels, with the
// deepest stored zoom level as maximum zoom.
func (r *Reader) Layout(tileSize int) (pyramid.Layout, error) {
	ids, err := r.TileIDs()
	if err != nil {
		return pyramid.Layout{}, err
	}
	layout := pyramid.Layout{TileSize: tileSize}
	for _, id := range ids {
		layout.MaxZoom = max(layout.MaxZoom, id.Z)
	}
	return layout, layout.Check()
}
