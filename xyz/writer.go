package xyz

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-tilemosaic/pyramid"
)

// Writer stores pyramid tiles as files named after a pattern and implements
// pyramid.Sink. Each file is written under a temporary name, then renamed, so
// readers never see a partial tile.
type Writer struct {
	filePattern string
	dirs        map[string]bool
}

// NewWriter creates a new Writer for the given file pattern (e.g. "/home/user/tiles/{z}/{x}/{y}.png").
func NewWriter(filePattern string) (*Writer, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}
	return &Writer{filePattern: filePattern, dirs: make(map[string]bool)}, nil
}

func (w *Writer) WriteTile(tileID pyramid.ID, tileData []byte) error {
	filePath := formatPattern(w.filePattern, tileID)

	dirPath := filepath.Dir(filePath)
	if !w.dirs[dirPath] {
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return err
		}
		w.dirs[dirPath] = true
	}

	f, err := os.CreateTemp(dirPath, ".tile-*")
	if err != nil {
		return err
	}
	_, err = f.Write(tileData)
	err = errors.Join(err, f.Chmod(0644), f.Close())
	if err == nil {
		err = os.Rename(f.Name(), filePath)
	}
	if err != nil {
		os.Remove(f.Name())
	}
	return err
}

func (w *Writer) Finalize() error {
	return nil
}
