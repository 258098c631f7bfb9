// Package xyz reads and writes tile pyramids stored as individual files,
// with paths like "/z/x/y.ext".
package xyz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilemosaic/pyramid"
)

var ErrInvalidPattern = errors.New("mosaic: invalid file pattern")

func validatePattern(pattern string) error {
	for _, p := range []string{"{x}", "{y}", "{z}"} {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found", ErrInvalidPattern, p)
		}
	}
	return nil
}

func formatPattern(pattern string, tileID pyramid.ID) string {
	result := pattern
	result = strings.ReplaceAll(result, "{x}", strconv.FormatUint(uint64(tileID.X), 10))
	result = strings.ReplaceAll(result, "{y}", strconv.FormatUint(uint64(tileID.Y), 10))
	result = strings.ReplaceAll(result, "{z}", strconv.FormatUint(uint64(tileID.Z), 10))
	return result
}
