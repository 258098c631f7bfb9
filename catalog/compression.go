package catalog

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func Compress(data []byte, compression Compression) ([]byte, error) {
	if compression == CompressionNone {
		return data, nil
	}

	if compression != CompressionZstd {
		return nil, fmt.Errorf("compression not supported (%v)", compression)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// Decompress returns data decoded according to its leading magic number.
// Data without a known magic number is returned unchanged.
func Decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	defer decoder.Close()

	result, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress: %w", ErrInvalidCatalog, err)
	}

	return result, nil
}

// Encode serializes and compresses items.
func Encode(items []Item, compression Compression) ([]byte, error) {
	var buffer bytes.Buffer
	if err := WriteAll(items, &buffer); err != nil {
		return nil, err
	}
	return Compress(buffer.Bytes(), compression)
}

// Decode is the inverse of Encode, for any compression.
func Decode(data []byte) ([]Item, error) {
	raw, err := Decompress(data)
	if err != nil {
		return nil, err
	}
	return ReadAll(raw)
}
