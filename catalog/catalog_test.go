package catalog_test

import (
	"bytes"
	"image"
	"testing"

	"github.com/eak1mov/go-tilemosaic/catalog"
	"github.com/eak1mov/go-tilemosaic/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testItems() []catalog.Item {
	var items []catalog.Item
	for i := range 100 {
		items = append(items, catalog.Item{
			X:            int32(i%10) * 256,
			Y:            int32(i/10) * 256,
			Width:        256,
			Height:       256,
			XSubsampling: 1,
			YSubsampling: 1,
			ImageIndex:   uint32(i % 3),
			Length:       uint32(1000 + i),
			Offset:       uint64(i) * 4096,
		})
	}
	return items
}

func TestItemSize(t *testing.T) {
	require.Equal(t, 36, catalog.ItemSize)
}

func TestEncodeDecode(t *testing.T) {
	items := testItems()
	for _, compression := range []catalog.Compression{catalog.CompressionNone, catalog.CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			data, err := catalog.Encode(items, compression)
			require.NoError(t, err)
			if compression == catalog.CompressionNone {
				require.Len(t, data, len(items)*catalog.ItemSize)
			} else {
				require.Less(t, len(data), len(items)*catalog.ItemSize)
			}

			got, err := catalog.Decode(data)
			require.NoError(t, err)
			if diff := cmp.Diff(items, got); diff != "" {
				t.Errorf("Decode mismatch (-want+got):\n%v", diff)
			}
		})
	}

	_, err := catalog.Compress(nil, catalog.Compression(7))
	require.Error(t, err)
}

func TestReadAllErrors(t *testing.T) {
	var buffer bytes.Buffer
	require.NoError(t, catalog.WriteAll(testItems()[:2], &buffer))

	_, err := catalog.ReadAll(buffer.Bytes()[:catalog.ItemSize+5])
	require.ErrorIs(t, err, catalog.ErrInvalidCatalog)

	_, err = catalog.Decode([]byte{0x28, 0xb5, 0x2f, 0xfd, 0, 0, 0})
	require.ErrorIs(t, err, catalog.ErrInvalidCatalog)

	items, err := catalog.ReadAll(nil)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestItemTile(t *testing.T) {
	region := image.Rect(-100, 50, 412, 306)
	src, err := tile.New(region, tile.Subsampling{X: 2, Y: 4}, nil, "src", 3)
	require.NoError(t, err)

	item, err := catalog.NewItem(src, catalog.Location{Offset: 10, Length: 20})
	require.NoError(t, err)
	want := catalog.Item{
		X: -100, Y: 50, Width: 512, Height: 256,
		XSubsampling: 2, YSubsampling: 4,
		ImageIndex: 3, Length: 20, Offset: 10,
	}
	if diff := cmp.Diff(want, item); diff != "" {
		t.Errorf("NewItem mismatch (-want+got):\n%v", diff)
	}

	tiles, err := catalog.Tiles([]catalog.Item{item}, nil)
	require.NoError(t, err)
	require.Len(t, tiles, 1)
	got, err := tiles[0].Region()
	require.NoError(t, err)
	require.Equal(t, region, got)
	require.Equal(t, tile.Subsampling{X: 2, Y: 4}, tiles[0].Subsampling())
	require.Equal(t, 3, tiles[0].ImageIndex())
	require.Equal(t, catalog.Location{Offset: 10, Length: 20}, tiles[0].Input())

	_, err = catalog.Tiles([]catalog.Item{{Width: 0, Height: 10, XSubsampling: 1, YSubsampling: 1}}, nil)
	require.ErrorIs(t, err, catalog.ErrInvalidCatalog)
	require.ErrorIs(t, err, tile.ErrGeometry)
}
