package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/eak1mov/go-tilemosaic/catalog"
	"github.com/eak1mov/go-tilemosaic/internal/config"
	"github.com/eak1mov/go-tilemosaic/pyramid"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type exportCmd struct {
	inputFormat       string
	inputPath         string
	configPath        string
	outputCatalogPath string
	outputTilesPath   string
	compress          bool
}

func (c *exportCmd) Name() string     { return "export_catalog" }
func (c *exportCmd) Synopsis() string { return "export tile catalog and data from a tile pyramid" }
func (c *exportCmd) Usage() string {
	return "tileutils export_catalog -i <path> -o <path> -t <path> [-z -if <format> -c <config>]\n"
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbtiles, xyz)")
	f.StringVar(&c.configPath, "c", "tileutils.yaml", "Config file path")
	f.StringVar(&c.outputCatalogPath, "o", "", "Output catalog file path")
	f.StringVar(&c.outputTilesPath, "t", "", "Output tiles file path")
	f.BoolVar(&c.compress, "z", false, "Compress the catalog with zstd")
}

func (c *exportCmd) run(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	in, err := openInput(c.inputFormat, c.inputPath, cfg)
	if err != nil {
		return err
	}
	defer in.Close()
	if in.source == nil {
		return errors.New("input is not a tile pyramid")
	}

	// Probes every region concurrently.
	m, err := newManager(in, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	if err := m.Build(ctx); err != nil {
		return err
	}

	tilesFile, err := os.Create(c.outputTilesPath)
	if err != nil {
		return err
	}
	defer tilesFile.Close()
	tilesWriter := bufio.NewWriter(tilesFile)
	tilesOffset := uint64(0)

	bar := progressbar.NewOptions(len(in.tiles), progressbar.OptionShowIts(), progressbar.OptionShowCount())

	items := make([]catalog.Item, 0, len(in.tiles))
	for _, t := range in.tiles {
		id := t.Input().(pyramid.ID)
		tileData, err := in.source.ReadTile(id)
		if err != nil {
			return err
		}
		item, err := catalog.NewItem(t, catalog.Location{Offset: tilesOffset, Length: uint32(len(tileData))})
		if err != nil {
			return err
		}
		if _, err := tilesWriter.Write(tileData); err != nil {
			return err
		}
		tilesOffset += uint64(len(tileData))
		items = append(items, item)
		bar.Add(1)
	}

	bar.Finish()
	fmt.Println()

	if err := tilesWriter.Flush(); err != nil {
		return err
	}

	compression := catalog.CompressionNone
	if c.compress {
		compression = catalog.CompressionZstd
	}
	data, err := catalog.Encode(items, compression)
	if err != nil {
		return err
	}
	return os.WriteFile(c.outputCatalogPath, data, 0644)
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if err := c.run(ctx); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
