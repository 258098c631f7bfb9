package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"maps"
	"slices"

	"github.com/eak1mov/go-tilemosaic/internal/config"
	"github.com/eak1mov/go-tilemosaic/mb"
	"github.com/google/subcommands"
)

type inspectCmd struct {
	inputFormat string
	inputPath   string
	configPath  string
}

func (c *inspectCmd) Name() string     { return "inspect" }
func (c *inspectCmd) Synopsis() string { return "print the containment tree statistics of a tile set" }
func (c *inspectCmd) Usage() string {
	return "tileutils inspect -i <path> [-if <format> -c <config>]\n"
}
func (c *inspectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbtiles, xyz, catalog)")
	f.StringVar(&c.configPath, "c", "tileutils.yaml", "Config file path")
}

func (c *inspectCmd) run(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	in, err := openInput(c.inputFormat, c.inputPath, cfg)
	if err != nil {
		return err
	}
	defer in.Close()

	if reader, ok := in.source.(*mb.Reader); ok {
		metadata, err := reader.ReadMetadata()
		if err != nil {
			return err
		}
		for _, name := range slices.Sorted(maps.Keys(metadata)) {
			fmt.Printf("metadata %s: %s\n", name, metadata[name])
		}
	}

	m, err := newManager(in, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	region, err := m.RegionOfAll(ctx)
	if err != nil {
		return err
	}
	tileSize, err := m.NativeTileSize(ctx)
	if err != nil {
		return err
	}
	stats, err := m.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("region: %v\n", region)
	fmt.Printf("tile size: %dx%d\n", tileSize.X, tileSize.Y)
	fmt.Printf("tiles: %d\n", stats.Tiles)
	fmt.Printf("nodes: %d (%d groups, %d overlap splits)\n", stats.Nodes, stats.Groups, stats.Overlaps)
	fmt.Printf("depth: %d\n", stats.Depth)
	return nil
}

func (c *inspectCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if err := c.run(ctx); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
