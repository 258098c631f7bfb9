package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"

	"github.com/eak1mov/go-tilemosaic/internal/config"
	"github.com/eak1mov/go-tilemosaic/manager"
	"github.com/eak1mov/go-tilemosaic/pyramid"
	"github.com/eak1mov/go-tilemosaic/tile"
	"github.com/google/subcommands"
)

type queryCmd struct {
	inputFormat string
	inputPath   string
	configPath  string
	roi          string
	subsampling  int
	outputFormat string
	outputPath   string
}

func (c *queryCmd) Name() string     { return "query" }
func (c *queryCmd) Synopsis() string { return "list the tiles to read for a region of interest" }
func (c *queryCmd) Usage() string {
	return "tileutils query -i <path> -roi <x0,y0,x1,y1> [-s <subsampling> -if <format> -c <config> -o <path> -of <format>]\n" +
		"  With -o, the selected tiles of a pyramid input are copied into a new pyramid.\n"
}
func (c *queryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbtiles, xyz, catalog)")
	f.StringVar(&c.configPath, "c", "tileutils.yaml", "Config file path")
	f.StringVar(&c.roi, "roi", "", "Region of interest in destination pixels")
	f.IntVar(&c.subsampling, "s", 1, "Requested subsampling")
	f.StringVar(&c.outputPath, "o", "", "Output path for the selected tiles")
	f.StringVar(&c.outputFormat, "of", "", "Output format (mbtiles, xyz)")
}

func parseRect(s string) (image.Rectangle, error) {
	var x0, y0, x1, y1 int
	if _, err := fmt.Sscanf(s, "%d,%d,%d,%d", &x0, &y0, &x1, &y1); err != nil {
		return image.Rectangle{}, fmt.Errorf("invalid region %q: %w", s, err)
	}
	return image.Rect(x0, y0, x1, y1), nil
}

func (c *queryCmd) run(ctx context.Context) error {
	roi, err := parseRect(c.roi)
	if err != nil {
		return err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	in, err := openInput(c.inputFormat, c.inputPath, cfg)
	if err != nil {
		return err
	}
	defer in.Close()

	if c.outputPath != "" && in.source == nil {
		return fmt.Errorf("cannot copy tiles of %q: not a pyramid", c.inputPath)
	}

	logger := newLogger(cfg)
	m, err := newManager(in, cfg, logger, manager.WithBounds(roi))
	if err != nil {
		return err
	}
	tiles, err := m.Query(ctx, roi, tile.Subsampling{X: c.subsampling, Y: c.subsampling})
	if err != nil {
		return err
	}

	var cost int64
	for _, t := range tiles {
		region, _ := t.Region()
		readCost, _ := tile.ReadCost(tile.PixelCost{}, t)
		cost += readCost
		fmt.Printf("%v\t%d\t%v\t%v\n", t.Input(), t.ImageIndex(), region, t.Subsampling())
	}
	fmt.Printf("%d tiles, %d pixels decoded\n", len(tiles), cost)

	if c.outputPath == "" {
		return nil
	}
	out, err := openOutput(c.outputFormat, c.outputPath, in, logger)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := pyramid.Copy(out.sink, in.source, tiles); err != nil {
		return err
	}
	return out.Close()
}

func (c *queryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if err := c.run(ctx); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
