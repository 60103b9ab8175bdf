package main

import (
	"log"
	"os"

	"github.com/carlmjohnson/versioninfo"

	"github.com/pdok/rastersplit/preprocess"
	"github.com/pdok/rastersplit/processing"

	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"
)

const CONFIG string = `config`
const SOURCE string = `source`
const BAND string = `band`
const TARGET string = `target`
const TILES string = `tiles`
const NAME string = `name`
const INDEX string = `index`
const MANIFEST string = `manifest`
const CREATIONOPTION string = `creationOption`
const PAGESIZE string = `pagesize`
const PREVIEW string = `preview`

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "rastersplit"
	app.Usage = "A Golang raster tiling application"
	app.Version = versioninfo.Short()

	sourceFlag := &cli.StringFlag{
		Name:     SOURCE,
		Aliases:  []string{"s"},
		Usage:    "Source raster (any GDAL readable format)",
		Required: false,
		EnvVars:  []string{strcase.ToScreamingSnake(SOURCE)},
	}
	bandFlag := &cli.IntFlag{
		Name:     BAND,
		Aliases:  []string{"b"},
		Usage:    "Band of the source to read (1-based)",
		Value:    1,
		Required: false,
		EnvVars:  []string{strcase.ToScreamingSnake(BAND)},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "split",
			Usage: "Split one band of a raster into a grid of GeoTIFF tiles",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     CONFIG,
					Aliases:  []string{"c"},
					Usage:    "JSON config file. Flags that are set override its values",
					Required: false,
					EnvVars:  []string{strcase.ToScreamingSnake(CONFIG)},
				},
				sourceFlag,
				bandFlag,
				&cli.StringFlag{
					Name:     TARGET,
					Aliases:  []string{"t"},
					Usage:    "Output folder for the tiles, created when missing",
					Required: false,
					EnvVars:  []string{strcase.ToScreamingSnake(TARGET)},
				},
				&cli.IntFlag{
					Name:     TILES,
					Aliases:  []string{"n"},
					Usage:    "Requested number of tiles. Tile size is floor(size / sqrt(n)), the grid is cut off after n tiles",
					Required: false,
					EnvVars:  []string{strcase.ToScreamingSnake(TILES)},
				},
				&cli.StringFlag{
					Name:     NAME,
					Usage:    "Base name of the tiles: {name}_tile_{row}_{col}.tif",
					Value:    "image",
					Required: false,
					EnvVars:  []string{strcase.ToScreamingSnake(NAME)},
				},
				&cli.StringFlag{
					Name:     INDEX,
					Aliases:  []string{"i"},
					Usage:    "GeoPackage to write the tile footprints to. Overwritten if it exists",
					Required: false,
					EnvVars:  []string{strcase.ToScreamingSnake(INDEX)},
				},
				&cli.BoolFlag{
					Name:     MANIFEST,
					Aliases:  []string{"m"},
					Usage:    "Write {name}_manifest.json next to the tiles",
					Required: false,
					EnvVars:  []string{strcase.ToScreamingSnake(MANIFEST)},
				},
				&cli.StringSliceFlag{
					Name:     CREATIONOPTION,
					Aliases:  []string{"co"},
					Usage:    "GDAL GTiff creation option, e.g. COMPRESS=LZW. Can be repeated",
					Required: false,
					EnvVars:  []string{strcase.ToScreamingSnake(CREATIONOPTION)},
				},
				&cli.IntFlag{
					Name:     PAGESIZE,
					Aliases:  []string{"p"},
					Usage:    "Page Size, how many features are written per transaction to the index GPKG",
					Value:    1000,
					Required: false,
					EnvVars:  []string{strcase.ToScreamingSnake(PAGESIZE)},
				},
			},
			Action: func(c *cli.Context) error {
				cfg, err := splitConfig(c)
				if err != nil {
					return err
				}

				log.Println("=== start splitting ===")
				result, err := processing.Split(cfg)
				if err != nil {
					return err
				}
				log.Printf("=== done splitting: %d tiles in %s ===", len(result.Paths), cfg.Target)
				return nil
			},
		},
		{
			Name:  "preprocess",
			Usage: "Scale a tile to a (1, height, width) tensor in [0,1]",
			Flags: []cli.Flag{
				sourceFlag,
				bandFlag,
				&cli.StringFlag{
					Name:     PREVIEW,
					Usage:    "Write the 8-bit scaled band to this image file (png, jpg, tif)",
					Required: false,
					EnvVars:  []string{strcase.ToScreamingSnake(PREVIEW)},
				},
			},
			Action: func(c *cli.Context) error {
				if c.String(SOURCE) == "" {
					return cli.Exit("source is required", 1)
				}
				log.Println("=== start preprocessing ===")
				img, err := preprocess.LoadScaled(c.String(SOURCE), c.Int(BAND))
				if err != nil {
					return err
				}
				tensor := preprocess.ToTensor(img)
				log.Printf("  tensor shape %v, min %v, max %v", tensor.Shape, tensor.Min(), tensor.Max())
				if c.IsSet(PREVIEW) {
					if err = preprocess.WritePreview(c.String(PREVIEW), img); err != nil {
						return err
					}
					log.Printf("  preview saved as %s", c.String(PREVIEW))
				}
				log.Println("=== done preprocessing ===")
				return nil
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// splitConfig reads the config file, if any, and lays the flags that are set over it.
func splitConfig(c *cli.Context) (processing.Config, error) {
	var cfg processing.Config
	if c.IsSet(CONFIG) {
		var err error
		if cfg, err = processing.LoadConfig(c.String(CONFIG)); err != nil {
			return cfg, err
		}
	}
	if c.IsSet(SOURCE) || cfg.Source == "" {
		cfg.Source = c.String(SOURCE)
	}
	if c.IsSet(BAND) || cfg.Band == 0 {
		cfg.Band = c.Int(BAND)
	}
	if c.IsSet(TARGET) || cfg.Target == "" {
		cfg.Target = c.String(TARGET)
	}
	if c.IsSet(TILES) || cfg.TileCount == 0 {
		cfg.TileCount = c.Int(TILES)
	}
	if c.IsSet(NAME) || cfg.ImageName == "" {
		cfg.ImageName = c.String(NAME)
	}
	if c.IsSet(INDEX) {
		cfg.Index = c.String(INDEX)
	}
	if c.IsSet(MANIFEST) {
		cfg.Manifest = c.Bool(MANIFEST)
	}
	if c.IsSet(CREATIONOPTION) {
		cfg.CreationOptions = c.StringSlice(CREATIONOPTION)
	}
	if c.IsSet(PAGESIZE) || cfg.PageSize == 0 {
		cfg.PageSize = c.Int(PAGESIZE)
	}
	return cfg, nil
}
