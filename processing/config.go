package processing

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/pdok/rastersplit/grid"
	"github.com/perimeterx/marshmallow"
)

// Config is everything a split needs.
type Config struct {
	// Raster file to split
	Source string `json:"source" validate:"required"`
	// 1-based band index
	Band int `json:"band" default:"1"`
	// Output folder, created when missing
	Target string `json:"target" validate:"required"`
	// Requested number of tiles
	TileCount int `json:"tileCount"`
	// Base name of the tile files
	ImageName string `json:"imageName" default:"image" validate:"required,excludesall=/\\"`
	// Optional GeoPackage tile index
	Index string `json:"index,omitempty"`
	// Write {imageName}_manifest.json next to the tiles
	Manifest bool `json:"manifest"`
	// GDAL GTiff creation options, e.g. COMPRESS=LZW
	CreationOptions []string `json:"creationOptions,omitempty" validate:"dive,contains=="`
	// Number of index features written per transaction
	PageSize int `json:"pageSize" default:"1000" validate:"min=1"`
}

// LoadConfig reads a JSON config file. Keys that are not part of Config are an error.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	unknown, err := marshmallow.Unmarshal(data, &cfg, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if len(unknown) > 0 {
		keys := make([]string, 0, len(unknown))
		for k := range unknown {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return cfg, fmt.Errorf("invalid config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate fills in defaults and checks the config. It does no I/O.
func (cfg *Config) Validate() error {
	if err := defaults.Set(cfg); err != nil {
		return err
	}
	if err := grid.CheckTileCount(cfg.TileCount); err != nil {
		return err
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(cfg)
}
