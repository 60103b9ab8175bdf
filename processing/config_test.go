package processing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pdok/rastersplit/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"source": "scene.tif",
		"target": "out",
		"tileCount": 16,
		"manifest": true,
		"creationOptions": ["COMPRESS=DEFLATE", "TILED=YES"]
	}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Config{
		Source:          "scene.tif",
		Band:            1,
		Target:          "out",
		TileCount:       16,
		ImageName:       "image",
		Manifest:        true,
		CreationOptions: []string{"COMPRESS=DEFLATE", "TILED=YES"},
		PageSize:        1000,
	}, cfg)
}

func TestLoadConfig_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "unknown keys", content: `{"source":"a.tif","tiles":4,"overlap":2}`, wantErr: "unknown keys overlap, tiles"},
		{name: "wrong type", content: `{"tileCount":"four"}`},
		{name: "not json", content: `source=a.tif`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantGrid  bool
		wantField string
	}{
		{name: "valid", cfg: Config{Source: "a.tif", Target: "out", TileCount: 4}},
		{name: "no tiles", cfg: Config{Source: "a.tif", Target: "out"}, wantGrid: true},
		{name: "no source", cfg: Config{Target: "out", TileCount: 4}, wantField: "Source"},
		{name: "no target", cfg: Config{Source: "a.tif", TileCount: 4}, wantField: "Target"},
		{name: "path in image name", cfg: Config{Source: "a.tif", Target: "out", TileCount: 4, ImageName: "../x"}, wantField: "ImageName"},
		{name: "negative page size", cfg: Config{Source: "a.tif", Target: "out", TileCount: 4, PageSize: -1}, wantField: "PageSize"},
		{name: "malformed creation option", cfg: Config{Source: "a.tif", Target: "out", TileCount: 4, CreationOptions: []string{"LZW"}}, wantField: "CreationOptions[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			switch {
			case tt.wantGrid:
				require.ErrorIs(t, err, grid.ErrDegenerateGrid)
			case tt.wantField != "":
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				require.Len(t, verrs, 1)
				assert.Equal(t, tt.wantField, verrs[0].Field())
			default:
				require.NoError(t, err)
				assert.Equal(t, 1, tt.cfg.Band)
				assert.Equal(t, "image", tt.cfg.ImageName)
			}
		})
	}
}
