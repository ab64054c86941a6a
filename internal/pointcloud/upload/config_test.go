package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/plyviz/internal/config"
	"github.com/banshee-data/plyviz/internal/pointcloud/scene"
)

func TestOptionsFromConfig_Defaults(t *testing.T) {
	opts := OptionsFromConfig(nil)
	assert.Equal(t, 3, opts.MaxFiles)
	assert.Equal(t, 20, opts.MaxVisible)
	assert.Equal(t, []string{"laptop_10211"}, opts.StartAliases)
	assert.Equal(t, scene.DefaultOptions(), opts.Scene)
	assert.Nil(t, opts.Seed)
}

func TestOptionsFromConfig_Overrides(t *testing.T) {
	maxFiles, visible, seed := 2, 6, uint64(9)
	margin := 0.3
	cfg := &config.VisualiserConfig{
		MaxFiles:          &maxFiles,
		MaxVisibleMatches: &visible,
		Margin:            &margin,
		Seed:              &seed,
		StartAliases:      &[]string{"open"},
	}

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 2, opts.MaxFiles)
	assert.Equal(t, 6, opts.MaxVisible)
	assert.Equal(t, []string{"open"}, opts.StartAliases)
	assert.Equal(t, 0.3, opts.Scene.Margin)
	assert.Equal(t, 1.5, opts.Scene.OffsetFactor)
	require.NotNil(t, opts.Seed)
	assert.Equal(t, uint64(9), *opts.Seed)
}
