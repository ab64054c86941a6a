package upload

import (
	"github.com/banshee-data/plyviz/internal/config"
	"github.com/banshee-data/plyviz/internal/pointcloud/scene"
)

// OptionsFromConfig maps the pipeline section of cfg onto Options. A nil
// cfg yields the defaults.
func OptionsFromConfig(cfg *config.VisualiserConfig) Options {
	if cfg == nil {
		cfg = config.EmptyVisualiserConfig()
	}
	opts := Options{
		MaxFiles:     cfg.GetMaxFiles(),
		MaxVisible:   cfg.GetMaxVisibleMatches(),
		StartAliases: cfg.GetStartAliases(),
		Scene: scene.Options{
			Margin:       cfg.GetMargin(),
			OffsetFactor: cfg.GetOffsetFactor(),
		},
	}
	if seed, ok := cfg.GetSeed(); ok {
		opts.Seed = &seed
	}
	return opts
}
