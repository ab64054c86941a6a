package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/plyviz.defaults.json"

// VisualiserConfig holds the pipeline and server settings. Every field is
// optional; the Get* methods fall back to the built-in defaults.
type VisualiserConfig struct {
	// Pipeline
	MaxFiles          *int      `json:"max_files,omitempty"`
	MaxVisibleMatches *int      `json:"max_visible_matches,omitempty"`
	Margin            *float64  `json:"margin,omitempty"`
	OffsetFactor      *float64  `json:"offset_factor,omitempty"`
	StartAliases      *[]string `json:"start_aliases,omitempty"`
	Seed              *uint64   `json:"seed,omitempty"`

	// Rendering
	ChartWidth      *string `json:"chart_width,omitempty"`
	ChartHeight     *string `json:"chart_height,omitempty"`
	ProjectionPlane *string `json:"projection_plane,omitempty"`

	// Server
	MaxUploadBytes *int64  `json:"max_upload_bytes,omitempty"`
	RecentBatches  *int    `json:"recent_batches,omitempty"`
	ListenAddr     *string `json:"listen_addr,omitempty"`
}

// EmptyVisualiserConfig returns a config with every field unset.
func EmptyVisualiserConfig() *VisualiserConfig {
	return &VisualiserConfig{}
}

// LoadVisualiserConfig loads a config from a JSON file. The path must end
// in .json and the file must be under 1MB. Omitted fields keep their
// defaults, so partial configs are safe.
func LoadVisualiserConfig(path string) (*VisualiserConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyVisualiserConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *VisualiserConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/pointcloud/*
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadVisualiserConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *VisualiserConfig) Validate() error {
	if c.MaxFiles != nil && (*c.MaxFiles < 1 || *c.MaxFiles > 3) {
		return fmt.Errorf("max_files must be between 1 and 3, got %d", *c.MaxFiles)
	}
	if c.MaxVisibleMatches != nil && *c.MaxVisibleMatches < 1 {
		return fmt.Errorf("max_visible_matches must be positive, got %d", *c.MaxVisibleMatches)
	}
	if c.Margin != nil && (*c.Margin < 0 || *c.Margin > 1) {
		return fmt.Errorf("margin must be between 0 and 1, got %f", *c.Margin)
	}
	if c.OffsetFactor != nil && *c.OffsetFactor <= 0 {
		return fmt.Errorf("offset_factor must be positive, got %f", *c.OffsetFactor)
	}
	if c.StartAliases != nil {
		for i, a := range *c.StartAliases {
			if strings.TrimSpace(a) == "" {
				return fmt.Errorf("start_aliases[%d] must not be empty", i)
			}
		}
	}
	if c.ProjectionPlane != nil {
		switch strings.ToLower(*c.ProjectionPlane) {
		case "xy", "xz", "yz":
		default:
			return fmt.Errorf("projection_plane must be xy, xz or yz, got %q", *c.ProjectionPlane)
		}
	}
	if c.MaxUploadBytes != nil && *c.MaxUploadBytes < 1024 {
		return fmt.Errorf("max_upload_bytes must be at least 1024, got %d", *c.MaxUploadBytes)
	}
	if c.RecentBatches != nil && *c.RecentBatches < 1 {
		return fmt.Errorf("recent_batches must be positive, got %d", *c.RecentBatches)
	}
	return nil
}

// GetMaxFiles returns max_files or the default.
func (c *VisualiserConfig) GetMaxFiles() int {
	if c.MaxFiles == nil {
		return 3
	}
	return *c.MaxFiles
}

// GetMaxVisibleMatches returns max_visible_matches or the default.
func (c *VisualiserConfig) GetMaxVisibleMatches() int {
	if c.MaxVisibleMatches == nil {
		return 20
	}
	return *c.MaxVisibleMatches
}

// GetMargin returns margin or the default.
func (c *VisualiserConfig) GetMargin() float64 {
	if c.Margin == nil {
		return 0.1
	}
	return *c.Margin
}

// GetOffsetFactor returns offset_factor or the default.
func (c *VisualiserConfig) GetOffsetFactor() float64 {
	if c.OffsetFactor == nil {
		return 1.5
	}
	return *c.OffsetFactor
}

// GetStartAliases returns start_aliases or the default.
func (c *VisualiserConfig) GetStartAliases() []string {
	if c.StartAliases == nil {
		return []string{"laptop_10211"}
	}
	return *c.StartAliases
}

// GetSeed returns the sampling seed and whether one is configured.
func (c *VisualiserConfig) GetSeed() (uint64, bool) {
	if c.Seed == nil {
		return 0, false
	}
	return *c.Seed, true
}

// GetChartWidth returns chart_width or the default.
func (c *VisualiserConfig) GetChartWidth() string {
	if c.ChartWidth == nil || *c.ChartWidth == "" {
		return "900px"
	}
	return *c.ChartWidth
}

// GetChartHeight returns chart_height or the default.
func (c *VisualiserConfig) GetChartHeight() string {
	if c.ChartHeight == nil || *c.ChartHeight == "" {
		return "900px"
	}
	return *c.ChartHeight
}

// GetProjectionPlane returns projection_plane or the default.
func (c *VisualiserConfig) GetProjectionPlane() string {
	if c.ProjectionPlane == nil || *c.ProjectionPlane == "" {
		return "xy"
	}
	return strings.ToLower(*c.ProjectionPlane)
}

// GetMaxUploadBytes returns max_upload_bytes or the default (64MiB).
func (c *VisualiserConfig) GetMaxUploadBytes() int64 {
	if c.MaxUploadBytes == nil {
		return 64 << 20
	}
	return *c.MaxUploadBytes
}

// GetRecentBatches returns recent_batches or the default.
func (c *VisualiserConfig) GetRecentBatches() int {
	if c.RecentBatches == nil {
		return 16
	}
	return *c.RecentBatches
}

// GetListenAddr returns listen_addr or the default.
func (c *VisualiserConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return "127.0.0.1:8090"
	}
	return *c.ListenAddr
}
