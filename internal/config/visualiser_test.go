package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyVisualiserConfig()

	if cfg.GetMaxFiles() != 3 {
		t.Errorf("GetMaxFiles() = %d, want 3", cfg.GetMaxFiles())
	}
	if cfg.GetMaxVisibleMatches() != 20 {
		t.Errorf("GetMaxVisibleMatches() = %d, want 20", cfg.GetMaxVisibleMatches())
	}
	if cfg.GetMargin() != 0.1 {
		t.Errorf("GetMargin() = %f, want 0.1", cfg.GetMargin())
	}
	if cfg.GetOffsetFactor() != 1.5 {
		t.Errorf("GetOffsetFactor() = %f, want 1.5", cfg.GetOffsetFactor())
	}
	if got := cfg.GetStartAliases(); len(got) != 1 || got[0] != "laptop_10211" {
		t.Errorf("GetStartAliases() = %v", got)
	}
	if _, ok := cfg.GetSeed(); ok {
		t.Error("GetSeed() reported a seed on an empty config")
	}
	if cfg.GetMaxUploadBytes() != 64<<20 {
		t.Errorf("GetMaxUploadBytes() = %d, want %d", cfg.GetMaxUploadBytes(), 64<<20)
	}
	if cfg.GetProjectionPlane() != "xy" {
		t.Errorf("GetProjectionPlane() = %q, want xy", cfg.GetProjectionPlane())
	}
	if cfg.GetChartWidth() != "900px" || cfg.GetChartHeight() != "900px" {
		t.Errorf("chart size = %s x %s", cfg.GetChartWidth(), cfg.GetChartHeight())
	}
	if cfg.GetRecentBatches() != 16 {
		t.Errorf("GetRecentBatches() = %d, want 16", cfg.GetRecentBatches())
	}
	if cfg.GetListenAddr() != "127.0.0.1:8090" {
		t.Errorf("GetListenAddr() = %q", cfg.GetListenAddr())
	}
}

func TestLoadVisualiserConfig(t *testing.T) {
	path := writeConfig(t, "plyviz.json", `{
  "max_visible_matches": 8,
  "margin": 0.25,
  "start_aliases": ["drawer_open", "lid_up"],
  "seed": 7,
  "projection_plane": "XZ"
}`)

	cfg, err := LoadVisualiserConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetMaxVisibleMatches() != 8 {
		t.Errorf("GetMaxVisibleMatches() = %d, want 8", cfg.GetMaxVisibleMatches())
	}
	if cfg.GetMargin() != 0.25 {
		t.Errorf("GetMargin() = %f, want 0.25", cfg.GetMargin())
	}
	if got := cfg.GetStartAliases(); len(got) != 2 || got[1] != "lid_up" {
		t.Errorf("GetStartAliases() = %v", got)
	}
	if seed, ok := cfg.GetSeed(); !ok || seed != 7 {
		t.Errorf("GetSeed() = %d, %v; want 7, true", seed, ok)
	}
	if cfg.GetProjectionPlane() != "xz" {
		t.Errorf("GetProjectionPlane() = %q, want xz", cfg.GetProjectionPlane())
	}
	// Omitted fields keep their defaults.
	if cfg.GetMaxFiles() != 3 {
		t.Errorf("GetMaxFiles() = %d, want 3", cfg.GetMaxFiles())
	}
}

func TestLoadVisualiserConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "config.yaml", `{}`, ".json extension"},
		{"bad json", "config.json", `{"margin": }`, "failed to parse config JSON"},
		{"too many files", "config.json", `{"max_files": 4}`, "max_files"},
		{"negative margin", "config.json", `{"margin": -0.1}`, "margin"},
		{"zero offset", "config.json", `{"offset_factor": 0}`, "offset_factor"},
		{"blank alias", "config.json", `{"start_aliases": ["ok", " "]}`, "start_aliases[1]"},
		{"bad plane", "config.json", `{"projection_plane": "uv"}`, "projection_plane"},
		{"tiny upload", "config.json", `{"max_upload_bytes": 10}`, "max_upload_bytes"},
		{"zero recent", "config.json", `{"recent_batches": 0}`, "recent_batches"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadVisualiserConfig(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadVisualiserConfig_Missing(t *testing.T) {
	_, err := LoadVisualiserConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil || !strings.Contains(err.Error(), "failed to stat") {
		t.Errorf("expected stat error, got %v", err)
	}
}

func TestLoadVisualiserConfig_TooLarge(t *testing.T) {
	body := `{"chart_width": "` + strings.Repeat("x", 1024*1024) + `"}`
	_, err := LoadVisualiserConfig(writeConfig(t, "big.json", body))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.MaxFiles == nil || *cfg.MaxFiles != 3 {
		t.Errorf("defaults file max_files = %v, want 3", cfg.MaxFiles)
	}
	if cfg.GetOffsetFactor() != 1.5 {
		t.Errorf("defaults file offset_factor = %f, want 1.5", cfg.GetOffsetFactor())
	}
	if cfg.GetListenAddr() != "127.0.0.1:8090" {
		t.Errorf("defaults file listen_addr = %q", cfg.GetListenAddr())
	}
}
