package config

import (
	"errors"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/export"
	"github.com/gogpu/glbridge/mediagl"
	"github.com/gogpu/glbridge/render"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	info, _ := cfg.VideoInfo()
	if info != (mediagl.VideoInfo{Format: mediagl.VideoFormatBGRA, Width: 1920, Height: 1080}) {
		t.Errorf("info = %s", info)
	}
	if c, _ := cfg.ParsedColor(); c != render.Red {
		t.Errorf("color = %s, want red", c)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glbridge.json")
	data := `{"width": 640, "format": "RGBA", "output": "out.webp", "region": "0,0,10,10"}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Width != 640 || cfg.Height != 1080 || cfg.Format != "RGBA" || cfg.Output != "out.webp" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Mode != ModeRender {
		t.Errorf("mode = %q, want default %q", cfg.Mode, ModeRender)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing: err = %v", err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestResolve(t *testing.T) {
	cfg := Default()
	cfg.Resolve(Flags{Width: 320, Format: "rgba", Mode: ModePipeline, Frames: 4, Color: "#00ff00"})
	if cfg.Width != 320 || cfg.Height != 1080 {
		t.Errorf("size = %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Format != "rgba" || cfg.Mode != ModePipeline || cfg.Frames != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if c, err := cfg.ParsedColor(); err != nil || c != render.Green {
		t.Errorf("color = %s, %v", c, err)
	}

	before := cfg
	cfg.Resolve(Flags{})
	if cfg != before {
		t.Errorf("empty flags changed config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"unknown format", func(c *Config) { c.Format = "NV12" }, glbridge.ErrUnsupportedFormat},
		{"zero width", func(c *Config) { c.Width = 0 }, glbridge.ErrUnsupportedFormat},
		{"output extension", func(c *Config) { c.Output = "frame.tiff" }, export.ErrUnknownFormat},
		{"bad color", func(c *Config) { c.Color = "2,0,0" }, nil},
		{"bad region", func(c *Config) { c.Region = "0,0,10" }, nil},
		{"bad transform", func(c *Config) { c.Transform = "45" }, nil},
		{"bad mode", func(c *Config) { c.Mode = "stream" }, nil},
		{"zero frames", func(c *Config) { c.Frames = 0 }, nil},
		{"small budget", func(c *Config) { c.MemoryBudgetMB = 4 }, nil},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted invalid config")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRegions(t *testing.T) {
	tests := []struct {
		region string
		want   []image.Rectangle
	}{
		{"", nil},
		{"0,0,1920,1080", []image.Rectangle{image.Rect(0, 0, 1920, 1080)}},
		{"10, 20, 30, 40; 0,0,1,1;", []image.Rectangle{image.Rect(10, 20, 40, 60), image.Rect(0, 0, 1, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			got, err := Config{Region: tt.region}.Regions()
			if err != nil {
				t.Fatalf("Regions: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("region %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
	if _, err := (Config{Region: "0,0,-1,4"}).Regions(); err == nil {
		t.Error("negative size accepted")
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := Config{LogLevel: tt.in}.Level()
		if err != nil || got != tt.want {
			t.Errorf("Level(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}
