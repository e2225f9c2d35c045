package config

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/glbridge/export"
	"github.com/gogpu/glbridge/mediagl"
	"github.com/gogpu/glbridge/render"
)

// Modes of the command.
const (
	ModeRender   = "render"
	ModePipeline = "pipeline"
)

// Config holds the settings of one glbridge run.
type Config struct {
	// Frame
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	Color     string `json:"color"`
	Region    string `json:"region"`
	Transform string `json:"transform"`

	// Files
	Output string `json:"output"`
	Seed   string `json:"seed"`

	// Run
	Mode           string `json:"mode"`
	Frames         int    `json:"frames"`
	MemoryBudgetMB int    `json:"memory_budget_mb"`
	LogLevel       string `json:"log_level"`
}

// Default returns the settings used when neither a file nor flags set a
// field: a full 1920x1080 BGRA frame cleared to red.
func Default() Config {
	return Config{
		Width:          1920,
		Height:         1080,
		Format:         "BGRA",
		Color:          "1,0,0,1",
		Transform:      "normal",
		Output:         "frame.jpeg",
		Mode:           ModeRender,
		Frames:         1,
		MemoryBudgetMB: mediagl.DefaultMaxMemoryMB,
		LogLevel:       "warn",
	}
}

// Load reads a JSON config file. Fields not set in the file keep their
// default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Width     int
	Height    int
	Format    string
	Color     string
	Region    string
	Transform string
	Output    string
	Seed      string
	Mode      string
	Frames    int
	LogLevel  string
}

// Resolve applies non-zero flags over c.
func (c *Config) Resolve(flags Flags) {
	if flags.Width > 0 {
		c.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Height = flags.Height
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.Color != "" {
		c.Color = flags.Color
	}
	if flags.Region != "" {
		c.Region = flags.Region
	}
	if flags.Transform != "" {
		c.Transform = flags.Transform
	}
	if flags.Output != "" {
		c.Output = flags.Output
	}
	if flags.Seed != "" {
		c.Seed = flags.Seed
	}
	if flags.Mode != "" {
		c.Mode = flags.Mode
	}
	if flags.Frames > 0 {
		c.Frames = flags.Frames
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
}

// Validate checks every field.
func (c Config) Validate() error {
	if _, err := c.VideoInfo(); err != nil {
		return err
	}
	if _, err := c.ParsedColor(); err != nil {
		return err
	}
	if _, err := c.Regions(); err != nil {
		return err
	}
	if _, err := c.ParsedTransform(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Output != "" {
		if _, err := export.FormatFromPath(c.Output); err != nil {
			return fmt.Errorf("config: output: %w", err)
		}
	}
	switch c.Mode {
	case ModeRender, ModePipeline:
	default:
		return fmt.Errorf("config: mode %q, want %s or %s", c.Mode, ModeRender, ModePipeline)
	}
	if c.Frames <= 0 {
		return fmt.Errorf("config: frames %d must be positive", c.Frames)
	}
	if c.MemoryBudgetMB != 0 && c.MemoryBudgetMB < mediagl.MinMemoryMB {
		return fmt.Errorf("config: memory budget %d MB below %d MB", c.MemoryBudgetMB, mediagl.MinMemoryMB)
	}
	return nil
}

// VideoInfo returns the frame description.
func (c Config) VideoInfo() (mediagl.VideoInfo, error) {
	format, err := mediagl.ParseVideoFormat(c.Format)
	if err != nil {
		return mediagl.VideoInfo{}, fmt.Errorf("config: %w", err)
	}
	info := mediagl.VideoInfo{Format: format, Width: c.Width, Height: c.Height}
	if err := info.Validate(); err != nil {
		return mediagl.VideoInfo{}, fmt.Errorf("config: %w", err)
	}
	return info, nil
}

// ParsedColor returns the clear color.
func (c Config) ParsedColor() (render.Color, error) {
	col, err := render.ParseColor(c.Color)
	if err != nil {
		return render.Color{}, fmt.Errorf("config: %w", err)
	}
	return col, nil
}

// ParsedTransform returns the output transform. Empty means normal.
func (c Config) ParsedTransform() (render.Transform, error) {
	if c.Transform == "" {
		return render.TransformNormal, nil
	}
	t, err := render.ParseTransform(c.Transform)
	if err != nil {
		return 0, fmt.Errorf("config: %w", err)
	}
	return t, nil
}

// Regions parses the region list: rectangles "x,y,w,h" separated by ";".
// An empty list means the whole frame.
func (c Config) Regions() ([]image.Rectangle, error) {
	if strings.TrimSpace(c.Region) == "" {
		return nil, nil
	}
	var out []image.Rectangle
	for _, part := range strings.Split(c.Region, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("config: region %q, want x,y,w,h", part)
		}
		var v [4]int
		for i, f := range fields {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("config: region %q: %w", part, err)
			}
			v[i] = n
		}
		if v[2] < 0 || v[3] < 0 {
			return nil, fmt.Errorf("config: region %q has negative size", part)
		}
		out = append(out, image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]))
	}
	return out, nil
}

// Level returns the log level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return l, nil
}
