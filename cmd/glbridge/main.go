// Command glbridge renders a solid color into shared GL memory and writes
// the read-back frame to an image file.
//
// In render mode the frame is produced once on the main thread. In pipeline
// mode a test source element renders frames on its own streaming thread,
// with the context handed over through a bus responder, and the last frame
// is written.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/bridge"
	"github.com/gogpu/glbridge/export"
	"github.com/gogpu/glbridge/internal/config"
	"github.com/gogpu/glbridge/pipeline"
)

const sourceName = "appsrc"

func init() {
	// The GL context is current on the main thread between calls.
	runtime.LockOSThread()
}

func main() {
	var (
		configPath = flag.String("config", "", "JSON config file")
		width      = flag.Int("width", 0, "frame width (default 1920)")
		height     = flag.Int("height", 0, "frame height (default 1080)")
		format     = flag.String("format", "", "pixel format: BGRA or RGBA")
		color      = flag.String("color", "", `clear color: "r,g,b[,a]" in [0,1] or "#rrggbb[aa]"`)
		region     = flag.String("region", "", `regions to clear: "x,y,w,h[;x,y,w,h...]" (default whole frame)`)
		transform  = flag.String("transform", "", "output transform: normal, 90, 180, 270, flipped, flipped-90, ...")
		output     = flag.String("output", "", "output file (.png, .jpg, .webp, .tga)")
		seed       = flag.String("seed", "", "image written into the buffer before rendering")
		mode       = flag.String("mode", "", "render or pipeline")
		frames     = flag.Int("frames", 0, "frames produced in pipeline mode")
		logLevel   = flag.String("log-level", "", "debug, info, warn or error")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("glbridge: %v", err)
		}
	}
	cfg.Resolve(config.Flags{
		Width:     *width,
		Height:    *height,
		Format:    *format,
		Color:     *color,
		Region:    *region,
		Transform: *transform,
		Output:    *output,
		Seed:      *seed,
		Mode:      *mode,
		Frames:    *frames,
		LogLevel:  *logLevel,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("glbridge: %v", err)
	}

	level, _ := cfg.Level()
	glbridge.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("glbridge: %v", err)
	}
	log.Printf("Frame saved to %s (%dx%d %s)", cfg.Output, cfg.Width, cfg.Height, cfg.Format)
}

func run(ctx context.Context, cfg config.Config) (err error) {
	info, _ := cfg.VideoInfo()
	c, _ := cfg.ParsedColor()
	regions, _ := cfg.Regions()
	t, _ := cfg.ParsedTransform()

	b, err := bridge.New(bridge.Options{Transform: t, MaxMemoryMB: cfg.MemoryBudgetMB})
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, b.Close()) }()

	var pix []byte
	switch cfg.Mode {
	case config.ModePipeline:
		pix, err = runPipeline(ctx, b, cfg)
	default:
		var seedPix []byte
		if cfg.Seed != "" {
			if seedPix, err = export.LoadSeed(cfg.Seed, info); err != nil {
				return err
			}
		}
		pix, err = b.RenderSolid(info, c, regions, seedPix)
	}
	if err != nil {
		return err
	}
	return export.FileSink{Path: cfg.Output}.Write(pix, info)
}

func runPipeline(ctx context.Context, b *bridge.Bridge, cfg config.Config) ([]byte, error) {
	info, _ := cfg.VideoInfo()
	c, _ := cfg.ParsedColor()
	regions, _ := cfg.Regions()
	t, _ := cfg.ParsedTransform()

	bus := pipeline.NewBus()
	if _, err := b.Responder(bus, pipeline.ResponderConfig{Owners: []string{sourceName}}); err != nil {
		return nil, err
	}

	// Hand the context to the streaming thread and take it back after.
	if err := b.Context().Activate(false); err != nil {
		return nil, err
	}
	src := pipeline.NewTestSource(sourceName, bus, pipeline.TestSourceConfig{
		Info:        info,
		Frames:      cfg.Frames,
		Color:       c,
		Renderer:    b.Renderer(),
		Regions:     regions,
		Transform:   t,
		Seed:        cfg.Seed,
		MaxMemoryMB: cfg.MemoryBudgetMB,
	})
	src.Start(ctx)
	runErr := pipeline.Run(ctx, bus)
	waitErr := src.Wait()
	if err := errors.Join(runErr, waitErr, b.Context().Activate(true)); err != nil {
		return nil, err
	}
	return src.LastFrame(), nil
}
