package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/export"
	"github.com/gogpu/glbridge/mediagl"
	"github.com/gogpu/glbridge/render"
)

// TestSourceConfig configures a TestSource.
type TestSourceConfig struct {
	Info   mediagl.VideoInfo
	Frames int
	Color  render.Color

	// Renderer, when set, clears Regions of each frame on the GPU; no
	// regions means the whole frame. Otherwise frames are filled with
	// Color through a write map.
	Renderer  *render.Renderer
	Regions   []image.Rectangle
	Transform render.Transform

	// Seed, when set, names an image written into each frame first. A
	// mapped frame with a seed is the seed alone.
	Seed string

	// Sink receives every produced frame.
	Sink export.Sink

	// MaxMemoryMB is the allocator budget.
	MaxMemoryMB int
}

// TestSource is an element that produces frames of GL memory on its own
// locked OS thread. It asks for the display and app contexts, announces its
// streaming thread, and posts end of stream when done.
type TestSource struct {
	ContextHolder

	name   string
	bus    *Bus
	config TestSourceConfig

	group *errgroup.Group
	seeds *export.SeedCache

	mu       sync.Mutex
	produced int
	last     []byte
}

// NewTestSource returns a source that posts on bus.
func NewTestSource(name string, bus *Bus, config TestSourceConfig) *TestSource {
	if config.Frames <= 0 {
		config.Frames = 1
	}
	return &TestSource{name: name, bus: bus, config: config, seeds: export.NewSeedCache(1)}
}

// Name implements Element.
func (s *TestSource) Name() string { return s.name }

// Start launches the streaming thread. Wait returns its result.
func (s *TestSource) Start(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	s.group = g
	g.Go(func() error {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		err := s.stream(gctx)
		if err != nil {
			s.bus.Post(NewError(s, err, "test source streaming thread"))
			return err
		}
		s.bus.Post(NewEOS(s))
		return nil
	})
}

// Wait blocks until the streaming thread has ended.
func (s *TestSource) Wait() error {
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}

// Produced returns the number of frames produced so far.
func (s *TestSource) Produced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.produced
}

// LastFrame returns a copy of the last produced frame's pixels.
func (s *TestSource) LastFrame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...)
}

func (s *TestSource) stream(ctx context.Context) (err error) {
	s.bus.Post(NewNeedContext(s, DisplayContextType))
	s.bus.Post(NewNeedContext(s, AppContextType))
	dc, ac := s.Context(DisplayContextType), s.Context(AppContextType)
	if dc == nil || dc.GLDisplay() == nil || ac == nil || ac.GLContext() == nil {
		return fmt.Errorf("%w: %s got no GL display or context", glbridge.ErrInitialization, s.name)
	}
	gl := ac.GLContext()

	s.bus.Post(NewStreamStatus(s, StreamStatusEnter, s))
	defer s.bus.Post(NewStreamStatus(s, StreamStatusLeave, s))
	if !gl.IsActive() {
		return fmt.Errorf("%w: %s: context not activated on streaming thread", glbridge.ErrContextNotCurrent, s.name)
	}

	if err := gl.FillInfo(); err != nil {
		return err
	}
	alloc, err := mediagl.NewAllocator(gl, mediagl.AllocatorConfig{MaxMemoryMB: s.config.MaxMemoryMB})
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, alloc.Close()) }()

	for i := 0; i < s.config.Frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		pix, err := s.produce(alloc)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if s.config.Sink != nil {
			if err := s.config.Sink.Write(pix, s.config.Info); err != nil {
				return err
			}
		}
		s.mu.Lock()
		s.produced++
		s.last = pix
		s.mu.Unlock()
	}
	return nil
}

func (s *TestSource) produce(alloc *mediagl.Allocator) ([]byte, error) {
	if s.config.Renderer != nil {
		target, err := render.NewMemoryTarget(alloc, s.config.Info)
		if err != nil {
			return nil, err
		}
		defer func() { _ = target.Release() }()
		if err := s.seed(target.Memory()); err != nil {
			return nil, err
		}
		frame, err := s.config.Renderer.RenderTo(target, s.config.Transform)
		if err != nil {
			return nil, err
		}
		regions := s.config.Regions
		if len(regions) == 0 {
			regions = []image.Rectangle{frame.Bounds()}
		}
		if err := frame.Clear(s.config.Color, regions); err != nil {
			_ = frame.Finish()
			return nil, err
		}
		if err := frame.Finish(); err != nil {
			return nil, err
		}
		if err := target.Unbind(); err != nil {
			return nil, err
		}
		return target.ReadPixels()
	}

	mem, err := alloc.Allocate(mediagl.AllocationParams{Info: s.config.Info})
	if err != nil {
		return nil, err
	}
	defer mem.Unref()
	if s.config.Seed != "" {
		err = s.seed(mem)
	} else {
		px := s.config.Color.Bytes(s.config.Info.Format == mediagl.VideoFormatBGRA)
		err = mem.WithMap(mediagl.MapWrite, func(data []byte) error {
			for i := 0; i+4 <= len(data); i += 4 {
				copy(data[i:i+4], px[:])
			}
			return nil
		})
	}
	if err != nil {
		return nil, err
	}
	if err := mem.Sync(); err != nil {
		return nil, err
	}
	return mem.ReadPixels()
}

func (s *TestSource) seed(mem *mediagl.Memory) error {
	if s.config.Seed == "" {
		return nil
	}
	pix, err := s.seeds.Load(s.config.Seed, s.config.Info)
	if err != nil {
		return err
	}
	return mem.WithMap(mediagl.MapWrite, func(data []byte) error {
		copy(data, pix)
		return nil
	})
}
