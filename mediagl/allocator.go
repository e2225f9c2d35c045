package mediagl

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/internal/gles"
)

// Budget limits.
const (
	// DefaultMaxMemoryMB is the default GL memory budget (256 MB).
	DefaultMaxMemoryMB = 256

	// MinMemoryMB is the smallest budget honoured (16 MB). Smaller values
	// select the default.
	MinMemoryMB = 16
)

// DefaultUsage is the usage of memory allocated without an explicit one.
var DefaultUsage = gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageRenderAttachment |
	gputypes.TextureUsageCopySrc |
	gputypes.TextureUsageCopyDst

// MemoryKind tells where allocation parameters want the buffer to live.
type MemoryKind uint8

const (
	MemoryGL MemoryKind = iota
	MemorySystem
)

func (k MemoryKind) String() string {
	if k == MemorySystem {
		return CapsFeatureMemorySystemMemory
	}
	return CapsFeatureMemoryGLMemory
}

// AllocationParams describes one GL memory allocation.
type AllocationParams struct {
	Info   VideoInfo
	Target TextureTarget
	Memory MemoryKind

	// Usage defaults to DefaultUsage when zero.
	Usage gputypes.TextureUsage
}

// AllocatorConfig holds configuration for creating an Allocator.
type AllocatorConfig struct {
	// MaxMemoryMB is the budget in megabytes.
	// Defaults to DefaultMaxMemoryMB if below MinMemoryMB.
	MaxMemoryMB int
}

// AllocatorStats contains allocator usage statistics.
type AllocatorStats struct {
	// TotalBytes is the budget in bytes.
	TotalBytes uint64

	// UsedBytes is the memory held by live allocations.
	UsedBytes uint64

	// AvailableBytes is the remaining budget.
	AvailableBytes uint64

	// Live is the number of allocations not yet released.
	Live int

	// Allocations counts every successful Allocate.
	Allocations uint64

	// PendingFrees counts textures waiting for the context to free them.
	PendingFrees int

	// Utilization is the fraction of the budget in use (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable string of allocator stats.
func (s AllocatorStats) String() string {
	return fmt.Sprintf("GLMemory[%.1f%% used, %d/%d MB, %d live, %d allocated]",
		s.Utilization*100,
		s.UsedBytes/(1024*1024),
		s.TotalBytes/(1024*1024),
		s.Live,
		s.Allocations)
}

// Allocator creates GL memory for one wrapped context and enforces a byte
// budget across it.
//
// Allocator is safe for concurrent use; GL calls still require the context
// to be active on the calling thread.
type Allocator struct {
	ctx *Context

	mu sync.Mutex

	budgetBytes uint64
	usedBytes   uint64

	live map[*Memory]struct{}

	// Textures whose last reference dropped while the context was not
	// current. They are freed by the next call made with it current.
	pending []gles.Texture

	allocations uint64
	closed      bool
}

// NewAllocator creates an allocator bound to ctx. The context must have
// its info filled.
func NewAllocator(ctx *Context, config AllocatorConfig) (*Allocator, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", glbridge.ErrContextInfo)
	}
	ctx.mu.Lock()
	filled := ctx.info != nil
	ctx.mu.Unlock()
	if !filled {
		return nil, fmt.Errorf("%w: allocator on context %#x", glbridge.ErrContextInfo, ctx.handle)
	}

	maxMB := config.MaxMemoryMB
	if maxMB < MinMemoryMB {
		maxMB = DefaultMaxMemoryMB
	}
	//nolint:gosec // G115: maxMB is bounded by MinMemoryMB minimum
	return &Allocator{
		ctx:         ctx,
		budgetBytes: uint64(maxMB) * 1024 * 1024,
		live:        make(map[*Memory]struct{}),
	}, nil
}

func (a *Allocator) checkParams(params AllocationParams) error {
	if params.Memory != MemoryGL {
		return fmt.Errorf("%w: allocator serves %s, not %s",
			glbridge.ErrUnsupportedFormat, MemoryGL, params.Memory)
	}
	if err := params.Info.Validate(); err != nil {
		return err
	}
	if params.Target != Target2D {
		return fmt.Errorf("%w: texture target %s", glbridge.ErrUnsupportedFormat, params.Target)
	}
	if params.Info.Format == VideoFormatBGRA &&
		!a.ctx.HasExtension(gles.ExtBGRA8888) && !a.ctx.HasExtension(gles.ExtAppleBGRA8888) {
		return fmt.Errorf("%w: BGRA textures need %s", glbridge.ErrUnsupportedFormat, gles.ExtBGRA8888)
	}
	return nil
}

// Context returns the context the allocator serves.
func (a *Allocator) Context() *Context { return a.ctx }

// Allocate creates GL memory for params. The returned memory holds one
// reference and zeroed pixels.
//
// An inactive context fails with glbridge.ErrContextNotCurrent; every other
// failure wraps glbridge.ErrAllocation. Descriptor problems also wrap
// glbridge.ErrUnsupportedFormat and are reported before any GL call.
func (a *Allocator) Allocate(params AllocationParams) (*Memory, error) {
	if err := a.checkParams(params); err != nil {
		return nil, fmt.Errorf("%w: %w", glbridge.ErrAllocation, err)
	}
	usage := params.Usage
	if usage == 0 {
		usage = DefaultUsage
	}
	if err := a.ctx.requireReady("allocate"); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, fmt.Errorf("%w: allocator closed", glbridge.ErrAllocation)
	}
	a.collectLocked()

	//nolint:gosec // G115: dimensions validated above
	required := uint64(params.Info.Size())
	if required > a.budgetBytes-a.usedBytes {
		return nil, fmt.Errorf("%w: %s needs %d bytes, %d of %d available",
			glbridge.ErrAllocation, params.Info, required, a.budgetBytes-a.usedBytes, a.budgetBytes)
	}

	native := a.ctx.native
	tex, err := native.GenTexture()
	if err != nil {
		return nil, wrapGL(glbridge.ErrAllocation, "allocate", err)
	}
	if err := native.TexImage2D(tex, gles.TEXTURE_2D, params.Info.glFormat(), params.Info.Width, params.Info.Height); err != nil {
		_ = native.DeleteTexture(tex)
		return nil, wrapGL(glbridge.ErrAllocation, "allocate "+params.Info.String(), err)
	}

	m := &Memory{
		alloc:  a,
		ctx:    a.ctx,
		info:   params.Info,
		target: params.Target,
		usage:  usage,
		tex:    tex,
		size:   required,
		refs:   1,
		data:   make([]byte, required),
	}
	a.live[m] = struct{}{}
	a.usedBytes += required
	a.allocations++

	glbridge.Logger().Debug("mediagl: allocated",
		"info", params.Info.String(), "texture", tex.V, "bytes", required)
	return m, nil
}

// free returns m's texture and budget. It runs when the last reference
// drops.
func (a *Allocator) free(m *Memory) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.live[m]; !ok {
		return
	}
	delete(a.live, m)
	a.usedBytes -= m.size

	if a.ctx.native.IsCurrent() {
		a.collectLocked()
		if err := a.ctx.native.DeleteTexture(m.tex); err == nil {
			return
		}
	}
	a.pending = append(a.pending, m.tex)
}

// collectLocked frees pending textures if the context is current. Caller
// must hold mu.
func (a *Allocator) collectLocked() {
	if len(a.pending) == 0 || !a.ctx.native.IsCurrent() {
		return
	}
	for _, tex := range a.pending {
		_ = a.ctx.native.DeleteTexture(tex)
	}
	a.pending = a.pending[:0]
}

// Stats returns current usage statistics.
func (a *Allocator) Stats() AllocatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	var utilization float64
	if a.budgetBytes > 0 {
		utilization = float64(a.usedBytes) / float64(a.budgetBytes)
	}
	return AllocatorStats{
		TotalBytes:     a.budgetBytes,
		UsedBytes:      a.usedBytes,
		AvailableBytes: a.budgetBytes - a.usedBytes,
		Live:           len(a.live),
		Allocations:    a.allocations,
		PendingFrees:   len(a.pending),
		Utilization:    utilization,
	}
}

// Close frees every allocation, whatever its reference count, and refuses
// further allocations. The context must be active on the calling thread.
func (a *Allocator) Close() error {
	if err := a.ctx.requireReady("close allocator"); err != nil {
		return err
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	live := make([]*Memory, 0, len(a.live))
	for m := range a.live {
		live = append(live, m)
	}
	a.mu.Unlock()

	for _, m := range live {
		m.mu.Lock()
		m.released = true
		m.refs = 0
		m.mu.Unlock()
		a.free(m)
	}

	a.mu.Lock()
	a.collectLocked()
	a.mu.Unlock()
	return nil
}
