package mediagl

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/internal/gles"
)

// MapFlags selects the access of a mapping.
type MapFlags uint8

const (
	MapRead MapFlags = 1 << iota
	MapWrite
)

func (f MapFlags) String() string {
	switch f {
	case MapRead:
		return "read"
	case MapWrite:
		return "write"
	case MapRead | MapWrite:
		return "read|write"
	default:
		return fmt.Sprintf("MapFlags(%d)", uint8(f))
	}
}

// Memory is a GL texture plus a host copy of its pixels. It is reference
// counted; the texture is freed when the last reference drops.
//
// At any moment the memory is either write-mapped by the host, bound as
// the active render target, or neither; never both. Read maps may overlap
// each other but not a write map.
type Memory struct {
	alloc  *Allocator
	ctx    *Context
	info   VideoInfo
	target TextureTarget
	usage  gputypes.TextureUsage
	tex    gles.Texture
	size   uint64

	mu       sync.Mutex
	refs     int32
	released bool

	data []byte

	// hostStale: the texture may hold newer pixels than data.
	// uploadPending: data holds newer pixels than the texture.
	hostStale     bool
	uploadPending bool

	readMaps    int
	writeMapped bool

	fb *Framebuffer
}

// Info returns the frame layout of the memory.
func (m *Memory) Info() VideoInfo { return m.info }

// Target returns the texture target of the memory.
func (m *Memory) Target() TextureTarget { return m.target }

// Usage returns the allowed uses of the memory.
func (m *Memory) Usage() gputypes.TextureUsage { return m.usage }

// Context returns the context that owns the texture.
func (m *Memory) Context() *Context { return m.ctx }

// TextureID returns the GL texture name.
func (m *Memory) TextureID() uint32 { return m.tex.V }

// Ref adds a reference.
func (m *Memory) Ref() *Memory {
	m.mu.Lock()
	if !m.released {
		m.refs++
	}
	m.mu.Unlock()
	return m
}

// Unref drops a reference. Dropping the last one frees the texture; if the
// context is not active on the calling thread the free is deferred to the
// allocator's next call made with it active.
func (m *Memory) Unref() {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return
	}
	m.refs--
	last := m.refs <= 0
	if last {
		m.released = true
	}
	m.mu.Unlock()
	if last {
		m.alloc.free(m)
	}
}

// Released reports whether the last reference has dropped.
func (m *Memory) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// boundLocked reports whether the memory is the colour attachment of the
// framebuffer currently bound in its context. Caller must hold mu.
func (m *Memory) boundLocked() bool {
	return m.fb != nil && m.ctx.BoundFramebuffer() == m.fb
}

// Map gives the host access to the pixels. Pixels newer on the GPU are
// downloaded first, which needs the context active on the calling thread.
//
// Mapping fails with glbridge.ErrMap while the memory is the active render
// target, while it is write-mapped, and when writing is requested while
// read maps are outstanding.
func (m *Memory) Map(flags MapFlags) (*Mapping, error) {
	if flags == 0 || flags&^(MapRead|MapWrite) != 0 {
		return nil, fmt.Errorf("%w: invalid flags %s", glbridge.ErrMap, flags)
	}
	if flags&MapRead != 0 && m.usage&gputypes.TextureUsageCopySrc == 0 {
		return nil, fmt.Errorf("%w: memory not readable (usage %#x)", glbridge.ErrMap, uint32(m.usage))
	}
	if flags&MapWrite != 0 && m.usage&gputypes.TextureUsageCopyDst == 0 {
		return nil, fmt.Errorf("%w: memory not writable (usage %#x)", glbridge.ErrMap, uint32(m.usage))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.released:
		return nil, fmt.Errorf("%w: memory released", glbridge.ErrMap)
	case m.boundLocked():
		return nil, fmt.Errorf("%w: texture %d is the active render target", glbridge.ErrMap, m.tex.V)
	case m.writeMapped:
		return nil, fmt.Errorf("%w: texture %d already mapped for write", glbridge.ErrMap, m.tex.V)
	case flags&MapWrite != 0 && m.readMaps > 0:
		return nil, fmt.Errorf("%w: texture %d has %d read maps", glbridge.ErrMap, m.tex.V, m.readMaps)
	}

	if m.hostStale {
		if err := m.ctx.requireReady("map"); err != nil {
			return nil, err
		}
		if err := m.ctx.native.ReadTexture(m.tex, m.data); err != nil {
			return nil, wrapGL(glbridge.ErrMap, "download", err)
		}
		m.hostStale = false
	}

	if flags&MapWrite != 0 {
		m.writeMapped = true
	} else {
		m.readMaps++
	}
	return &Mapping{mem: m, flags: flags, data: m.data}, nil
}

// WithMap maps m, runs fn on the pixels and unmaps, whatever fn returns.
func (m *Memory) WithMap(flags MapFlags, fn func(data []byte) error) error {
	mp, err := m.Map(flags)
	if err != nil {
		return err
	}
	defer mp.Unmap()
	return fn(mp.Data())
}

// ReadPixels returns a copy of the pixels in the memory's own byte order,
// rows top to bottom.
func (m *Memory) ReadPixels() ([]byte, error) {
	var out []byte
	err := m.WithMap(MapRead, func(data []byte) error {
		out = append([]byte(nil), data...)
		return nil
	})
	return out, err
}

// upload pushes pending host writes to the texture. The context must be
// active.
func (m *Memory) upload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.uploadPending {
		return nil
	}
	if err := m.ctx.native.TexSubImage2D(m.tex, m.info.glFormat(), m.data); err != nil {
		return wrapGL(glbridge.ErrMap, "upload", err)
	}
	m.uploadPending = false
	return nil
}

// Mapping is a scoped view of a Memory's pixels. It must be released with
// Unmap; using Data after that is a bug.
type Mapping struct {
	mem   *Memory
	flags MapFlags
	data  []byte
	done  bool
}

// Data returns the mapped pixels. Read mappings must not be modified.
func (mp *Mapping) Data() []byte { return mp.data }

// Flags returns the access of the mapping.
func (mp *Mapping) Flags() MapFlags { return mp.flags }

// Info returns the frame layout of the mapped memory.
func (mp *Mapping) Info() VideoInfo { return mp.mem.info }

// Unmap ends the mapping. Ending a write mapping schedules an upload before
// the texture's next GPU use. Unmap is idempotent.
func (mp *Mapping) Unmap() {
	m := mp.mem
	m.mu.Lock()
	defer m.mu.Unlock()
	if mp.done {
		return
	}
	mp.done = true
	mp.data = nil
	if mp.flags&MapWrite != 0 {
		m.writeMapped = false
		m.uploadPending = true
		return
	}
	m.readMaps--
}

// Sync uploads pending host writes so GPU reads see them. Samplers call it
// before drawing from the texture; binding as a render target does it
// implicitly.
func (m *Memory) Sync() error {
	if err := m.ctx.requireReady("sync memory"); err != nil {
		return err
	}
	m.mu.Lock()
	writing, released := m.writeMapped, m.released
	m.mu.Unlock()
	switch {
	case released:
		return fmt.Errorf("%w: memory released", glbridge.ErrMap)
	case writing:
		return fmt.Errorf("%w: texture %d is mapped for write", glbridge.ErrMap, m.tex.V)
	}
	return m.upload()
}
