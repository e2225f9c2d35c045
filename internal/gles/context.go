package gles

import (
	"image"
	"strings"
	"sync"
)

// Context is a GLES2 rendering context. All object calls must come from
// the OS thread the context is current on.
type Context struct {
	handle  uintptr
	display *Display
	cfg     Config
	exts    map[string]bool
	extList []string

	mu        sync.Mutex
	current   Thread
	destroyed bool

	nextName     uint32
	textures     map[uint32]*texture
	framebuffers map[uint32]*framebuffer
	bound        uint32

	scissorTest bool
	scissor     image.Rectangle
	clearColor  [4]float32
	flushes     uint64
}

type texture struct {
	target Enum
	format Enum
	width  int
	height int
	pix    []byte
}

func (t *texture) bounds() image.Rectangle {
	return image.Rect(0, 0, t.width, t.height)
}

type framebuffer struct {
	attachments map[Enum]uint32
}

// Handle returns the raw context handle.
func (c *Context) Handle() uintptr { return c.handle }

// Display returns the display the context was created on.
func (c *Context) Display() *Display { return c.display }

// Config returns the configuration the context was created with.
func (c *Context) Config() Config { return c.cfg }

// HasExtension reports whether the context exposes ext.
func (c *Context) HasExtension(ext string) bool { return c.exts[ext] }

// MakeCurrent makes c current on the calling OS thread. It is a no-op when
// c is already current there and fails with ErrContextBusy when another
// thread holds it.
func (c *Context) MakeCurrent() error {
	t := CurrentThread()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	if c.current != 0 && c.current != t {
		return ErrContextBusy
	}
	c.current = t
	return nil
}

// ReleaseCurrent releases c from the calling OS thread. Releasing a context
// that is not current anywhere is a no-op; releasing one held by another
// thread fails with ErrContextBusy.
func (c *Context) ReleaseCurrent() error {
	t := CurrentThread()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	if c.current == 0 {
		return nil
	}
	if c.current != t {
		return ErrContextBusy
	}
	c.current = 0
	return nil
}

// CurrentOn returns the thread c is current on, or 0.
func (c *Context) CurrentOn() Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// IsCurrent reports whether c is current on the calling thread.
func (c *Context) IsCurrent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != 0 && c.current == CurrentThread()
}

// Destroy releases every object of c and removes it from the handle table.
// It fails when c is current on another thread.
func (c *Context) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil
	}
	if c.current != 0 && c.current != CurrentThread() {
		return ErrContextBusy
	}
	c.destroyed = true
	c.current = 0
	c.textures = nil
	c.framebuffers = nil
	c.bound = 0

	tableMu.Lock()
	delete(contexts, c.handle)
	tableMu.Unlock()

	c.display.mu.Lock()
	c.display.contexts--
	c.display.mu.Unlock()
	return nil
}

// lock acquires c.mu and verifies c is usable from the calling thread.
// On success the caller must unlock.
func (c *Context) lock() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	if c.current == 0 || c.current != CurrentThread() {
		c.mu.Unlock()
		return ErrNotCurrent
	}
	return nil
}

func (c *Context) genName() uint32 {
	c.nextName++
	return c.nextName
}

// GetString returns a driver string.
func (c *Context) GetString(name Enum) (string, error) {
	if err := c.lock(); err != nil {
		return "", err
	}
	defer c.mu.Unlock()
	switch name {
	case VENDOR:
		return "gogpu", nil
	case RENDERER:
		return "glbridge software rasterizer", nil
	case VERSION:
		if c.cfg.Major == 3 {
			return "OpenGL ES 3.0 glbridge", nil
		}
		return "OpenGL ES 2.0 glbridge", nil
	case EXTENSIONS:
		return strings.Join(c.extList, " "), nil
	default:
		return "", Error(INVALID_ENUM)
	}
}

// GenTexture creates a texture name without storage.
func (c *Context) GenTexture() (Texture, error) {
	if err := c.lock(); err != nil {
		return Texture{}, err
	}
	defer c.mu.Unlock()
	name := c.genName()
	c.textures[name] = &texture{}
	return Texture{V: name}, nil
}

// TexImage2D allocates zeroed storage for tex.
func (c *Context) TexImage2D(tex Texture, target, format Enum, width, height int) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	t, ok := c.textures[tex.V]
	if !ok {
		return Error(INVALID_OPERATION)
	}
	if target != TEXTURE_2D {
		return Error(INVALID_ENUM)
	}
	switch format {
	case RGBA:
	case BGRA_EXT:
		if !c.exts[ExtBGRA8888] && !c.exts[ExtAppleBGRA8888] {
			return Error(INVALID_ENUM)
		}
	default:
		return Error(INVALID_ENUM)
	}
	if width <= 0 || height <= 0 || width > c.cfg.MaxTextureSize || height > c.cfg.MaxTextureSize {
		return Error(INVALID_VALUE)
	}
	t.target = target
	t.format = format
	t.width = width
	t.height = height
	t.pix = make([]byte, width*height*BytesPerPixel(format))
	return nil
}

// TexSubImage2D replaces the whole storage of tex with pix, which must be in
// the texture's own format.
func (c *Context) TexSubImage2D(tex Texture, format Enum, pix []byte) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	t, ok := c.textures[tex.V]
	if !ok || t.pix == nil {
		return Error(INVALID_OPERATION)
	}
	if format != t.format {
		return Error(INVALID_OPERATION)
	}
	if len(pix) < len(t.pix) {
		return Error(INVALID_VALUE)
	}
	copy(t.pix, pix)
	return nil
}

// ReadTexture copies the storage of tex into dst.
func (c *Context) ReadTexture(tex Texture, dst []byte) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	t, ok := c.textures[tex.V]
	if !ok || t.pix == nil {
		return Error(INVALID_OPERATION)
	}
	if len(dst) < len(t.pix) {
		return Error(INVALID_VALUE)
	}
	copy(dst, t.pix)
	return nil
}

// TextureSize returns the dimensions and format of tex.
func (c *Context) TextureSize(tex Texture) (width, height int, format Enum, err error) {
	if err := c.lock(); err != nil {
		return 0, 0, 0, err
	}
	defer c.mu.Unlock()
	t, ok := c.textures[tex.V]
	if !ok {
		return 0, 0, 0, Error(INVALID_OPERATION)
	}
	return t.width, t.height, t.format, nil
}

// DeleteTexture frees tex and detaches it from every framebuffer.
func (c *Context) DeleteTexture(tex Texture) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	if _, ok := c.textures[tex.V]; !ok {
		return nil
	}
	delete(c.textures, tex.V)
	for _, fb := range c.framebuffers {
		for point, name := range fb.attachments {
			if name == tex.V {
				delete(fb.attachments, point)
			}
		}
	}
	return nil
}

// GenFramebuffer creates a framebuffer object.
func (c *Context) GenFramebuffer() (Framebuffer, error) {
	if err := c.lock(); err != nil {
		return Framebuffer{}, err
	}
	defer c.mu.Unlock()
	name := c.genName()
	c.framebuffers[name] = &framebuffer{attachments: make(map[Enum]uint32)}
	return Framebuffer{V: name}, nil
}

// BindFramebuffer binds fb as the render target. The zero framebuffer
// unbinds; a surfaceless context has no default framebuffer behind it.
func (c *Context) BindFramebuffer(target Enum, fb Framebuffer) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	if target != FRAMEBUFFER {
		return Error(INVALID_ENUM)
	}
	if fb.Valid() {
		if _, ok := c.framebuffers[fb.V]; !ok {
			return Error(INVALID_OPERATION)
		}
	}
	c.bound = fb.V
	return nil
}

// BoundFramebuffer returns the framebuffer currently bound.
func (c *Context) BoundFramebuffer() (Framebuffer, error) {
	if err := c.lock(); err != nil {
		return Framebuffer{}, err
	}
	defer c.mu.Unlock()
	return Framebuffer{V: c.bound}, nil
}

// FramebufferTexture2D attaches tex to the bound framebuffer. A zero tex
// detaches.
func (c *Context) FramebufferTexture2D(target, attachment, textarget Enum, tex Texture, level int) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	if target != FRAMEBUFFER {
		return Error(INVALID_ENUM)
	}
	switch attachment {
	case COLOR_ATTACHMENT0, DEPTH_ATTACHMENT, STENCIL_ATTACHMENT:
	default:
		return Error(INVALID_ENUM)
	}
	fb, ok := c.framebuffers[c.bound]
	if !ok {
		return Error(INVALID_OPERATION)
	}
	if !tex.Valid() {
		delete(fb.attachments, attachment)
		return nil
	}
	if textarget != TEXTURE_2D {
		return Error(INVALID_ENUM)
	}
	if level != 0 {
		return Error(INVALID_VALUE)
	}
	if _, ok := c.textures[tex.V]; !ok {
		return Error(INVALID_OPERATION)
	}
	fb.attachments[attachment] = tex.V
	return nil
}

// CheckFramebufferStatus reports the completeness of the bound framebuffer.
func (c *Context) CheckFramebufferStatus(target Enum) (Enum, error) {
	if err := c.lock(); err != nil {
		return 0, err
	}
	defer c.mu.Unlock()
	if target != FRAMEBUFFER {
		return 0, Error(INVALID_ENUM)
	}
	return c.statusLocked(), nil
}

func (c *Context) statusLocked() Enum {
	fb, ok := c.framebuffers[c.bound]
	if !ok {
		return FRAMEBUFFER_UNDEFINED
	}
	for point, name := range fb.attachments {
		t := c.textures[name]
		if t == nil || t.pix == nil {
			return FRAMEBUFFER_INCOMPLETE_ATTACHMENT
		}
		if point != COLOR_ATTACHMENT0 {
			// Only colour textures exist; they cannot back depth or stencil.
			return FRAMEBUFFER_INCOMPLETE_ATTACHMENT
		}
		if !c.colorRenderable(t.format) {
			return FRAMEBUFFER_INCOMPLETE_ATTACHMENT
		}
	}
	if _, ok := fb.attachments[COLOR_ATTACHMENT0]; !ok {
		return FRAMEBUFFER_INCOMPLETE_MISSING_ATTACH
	}
	return FRAMEBUFFER_COMPLETE
}

// colorRenderable reports whether format can back a colour attachment.
// The Apple BGRA extension only covers sampling.
func (c *Context) colorRenderable(format Enum) bool {
	switch format {
	case RGBA:
		return true
	case BGRA_EXT:
		return c.exts[ExtBGRA8888]
	default:
		return false
	}
}

// DeleteFramebuffer frees fb, unbinding it if bound.
func (c *Context) DeleteFramebuffer(fb Framebuffer) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	delete(c.framebuffers, fb.V)
	if c.bound == fb.V {
		c.bound = 0
	}
	return nil
}
