package mediagl

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/internal/gles"
)

// AttachmentPoint names a framebuffer attachment.
type AttachmentPoint uint8

const (
	ColorAttachment0 AttachmentPoint = iota
	DepthAttachment
	StencilAttachment
)

func (p AttachmentPoint) String() string {
	switch p {
	case ColorAttachment0:
		return "color0"
	case DepthAttachment:
		return "depth"
	case StencilAttachment:
		return "stencil"
	default:
		return fmt.Sprintf("AttachmentPoint(%d)", uint8(p))
	}
}

// FramebufferStatus is the completeness of a framebuffer.
type FramebufferStatus gles.Enum

const (
	FramebufferComplete                    = FramebufferStatus(gles.FRAMEBUFFER_COMPLETE)
	FramebufferIncompleteAttachment        = FramebufferStatus(gles.FRAMEBUFFER_INCOMPLETE_ATTACHMENT)
	FramebufferIncompleteMissingAttachment = FramebufferStatus(gles.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACH)
	FramebufferUndefined                   = FramebufferStatus(gles.FRAMEBUFFER_UNDEFINED)
)

func (s FramebufferStatus) String() string {
	switch s {
	case FramebufferComplete:
		return "complete"
	case FramebufferIncompleteAttachment:
		return "incomplete attachment"
	case FramebufferIncompleteMissingAttachment:
		return "missing attachment"
	case FramebufferUndefined:
		return "undefined"
	default:
		return fmt.Sprintf("FramebufferStatus(%#x)", uint32(s))
	}
}

// Err returns nil for a complete framebuffer and a
// glbridge.ErrFramebufferIncomplete error otherwise.
func (s FramebufferStatus) Err() error {
	if s == FramebufferComplete {
		return nil
	}
	return fmt.Errorf("%w: %s", glbridge.ErrFramebufferIncomplete, s)
}

// Framebuffer binds GL memory as a render target.
type Framebuffer struct {
	ctx      *Context
	fbo      gles.Framebuffer
	color    *Memory
	released bool
}

// NewFramebuffer creates an empty framebuffer in ctx. The context must have
// its info filled and be active on the calling thread.
func NewFramebuffer(ctx *Context) (*Framebuffer, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", glbridge.ErrContextInfo)
	}
	if err := ctx.requireReady("new framebuffer"); err != nil {
		return nil, err
	}
	fbo, err := ctx.native.GenFramebuffer()
	if err != nil {
		return nil, wrapGL(glbridge.ErrAttachment, "new framebuffer", err)
	}
	return &Framebuffer{ctx: ctx, fbo: fbo}, nil
}

// ID returns the GL framebuffer name.
func (fb *Framebuffer) ID() uint32 { return fb.fbo.V }

// Context returns the owning context.
func (fb *Framebuffer) Context() *Context { return fb.ctx }

// Color returns the memory attached at ColorAttachment0, or nil.
func (fb *Framebuffer) Color() *Memory { return fb.color }

// Attach attaches mem at point, taking a reference on it. Only colour
// memory at ColorAttachment0 is accepted. The previous attachment, if any,
// is released.
func (fb *Framebuffer) Attach(point AttachmentPoint, mem *Memory) error {
	if fb.released {
		return fmt.Errorf("%w: framebuffer %d released", glbridge.ErrAttachment, fb.fbo.V)
	}
	if mem == nil {
		return fmt.Errorf("%w: nil memory", glbridge.ErrAttachment)
	}
	if point != ColorAttachment0 {
		return fmt.Errorf("%w: %s memory at %s attachment", glbridge.ErrAttachment, mem.info.Format, point)
	}
	if mem.ctx != fb.ctx {
		return fmt.Errorf("%w: memory from context %#x, framebuffer in %#x",
			glbridge.ErrAttachment, mem.ctx.handle, fb.ctx.handle)
	}
	if mem.target != Target2D {
		return fmt.Errorf("%w: texture target %s", glbridge.ErrAttachment, mem.target)
	}
	if mem.usage&gputypes.TextureUsageRenderAttachment == 0 {
		return fmt.Errorf("%w: memory lacks render-attachment usage", glbridge.ErrAttachment)
	}

	mem.mu.Lock()
	released, writing, owner := mem.released, mem.writeMapped, mem.fb
	mem.mu.Unlock()
	switch {
	case released:
		return fmt.Errorf("%w: memory released", glbridge.ErrAttachment)
	case writing:
		return fmt.Errorf("%w: texture %d is mapped for write", glbridge.ErrAttachment, mem.tex.V)
	case owner != nil && owner != fb:
		return fmt.Errorf("%w: texture %d already attached to framebuffer %d",
			glbridge.ErrAttachment, mem.tex.V, owner.fbo.V)
	}

	if err := fb.ctx.requireReady("attach"); err != nil {
		return err
	}
	// Attaching to the active render target makes mem a target at once,
	// as Bind does for the attachment it finds.
	bound := fb.ctx.BoundFramebuffer() == fb
	if bound {
		if err := mem.upload(); err != nil {
			return err
		}
	}
	if err := fb.withBound(func(native *gles.Context) error {
		return native.FramebufferTexture2D(gles.FRAMEBUFFER, gles.COLOR_ATTACHMENT0, gles.TEXTURE_2D, mem.tex, 0)
	}); err != nil {
		return wrapGL(glbridge.ErrAttachment, "attach", err)
	}
	if bound {
		mem.mu.Lock()
		mem.hostStale = true
		mem.mu.Unlock()
	}

	if fb.color == mem {
		return nil
	}
	fb.dropColor()
	mem.Ref()
	mem.mu.Lock()
	mem.fb = fb
	mem.mu.Unlock()
	fb.color = mem
	return nil
}

// Detach removes the memory at point and releases the framebuffer's
// reference to it.
func (fb *Framebuffer) Detach(point AttachmentPoint) error {
	if point != ColorAttachment0 || fb.color == nil {
		return nil
	}
	if err := fb.ctx.requireReady("detach"); err != nil {
		return err
	}
	if err := fb.withBound(func(native *gles.Context) error {
		return native.FramebufferTexture2D(gles.FRAMEBUFFER, gles.COLOR_ATTACHMENT0, gles.TEXTURE_2D, gles.Texture{}, 0)
	}); err != nil {
		return wrapGL(glbridge.ErrAttachment, "detach", err)
	}
	fb.dropColor()
	return nil
}

func (fb *Framebuffer) dropColor() {
	old := fb.color
	if old == nil {
		return
	}
	fb.color = nil
	old.mu.Lock()
	old.fb = nil
	old.mu.Unlock()
	old.Unref()
}

// withBound runs fn with fb bound and restores the previous binding.
func (fb *Framebuffer) withBound(fn func(*gles.Context) error) error {
	native := fb.ctx.native
	prev, err := native.BoundFramebuffer()
	if err != nil {
		return err
	}
	if err := native.BindFramebuffer(gles.FRAMEBUFFER, fb.fbo); err != nil {
		return err
	}
	ferr := fn(native)
	if err := native.BindFramebuffer(gles.FRAMEBUFFER, prev); err != nil && ferr == nil {
		ferr = err
	}
	return ferr
}

// Bind makes fb the active render target. Pending host writes to the
// attachment are uploaded first. Binding fails with glbridge.ErrAttachment
// while the attachment is mapped for write.
func (fb *Framebuffer) Bind() error {
	if fb.released {
		return fmt.Errorf("%w: framebuffer %d released", glbridge.ErrAttachment, fb.fbo.V)
	}
	if err := fb.ctx.requireReady("bind framebuffer"); err != nil {
		return err
	}
	if c := fb.color; c != nil {
		c.mu.Lock()
		writing := c.writeMapped
		c.mu.Unlock()
		if writing {
			return fmt.Errorf("%w: texture %d is mapped for write", glbridge.ErrAttachment, c.tex.V)
		}
		if err := c.upload(); err != nil {
			return err
		}
	}
	if err := fb.ctx.native.BindFramebuffer(gles.FRAMEBUFFER, fb.fbo); err != nil {
		return wrapGL(glbridge.ErrAttachment, "bind framebuffer", err)
	}
	fb.ctx.setBound(fb)
	if c := fb.color; c != nil {
		c.mu.Lock()
		c.hostStale = true
		c.mu.Unlock()
	}
	return nil
}

// Status reports the completeness of fb without changing the binding.
func (fb *Framebuffer) Status() (FramebufferStatus, error) {
	if err := fb.ctx.requireReady("framebuffer status"); err != nil {
		return 0, err
	}
	var status gles.Enum
	err := fb.withBound(func(native *gles.Context) error {
		var err error
		status, err = native.CheckFramebufferStatus(gles.FRAMEBUFFER)
		return err
	})
	if err != nil {
		return 0, wrapGL(glbridge.ErrRenderBackend, "framebuffer status", err)
	}
	return FramebufferStatus(status), nil
}

// Release unbinds fb if it is bound, releases the attachment and deletes
// the framebuffer. Release is idempotent.
func (fb *Framebuffer) Release() error {
	if fb.released {
		return nil
	}
	if err := fb.ctx.requireReady("release framebuffer"); err != nil {
		return err
	}
	if fb.ctx.BoundFramebuffer() == fb {
		if err := fb.ctx.ClearFramebuffer(); err != nil {
			return err
		}
	}
	fb.dropColor()
	if err := fb.ctx.native.DeleteFramebuffer(fb.fbo); err != nil {
		return wrapGL(glbridge.ErrAttachment, "release framebuffer", err)
	}
	fb.released = true
	return nil
}
