package pipeline

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/mediagl"
)

// ResponderConfig configures a Responder.
type ResponderConfig struct {
	// Owners lists the element names whose streaming threads get the
	// context activated. Empty means every owner.
	Owners []string
}

// Responder answers context requests with the shared display and context
// and activates the context on streaming threads between enter and leave.
// It does its work on the goroutine that posts the message.
type Responder struct {
	display *mediagl.Display
	gl      *mediagl.Context
	bus     *Bus
	owners  map[string]bool

	attached    atomic.Int64
	activations atomic.Int64
}

// NewResponder installs a Responder as the sync handler of bus.
func NewResponder(display *mediagl.Display, gl *mediagl.Context, bus *Bus, config ResponderConfig) (*Responder, error) {
	if display == nil || gl == nil || bus == nil {
		return nil, fmt.Errorf("%w: responder needs a display, a context and a bus", glbridge.ErrInitialization)
	}
	if gl.Display() != display {
		return nil, fmt.Errorf("%w: context %#x does not belong to display %#x",
			glbridge.ErrUnsupportedPlatform, gl.Handle(), display.Handle())
	}
	r := &Responder{display: display, gl: gl, bus: bus}
	if len(config.Owners) > 0 {
		r.owners = make(map[string]bool, len(config.Owners))
		for _, name := range config.Owners {
			r.owners[name] = true
		}
	}
	bus.SetSyncHandler(func(_ *Bus, msg *Message) BusSyncReply { return r.Handle(msg) })
	return r, nil
}

// Handle reacts to msg and always lets it pass.
func (r *Responder) Handle(msg *Message) BusSyncReply {
	if msg == nil {
		return BusPass
	}
	switch msg.Type {
	case MessageNeedContext:
		r.needContext(msg)
	case MessageStreamStatus:
		r.streamStatus(msg)
	}
	return BusPass
}

func (r *Responder) needContext(msg *Message) {
	log := glbridge.Logger()
	if msg.Src == nil {
		log.Warn("pipeline: need-context without source", "type", msg.ContextType)
		return
	}

	var c *Context
	switch msg.ContextType {
	case DisplayContextType:
		c = NewContext(msg.ContextType, true)
		c.SetGLDisplay(r.display)
	case AppContextType:
		c = NewContext(msg.ContextType, true)
		c.SetGLContext(r.gl)
	default:
		return
	}
	msg.Src.SetContext(c)
	r.attached.Add(1)
	log.Info("pipeline: context set", "element", msg.Src.Name(), "type", msg.ContextType)
}

func (r *Responder) streamStatus(msg *Message) {
	if msg.Owner == nil {
		glbridge.Logger().Warn("pipeline: stream-status without owner", "status", msg.Status.String())
		return
	}
	name := msg.Owner.Name()
	if r.owners != nil && !r.owners[name] {
		return
	}

	var active bool
	switch msg.Status {
	case StreamStatusEnter:
		active = true
	case StreamStatusLeave:
		active = false
	default:
		return
	}
	if err := r.gl.Activate(active); err != nil {
		r.bus.Post(NewError(msg.Owner, err,
			fmt.Sprintf("activate(%t) on streaming thread of %s", active, name)))
		return
	}
	r.activations.Add(1)
	glbridge.Logger().Info("pipeline: context activation", "owner", name, "active", active)
}

// Attached returns how many contexts have been handed to elements.
func (r *Responder) Attached() int { return int(r.attached.Load()) }

// Activations returns how many activation changes succeeded.
func (r *Responder) Activations() int { return int(r.activations.Load()) }
