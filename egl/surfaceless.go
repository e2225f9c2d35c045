package egl

import (
	"github.com/gogpu/glbridge/internal/gles"
)

func init() {
	Register(BackendSurfaceless, func() Backend { return surfacelessBackend{} })
}

// surfacelessBackend serves PlatformSurfaceless with the software GLES2
// driver. It needs no window system, so it works on headless hosts.
type surfacelessBackend struct{}

func (surfacelessBackend) Name() string { return BackendSurfaceless }

// Available requires OS thread ids, which the current-context checks use.
func (surfacelessBackend) Available() bool { return gles.ThreadAffinity }

func (surfacelessBackend) Supports(p Platform) bool { return p == PlatformSurfaceless }

func (surfacelessBackend) OpenDisplay(p Platform) (NativeDisplay, error) {
	if p != PlatformSurfaceless {
		return nil, errUnsupportedPlatform
	}
	return surfacelessDisplay{gles.OpenDisplay()}, nil
}

type surfacelessDisplay struct {
	*gles.Display
}

func (d surfacelessDisplay) CreateContext(a ContextAttribs) (NativeContext, error) {
	cfg := gles.Config{
		Extensions:     a.Extensions,
		MaxTextureSize: a.MaxTextureSize,
	}
	switch a.API {
	case APIGLES2:
		cfg.API, cfg.Major = gles.APIGLES, 2
	case APIGLES3:
		cfg.API, cfg.Major = gles.APIGLES, 3
	default:
		cfg.API = gles.APIOpenGL
	}
	c, err := d.Display.CreateContext(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}
