// Package glbridge shares one headless GL context and one GPU-resident
// image buffer between a media pipeline's GL layer and a compositor-style
// renderer.
//
// # Overview
//
// Both sides assume they own "the" GL context. glbridge creates a single
// native display/context pair and hands the same context to both:
//
//   - egl: creates the native display and context from a surfaceless backend
//   - mediagl: wraps the native handles for the media layer, allocates GL
//     memory, attaches it to framebuffers and maps it for host access
//   - render: drives the native context directly, opening frames that clear
//     and draw into whatever framebuffer is bound
//   - export: turns the read-back host pixels into images and files
//   - pipeline: answers a pipeline's context requests and activates the
//     context around worker threads
//   - bridge: runs the whole sequence once
//
// # Quick Start
//
//	b, err := bridge.New(bridge.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	info := mediagl.VideoInfo{Format: mediagl.VideoFormatBGRA, Width: 1920, Height: 1080}
//	pix, err := b.RenderSolid(info, render.Red, nil, nil)
//
// # Threads
//
// A GL context is current on at most one OS thread at a time. Every goroutine
// that touches GL objects must call runtime.LockOSThread and activate the
// wrapped context first, and deactivate it before another thread takes over.
// Activation on a second thread fails with [ErrContextContention].
//
// # Errors
//
// Failures are classified by [ErrInitialization], [ErrCompatibility],
// [ErrContention], [ErrResource] and [ErrRender]; use errors.Is.
package glbridge

// Version is the current version of the library.
const Version = "0.1.0"
