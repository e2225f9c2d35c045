// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access to code written against the
// gpucontext ecosystem.
//
// A GL context has no WebGPU device, queue or adapter, so those are nil;
// the surface format tells consumers which texture layout the shared
// context renders in.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider.
type DeviceHandle = gpucontext.DeviceProvider

// AdapterName is the adapter name reported by DeviceHandle.AdapterInfo.
const AdapterName = "glbridge software rasterizer"

// glDeviceHandle describes a GL context as a device provider.
type glDeviceHandle struct {
	format gputypes.TextureFormat
}

// Device returns nil: a GL context has no WebGPU device.
func (glDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil.
func (glDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil.
func (glDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns the preferred render format of the context.
func (h glDeviceHandle) SurfaceFormat() gputypes.TextureFormat { return h.format }

// AdapterInfo reports the software rasterizer behind the context.
func (glDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: AdapterName, Type: gpucontext.AdapterTypeSoftware}
}

// Ensure glDeviceHandle implements DeviceHandle.
var _ DeviceHandle = glDeviceHandle{}

// RendererCapabilities describes the features supported by a renderer.
type RendererCapabilities struct {
	// MaxTextureSize is the maximum texture dimension.
	MaxTextureSize int

	// RenderableBGRA indicates BGRA textures can be render targets.
	RenderableBGRA bool

	// SupportsTextures indicates RenderTexture is available.
	SupportsTextures bool
}
