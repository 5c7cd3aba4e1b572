// Package compute runs the SDF kernel on the GPU via WebGPU/Metal.
// This runs completely independently of raylib's OpenGL rendering.
package compute

import (
	"fmt"
	"sync"

	"sdfplay/internal/kernel"

	"github.com/cogentcore/webgpu/wgpu"
)

// System owns the WebGPU device. There is one per process; pipelines are
// compiled once and looked up by name.
type System struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu        sync.Mutex
	pipelines map[string]*Pipeline
}

// Pipeline is one compiled entry point together with the layout its bind
// groups are built from.
type Pipeline struct {
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
}

type Buffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

// BindingKind describes one @binding slot of a compute layout.
type BindingKind uint8

const (
	BindingStorage BindingKind = iota
	BindingReadOnlyStorage
	BindingUniform
)

var bindingTypes = [...]wgpu.BufferBindingType{
	BindingStorage:         wgpu.BufferBindingTypeStorage,
	BindingReadOnlyStorage: wgpu.BufferBindingTypeReadOnlyStorage,
	BindingUniform:         wgpu.BufferBindingTypeUniform,
}

// AdapterInfo describes the GPU picked at start-up.
type AdapterInfo struct {
	Name       string
	Vendor     string
	Backend    string
	DeviceType string
	Driver     string
}

var (
	system     *System
	systemOnce sync.Once
	systemErr  error
)

// Initialize opens the GPU device on first use; later calls return the same
// result.
func Initialize() (AdapterInfo, error) {
	systemOnce.Do(func() {
		system, systemErr = open()
	})
	if systemErr != nil {
		return AdapterInfo{}, systemErr
	}

	info := system.adapter.GetInfo()
	return AdapterInfo{
		Name:       info.Name,
		Vendor:     info.VendorName,
		Backend:    info.BackendType.String(),
		DeviceType: info.AdapterType.String(),
		Driver:     info.DriverDescription,
	}, nil
}

// Get returns the shared system, nil before a successful Initialize.
func Get() *System {
	return system
}

func open() (*System, error) {
	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %w", kernel.ErrUnavailable, err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %w", kernel.ErrUnavailable, err)
	}

	return &System{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     device.GetQueue(),
		pipelines: make(map[string]*Pipeline),
	}, nil
}

// CreateLayout builds a bind group layout, one entry per kind in @binding
// order.
func (s *System) CreateLayout(label string, kinds ...BindingKind) (*wgpu.BindGroupLayout, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, len(kinds))
	for i, kind := range kinds {
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     wgpu.BufferBindingLayout{Type: bindingTypes[kind]},
		}
	}

	layout, err := s.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group layout %s: %w", label, err)
	}
	return layout, nil
}

// CreatePipeline compiles entryPoint of a WGSL module against layout. Entry
// points compiled against the same layout can be bound to the same buffers.
func (s *System) CreatePipeline(name, wgsl, entryPoint string, layout *wgpu.BindGroupLayout) (*Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pipelines[name]; ok {
		return p, nil
	}

	module, err := s.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: wgsl},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: shader: %w", name, err)
	}
	defer module.Release()

	pipelineLayout, err := s.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            name,
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: layout: %w", name, err)
	}
	defer pipelineLayout.Release()

	cp, err := s.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  name,
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", name, err)
	}

	p := &Pipeline{pipeline: cp, layout: layout}
	s.pipelines[name] = p
	return p, nil
}

// CreateBuffer allocates an uninitialized buffer.
func (s *System) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*Buffer, error) {
	buf, err := s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("buffer %s: %w", label, err)
	}
	return &Buffer{buffer: buf, size: size}, nil
}

// CreateBufferWithData allocates a buffer holding data.
func (s *System) CreateBufferWithData(label string, data []byte, usage wgpu.BufferUsage) (*Buffer, error) {
	buf, err := s.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: data,
		Usage:    usage,
	})
	if err != nil {
		return nil, fmt.Errorf("buffer %s: %w", label, err)
	}
	return &Buffer{buffer: buf, size: uint64(len(data))}, nil
}

func (s *System) WriteBuffer(buf *Buffer, offset uint64, data []byte) {
	s.queue.WriteBuffer(buf.buffer, offset, data)
}

// Pass is one compute dispatch. Buffers are bound in @binding order.
// Readback, if set, is copied out after the pass and returned by Run; it
// must have been created with BufferUsageCopySrc.
type Pass struct {
	Pipeline   *Pipeline
	Buffers    []*Buffer
	Workgroups uint32
	Readback   *Buffer
}

// Run encodes the pass and the readback copy into one submission and blocks
// until the GPU has finished.
func (s *System) Run(p Pass) ([]byte, error) {
	entries := make([]wgpu.BindGroupEntry, len(p.Buffers))
	for i, buf := range p.Buffers {
		entries[i] = wgpu.BindGroupEntry{Binding: uint32(i), Buffer: buf.buffer, Size: buf.size}
	}
	bindGroup, err := s.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  p.Pipeline.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group: %w", err)
	}
	defer bindGroup.Release()

	var staging *wgpu.Buffer
	if p.Readback != nil {
		staging, err = s.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "readback",
			Size:  p.Readback.size,
			Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("readback buffer: %w", err)
		}
		defer staging.Release()
	}

	encoder, err := s.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("command encoder: %w", err)
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.Pipeline.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(p.Workgroups, 1, 1)
	pass.End()
	pass.Release()

	if staging != nil {
		encoder.CopyBufferToBuffer(p.Readback.buffer, 0, staging, 0, p.Readback.size)
	}

	commands, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish commands: %w", err)
	}
	s.queue.Submit(commands)
	commands.Release()

	if staging == nil {
		return nil, nil
	}
	return s.mapRead(staging, p.Readback.size)
}

// mapRead maps a staging buffer and copies its contents out.
func (s *System) mapRead(staging *wgpu.Buffer, size uint64) ([]byte, error) {
	done := make(chan wgpu.BufferMapAsyncStatus, 1)
	err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		done <- status
	})
	if err != nil {
		return nil, fmt.Errorf("map readback: %w", err)
	}

	s.device.Poll(true, nil)
	if status := <-done; status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map readback: %v", status)
	}

	mapped := staging.GetMappedRange(0, uint(size))
	out := make([]byte, len(mapped))
	copy(out, mapped)
	staging.Unmap()
	return out, nil
}

// Release frees the device and every cached pipeline.
func (s *System) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pipelines {
		p.pipeline.Release()
	}
	s.pipelines = nil

	s.queue.Release()
	s.device.Release()
	s.adapter.Release()
	s.instance.Release()
}

func (b *Buffer) Release() {
	b.buffer.Release()
}

// ToBytes views a slice of plain values as bytes for upload.
func ToBytes[T any](data []T) []byte {
	return wgpu.ToBytes(data)
}

// FromBytes views read-back bytes as a slice of T.
func FromBytes[T any](data []byte) []T {
	return wgpu.FromBytes[T](data)
}
