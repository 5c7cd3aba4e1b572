package compute

import (
	"fmt"

	"sdfplay/internal/kernel"

	"github.com/cogentcore/webgpu/wgpu"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const workgroupSize = 64

// sdfShader evaluates the same field as kernel.CPU. Results are written back
// into the point buffer, one vec4 per invocation.
const sdfShader = `
@group(0) @binding(0) var<storage, read_write> points: array<vec4<f32>>;
@group(0) @binding(1) var<storage, read> positions: array<vec4<f32>>;
@group(0) @binding(2) var<storage, read> properties: array<vec4<f32>>;
// x = blend factor, yzw = shapecast displacement
@group(0) @binding(3) var<uniform> params: vec4<f32>;

const MAX_DISTANCE: f32 = 1000.0;
const SURFACE_EPSILON: f32 = 0.02;
const NORMAL_EPSILON: f32 = 0.001;
const MAX_MARCH_STEPS: i32 = 64;

fn sd_sphere(p: vec3<f32>, radius: f32) -> f32 {
    return length(p) - radius;
}

fn sd_box(p: vec3<f32>, half: vec3<f32>) -> f32 {
    let q = abs(p) - half;
    return length(max(q, vec3<f32>(0.0))) + min(max(q.x, max(q.y, q.z)), 0.0);
}

fn smooth_min(a: f32, b: f32, k: f32) -> f32 {
    if (k <= 0.0) {
        return min(a, b);
    }
    let h = clamp(0.5 + 0.5 * (b - a) / k, 0.0, 1.0);
    return mix(b, a, h) - k * h * (1.0 - h);
}

fn field(p: vec3<f32>) -> f32 {
    var d = MAX_DISTANCE;
    var first = true;
    let blend = max(params.x, 0.0);
    let count = arrayLength(&positions);

    for (var i = 0u; i < count; i = i + 1u) {
        let pos = positions[i];
        // only collision-flagged shapes take part
        if (pos.w != 0.0) {
            continue;
        }
        let props = properties[i];
        let rel = p - pos.xyz;

        var di = MAX_DISTANCE;
        if (props.w == 1.0) {
            di = sd_sphere(rel, props.x);
        } else if (props.w == 2.0) {
            di = sd_box(rel, props.xyz);
        } else {
            continue;
        }

        if (first) {
            d = di;
            first = false;
        } else {
            d = smooth_min(d, di, blend);
        }
    }
    return d;
}

fn field_normal(p: vec3<f32>) -> vec3<f32> {
    let e = NORMAL_EPSILON;
    let n = vec3<f32>(
        field(p + vec3<f32>(e, 0.0, 0.0)) - field(p - vec3<f32>(e, 0.0, 0.0)),
        field(p + vec3<f32>(0.0, e, 0.0)) - field(p - vec3<f32>(0.0, e, 0.0)),
        field(p + vec3<f32>(0.0, 0.0, e)) - field(p - vec3<f32>(0.0, 0.0, e)),
    );
    if (length(n) == 0.0) {
        return vec3<f32>(0.0);
    }
    return normalize(n);
}

@compute @workgroup_size(64)
fn collide(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    if (i >= arrayLength(&points)) {
        return;
    }

    let p = points[i].xyz;
    let d = field(p);
    if (d >= MAX_DISTANCE) {
        points[i] = vec4<f32>(0.0, 0.0, 0.0, d);
        return;
    }
    points[i] = vec4<f32>(field_normal(p), d);
}

@compute @workgroup_size(64)
fn shapecast(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    if (i >= arrayLength(&points)) {
        return;
    }

    let p = points[i].xyz;
    let disp = params.yzw;
    let span = length(disp);
    var result = vec4<f32>(0.0, 0.0, 0.0, 1.0);

    if (span > 0.0) {
        var t = 0.0;
        for (var s = 0; s < MAX_MARCH_STEPS; s = s + 1) {
            let at = p + disp * t;
            var d = field(at);
            if (d < SURFACE_EPSILON) {
                let n = field_normal(at);
                if (dot(n, disp) <= 0.0) {
                    result = vec4<f32>(n, t);
                    break;
                }
                d = SURFACE_EPSILON;
            }
            t = t + d / span;
            if (t >= 1.0) {
                break;
            }
        }
    }
    points[i] = result;
}
`

// SDFKernel dispatches collision and shapecast batches on the GPU.
// Shape buffers are sized once to the registry capacity.
type SDFKernel struct {
	system    *System
	collide   *Pipeline
	shapecast *Pipeline
	layout    *wgpu.BindGroupLayout

	positions  *Buffer
	properties *Buffer
	params     *Buffer

	capacity int
}

// NewSDFKernel compiles both entry points against one shared layout.
func NewSDFKernel(sys *System, capacity int) (*SDFKernel, error) {
	if sys == nil {
		return nil, fmt.Errorf("%w: compute system not initialized", kernel.ErrUnavailable)
	}

	layout, err := sys.CreateLayout("sdf_layout",
		BindingStorage,         // points (in/out)
		BindingReadOnlyStorage, // positions
		BindingReadOnlyStorage, // properties
		BindingUniform,         // params
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kernel.ErrUnavailable, err)
	}

	k := &SDFKernel{system: sys, layout: layout, capacity: capacity}

	k.collide, err = sys.CreatePipeline("sdf_collide", sdfShader, "collide", layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kernel.ErrUnavailable, err)
	}
	k.shapecast, err = sys.CreatePipeline("sdf_shapecast", sdfShader, "shapecast", layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kernel.ErrUnavailable, err)
	}

	shapeSize := uint64(capacity * 16) // vec4<f32>
	k.positions, err = sys.CreateBuffer("shape_positions", shapeSize,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		k.Release()
		return nil, fmt.Errorf("%w: %w", kernel.ErrUnavailable, err)
	}
	k.properties, err = sys.CreateBuffer("shape_properties", shapeSize,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		k.Release()
		return nil, fmt.Errorf("%w: %w", kernel.ErrUnavailable, err)
	}
	k.params, err = sys.CreateBuffer("sdf_params", 16,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		k.Release()
		return nil, fmt.Errorf("%w: %w", kernel.ErrUnavailable, err)
	}

	return k, nil
}

// Dispatch uploads the shape arrays, runs one entry point and reads the
// point buffer back. It blocks until results are available.
func (k *SDFKernel) Dispatch(b kernel.Batch) ([]rl.Vector4, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if len(b.Positions) != k.capacity {
		return nil, fmt.Errorf("%w: %d shape slots, kernel built for %d", kernel.ErrMisconfigured, len(b.Positions), k.capacity)
	}
	if len(b.Points) == 0 {
		return nil, nil
	}

	pipeline := k.collide
	if b.Entry == kernel.EntryShapecast {
		pipeline = k.shapecast
	}

	var disp rl.Vector3
	if b.Entry == kernel.EntryShapecast {
		disp = b.Displacement()
	}
	params := []float32{b.Params[kernel.ParamBlend], disp.X, disp.Y, disp.Z}

	k.system.WriteBuffer(k.positions, 0, ToBytes(b.Positions))
	k.system.WriteBuffer(k.properties, 0, ToBytes(b.Properties))
	k.system.WriteBuffer(k.params, 0, ToBytes(params))

	points, err := k.system.CreateBufferWithData("sdf_points", ToBytes(b.Points),
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kernel.ErrUnavailable, err)
	}
	defer points.Release()

	data, err := k.system.Run(Pass{
		Pipeline:   pipeline,
		Buffers:    []*Buffer{points, k.positions, k.properties, k.params},
		Workgroups: uint32((len(b.Points) + workgroupSize - 1) / workgroupSize),
		Readback:   points,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", kernel.ErrUnavailable, b.Entry, err)
	}

	out := make([]rl.Vector4, len(b.Points))
	copy(out, FromBytes[rl.Vector4](data))
	return out, nil
}

// Release frees the kernel's buffers. Pipelines stay cached in the System.
func (k *SDFKernel) Release() {
	if k.positions != nil {
		k.positions.Release()
	}
	if k.properties != nil {
		k.properties.Release()
	}
	if k.params != nil {
		k.params.Release()
	}
}
