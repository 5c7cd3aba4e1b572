//go:build !darwin

package compute

// Disabled off darwin due to EGL/WebGPU conflicts with NVIDIA on X11
const gpuSupported = false

const gpuDisabledReason = "Compute: disabled on this platform (EGL conflict workaround), using CPU kernel"
