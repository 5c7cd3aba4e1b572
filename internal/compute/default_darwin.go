//go:build darwin

package compute

// Metal on Mac works fine
const gpuSupported = true

const gpuDisabledReason = ""
