package compute

import (
	"log"

	"sdfplay/internal/kernel"
)

// NewDefaultKernel returns the GPU kernel where compute is enabled and works,
// otherwise the CPU reference kernel. The choice is made once at start-up;
// failures after this point surface from Dispatch.
func NewDefaultKernel(capacity int, preferGPU bool) kernel.Kernel {
	if !preferGPU {
		log.Println("Compute: GPU disabled by config, using CPU kernel")
		return kernel.NewCPU()
	}
	if !gpuSupported {
		log.Println(gpuDisabledReason)
		return kernel.NewCPU()
	}

	info, err := Initialize()
	if err != nil {
		log.Printf("Compute shaders unavailable: %v", err)
		return kernel.NewCPU()
	}
	log.Printf("Compute: %s | %s | %s | %s", info.Backend, info.Vendor, info.Name, info.DeviceType)

	k, err := NewSDFKernel(Get(), capacity)
	if err != nil {
		log.Printf("Compute: SDF kernel unavailable: %v", err)
		return kernel.NewCPU()
	}
	return k
}
