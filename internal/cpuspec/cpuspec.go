// Package cpuspec reports the host CPU and the vector extensions the DSP
// kernels can use.
package cpuspec

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// SIMD levels, widest first.
const (
	LevelAVX512  = "avx512"
	LevelAVX2    = "avx2"
	LevelSSE2    = "sse2"
	LevelNEON    = "neon"
	LevelGeneric = "generic"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName     string   `json:"brand_name"`
	Arch          string   `json:"arch"`
	PhysicalCores int      `json:"physical_cores"`
	LogicalCores  int      `json:"logical_cores"`
	Features      []string `json:"features"`
}

// GetCPUSpec reads the running CPU.
func GetCPUSpec() CPUSpec {
	return fromCPU(&cpuid.CPU)
}

func fromCPU(c *cpuid.CPUInfo) CPUSpec {
	spec := CPUSpec{
		BrandName:     c.BrandName,
		Arch:          runtime.GOARCH,
		PhysicalCores: c.PhysicalCores,
		LogicalCores:  c.LogicalCores,
	}
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.SSE2, "sse2"},
		{cpuid.SSE4, "sse4.1"},
		{cpuid.AVX, "avx"},
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma3"},
		{cpuid.AVX512F, "avx512f"},
		{cpuid.ASIMD, "asimd"},
	} {
		if c.Supports(f.id) {
			spec.Features = append(spec.Features, f.name)
		}
	}
	if spec.LogicalCores == 0 {
		spec.LogicalCores = runtime.NumCPU()
	}
	return spec
}

// Has reports whether feature is in the feature list.
func (c CPUSpec) Has(feature string) bool {
	for _, f := range c.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// SIMDLevel returns the widest vector level available.
func (c CPUSpec) SIMDLevel() string {
	switch {
	case c.Has("avx512f"):
		return LevelAVX512
	case c.Has("avx2") && c.Has("fma3"):
		return LevelAVX2
	case c.Has("sse2"):
		return LevelSSE2
	case c.Has("asimd"):
		return LevelNEON
	}
	return LevelGeneric
}
