// Package kernel locates, validates and reflects the precompiled GPU kernel modules the renderer runs.
//
// Kernels are authored in WGSL under kernels/, preprocessed and cross-compiled to SPIR-V ahead of
// time by cmd/kernelc, and shipped as a directory holding one .wgsl and one .spv per kernel plus a
// manifest.yaml with checksums. The Provider is the only runtime consumer of that directory.
package kernel

import (
	"fmt"
	"sort"
)

// SPIRVMagic is the first little-endian word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// FormatVersion is the manifest format this build reads and writes.
const FormatVersion = 1

// Stage identifies the pipeline stage an entry point runs in.
type Stage string

const (
	StageVertex   Stage = "vertex"
	StageFragment Stage = "fragment"
	StageCompute  Stage = "compute"
)

// EntryPoint is a named function of a kernel module.
type EntryPoint struct {
	Name  string `yaml:"name"`
	Stage Stage  `yaml:"stage"`
	// WorkgroupSize is only set for compute entry points; omitted dimensions are 1.
	WorkgroupSize [3]uint32 `yaml:"workgroup_size,flow,omitempty"`
}

// BindingKind classifies a resource declaration.
type BindingKind int

const (
	BindingUnknown BindingKind = iota
	BindingUniform
	BindingStorage
	BindingReadOnlyStorage
	BindingTexture
	BindingSampler
)

// String returns the WGSL-ish name of the binding kind.
func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingStorage:
		return "storage"
	case BindingReadOnlyStorage:
		return "read-only-storage"
	case BindingTexture:
		return "texture"
	case BindingSampler:
		return "sampler"
	default:
		return "unknown"
	}
}

// Binding is a reflected @group/@binding resource declaration.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	Type    string
	Kind    BindingKind
	// MinSize is the byte size of the bound type (one element for runtime-sized arrays); 0 when unknown.
	MinSize uint64
}

// Binary is an immutable, validated kernel module.
// Binaries are produced by Provider.Load and are safe to share between goroutines.
type Binary struct {
	Name        string
	Version     string
	WGSL        string
	SPIRV       []byte
	Checksum    string
	EntryPoints []EntryPoint
	Bindings    []Binding
}

// EntryPoint returns the named entry point.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - EntryPoint: the entry point
//   - bool: false if the module declares no such entry point
func (b Binary) EntryPoint(name string) (EntryPoint, bool) {
	for _, e := range b.EntryPoints {
		if e.Name == name {
			return e, true
		}
	}
	return EntryPoint{}, false
}

// EntryPointFor returns the first entry point of the given stage.
func (b Binary) EntryPointFor(stage Stage) (EntryPoint, bool) {
	for _, e := range b.EntryPoints {
		if e.Stage == stage {
			return e, true
		}
	}
	return EntryPoint{}, false
}

// BindGroups returns the bindings grouped by group index, each group sorted by binding.
func (b Binary) BindGroups() map[uint32][]Binding {
	groups := make(map[uint32][]Binding)
	for _, bd := range b.Bindings {
		groups[bd.Group] = append(groups[bd.Group], bd)
	}
	for g := range groups {
		sort.Slice(groups[g], func(i, j int) bool { return groups[g][i].Binding < groups[g][j].Binding })
	}
	return groups
}

// Binding returns the binding declared with the given variable name.
func (b Binary) Binding(name string) (Binding, bool) {
	for _, bd := range b.Bindings {
		if bd.Name == name {
			return bd, true
		}
	}
	return Binding{}, false
}

func (b Binary) String() string {
	return fmt.Sprintf("%s@%s (%d entry points, %d bytes SPIR-V)", b.Name, b.Version, len(b.EntryPoints), len(b.SPIRV))
}
