package renderertest

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-space/engine/kernel"
	"github.com/Carmen-Shannon/oxy-space/kernels"
)

// Kernel builds the named kernel straight from the embedded WGSL sources, reflected but not
// cross-compiled. The fake device never reads SPIR-V, so layers can be tested against their real
// binding layout without a kernel build.
//
// Parameters:
//   - name: the kernel name, e.g. "overlay"
//
// Returns:
//   - kernel.Binary: the kernel with WGSL, entry points and bindings set
//   - error: a preprocessing or reflection error
func Kernel(name string) (kernel.Binary, error) {
	wgsl, err := kernel.Preprocess(kernels.Source, name+".wgsl")
	if err != nil {
		return kernel.Binary{}, fmt.Errorf("failed to preprocess kernel %q: %w", name, err)
	}
	refl, err := kernel.Reflect(wgsl)
	if err != nil {
		return kernel.Binary{}, fmt.Errorf("failed to reflect kernel %q: %w", name, err)
	}
	return kernel.Binary{
		Name:        name,
		Version:     "source",
		WGSL:        wgsl,
		EntryPoints: refl.EntryPoints,
		Bindings:    refl.Bindings,
	}, nil
}
