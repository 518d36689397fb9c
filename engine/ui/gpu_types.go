package ui

import "github.com/Carmen-Shannon/oxy-space/common"

// GPUScreen is the overlay uniform. Matches the WGSL Screen struct in kernels/overlay.wgsl.
// Size: 16 bytes.
type GPUScreen struct {
	Size [2]float32 // offset 0: surface size in pixels (vec2<f32>)
	_pad [2]float32 // offset 8: padding to 16 bytes
}

// Marshal serializes the uniform for upload.
func (g *GPUScreen) Marshal() []byte {
	return common.StructToBytes(g)
}
