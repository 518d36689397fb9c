package scene

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-space/common"
)

// GPUBody is the GPU-aligned representation of one body, matching the WGSL Body struct in
// kernels/common.wgsl.
// Size: 32 bytes.
type GPUBody struct {
	Position [3]float32 // offset  0: position in AU
	Radius   float32    // offset 12: radius in AU
	Color    [3]float32 // offset 16: linear RGB
	_pad     float32    // offset 28: padding to 32 bytes
}

// GPUBodySize is the byte size of one GPUBody.
const GPUBodySize = uint64(unsafe.Sizeof(GPUBody{}))

// instanceSize is the byte size of one projected body written by the bodies kernel.
const instanceSize = 32

// trailColorSize is the byte size of one trail color (vec4<f32>).
const trailColorSize = 16

// trailParamsSize is the byte size of the trail fade uniform.
const trailParamsSize = 16

// marshalBodies packs the static body attributes and the sampled positions.
//
// Parameters:
//   - dst: reused when large enough
//   - positions: packed xyz triples, one per body
//   - radius, color: the static attributes, one per body
//
// Returns:
//   - []GPUBody: the packed bodies
func marshalBodies(dst []GPUBody, positions []float32, radius []float32, color []common.Vec3f) []GPUBody {
	dst = dst[:0]
	for i := range radius {
		dst = append(dst, GPUBody{
			Position: [3]float32{positions[3*i], positions[3*i+1], positions[3*i+2]},
			Radius:   radius[i],
			Color:    color[i],
		})
	}
	return dst
}
