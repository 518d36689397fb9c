package camera

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-space/common"
)

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL Camera struct in kernels/common.wgsl.
// Size: 96 bytes.
type GPUCameraUniform struct {
	ViewProj       [16]float32  // offset  0: combined view-projection matrix (mat4x4<f32>)
	Eye            common.Vec3f // offset 64: world-space camera position (vec3<f32>)
	Focal          float32      // offset 76: pixels per unit of view-space slope, height/2/tan(fovy/2)
	Viewport       [2]float32   // offset 80: surface size in pixels (vec2<f32>)
	MinPixelRadius float32      // offset 88: smallest drawn disc radius in pixels
	_pad           float32      // offset 92: padding to 96 bytes
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Eye[i]))
	}
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(g.Focal))
	binary.LittleEndian.PutUint32(buf[80:], math.Float32bits(g.Viewport[0]))
	binary.LittleEndian.PutUint32(buf[84:], math.Float32bits(g.Viewport[1]))
	binary.LittleEndian.PutUint32(buf[88:], math.Float32bits(g.MinPixelRadius))
	binary.LittleEndian.PutUint32(buf[92:], 0) // _pad
	return buf
}
