package scene

import (
	"github.com/HugoPeters1024/vk-rays/types"
)

// NoTexture marks a material channel that has no texture bound. The
// sentinel travels to the device verbatim so closest-hit code can test
// for it with a single compare.
const NoTexture uint32 = 0xFFFFFFFF

// Material flags. Stored in the device material record.
const (
	// MatFlagAlphaTested marks geometry whose base color texture
	// carries meaningful alpha. Hit groups for such geometry get an
	// any-hit program; fully opaque geometry skips it.
	MatFlagAlphaTested uint32 = 1 << iota
)

// Material is uploaded to the device as 12 contiguous float32/uint32
// words (48 bytes): base color, emission+metallic, then roughness,
// transmission, texture index and flags.
type Material struct {
	Name string

	BaseColor    types.Vec4
	Emission     types.Vec3
	Metallic     float32
	Roughness    float32
	Transmission float32

	// TextureIndex selects the base color texture, or NoTexture.
	TextureIndex uint32

	Flags uint32
}

// MaterialSize is the byte size of a single material record on the device.
const MaterialSize = 48

// AlphaTested reports whether hit groups for this material need an
// any-hit program.
func (m *Material) AlphaTested() bool {
	return m.Flags&MatFlagAlphaTested != 0
}

// Emissive reports whether the material contributes light.
func (m *Material) Emissive() bool {
	return m.Emission.X() > 0 || m.Emission.Y() > 0 || m.Emission.Z() > 0
}

// DefaultMaterial returns the material used when geometry declares none:
// a flat mid-grey diffuse surface with no texture.
func DefaultMaterial() Material {
	return Material{
		Name:         "default",
		BaseColor:    types.XYZW(0.7, 0.7, 0.7, 1),
		TextureIndex: NoTexture,
	}
}
