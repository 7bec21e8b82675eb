package scene

import (
	"github.com/HugoPeters1024/vk-rays/types"
)

// GeometryKind distinguishes the two instance payloads the tracer
// supports.
type GeometryKind uint8

const (
	// GeomTriangles instances a triangle mesh from the scene mesh list.
	GeomTriangles GeometryKind = iota

	// GeomSpheres instances the scene's procedural sphere set.
	GeomSpheres
)

// Visibility masks. An instance is hit by a ray only if the ray mask
// and the instance mask share a set bit.
const (
	MaskPrimary uint8 = 1 << iota
	MaskShadow

	MaskAll uint8 = 0xFF
)

// Instance places geometry in the world. Shading attributes that vary
// per instance (tint, emission) live here explicitly; the device reads
// them from an attribute table indexed by the instance custom index.
type Instance struct {
	Name string

	Kind GeometryKind

	// MeshIndex selects the mesh for GeomTriangles instances. It is
	// ignored for GeomSpheres instances.
	MeshIndex int

	Transform types.Transform3x4

	// Mask gates ray visibility. Zero hides the instance entirely.
	Mask uint8

	// Tint multiplies the material base color of every surface in the
	// instance. Identity is (1, 1, 1).
	Tint types.Vec3

	// Emission is added to the material emission of every surface in
	// the instance, letting one mesh serve as both prop and light.
	Emission types.Vec3
}

// NewInstance returns a visible, untinted instance of the given mesh at
// the identity transform.
func NewInstance(meshIndex int) Instance {
	return Instance{
		Kind:      GeomTriangles,
		MeshIndex: meshIndex,
		Transform: types.IdentityTransform(),
		Mask:      MaskAll,
		Tint:      types.XYZ(1, 1, 1),
	}
}

// NewSphereInstance returns a visible, untinted instance of the scene
// sphere set at the identity transform.
func NewSphereInstance() Instance {
	inst := NewInstance(0)
	inst.Kind = GeomSpheres
	return inst
}
