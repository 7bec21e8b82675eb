package scene

import (
	"github.com/HugoPeters1024/vk-rays/types"
)

// Sphere is a procedural primitive. Unlike triangle meshes the device
// never sees its surface as geometry; it only sees the bounding box and
// runs an intersection program against the center/radius record.
type Sphere struct {
	Center        types.Vec3
	Radius        float32
	MaterialIndex uint32
}

// SphereSize is the byte size of a single sphere record on the device:
// center, radius and material index packed into 5 words plus padding to
// keep records 8-byte aligned.
const SphereSize = 24

// Bounds returns the object-space bounding box of the sphere. This is
// what the acceleration structure builder indexes; the exact surface is
// recovered at trace time by the intersection program.
func (s *Sphere) Bounds() types.AABB {
	r := types.XYZ(s.Radius, s.Radius, s.Radius)
	return types.AABB{
		Min: s.Center.Sub(r),
		Max: s.Center.Add(r),
	}
}

// Validate checks the sphere parameters.
func (s *Sphere) Validate() error {
	if s.Radius <= 0 {
		return ErrSphereRadius
	}
	return nil
}
