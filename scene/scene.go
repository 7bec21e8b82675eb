package scene

import (
	"github.com/HugoPeters1024/vk-rays/types"
)

// ChangeSet summarizes what happened to a scene since the tracer last
// synchronized with it. Topology changes force acceleration structure
// and binding table rebuilds; transform and attribute changes only need
// a top level refit and a small buffer update.
type ChangeSet struct {
	Topology   bool
	Transforms bool
	Attributes bool
}

// Any reports whether the set records any change at all.
func (c ChangeSet) Any() bool {
	return c.Topology || c.Transforms || c.Attributes
}

// Scene owns everything the tracer renders: geometry, materials,
// instances and the camera. It is not safe for concurrent mutation;
// the render loop and the event loop hand it back and forth between
// frames.
type Scene struct {
	Camera *Camera

	Materials []Material
	Meshes    []*Mesh
	Spheres   []Sphere
	Instances []Instance

	changes ChangeSet
}

// NewScene returns an empty scene with a default camera and the default
// material at slot 0.
func NewScene() *Scene {
	return &Scene{
		Camera:    NewCamera(),
		Materials: []Material{DefaultMaterial()},
	}
}

// AddMaterial appends a material and returns its index.
func (s *Scene) AddMaterial(mat Material) uint32 {
	s.Materials = append(s.Materials, mat)
	s.changes.Topology = true
	return uint32(len(s.Materials) - 1)
}

// AddMesh validates and appends a mesh, returning its index. Blocks
// must reference materials already present in the scene.
func (s *Scene) AddMesh(m *Mesh) (int, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	for _, blk := range m.Blocks {
		if blk.MaterialIndex >= uint32(len(s.Materials)) {
			return 0, ErrUnknownMaterial
		}
	}
	s.Meshes = append(s.Meshes, m)
	s.changes.Topology = true
	return len(s.Meshes) - 1, nil
}

// AddSphere appends a procedural sphere to the scene sphere set and
// returns its index within the set.
func (s *Scene) AddSphere(sp Sphere) (int, error) {
	if err := sp.Validate(); err != nil {
		return 0, err
	}
	if sp.MaterialIndex >= uint32(len(s.Materials)) {
		return 0, ErrUnknownMaterial
	}
	s.Spheres = append(s.Spheres, sp)
	s.changes.Topology = true
	return len(s.Spheres) - 1, nil
}

// AddInstance validates and appends an instance, returning its index.
func (s *Scene) AddInstance(inst Instance) (int, error) {
	if inst.Kind == GeomTriangles {
		if inst.MeshIndex < 0 || inst.MeshIndex >= len(s.Meshes) {
			return 0, ErrUnknownMesh
		}
	}
	s.Instances = append(s.Instances, inst)
	s.changes.Topology = true
	return len(s.Instances) - 1, nil
}

// SetInstanceTransform replaces an instance transform. This is the only
// mutation that keeps the acceleration structure topology intact, so
// the tracer can refit instead of rebuilding.
func (s *Scene) SetInstanceTransform(index int, t types.Transform3x4) {
	s.Instances[index].Transform = t
	s.changes.Transforms = true
}

// SetInstanceTint updates the per-instance base color multiplier.
func (s *Scene) SetInstanceTint(index int, tint types.Vec3) {
	s.Instances[index].Tint = tint
	s.changes.Attributes = true
}

// SetInstanceEmission updates the per-instance emission term.
func (s *Scene) SetInstanceEmission(index int, emission types.Vec3) {
	s.Instances[index].Emission = emission
	s.changes.Attributes = true
}

// SetInstanceMask updates an instance visibility mask. Masks live in
// the top level acceleration structure records so this counts as a
// transform-level change.
func (s *Scene) SetInstanceMask(index int, mask uint8) {
	s.Instances[index].Mask = mask
	s.changes.Transforms = true
}

// TakeChanges returns the accumulated change set and clears it.
func (s *Scene) TakeChanges() ChangeSet {
	out := s.changes
	s.changes = ChangeSet{}
	return out
}

// MarkDirty forces a full rebuild on the next synchronization.
func (s *Scene) MarkDirty() {
	s.changes.Topology = true
}

// TriangleCount returns the triangle total across all meshes, not
// counting instancing.
func (s *Scene) TriangleCount() uint32 {
	var total uint32
	for _, m := range s.Meshes {
		total += m.TriangleCount()
	}
	return total
}
