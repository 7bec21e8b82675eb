package scene

import "errors"

var (
	// ErrMeshIndicesNotTriangles is returned when a mesh or geometry
	// block index count is not a multiple of 3.
	ErrMeshIndicesNotTriangles = errors.New("scene: mesh index count is not a multiple of 3")

	// ErrMeshBlockOutOfRange is returned when a geometry block
	// references indices past the end of the mesh index buffer.
	ErrMeshBlockOutOfRange = errors.New("scene: geometry block exceeds mesh index buffer")

	// ErrMeshIndexOutOfRange is returned when a mesh index references
	// a vertex past the end of the vertex buffer.
	ErrMeshIndexOutOfRange = errors.New("scene: index references non-existent vertex")

	// ErrUnknownMesh is returned when an instance references a mesh
	// that was never added to the scene.
	ErrUnknownMesh = errors.New("scene: instance references unknown mesh")

	// ErrUnknownMaterial is returned when a geometry block references
	// a material that was never added to the scene.
	ErrUnknownMaterial = errors.New("scene: geometry block references unknown material")

	// ErrSphereRadius is returned when a sphere is declared with a
	// non-positive radius.
	ErrSphereRadius = errors.New("scene: sphere radius must be positive")
)
