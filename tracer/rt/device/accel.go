package device

import (
	"github.com/HugoPeters1024/vk-rays/types"
)

// AccelStruct is a built acceleration structure. Its address is what
// trace calls and TLAS instance records reference.
type AccelStruct interface {
	Address() uint64

	// Destroy releases the structure. The caller guarantees no
	// in-flight dispatch can still traverse it.
	Destroy()
}

// TriangleGeometry describes one indexed triangle geometry inside a
// BLAS. Vertices are read at VertexStride from VertexBuffer; positions
// are the first three float32 of each vertex.
type TriangleGeometry struct {
	VertexBuffer Buffer
	VertexStride uint32
	VertexCount  uint32

	IndexBuffer Buffer

	// FirstIndex/IndexCount select this geometry's triangles from
	// the shared index buffer. IndexCount is a multiple of 3.
	FirstIndex uint32
	IndexCount uint32

	// Opaque geometry skips any-hit shading.
	Opaque bool
}

// AABBGeometry describes procedural geometry: Count axis-aligned boxes
// of 6 float32 (min xyz, max xyz) read from Buffer at 24-byte stride.
// The intersection program supplies the actual surface.
type AABBGeometry struct {
	Buffer Buffer
	Count  uint32
	Opaque bool
}

// BLASSpec is the input to BuildBLAS. Exactly one of Triangles or
// AABBs must be non-empty; a structure mixes geometries of one class
// only.
type BLASSpec struct {
	Triangles []TriangleGeometry
	AABBs     []AABBGeometry
}

// InstanceDesc places one BLAS in a top level structure.
type InstanceDesc struct {
	Transform types.Transform3x4

	// CustomIndex travels to hit programs verbatim. Only the low 24
	// bits are representable.
	CustomIndex uint32

	// Mask gates visibility against the trace call's ray mask.
	Mask uint8

	// HitGroupOffset is added to the geometry index when selecting
	// the hit record for this instance.
	HitGroupOffset uint32

	BLAS AccelStruct
}

// MaxCustomIndex is the largest representable instance custom index.
const MaxCustomIndex = 1<<24 - 1
