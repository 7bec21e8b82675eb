package device

// GroupKind tags a shader group declaration. Hit groups come in two
// flavors so the host can keep triangle and procedural bookkeeping
// apart without re-deriving it from group internals.
type GroupKind uint8

const (
	GroupRayGen GroupKind = iota
	GroupMiss
	GroupTriangleHit
	GroupProceduralHit
)

func (k GroupKind) String() string {
	switch k {
	case GroupRayGen:
		return "raygen"
	case GroupMiss:
		return "miss"
	case GroupTriangleHit:
		return "triangle-hit"
	case GroupProceduralHit:
		return "procedural-hit"
	}
	return "unknown"
}

// ShaderGroup declares one pipeline shader group. Entry names identify
// the programs to the device; the software device maps them to kernel
// functions, a hardware device would map them to SPIR-V entry points.
type ShaderGroup struct {
	Kind GroupKind

	// Entry is the main program of the group: the ray generation,
	// miss or closest-hit entry point.
	Entry string

	// AnyHit optionally names an any-hit program for hit groups
	// over non-opaque geometry.
	AnyHit string

	// Intersection names the intersection program of a
	// GroupProceduralHit group. Required for that kind, forbidden
	// otherwise.
	Intersection string
}

// PipelineSpec is the input to CreatePipeline. Group order is
// significant: it fixes the handle order the binding table compiler
// relies on.
type PipelineSpec struct {
	Groups []ShaderGroup

	// MaxBounces is the recursion depth the pipeline is created
	// for. Must not exceed Limits.MaxBounces.
	MaxBounces uint32

	// PushConstantSize is the byte size of the push constant block
	// DispatchRays will receive.
	PushConstantSize uint32
}

// Pipeline is a compiled ray-tracing pipeline.
type Pipeline interface {
	// GroupHandle returns the opaque handle of group index i, of
	// length Limits.ShaderGroupHandleSize. The binding table copies
	// it verbatim and never inspects it.
	GroupHandle(i int) ([]byte, error)

	Destroy()
}

// StridedRegion is one region of a shader binding table: a base
// address inside a buffer plus a uniform record stride.
type StridedRegion struct {
	Buffer Buffer
	Offset uint64
	Stride uint32
	Size   uint64
}

// Records returns the number of records the region holds.
func (r StridedRegion) Records() uint32 {
	if r.Stride == 0 {
		return 0
	}
	return uint32(r.Size / uint64(r.Stride))
}

// BindingTable groups the three regions a trace dispatch consumes.
type BindingTable struct {
	RayGen StridedRegion
	Miss   StridedRegion
	Hit    StridedRegion
}
