// Package device declares the interface the tracer core needs from a
// hardware ray-tracing API: buffers with stable 64-bit device
// addresses, acceleration structure builds, pipelines that expose
// opaque shader group handles, and a ray dispatch with push constants.
//
// The package contains no implementation. tracer/soft provides a
// software device; a hardware backend would wrap a Vulkan-class API
// behind the same interfaces.
package device

// BufferUsage is a bitmask describing how a buffer will be used.
type BufferUsage uint32

const (
	// UsageStorage marks buffers the trace programs read through
	// device addresses (vertices, indices, materials, spheres).
	UsageStorage BufferUsage = 1 << iota

	// UsageAccelInput marks buffers consumed by acceleration
	// structure builds.
	UsageAccelInput

	// UsageBindingTable marks the shader binding table buffer.
	UsageBindingTable

	// UsageHostVisible requests host read/write access. Buffers
	// without it reject Read and accept Write only as a staged
	// upload before first use.
	UsageHostVisible
)

// Buffer is a device allocation with a stable address. The address
// never changes for the lifetime of the buffer; records that embed it
// stay valid until Free.
type Buffer interface {
	// Address returns the 64-bit device address of byte 0.
	Address() uint64

	// Size returns the allocation size in bytes.
	Size() uint64

	// Write copies host bytes into the buffer at offset.
	Write(offset uint64, data []byte) error

	// Read copies buffer bytes at offset back to the host. It is
	// only valid on UsageHostVisible buffers.
	Read(offset uint64, data []byte) error

	// Free releases the allocation. The caller guarantees no
	// in-flight dispatch can still read it.
	Free()
}

// Limits reports the device constants the binding table compiler and
// the arena need.
type Limits struct {
	// ShaderGroupHandleSize is the byte size of one opaque group
	// handle as returned by Pipeline.GroupHandle.
	ShaderGroupHandleSize uint32

	// ShaderGroupHandleAlignment is the required alignment of every
	// record stride within a binding table region.
	ShaderGroupHandleAlignment uint32

	// ShaderGroupBaseAlignment is the required alignment of each
	// region base address.
	ShaderGroupBaseAlignment uint32

	// MinBufferAlignment is the minimum alignment CreateBuffer
	// honors for any requested alignment below it.
	MinBufferAlignment uint32

	// MaxBounces caps the trace recursion the device supports.
	MaxBounces uint32
}

// Device is the host handle to one ray-tracing capable device.
//
// Build calls are ordered before subsequent DispatchRays calls by the
// implementation; the core never inserts barriers itself.
type Device interface {
	Name() string
	Limits() Limits

	// CreateBuffer allocates size bytes at the given alignment.
	CreateBuffer(size uint64, align uint32, usage BufferUsage) (Buffer, error)

	// BuildBLAS builds a bottom level acceleration structure from
	// triangle or AABB geometry.
	BuildBLAS(spec BLASSpec) (AccelStruct, error)

	// BuildTLAS builds a top level acceleration structure over the
	// given instances.
	BuildTLAS(instances []InstanceDesc) (AccelStruct, error)

	// CreatePipeline compiles the declared shader groups into a
	// ray-tracing pipeline.
	CreatePipeline(spec PipelineSpec) (Pipeline, error)

	// DispatchRays launches width x height ray generation threads
	// with the given binding table and push constant block.
	DispatchRays(p Pipeline, table BindingTable, width, height uint32, push []byte) error

	// WaitFrame blocks until every dispatch issued so far has
	// retired. Freeing resources a dispatch may read is only legal
	// after it returns.
	WaitFrame() error

	// Close releases the device and everything still allocated
	// from it.
	Close() error
}

// Refitter is optionally implemented by devices that can update a top
// level acceleration structure in place when only instance transforms
// changed. Callers must fall back to BuildTLAS when the instance
// count, BLAS references or hit group offsets differ from the ones the
// structure was built with.
type Refitter interface {
	RefitTLAS(as AccelStruct, instances []InstanceDesc) error
}
