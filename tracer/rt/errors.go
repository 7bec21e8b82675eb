package rt

import "errors"

var (
	// ErrNoGeometry is returned when a BLAS build receives a mesh
	// with no triangles or an empty sphere set.
	ErrNoGeometry = errors.New("rt: acceleration structure build with no geometry")

	// ErrOffsetTable is returned when the per-geometry offset table
	// of a multi-geometry BLAS is missing, empty or not monotonic.
	ErrOffsetTable = errors.New("rt: invalid geometry offset table")

	// ErrUnknownBLAS is returned when a TLAS instance references a
	// bottom level structure the builder does not own.
	ErrUnknownBLAS = errors.New("rt: instance references unknown BLAS")

	// ErrHitGroupRange is returned when an instance hit group offset
	// points past the end of the hit region.
	ErrHitGroupRange = errors.New("rt: instance hit group offset out of range")

	// ErrTableLayout is returned when a binding table cannot be laid
	// out: no raygen record, no miss record, or empty hit region.
	ErrTableLayout = errors.New("rt: invalid binding table layout")

	// ErrNotReady is returned by frame operations before Setup.
	ErrNotReady = errors.New("rt: tracer is not set up")
)
