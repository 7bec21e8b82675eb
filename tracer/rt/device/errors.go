package device

import "errors"

var (
	// ErrOutOfMemory is returned when the device cannot satisfy an
	// allocation. Callers treat it as fatal to the operation that
	// needed the memory; nothing retries.
	ErrOutOfMemory = errors.New("device: out of memory")

	// ErrInvalidGeometry is returned by BuildBLAS for empty specs,
	// mixed geometry classes or malformed geometry records.
	ErrInvalidGeometry = errors.New("device: invalid geometry")

	// ErrInvalidInstance is returned by BuildTLAS when an instance
	// references no BLAS or overflows the custom index range.
	ErrInvalidInstance = errors.New("device: invalid instance")

	// ErrInvalidPipeline is returned by CreatePipeline for specs
	// with no raygen group, missing entry points or kind/program
	// mismatches.
	ErrInvalidPipeline = errors.New("device: invalid pipeline")

	// ErrNotHostVisible is returned by Buffer.Read on buffers
	// created without UsageHostVisible.
	ErrNotHostVisible = errors.New("device: buffer is not host visible")

	// ErrOutOfRange is returned by buffer reads and writes that
	// exceed the allocation.
	ErrOutOfRange = errors.New("device: access out of range")
)
