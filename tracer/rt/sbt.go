package rt

import (
	"encoding/binary"
	"fmt"

	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
)

// HitRecordSpec declares one hit region record: the pipeline group
// whose handle it carries plus the buffer addresses its programs
// dereference. Triangle records fill the first four addresses; sphere
// records fill Spheres and Materials.
type HitRecordSpec struct {
	Group int

	Vertices  uint64
	Indices   uint64
	Offsets   uint64
	Materials uint64
	Spheres   uint64
}

// hitPayloadSize is the byte size of the address payload following the
// group handle in every hit record: four 64-bit device addresses.
const hitPayloadSize = 32

// Hit record payload offsets, relative to the end of the group handle.
const (
	hitVertices  = 0 // triangle records; Spheres for procedural ones
	hitIndices   = 8
	hitOffsets   = 16
	hitMaterials = 24
)

// TableLayout declares the record content of a binding table.
type TableLayout struct {
	RayGen int
	Miss   []int
	Hits   []HitRecordSpec
}

// SBT is a compiled shader binding table: one buffer carrying the
// raygen, miss and hit regions at device-aligned offsets.
type SBT struct {
	Buffer device.Buffer
	Table  device.BindingTable

	// HitRecords is the number of records in the hit region. TLAS
	// instance hit group offsets must stay below it.
	HitRecords uint32
}

// Free releases the table buffer.
func (s *SBT) Free(arena *Arena) {
	if s == nil {
		return
	}
	arena.Free(s.Buffer)
}

// CompileSBT lays out and uploads a shader binding table. Group
// handles are copied verbatim from the pipeline; payloads are appended
// after the handle in each hit record. All strides within a region are
// uniform and rounded to the handle alignment; region bases are rounded
// to the base alignment.
func CompileSBT(arena *Arena, limits device.Limits, p device.Pipeline, layout TableLayout) (*SBT, error) {
	if layout.RayGen < 0 || len(layout.Miss) == 0 || len(layout.Hits) == 0 {
		return nil, ErrTableLayout
	}

	handleSize := uint64(limits.ShaderGroupHandleSize)
	handleAlign := uint64(limits.ShaderGroupHandleAlignment)
	baseAlign := uint64(limits.ShaderGroupBaseAlignment)

	rgStride := alignUp(handleSize, handleAlign)
	missStride := alignUp(handleSize, handleAlign)
	hitStride := alignUp(handleSize+hitPayloadSize, handleAlign)

	rgBase := uint64(0)
	missBase := alignUp(rgBase+rgStride, baseAlign)
	hitBase := alignUp(missBase+uint64(len(layout.Miss))*missStride, baseAlign)
	total := hitBase + uint64(len(layout.Hits))*hitStride

	raw := make([]byte, total)

	handle := func(group int) ([]byte, error) {
		h, err := p.GroupHandle(group)
		if err != nil {
			return nil, fmt.Errorf("sbt: group %d: %w", group, err)
		}
		if uint64(len(h)) != handleSize {
			return nil, fmt.Errorf("sbt: group %d: handle size %d, device reports %d",
				group, len(h), handleSize)
		}
		return h, nil
	}

	h, err := handle(layout.RayGen)
	if err != nil {
		return nil, err
	}
	copy(raw[rgBase:], h)

	for i, group := range layout.Miss {
		if h, err = handle(group); err != nil {
			return nil, err
		}
		copy(raw[missBase+uint64(i)*missStride:], h)
	}

	for i, rec := range layout.Hits {
		if h, err = handle(rec.Group); err != nil {
			return nil, err
		}
		base := hitBase + uint64(i)*hitStride
		copy(raw[base:], h)

		payload := raw[base+handleSize:]
		if rec.Spheres != 0 {
			binary.LittleEndian.PutUint64(payload[hitVertices:], rec.Spheres)
		} else {
			binary.LittleEndian.PutUint64(payload[hitVertices:], rec.Vertices)
			binary.LittleEndian.PutUint64(payload[hitIndices:], rec.Indices)
			binary.LittleEndian.PutUint64(payload[hitOffsets:], rec.Offsets)
		}
		binary.LittleEndian.PutUint64(payload[hitMaterials:], rec.Materials)
	}

	buf, err := arena.Upload(raw, uint32(baseAlign), device.UsageBindingTable)
	if err != nil {
		return nil, fmt.Errorf("sbt: %w", err)
	}

	return &SBT{
		Buffer: buf,
		Table: device.BindingTable{
			RayGen: device.StridedRegion{Buffer: buf, Offset: rgBase, Stride: uint32(rgStride), Size: rgStride},
			Miss:   device.StridedRegion{Buffer: buf, Offset: missBase, Stride: uint32(missStride), Size: uint64(len(layout.Miss)) * missStride},
			Hit:    device.StridedRegion{Buffer: buf, Offset: hitBase, Stride: uint32(hitStride), Size: uint64(len(layout.Hits)) * hitStride},
		},
		HitRecords: uint32(len(layout.Hits)),
	}, nil
}
