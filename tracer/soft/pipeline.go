package soft

import (
	"encoding/binary"

	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
)

// pipeline is a compiled group list. Handles encode the group index in
// their first word; the rest is a per-group pattern so no two handles
// ever compare equal.
type pipeline struct {
	groups     []device.ShaderGroup
	maxBounces uint32
	pushSize   uint32
	destroyed  bool
}

// CreatePipeline implements device.Device.
func (d *Device) CreatePipeline(spec device.PipelineSpec) (device.Pipeline, error) {
	var raygens int
	for _, g := range spec.Groups {
		if g.Entry == "" {
			return nil, device.ErrInvalidPipeline
		}
		switch g.Kind {
		case device.GroupRayGen:
			raygens++
			if g.AnyHit != "" || g.Intersection != "" {
				return nil, device.ErrInvalidPipeline
			}
		case device.GroupMiss:
			if g.AnyHit != "" || g.Intersection != "" {
				return nil, device.ErrInvalidPipeline
			}
		case device.GroupTriangleHit:
			if g.Intersection != "" {
				return nil, device.ErrInvalidPipeline
			}
		case device.GroupProceduralHit:
			if g.Intersection == "" {
				return nil, device.ErrInvalidPipeline
			}
		default:
			return nil, device.ErrInvalidPipeline
		}
	}
	if raygens != 1 {
		return nil, device.ErrInvalidPipeline
	}
	if spec.MaxBounces > maxBounces {
		return nil, device.ErrInvalidPipeline
	}
	if spec.PushConstantSize > 256 {
		return nil, device.ErrInvalidPipeline
	}

	return &pipeline{
		groups:     append([]device.ShaderGroup(nil), spec.Groups...),
		maxBounces: spec.MaxBounces,
		pushSize:   spec.PushConstantSize,
	}, nil
}

// GroupHandle implements device.Pipeline.
func (p *pipeline) GroupHandle(i int) ([]byte, error) {
	if p.destroyed || i < 0 || i >= len(p.groups) {
		return nil, device.ErrInvalidPipeline
	}
	h := make([]byte, handleSize)
	binary.LittleEndian.PutUint32(h, uint32(i))
	for k := 4; k < handleSize; k++ {
		h[k] = byte(i*31+k) ^ 0xA5
	}
	return h, nil
}

func (p *pipeline) Destroy() {
	p.destroyed = true
}

// groupOf decodes a binding table record back to its shader group.
func (p *pipeline) groupOf(record []byte) (device.ShaderGroup, bool) {
	if len(record) < handleSize {
		return device.ShaderGroup{}, false
	}
	i := int(binary.LittleEndian.Uint32(record))
	if i < 0 || i >= len(p.groups) {
		return device.ShaderGroup{}, false
	}
	want, err := p.GroupHandle(i)
	if err != nil {
		return device.ShaderGroup{}, false
	}
	for k := range want {
		if record[k] != want[k] {
			return device.ShaderGroup{}, false
		}
	}
	return p.groups[i], true
}
