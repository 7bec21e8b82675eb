package rt

import (
	"fmt"

	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
)

// Device program entry points. The software device maps these names to
// its kernel functions; a hardware backend would map them to SPIR-V
// entry points of the same names.
const (
	EntryRayGen          = "raygen"
	EntryMiss            = "miss"
	EntryTriangleHit     = "triangle_closest_hit"
	EntryTriangleAnyHit  = "triangle_any_hit"
	EntrySphereHit       = "sphere_closest_hit"
	EntrySphereIntersect = "sphere_intersect"
)

// GroupSet records where each shader group landed in the pipeline, so
// the binding table compiler can ask for handles by role instead of by
// raw index. Absent groups are -1.
type GroupSet struct {
	RayGen      int
	Miss        int
	TriHit      int
	TriAlphaHit int
	SphereHit   int
}

// BuildPipeline creates the ray-tracing pipeline for a scene shape:
// hit groups are shared across meshes (per-record payloads carry the
// per-mesh buffer addresses), so only the presence of alpha-tested
// geometry and procedural spheres changes the group list.
func BuildPipeline(dev device.Device, needAlpha, needSpheres bool, bounces uint32) (device.Pipeline, GroupSet, error) {
	set := GroupSet{RayGen: -1, Miss: -1, TriHit: -1, TriAlphaHit: -1, SphereHit: -1}

	var groups []device.ShaderGroup
	add := func(g device.ShaderGroup) int {
		groups = append(groups, g)
		return len(groups) - 1
	}

	set.RayGen = add(device.ShaderGroup{Kind: device.GroupRayGen, Entry: EntryRayGen})
	set.Miss = add(device.ShaderGroup{Kind: device.GroupMiss, Entry: EntryMiss})
	set.TriHit = add(device.ShaderGroup{Kind: device.GroupTriangleHit, Entry: EntryTriangleHit})
	if needAlpha {
		set.TriAlphaHit = add(device.ShaderGroup{
			Kind:   device.GroupTriangleHit,
			Entry:  EntryTriangleHit,
			AnyHit: EntryTriangleAnyHit,
		})
	}
	if needSpheres {
		set.SphereHit = add(device.ShaderGroup{
			Kind:         device.GroupProceduralHit,
			Entry:        EntrySphereHit,
			Intersection: EntrySphereIntersect,
		})
	}

	limits := dev.Limits()
	if bounces > limits.MaxBounces {
		bounces = limits.MaxBounces
	}

	p, err := dev.CreatePipeline(device.PipelineSpec{
		Groups:           groups,
		MaxBounces:       bounces,
		PushConstantSize: PushSize,
	})
	if err != nil {
		return nil, set, fmt.Errorf("pipeline: %w", err)
	}
	return p, set, nil
}
