package soft

import (
	"encoding/binary"
	"math"

	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
	"github.com/HugoPeters1024/vk-rays/types"
)

// tri is one triangle snapshotted at build time: hardware builds index
// vertex positions once, so later buffer writes do not move geometry
// until the structure is rebuilt.
type tri struct {
	v0, v1, v2 types.Vec3
	geom       uint32
	prim       uint32
	opaque     bool
}

// box is one procedural bounding box snapshotted at build time.
type box struct {
	bounds types.AABB
	geom   uint32
	prim   uint32
	opaque bool
}

type blas struct {
	addr   uint64
	tris   []tri
	boxes  []box
	bounds types.AABB
	freed  bool
}

func (b *blas) Address() uint64 { return b.addr }
func (b *blas) Destroy()        { b.freed = true }

type tlas struct {
	addr      uint64
	instances []instance
	freed     bool
}

// instance caches the world-to-object transform next to the build
// inputs so traversal does not invert matrices per ray.
type instance struct {
	desc         device.InstanceDesc
	blas         *blas
	objFromWorld types.Mat4
	worldFromObj types.Mat4
}

func (t *tlas) Address() uint64 { return t.addr }
func (t *tlas) Destroy()        { t.freed = true }

// BuildBLAS implements device.Device.
func (d *Device) BuildBLAS(spec device.BLASSpec) (device.AccelStruct, error) {
	if len(spec.Triangles) == 0 && len(spec.AABBs) == 0 {
		return nil, device.ErrInvalidGeometry
	}
	if len(spec.Triangles) > 0 && len(spec.AABBs) > 0 {
		return nil, device.ErrInvalidGeometry
	}

	out := &blas{bounds: types.NewAABB()}

	for g, geo := range spec.Triangles {
		if geo.VertexBuffer == nil || geo.IndexBuffer == nil || geo.IndexCount%3 != 0 || geo.IndexCount == 0 {
			return nil, device.ErrInvalidGeometry
		}
		idxBytes, err := d.resolve(geo.IndexBuffer.Address()+uint64(geo.FirstIndex)*4, uint64(geo.IndexCount)*4)
		if err != nil {
			return nil, device.ErrInvalidGeometry
		}
		for t := uint32(0); t < geo.IndexCount/3; t++ {
			var verts [3]types.Vec3
			for k := 0; k < 3; k++ {
				idx := binary.LittleEndian.Uint32(idxBytes[(t*3+uint32(k))*4:])
				if idx >= geo.VertexCount {
					return nil, device.ErrInvalidGeometry
				}
				pos, err := d.resolve(geo.VertexBuffer.Address()+uint64(idx)*uint64(geo.VertexStride), 12)
				if err != nil {
					return nil, device.ErrInvalidGeometry
				}
				verts[k] = types.XYZ(f32(pos[0:]), f32(pos[4:]), f32(pos[8:]))
				out.bounds.Extend(verts[k])
			}
			out.tris = append(out.tris, tri{
				v0: verts[0], v1: verts[1], v2: verts[2],
				geom:   uint32(g),
				prim:   t,
				opaque: geo.Opaque,
			})
		}
	}

	for g, geo := range spec.AABBs {
		if geo.Buffer == nil || geo.Count == 0 {
			return nil, device.ErrInvalidGeometry
		}
		raw, err := d.resolve(geo.Buffer.Address(), uint64(geo.Count)*24)
		if err != nil {
			return nil, device.ErrInvalidGeometry
		}
		for p := uint32(0); p < geo.Count; p++ {
			rec := raw[p*24:]
			b := types.AABB{
				Min: types.XYZ(f32(rec[0:]), f32(rec[4:]), f32(rec[8:])),
				Max: types.XYZ(f32(rec[12:]), f32(rec[16:]), f32(rec[20:])),
			}
			out.bounds.Union(b)
			out.boxes = append(out.boxes, box{
				bounds: b,
				geom:   uint32(len(spec.Triangles) + g),
				prim:   p,
				opaque: geo.Opaque,
			})
		}
	}

	d.mu.Lock()
	out.addr = d.nextAddr
	d.nextAddr += 256
	d.mu.Unlock()
	return out, nil
}

// BuildTLAS implements device.Device.
func (d *Device) BuildTLAS(instances []device.InstanceDesc) (device.AccelStruct, error) {
	out := &tlas{}
	insts, err := d.flatten(instances)
	if err != nil {
		return nil, err
	}
	out.instances = insts

	d.mu.Lock()
	out.addr = d.nextAddr
	d.nextAddr += 256
	if d.structs == nil {
		d.structs = map[uint64]*tlas{}
	}
	d.structs[out.addr] = out
	d.mu.Unlock()
	return out, nil
}

// RefitTLAS implements device.Refitter: transforms and masks update in
// place, topology must be unchanged.
func (d *Device) RefitTLAS(as device.AccelStruct, instances []device.InstanceDesc) error {
	t, ok := as.(*tlas)
	if !ok || t.freed {
		return device.ErrInvalidInstance
	}
	if len(instances) != len(t.instances) {
		return device.ErrInvalidInstance
	}
	for i, inst := range instances {
		if inst.BLAS == nil || inst.BLAS.Address() != t.instances[i].blas.addr {
			return device.ErrInvalidInstance
		}
	}
	insts, err := d.flatten(instances)
	if err != nil {
		return err
	}
	t.instances = insts
	return nil
}

func (d *Device) flatten(instances []device.InstanceDesc) ([]instance, error) {
	if len(instances) == 0 {
		return nil, device.ErrInvalidInstance
	}
	out := make([]instance, 0, len(instances))
	for _, desc := range instances {
		b, ok := desc.BLAS.(*blas)
		if !ok || b.freed {
			return nil, device.ErrInvalidInstance
		}
		if desc.CustomIndex > device.MaxCustomIndex {
			return nil, device.ErrInvalidInstance
		}
		worldFromObj := desc.Transform.Mat4()
		det := worldFromObj.Det()
		if det == 0 || math.IsNaN(float64(det)) {
			return nil, device.ErrInvalidInstance
		}
		out = append(out, instance{
			desc:         desc,
			blas:         b,
			worldFromObj: worldFromObj,
			objFromWorld: worldFromObj.Inv(),
		})
	}
	return out, nil
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
