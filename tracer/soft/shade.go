package soft

import (
	"encoding/binary"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
	"github.com/HugoPeters1024/vk-rays/types"
)

// surface is what a closest-hit program hands back to the integrator.
type surface struct {
	position types.Vec3
	normal   types.Vec3 // unit, flipped to face the incoming ray
	emission types.Vec3

	albedo       types.Vec3
	metallic     float32
	roughness    float32
	transmission float32

	backface bool
}

// material mirrors the 48-byte device material record.
type material struct {
	baseColor    types.Vec4
	emission     types.Vec3
	metallic     float32
	roughness    float32
	transmission float32
	textureIndex uint32
	flags        uint32
}

func decodeMaterial(raw []byte) material {
	return material{
		baseColor:    types.XYZW(f32(raw[0:]), f32(raw[4:]), f32(raw[8:]), f32(raw[12:])),
		emission:     types.XYZ(f32(raw[16:]), f32(raw[20:]), f32(raw[24:])),
		metallic:     f32(raw[28:]),
		roughness:    f32(raw[32:]),
		transmission: f32(raw[36:]),
		textureIndex: binary.LittleEndian.Uint32(raw[40:]),
		flags:        binary.LittleEndian.Uint32(raw[44:]),
	}
}

func u64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// procProgram returns the programmable intersection callback: it
// resolves the procedural hit record for the geometry, reads the
// sphere the primitive index names and runs the analytic test.
func (k *dispatch) procProgram() procIntersect {
	return func(inst *instance, geom, prim uint32, origin, dir types.Vec3, tMin, tMax float32) (float32, bool) {
		rec, err := k.record(k.table.Hit, inst.desc.HitGroupOffset+geom)
		if err != nil {
			return 0, false
		}
		group, ok := k.pipeline.groupOf(rec)
		if !ok || group.Kind != device.GroupProceduralHit || group.Intersection == "" {
			return 0, false
		}
		payload := rec[handleSize:]
		sphere, err := k.dev.resolve(u64(payload[payloadVertices:])+uint64(prim)*24, 24)
		if err != nil {
			return 0, false
		}
		center := types.XYZ(f32(sphere[0:]), f32(sphere[4:]), f32(sphere[8:]))
		return sphereTest(center, f32(sphere[12:]), origin, dir, tMin, tMax)
	}
}

// anyHitProgram decides whether a non-opaque triangle hit is accepted:
// groups without an any-hit program always accept, alpha-tested ones
// accept when the material alpha clears the cutoff.
func (k *dispatch) anyHitProgram() acceptFunc {
	return func(inst *instance, geom, prim uint32) bool {
		rec, err := k.record(k.table.Hit, inst.desc.HitGroupOffset+geom)
		if err != nil {
			return false
		}
		group, ok := k.pipeline.groupOf(rec)
		if !ok {
			return false
		}
		if group.AnyHit == "" {
			return true
		}
		matRaw, err := k.dev.resolve(u64(rec[handleSize:][payloadMaterials:])+uint64(geom)*48, 48)
		if err != nil {
			return false
		}
		return decodeMaterial(matRaw).baseColor.W() >= 0.5
	}
}

// closestHit runs the closest-hit program selected by the binding
// table record for the hit.
func (k *dispatch) closestHit(origin, dir types.Vec3, hit hitInfo) (surface, error) {
	inst := &k.tlas.instances[hit.inst]
	rec, err := k.record(k.table.Hit, inst.desc.HitGroupOffset+hit.geom)
	if err != nil {
		return surface{}, err
	}
	group, ok := k.pipeline.groupOf(rec)
	if !ok {
		return surface{}, fmt.Errorf("soft device: hit record carries no valid group handle")
	}
	payload := rec[handleSize:]

	var surf surface
	var mat material
	switch {
	case group.Kind == device.GroupTriangleHit && !hit.procedural:
		if surf, mat, err = k.triangleHit(inst, payload, dir, hit); err != nil {
			return surface{}, err
		}
	case group.Kind == device.GroupProceduralHit && hit.procedural:
		if surf, mat, err = k.sphereHit(inst, payload, origin, dir, hit); err != nil {
			return surface{}, err
		}
	default:
		return surface{}, fmt.Errorf("soft device: record kind %s does not match hit", group.Kind)
	}

	surf.position = origin.Add(dir.Mul(hit.t))
	surf.albedo = types.XYZ(mat.baseColor.X(), mat.baseColor.Y(), mat.baseColor.Z())
	surf.emission = mat.emission
	surf.metallic = mat.metallic
	surf.roughness = mat.roughness
	surf.transmission = mat.transmission

	// Per-instance attributes: tint scales albedo, emission adds.
	if k.instAttr != nil {
		attr := k.instAttr[inst.desc.CustomIndex*32:]
		tint := types.XYZ(f32(attr[0:]), f32(attr[4:]), f32(attr[8:]))
		surf.albedo = mulVec(surf.albedo, tint)
		surf.emission = surf.emission.Add(types.XYZ(f32(attr[16:]), f32(attr[20:]), f32(attr[24:])))
	}

	if surf.normal.Dot(dir) > 0 {
		surf.normal = surf.normal.Mul(-1)
		surf.backface = true
	}
	return surf, nil
}

// triangleHit interpolates the vertex normal through the buffers the
// hit record references.
func (k *dispatch) triangleHit(inst *instance, payload []byte, dir types.Vec3, hit hitInfo) (surface, material, error) {
	vertAddr := u64(payload[payloadVertices:])
	idxAddr := u64(payload[payloadIndices:])
	offAddr := u64(payload[payloadOffsets:])
	matAddr := u64(payload[payloadMaterials:])

	offRaw, err := k.dev.resolve(offAddr+uint64(hit.geom)*4, 4)
	if err != nil {
		return surface{}, material{}, err
	}
	firstIndex := binary.LittleEndian.Uint32(offRaw)

	idxRaw, err := k.dev.resolve(idxAddr+uint64(firstIndex+hit.prim*3)*4, 12)
	if err != nil {
		return surface{}, material{}, err
	}

	var normals [3]types.Vec3
	for i := 0; i < 3; i++ {
		idx := binary.LittleEndian.Uint32(idxRaw[i*4:])
		vert, err := k.dev.resolve(vertAddr+uint64(idx)*32, 32)
		if err != nil {
			return surface{}, material{}, err
		}
		normals[i] = types.XYZ(f32(vert[12:]), f32(vert[16:]), f32(vert[20:]))
	}

	w := 1 - hit.u - hit.v
	nObj := normals[0].Mul(w).Add(normals[1].Mul(hit.u)).Add(normals[2].Mul(hit.v))

	matRaw, err := k.dev.resolve(matAddr+uint64(hit.geom)*48, 48)
	if err != nil {
		return surface{}, material{}, err
	}

	return surface{normal: objNormalToWorld(inst, nObj)}, decodeMaterial(matRaw), nil
}

// sphereHit recovers the analytic normal from the sphere record.
func (k *dispatch) sphereHit(inst *instance, payload []byte, origin, dir types.Vec3, hit hitInfo) (surface, material, error) {
	sphereAddr := u64(payload[payloadVertices:])
	matAddr := u64(payload[payloadMaterials:])

	rec, err := k.dev.resolve(sphereAddr+uint64(hit.prim)*24, 24)
	if err != nil {
		return surface{}, material{}, err
	}
	center := types.XYZ(f32(rec[0:]), f32(rec[4:]), f32(rec[8:]))
	radius := f32(rec[12:])
	matRow := binary.LittleEndian.Uint32(rec[16:])

	pWorld := origin.Add(dir.Mul(hit.t))
	p4 := inst.objFromWorld.Mul4x1(types.XYZW(pWorld.X(), pWorld.Y(), pWorld.Z(), 1))
	nObj := types.XYZ(p4.X(), p4.Y(), p4.Z()).Sub(center).Mul(1 / radius)

	matRaw, err := k.dev.resolve(matAddr+uint64(matRow)*48, 48)
	if err != nil {
		return surface{}, material{}, err
	}

	return surface{normal: objNormalToWorld(inst, nObj)}, decodeMaterial(matRaw), nil
}

// objNormalToWorld maps an object-space normal through the inverse
// transpose of the instance transform.
func objNormalToWorld(inst *instance, n types.Vec3) types.Vec3 {
	m := inst.objFromWorld.Transpose()
	n4 := m.Mul4x1(types.XYZW(n.X(), n.Y(), n.Z(), 0))
	out := types.XYZ(n4.X(), n4.Y(), n4.Z())
	if l := out.Len(); l > 0 {
		return out.Mul(1 / l)
	}
	return out
}

// scatter samples the outgoing direction for a surface interaction.
// A zero direction means the path is absorbed.
func (k *dispatch) scatter(dir types.Vec3, surf surface, seed uint32) (types.Vec3, types.Vec3, uint32) {
	var u float32
	u, seed = rand01(seed)

	switch {
	case u < surf.transmission:
		return k.scatterGlass(dir, surf, seed)

	case u < surf.transmission+surf.metallic:
		out := reflect(dir.Normalize(), surf.normal)
		if surf.roughness > 0 {
			var fuzz types.Vec3
			fuzz, seed = sphereSample(seed)
			out = out.Add(fuzz.Mul(surf.roughness))
		}
		if out.Dot(surf.normal) <= 0 {
			return types.Vec3{}, types.Vec3{}, seed
		}
		return out.Normalize(), surf.albedo, seed

	default:
		var out types.Vec3
		out, seed = cosineSample(surf.normal, seed)
		return out, surf.albedo, seed
	}
}

func (k *dispatch) scatterGlass(dir types.Vec3, surf surface, seed uint32) (types.Vec3, types.Vec3, uint32) {
	d := dir.Normalize()
	eta := float32(1.0 / glassIOR)
	if surf.backface {
		eta = glassIOR
	}
	cosI := -d.Dot(surf.normal)
	if cosI < 0 {
		cosI = 0
	}

	var u float32
	u, seed = rand01(seed)
	if refracted, ok := refract(d, surf.normal, eta); ok && u > schlick(cosI, eta) {
		return refracted.Normalize(), surf.albedo, seed
	}
	return reflect(d, surf.normal).Normalize(), surf.albedo, seed
}

// sphereSample returns a uniform direction on the unit sphere.
func sphereSample(seed uint32) (types.Vec3, uint32) {
	var u, v float32
	u, seed = rand01(seed)
	v, seed = rand01(seed)
	z := 1 - 2*u
	r := math32.Sqrt(1 - z*z)
	phi := 2 * math32.Pi * v
	return types.XYZ(r*math32.Cos(phi), r*math32.Sin(phi), z), seed
}
