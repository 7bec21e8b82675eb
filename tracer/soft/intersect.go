package soft

import (
	"github.com/chewxy/math32"

	"github.com/HugoPeters1024/vk-rays/types"
)

// hitInfo reports the closest intersection of a traversal.
type hitInfo struct {
	t    float32
	inst int
	geom uint32
	prim uint32

	// u, v are triangle barycentrics; unused for procedural hits.
	u, v float32

	procedural bool
}

// procIntersect is the programmable intersection callback traversal
// invokes for procedural primitives whose bounding box the ray enters.
// It returns the hit parameter along the object-space ray and whether
// the primitive was actually hit.
type procIntersect func(inst *instance, geom, prim uint32, origin, dir types.Vec3, tMin, tMax float32) (float32, bool)

// acceptFunc is the any-hit decision consulted for non-opaque triangle
// intersections.
type acceptFunc func(inst *instance, geom, prim uint32) bool

const traceEpsilon = 1e-4

// traverse walks every instance of the structure and returns the
// closest accepted hit. Ray directions are transformed without
// renormalization so hit parameters are shared between object and
// world space.
func traverse(t *tlas, origin, dir types.Vec3, tMin, tMax float32, mask uint8, proc procIntersect, anyHit acceptFunc) (hitInfo, bool) {
	best := hitInfo{t: tMax}
	found := false

	for i := range t.instances {
		inst := &t.instances[i]
		if inst.desc.Mask&mask == 0 {
			continue
		}

		o4 := inst.objFromWorld.Mul4x1(types.XYZW(origin.X(), origin.Y(), origin.Z(), 1))
		d4 := inst.objFromWorld.Mul4x1(types.XYZW(dir.X(), dir.Y(), dir.Z(), 0))
		o := types.XYZ(o4.X(), o4.Y(), o4.Z())
		d := types.XYZ(d4.X(), d4.Y(), d4.Z())

		if !slabTest(inst.blas.bounds, o, d, tMin, best.t) {
			continue
		}

		for k := range inst.blas.tris {
			tr := &inst.blas.tris[k]
			if hit, u, v, ok := triTest(tr, o, d, tMin, best.t); ok {
				if !tr.opaque && anyHit != nil && !anyHit(inst, tr.geom, tr.prim) {
					continue
				}
				best = hitInfo{t: hit, inst: i, geom: tr.geom, prim: tr.prim, u: u, v: v}
				found = true
			}
		}

		for k := range inst.blas.boxes {
			bx := &inst.blas.boxes[k]
			if !slabTest(bx.bounds, o, d, tMin, best.t) {
				continue
			}
			if proc == nil {
				continue
			}
			if hit, ok := proc(inst, bx.geom, bx.prim, o, d, tMin, best.t); ok {
				best = hitInfo{t: hit, inst: i, geom: bx.geom, prim: bx.prim, procedural: true}
				found = true
			}
		}
	}
	return best, found
}

// triTest is the Moller-Trumbore ray/triangle test, both-sided.
func triTest(tr *tri, origin, dir types.Vec3, tMin, tMax float32) (t, u, v float32, ok bool) {
	e1 := tr.v1.Sub(tr.v0)
	e2 := tr.v2.Sub(tr.v0)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if det > -1e-9 && det < 1e-9 {
		return 0, 0, 0, false
	}
	invDet := 1 / det
	s := origin.Sub(tr.v0)
	u = s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}
	q := s.Cross(e1)
	v = dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}
	t = e2.Dot(q) * invDet
	if t <= tMin || t >= tMax {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

// slabTest is the branchless slab ray/box overlap test.
func slabTest(b types.AABB, origin, dir types.Vec3, tMin, tMax float32) bool {
	for axis := 0; axis < 3; axis++ {
		inv := 1 / dir[axis]
		t0 := (b.Min[axis] - origin[axis]) * inv
		t1 := (b.Max[axis] - origin[axis]) * inv
		if inv < 0 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMax < tMin {
			return false
		}
	}
	return true
}

// sphereTest intersects a ray with a sphere, returning the nearest hit
// parameter inside (tMin, tMax).
func sphereTest(center types.Vec3, radius float32, origin, dir types.Vec3, tMin, tMax float32) (float32, bool) {
	oc := origin.Sub(center)
	a := dir.Dot(dir)
	half := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := half*half - a*c
	if disc < 0 {
		return 0, false
	}
	root := math32.Sqrt(disc)
	t := (-half - root) / a
	if t <= tMin || t >= tMax {
		t = (-half + root) / a
		if t <= tMin || t >= tMax {
			return 0, false
		}
	}
	return t, true
}
