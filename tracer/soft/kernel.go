package soft

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/chewxy/math32"

	"github.com/HugoPeters1024/vk-rays/tracer/rt"
	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
	"github.com/HugoPeters1024/vk-rays/types"
)

// Hit record payload offsets relative to the end of the group handle.
// This is the layout contract shared with the binding table compiler;
// hardware shader code would hardcode the same offsets.
const (
	payloadVertices  = 0 // sphere buffer for procedural records
	payloadIndices   = 8
	payloadOffsets   = 16
	payloadMaterials = 24
)

// Russian roulette starts after this many bounces and never keeps a
// path with more than this probability.
const (
	rrMinBounces = 3
	rrMaxProb    = 0.95
)

const glassIOR = 1.5

// dispatch carries everything one DispatchRays call needs, resolved
// once up front.
type dispatch struct {
	dev      *Device
	pipeline *pipeline
	table    device.BindingTable
	pc       rt.PushConstants
	tlas     *tlas
	width    uint32
	height   uint32

	accum []byte
	query []byte

	instAttr []byte
}

// DispatchRays implements device.Device: it runs the ray generation
// program once per pixel, fanned out over worker goroutines by row.
func (d *Device) DispatchRays(p device.Pipeline, table device.BindingTable, width, height uint32, push []byte) error {
	pl, ok := p.(*pipeline)
	if !ok || pl.destroyed {
		return device.ErrInvalidPipeline
	}
	if uint32(len(push)) != pl.pushSize {
		return fmt.Errorf("soft device: push constant size %d, pipeline built for %d", len(push), pl.pushSize)
	}
	if table.RayGen.Buffer == nil || table.Miss.Records() == 0 || table.Hit.Records() == 0 {
		return fmt.Errorf("soft device: incomplete binding table")
	}

	pc := rt.DecodePushConstants(push)

	d.mu.Lock()
	t, ok := d.structs[pc.TLASAddr]
	d.mu.Unlock()
	if !ok || t.freed {
		return fmt.Errorf("soft device: push constants reference no live TLAS at %#x", pc.TLASAddr)
	}

	accum, err := d.resolve(pc.AccumAddr, uint64(width)*uint64(height)*16)
	if err != nil {
		return fmt.Errorf("soft device: accumulation buffer: %w", err)
	}
	var query []byte
	if pc.QueryAddr != 0 {
		if query, err = d.resolve(pc.QueryAddr, 4); err != nil {
			return fmt.Errorf("soft device: query slot: %w", err)
		}
	}
	var instAttr []byte
	if pc.InstAttrAddr != 0 {
		size := uint64(len(t.instances)) * 32
		if instAttr, err = d.resolve(pc.InstAttrAddr, size); err != nil {
			return fmt.Errorf("soft device: instance attributes: %w", err)
		}
	}

	ctx := &dispatch{
		dev:      d,
		pipeline: pl,
		table:    table,
		pc:       pc,
		tlas:     t,
		width:    width,
		height:   height,
		accum:    accum,
		query:    query,
		instAttr: instAttr,
	}

	// Escaped rays run miss record 0. Resolve its handle up front the
	// way hit records are resolved per hit; a garbage handle fails the
	// whole dispatch instead of tracing anyway.
	missRec, err := ctx.record(table.Miss, 0)
	if err != nil {
		return fmt.Errorf("soft device: miss record: %w", err)
	}
	if group, ok := pl.groupOf(missRec); !ok || group.Kind != device.GroupMiss {
		return fmt.Errorf("soft device: miss record carries no valid miss group handle")
	}

	rows := make(chan uint32)
	var wg sync.WaitGroup
	for w := 0; w < d.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rows {
				for x := uint32(0); x < width; x++ {
					ctx.rayGen(x, y)
				}
			}
		}()
	}
	for y := uint32(0); y < height; y++ {
		rows <- y
	}
	close(rows)
	wg.Wait()
	return nil
}

// record returns the i-th record of a region.
func (k *dispatch) record(region device.StridedRegion, i uint32) ([]byte, error) {
	if i >= region.Records() {
		return nil, fmt.Errorf("soft device: record %d outside region of %d", i, region.Records())
	}
	addr := region.Buffer.Address() + region.Offset + uint64(i)*uint64(region.Stride)
	return k.dev.resolve(addr, uint64(region.Stride))
}

// rayGen is the per-pixel ray generation program.
func (k *dispatch) rayGen(x, y uint32) {
	pix := (uint64(y)*uint64(k.width) + uint64(x)) * 16
	if k.pc.Clear {
		for i := 0; i < 16; i++ {
			k.accum[pix+uint64(i)] = 0
		}
	}

	var r, g, b float32
	for s := uint32(0); s < k.pc.Samples; s++ {
		seed := pixelSeed(x, y, s, k.pc.Entropy)

		var jx, jy float32
		jx, seed = rand01(seed)
		jy, seed = rand01(seed)

		origin, dir, seed2 := k.cameraRay(float32(x)+jx, float32(y)+jy, seed)
		seed = seed2

		var c types.Vec3
		c, _ = k.tracePath(origin, dir, seed)
		r += c.X()
		g += c.Y()
		b += c.Z()
	}

	old0 := f32(k.accum[pix:])
	old1 := f32(k.accum[pix+4:])
	old2 := f32(k.accum[pix+8:])
	weight := f32(k.accum[pix+12:])
	putf32(k.accum[pix:], old0+r)
	putf32(k.accum[pix+4:], old1+g)
	putf32(k.accum[pix+8:], old2+b)
	putf32(k.accum[pix+12:], weight+float32(k.pc.Samples))

	// The pick ray fires from the exact pixel center with no lens
	// offset. (0, 0) disables picking entirely.
	if k.query != nil && (k.pc.MouseX != 0 || k.pc.MouseY != 0) &&
		k.pc.MouseX == x && k.pc.MouseY == y {
		origin, dir := k.centerRay(float32(x)+0.5, float32(y)+0.5)
		if hit, ok := traverse(k.tlas, origin, dir, traceEpsilon, math32.MaxFloat32, 0xFF, k.procProgram(), k.anyHitProgram()); ok {
			putf32(k.query, hit.t*dir.Len())
		}
	}
}

// centerRay builds the pinhole primary ray through a pixel position.
func (k *dispatch) centerRay(px, py float32) (types.Vec3, types.Vec3) {
	dx := 2*px/float32(k.width) - 1
	dy := 1 - 2*py/float32(k.height)

	target := k.pc.InvProj.Mul4x1(types.XYZW(dx, dy, 1, 1))
	tv := types.XYZ(target.X()/target.W(), target.Y()/target.W(), target.Z()/target.W()).Normalize()
	dir4 := k.pc.InvView.Mul4x1(types.XYZW(tv.X(), tv.Y(), tv.Z(), 0))
	org4 := k.pc.InvView.Mul4x1(types.XYZW(0, 0, 0, 1))

	return types.XYZ(org4.X(), org4.Y(), org4.Z()),
		types.XYZ(dir4.X(), dir4.Y(), dir4.Z()).Normalize()
}

// cameraRay builds the jittered primary ray, applying the thin lens
// when an aperture and focal distance are set.
func (k *dispatch) cameraRay(px, py float32, seed uint32) (types.Vec3, types.Vec3, uint32) {
	origin, dir := k.centerRay(px, py)
	if k.pc.Aperture <= 0 || k.pc.Focal <= 0 {
		return origin, dir, seed
	}

	var lx, ly float32
	lx, ly, seed = diskSample(seed)
	lx *= k.pc.Aperture
	ly *= k.pc.Aperture

	right4 := k.pc.InvView.Mul4x1(types.XYZW(1, 0, 0, 0))
	up4 := k.pc.InvView.Mul4x1(types.XYZW(0, 1, 0, 0))
	right := types.XYZ(right4.X(), right4.Y(), right4.Z())
	up := types.XYZ(up4.X(), up4.Y(), up4.Z())

	focus := origin.Add(dir.Mul(k.pc.Focal))
	origin = origin.Add(right.Mul(lx)).Add(up.Mul(ly))
	return origin, focus.Sub(origin).Normalize(), seed
}

// tracePath integrates one path. Any numerical degeneracy along the
// way abandons the sample the way a miss would, never poisoning the
// accumulation buffer.
func (k *dispatch) tracePath(origin, dir types.Vec3, seed uint32) (types.Vec3, uint32) {
	radiance := types.Vec3{}
	throughput := types.XYZ(1, 1, 1)

	for bounce := uint32(0); bounce < k.pc.Bounces; bounce++ {
		if !finiteVec(dir) || !finiteVec(origin) || dir.Len() == 0 {
			break
		}

		hit, ok := traverse(k.tlas, origin, dir, traceEpsilon, math32.MaxFloat32, 0xFF, k.procProgram(), k.anyHitProgram())
		if !ok {
			radiance = radiance.Add(mulVec(throughput, k.missProgram(dir)))
			break
		}

		surf, err := k.closestHit(origin, dir, hit)
		if err != nil || !finiteVec(surf.normal) {
			break
		}

		radiance = radiance.Add(mulVec(throughput, surf.emission))

		var scatter types.Vec3
		var atten types.Vec3
		scatter, atten, seed = k.scatter(dir, surf, seed)
		if scatter.Len() == 0 {
			break
		}
		throughput = mulVec(throughput, atten)
		if !finiteVec(throughput) || maxComp(throughput) <= 0 {
			break
		}

		if bounce >= rrMinBounces {
			p := maxComp(throughput)
			if p > rrMaxProb {
				p = rrMaxProb
			}
			var u float32
			u, seed = rand01(seed)
			if u > p {
				break
			}
			throughput = throughput.Mul(1 / p)
		}

		origin = surf.position
		dir = scatter
	}
	return radiance, seed
}

// missProgram is the sky: a vertical gradient.
func (k *dispatch) missProgram(dir types.Vec3) types.Vec3 {
	t := 0.5 * (dir.Normalize().Y() + 1)
	horizon := types.XYZ(1, 1, 1)
	zenith := types.XYZ(0.45, 0.65, 1)
	return horizon.Mul(1 - t).Add(zenith.Mul(t))
}

func maxComp(v types.Vec3) float32 {
	m := v.X()
	if v.Y() > m {
		m = v.Y()
	}
	if v.Z() > m {
		m = v.Z()
	}
	return m
}

func mulVec(a, b types.Vec3) types.Vec3 {
	return types.XYZ(a.X()*b.X(), a.Y()*b.Y(), a.Z()*b.Z())
}

func finiteVec(v types.Vec3) bool {
	return finite(v.X()) && finite(v.Y()) && finite(v.Z())
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

func putf32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math32.Float32bits(v))
}
