package rt

import (
	"fmt"
	"time"

	"github.com/HugoPeters1024/vk-rays/log"
	"github.com/HugoPeters1024/vk-rays/scene"
	"github.com/HugoPeters1024/vk-rays/tracer"
	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
	"github.com/HugoPeters1024/vk-rays/types"
)

// Sample budgets. A frame that restarts accumulation traces a single
// sample per pixel so the picture reacts instantly; once the camera
// holds still frames spend the larger budget.
const (
	samplesReset  = 1
	samplesStable = 4
)

// defaultBounces caps the path length unless the device caps it lower.
const defaultBounces = 8

// instAttrSize is the byte size of one per-instance attribute record:
// tint, pad, emission, pad. Hit programs index the table with the
// instance custom index.
const instAttrSize = 32

// Driver implements tracer.Tracer over a ray-tracing device. It owns
// every resource the scene needs on the device and keeps them
// synchronized with scene edits between frames.
//
// Per frame it decides once between two modes: reset (camera moved or
// topology changed: clear accumulation, single sample) and accumulate
// (blend the new samples into the running average). The decision is
// the driver's alone; it compares the camera matrices bit for bit, so
// no host-side "camera dirty" flag can desynchronize it.
type Driver struct {
	dev    device.Device
	arena  *Arena
	logger log.Logger

	sc     *scene.Scene
	width  uint32
	height uint32

	meshBLAS   []*MeshBLAS
	sphereBLAS *SphereBLAS
	pipeline   device.Pipeline
	groups     GroupSet
	sbt        *SBT
	tlas       *TLASBuilder

	// hitBase maps mesh index to its first record in the hit region.
	hitBase      []uint32
	sphereRecord uint32

	accum    device.Buffer
	query    device.Buffer
	instAttr device.Buffer

	frame       uint32
	samples     uint32
	entropy     uint32
	havePrev    bool
	prevView    types.Mat4
	prevProj    types.Mat4
	focal       float32
	pendingPick bool

	bounces uint32
	ready   bool

	// rebuildErr latches a failed topology rebuild. While set, every
	// topology resource has been released and frames keep retrying the
	// rebuild instead of dispatching.
	rebuildErr error
}

// NewDriver returns a driver bound to the device. Setup must run
// before the first frame.
func NewDriver(dev device.Device) *Driver {
	return &Driver{
		dev:     dev,
		arena:   NewArena(dev),
		logger:  log.New("driver"),
		entropy: 0x9E3779B9,
		bounces: defaultBounces,
	}
}

// Id implements tracer.Tracer.
func (d *Driver) Id() string {
	return fmt.Sprintf("rt (%s)", d.dev.Name())
}

// Setup implements tracer.Tracer: it binds the driver to the scene and
// resolution and builds every device resource from scratch.
func (d *Driver) Setup(frameW, frameH uint32, sc *scene.Scene) error {
	if frameW == 0 || frameH == 0 {
		return fmt.Errorf("driver: zero frame dimension %dx%d", frameW, frameH)
	}
	d.sc = sc
	d.width = frameW
	d.height = frameH

	var err error
	size := uint64(frameW) * uint64(frameH) * 16
	if d.accum, err = d.arena.Alloc(size, recordAlign, device.UsageStorage|device.UsageHostVisible); err != nil {
		return err
	}
	// one float32 slot: the picked focal distance
	if d.query, err = d.arena.Alloc(4, minAlign, device.UsageStorage|device.UsageHostVisible); err != nil {
		return err
	}

	sc.TakeChanges()
	if err = d.rebuildTopology(); err != nil {
		return err
	}
	d.ready = true
	d.logger.Infof("%s ready at %dx%d: %d meshes, %d spheres, %d instances",
		d.Id(), frameW, frameH, len(sc.Meshes), len(sc.Spheres), len(sc.Instances))
	return nil
}

// RenderFrame implements tracer.Tracer.
func (d *Driver) RenderFrame(req tracer.FrameRequest) (*tracer.Stats, error) {
	if !d.ready {
		return nil, ErrNotReady
	}

	topology, err := d.syncScene()
	if err != nil {
		return nil, err
	}

	// The previous frame's pick result lands before this dispatch.
	if d.pendingPick {
		if err = d.readPick(); err != nil {
			return nil, err
		}
	}

	cam := d.sc.Camera
	invView := cam.InvViewMat()
	invProj := cam.InvProjMat(float32(d.width) / float32(d.height))
	reset := topology || !d.havePrev || invView != d.prevView || invProj != d.prevProj
	d.prevView = invView
	d.prevProj = invProj
	d.havePrev = true

	budget := uint32(samplesStable)
	if reset {
		budget = samplesReset
		d.samples = 0
	}
	d.entropy = nextSeed(d.entropy)

	push := PushConstants{
		InvView:      invView,
		InvProj:      invProj,
		Entropy:      d.entropy,
		Clear:        reset,
		MouseX:       req.PickX,
		MouseY:       req.PickY,
		Exposure:     cam.Exposure,
		Samples:      budget,
		Bounces:      d.bounces,
		Aperture:     cam.Aperture,
		Focal:        d.focal,
		AccumAddr:    d.accum.Address(),
		QueryAddr:    d.query.Address(),
		InstAttrAddr: d.instAttr.Address(),
		TLASAddr:     d.tlas.Current().Address(),
	}

	start := time.Now()
	if err = d.dev.DispatchRays(d.pipeline, d.sbt.Table, d.width, d.height, push.Encode()); err != nil {
		return nil, fmt.Errorf("driver: dispatch: %w", err)
	}
	d.pendingPick = req.PickX != 0 || req.PickY != 0

	d.frame++
	d.samples += budget
	return &tracer.Stats{
		FrameNumber: d.frame,
		Samples:     d.samples,
		Reset:       reset,
		TraceTime:   time.Since(start),
	}, nil
}

// ReadFrame implements tracer.Tracer: it waits for in-flight work and
// copies the accumulation buffer back as RGBA float32.
func (d *Driver) ReadFrame(dst []float32) error {
	if !d.ready {
		return ErrNotReady
	}
	want := int(d.width) * int(d.height) * 4
	if len(dst) != want {
		return fmt.Errorf("driver: frame buffer length %d, want %d", len(dst), want)
	}
	if err := d.dev.WaitFrame(); err != nil {
		return fmt.Errorf("driver: frame fence: %w", err)
	}

	raw := make([]byte, want*4)
	if err := d.accum.Read(0, raw); err != nil {
		return fmt.Errorf("driver: read accumulation: %w", err)
	}
	for i := range dst {
		dst[i] = getF32(raw[i*4:])
	}
	return nil
}

// FocalDistance returns the focal distance picked so far, zero when
// nothing was picked yet.
func (d *Driver) FocalDistance() float32 {
	return d.focal
}

// SetBounces overrides the bounce cap before Setup.
func (d *Driver) SetBounces(n uint32) {
	if n > 0 {
		d.bounces = n
	}
}

// Close implements tracer.Tracer.
func (d *Driver) Close() {
	if err := d.dev.WaitFrame(); err != nil {
		d.logger.Warningf("frame fence on close: %v", err)
	}
	d.releaseTopology()
	d.arena.Release()
	d.ready = false
}

// syncScene consumes pending scene edits and reports whether the frame
// must reset accumulation because the world itself changed.
func (d *Driver) syncScene() (bool, error) {
	changes := d.sc.TakeChanges()
	if d.rebuildErr != nil {
		// An earlier rebuild failed and released every topology
		// resource. Nothing can be dispatched until one succeeds.
		changes.Topology = true
	}
	if !changes.Any() {
		return false, nil
	}

	if changes.Topology {
		// Superseded structures may still be traversed by the
		// frame in flight.
		if err := d.dev.WaitFrame(); err != nil {
			return false, fmt.Errorf("driver: frame fence: %w", err)
		}
		d.releaseTopology()
		if err := d.rebuildTopology(); err != nil {
			d.rebuildErr = err
			return false, err
		}
		d.rebuildErr = nil
		return true, nil
	}

	if changes.Transforms {
		_, retired, err := d.tlas.Sync(d.instanceDescs(), d.sbt.HitRecords)
		if err != nil {
			return false, err
		}
		if retired != nil {
			if err = d.dev.WaitFrame(); err != nil {
				return false, fmt.Errorf("driver: frame fence: %w", err)
			}
			retired.Destroy()
		}
	}
	if changes.Attributes {
		if err := d.uploadInstanceAttrs(); err != nil {
			return false, err
		}
	}
	return changes.Transforms || changes.Attributes, nil
}

// rebuildTopology builds the BLAS set, pipeline, binding table, TLAS
// and instance attribute table from the current scene. Old resources
// must already be released.
func (d *Driver) rebuildTopology() error {
	sc := d.sc

	needAlpha := false
	for i := range sc.Materials {
		if sc.Materials[i].AlphaTested() {
			needAlpha = true
			break
		}
	}
	needSpheres := len(sc.Spheres) > 0

	var err error
	for _, mesh := range sc.Meshes {
		blas, err := BuildMeshBLAS(d.dev, d.arena, mesh, sc.Materials)
		if err != nil {
			d.releaseTopology()
			return err
		}
		d.meshBLAS = append(d.meshBLAS, blas)
	}
	if needSpheres {
		if d.sphereBLAS, err = BuildSphereBLAS(d.dev, d.arena, sc.Spheres, sc.Materials); err != nil {
			d.releaseTopology()
			return err
		}
	}

	if d.pipeline, d.groups, err = BuildPipeline(d.dev, needAlpha, needSpheres, d.bounces); err != nil {
		d.releaseTopology()
		return err
	}

	layout := TableLayout{
		RayGen: d.groups.RayGen,
		Miss:   []int{d.groups.Miss},
	}
	d.hitBase = d.hitBase[:0]
	for _, blas := range d.meshBLAS {
		d.hitBase = append(d.hitBase, uint32(len(layout.Hits)))
		for g := uint32(0); g < blas.GeometryCount; g++ {
			group := d.groups.TriHit
			if blas.AlphaTested[g] && d.groups.TriAlphaHit >= 0 {
				group = d.groups.TriAlphaHit
			}
			layout.Hits = append(layout.Hits, HitRecordSpec{
				Group:     group,
				Vertices:  blas.Vertices.Address(),
				Indices:   blas.Indices.Address(),
				Offsets:   blas.Offsets.Address(),
				Materials: blas.Materials.Address(),
			})
		}
	}
	if needSpheres {
		d.sphereRecord = uint32(len(layout.Hits))
		layout.Hits = append(layout.Hits, HitRecordSpec{
			Group:     d.groups.SphereHit,
			Spheres:   d.sphereBLAS.Spheres.Address(),
			Materials: d.sphereBLAS.Materials.Address(),
		})
	}

	if d.sbt, err = CompileSBT(d.arena, d.dev.Limits(), d.pipeline, layout); err != nil {
		d.releaseTopology()
		return err
	}

	if err = d.uploadInstanceAttrs(); err != nil {
		d.releaseTopology()
		return err
	}

	if _, _, err = d.tlasSync(); err != nil {
		d.releaseTopology()
		return err
	}
	return nil
}

func (d *Driver) tlasSync() (device.AccelStruct, device.AccelStruct, error) {
	if d.tlas == nil {
		d.tlas = NewTLASBuilder(d.dev)
	}
	return d.tlas.Sync(d.instanceDescs(), d.sbt.HitRecords)
}

// instanceDescs flattens the scene instance list to device records.
// The custom index is the position in the scene instance list, which
// is also the row in the attribute table.
func (d *Driver) instanceDescs() []device.InstanceDesc {
	descs := make([]device.InstanceDesc, 0, len(d.sc.Instances))
	for i, inst := range d.sc.Instances {
		desc := device.InstanceDesc{
			Transform:   inst.Transform,
			CustomIndex: uint32(i),
			Mask:        inst.Mask,
		}
		switch inst.Kind {
		case scene.GeomTriangles:
			desc.BLAS = d.meshBLAS[inst.MeshIndex].AS
			desc.HitGroupOffset = d.hitBase[inst.MeshIndex]
		case scene.GeomSpheres:
			if d.sphereBLAS != nil {
				desc.BLAS = d.sphereBLAS.AS
				desc.HitGroupOffset = d.sphereRecord
			}
		}
		descs = append(descs, desc)
	}
	return descs
}

// uploadInstanceAttrs rewrites the per-instance attribute table. The
// table is small; it is re-uploaded whole on any attribute edit.
func (d *Driver) uploadInstanceAttrs() error {
	n := len(d.sc.Instances)
	if n == 0 {
		return ErrNoGeometry
	}
	raw := make([]byte, n*instAttrSize)
	for i, inst := range d.sc.Instances {
		rec := raw[i*instAttrSize:]
		putF32(rec[0:], inst.Tint.X())
		putF32(rec[4:], inst.Tint.Y())
		putF32(rec[8:], inst.Tint.Z())
		putF32(rec[16:], inst.Emission.X())
		putF32(rec[20:], inst.Emission.Y())
		putF32(rec[24:], inst.Emission.Z())
	}

	if d.instAttr != nil && d.instAttr.Size() == uint64(len(raw)) {
		// The frame in flight may still read the table.
		if err := d.dev.WaitFrame(); err != nil {
			return fmt.Errorf("driver: frame fence: %w", err)
		}
		return d.instAttr.Write(0, raw)
	}
	if d.instAttr != nil {
		if err := d.dev.WaitFrame(); err != nil {
			return fmt.Errorf("driver: frame fence: %w", err)
		}
		d.arena.Free(d.instAttr)
		d.instAttr = nil
	}
	buf, err := d.arena.Upload(raw, recordAlign, device.UsageStorage)
	if err != nil {
		return err
	}
	d.instAttr = buf
	return nil
}

// readPick pulls the focal distance written by the previous frame's
// pick ray. A miss writes nothing, so the old distance stays.
func (d *Driver) readPick() error {
	if err := d.dev.WaitFrame(); err != nil {
		return fmt.Errorf("driver: frame fence: %w", err)
	}
	var raw [4]byte
	if err := d.query.Read(0, raw[:]); err != nil {
		return fmt.Errorf("driver: read pick query: %w", err)
	}
	dist := getF32(raw[:])
	if dist > 0 {
		d.focal = dist
	}
	d.pendingPick = false
	return nil
}

// releaseTopology frees the BLAS set, pipeline, binding table and TLAS.
// The caller has already fenced the frame.
func (d *Driver) releaseTopology() {
	if d.tlas != nil {
		d.tlas.Release()
		d.tlas = nil
	}
	d.sbt.Free(d.arena)
	d.sbt = nil
	if d.pipeline != nil {
		d.pipeline.Destroy()
		d.pipeline = nil
	}
	for _, blas := range d.meshBLAS {
		blas.Free(d.arena)
	}
	d.meshBLAS = nil
	if d.sphereBLAS != nil {
		d.sphereBLAS.Free(d.arena)
		d.sphereBLAS = nil
	}
	if d.instAttr != nil {
		d.arena.Free(d.instAttr)
		d.instAttr = nil
	}
	d.hitBase = nil
}

// nextSeed advances the frame entropy. The seed is threaded value-in,
// value-out; nothing else mutates it.
func nextSeed(s uint32) uint32 {
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	if s == 0 {
		s = 0x9E3779B9
	}
	return s
}

var _ tracer.Tracer = (*Driver)(nil)
