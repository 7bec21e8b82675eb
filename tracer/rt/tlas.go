package rt

import (
	"fmt"

	"github.com/HugoPeters1024/vk-rays/log"
	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
)

// instKey is the part of an instance that pins the top level topology.
// While every live instance keeps its key, a transform-only change can
// be applied by refit; any key change forces a rebuild.
type instKey struct {
	blasAddr    uint64
	customIndex uint32
	hitOffset   uint32
}

// TLASBuilder keeps one top level acceleration structure synchronized
// with the live instance list. A rebuild is always valid; refit is an
// optimization taken only on devices that support it and only when the
// topology signature is unchanged.
type TLASBuilder struct {
	dev    device.Device
	logger log.Logger

	current device.AccelStruct
	sig     []instKey
}

// NewTLASBuilder returns a builder with no structure yet.
func NewTLASBuilder(dev device.Device) *TLASBuilder {
	return &TLASBuilder{
		dev:    dev,
		logger: log.New("tlas"),
	}
}

// Current returns the live structure, or nil before the first Sync.
func (b *TLASBuilder) Current() device.AccelStruct {
	return b.current
}

// Sync brings the top level structure up to date with instances.
// hitRecords is the number of records in the binding table hit region;
// every instance hit group offset must land inside it.
//
// It returns the live structure plus any superseded structure the
// caller must destroy once no dispatch can still traverse it.
func (b *TLASBuilder) Sync(instances []device.InstanceDesc, hitRecords uint32) (live, retired device.AccelStruct, err error) {
	if len(instances) == 0 {
		return nil, nil, ErrNoGeometry
	}

	sig := make([]instKey, len(instances))
	for i, inst := range instances {
		if inst.BLAS == nil {
			return nil, nil, fmt.Errorf("tlas: instance %d: %w", i, ErrUnknownBLAS)
		}
		if inst.CustomIndex > device.MaxCustomIndex {
			return nil, nil, fmt.Errorf("tlas: instance %d: custom index %d exceeds 24 bits: %w",
				i, inst.CustomIndex, device.ErrInvalidInstance)
		}
		if inst.HitGroupOffset >= hitRecords {
			return nil, nil, fmt.Errorf("tlas: instance %d: hit group offset %d with %d hit records: %w",
				i, inst.HitGroupOffset, hitRecords, ErrHitGroupRange)
		}
		sig[i] = instKey{
			blasAddr:    inst.BLAS.Address(),
			customIndex: inst.CustomIndex,
			hitOffset:   inst.HitGroupOffset,
		}
	}

	if b.current != nil && b.sameTopology(sig) {
		if refitter, ok := b.dev.(device.Refitter); ok {
			// Refit rewrites the structure in place; a frame in
			// flight may still traverse it.
			if err = b.dev.WaitFrame(); err != nil {
				return nil, nil, fmt.Errorf("tlas: frame fence: %w", err)
			}
			if err = refitter.RefitTLAS(b.current, instances); err != nil {
				return nil, nil, fmt.Errorf("tlas: refit: %w", err)
			}
			b.logger.Debugf("refit %d instances", len(instances))
			return b.current, nil, nil
		}
	}

	next, err := b.dev.BuildTLAS(instances)
	if err != nil {
		return nil, nil, fmt.Errorf("tlas: build: %w", err)
	}
	b.logger.Debugf("rebuilt with %d instances", len(instances))

	retired = b.current
	b.current = next
	b.sig = sig
	return next, retired, nil
}

// Release destroys the live structure.
func (b *TLASBuilder) Release() {
	if b.current != nil {
		b.current.Destroy()
		b.current = nil
	}
	b.sig = nil
}

func (b *TLASBuilder) sameTopology(sig []instKey) bool {
	if len(sig) != len(b.sig) {
		return false
	}
	for i := range sig {
		if sig[i] != b.sig[i] {
			return false
		}
	}
	return true
}
