// Package soft implements the tracer device interface entirely on the
// CPU. Buffers live in host memory behind synthetic 64-bit addresses;
// trace programs resolve binding table records, push constants and
// buffer addresses byte for byte, exactly the way device code would.
// It doubles as the fallback renderer and as the test vehicle for the
// host-side resource pipeline.
package soft

import (
	"fmt"
	"sort"
	"sync"

	"github.com/HugoPeters1024/vk-rays/log"
	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
)

// Device limits. Handle size and alignments mimic common hardware so
// the binding table compiler gets exercised with realistic padding.
const (
	handleSize  = 32
	handleAlign = 32
	baseAlign   = 64
	maxBounces  = 31
)

// addrBase keeps synthetic addresses far from zero so a zero address
// is always invalid, like a null device pointer.
const addrBase uint64 = 0x1000_0000

// Device is a software ray-tracing device.
type Device struct {
	logger log.Logger

	mu       sync.Mutex
	nextAddr uint64

	// allocs is kept sorted by base address for containment lookups.
	allocs []*buffer

	// structs maps top level structure addresses back to the
	// structures, the lookup a trace call performs on the TLAS
	// address in the push constants.
	structs map[uint64]*tlas

	workers int
	closed  bool
}

// New returns an idle software device. workers caps the number of
// goroutines a dispatch fans out to; zero picks a default.
func New(workers int) *Device {
	if workers <= 0 {
		workers = 8
	}
	return &Device{
		logger:   log.New("soft"),
		nextAddr: addrBase,
		workers:  workers,
	}
}

// Name implements device.Device.
func (d *Device) Name() string {
	return "software"
}

// Limits implements device.Device.
func (d *Device) Limits() device.Limits {
	return device.Limits{
		ShaderGroupHandleSize:      handleSize,
		ShaderGroupHandleAlignment: handleAlign,
		ShaderGroupBaseAlignment:   baseAlign,
		MinBufferAlignment:         8,
		MaxBounces:                 maxBounces,
	}
}

// buffer is a host allocation with a synthetic device address.
type buffer struct {
	dev   *Device
	addr  uint64
	data  []byte
	usage device.BufferUsage
	freed bool
}

func (b *buffer) Address() uint64 { return b.addr }
func (b *buffer) Size() uint64    { return uint64(len(b.data)) }

func (b *buffer) Write(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return device.ErrOutOfRange
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *buffer) Read(offset uint64, data []byte) error {
	if b.usage&device.UsageHostVisible == 0 {
		return device.ErrNotHostVisible
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return device.ErrOutOfRange
	}
	copy(data, b.data[offset:])
	return nil
}

func (b *buffer) Free() {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if b.freed {
		return
	}
	b.freed = true
	for i, other := range b.dev.allocs {
		if other == b {
			b.dev.allocs = append(b.dev.allocs[:i], b.dev.allocs[i+1:]...)
			break
		}
	}
}

// CreateBuffer implements device.Device.
func (d *Device) CreateBuffer(size uint64, align uint32, usage device.BufferUsage) (device.Buffer, error) {
	if size == 0 {
		return nil, device.ErrOutOfRange
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	a := uint64(align)
	if a < 8 {
		a = 8
	}
	addr := (d.nextAddr + a - 1) &^ (a - 1)
	d.nextAddr = addr + size

	buf := &buffer{
		dev:   d,
		addr:  addr,
		data:  make([]byte, size),
		usage: usage,
	}
	d.allocs = append(d.allocs, buf)
	return buf, nil
}

// resolve maps a device address range onto the host bytes backing it.
// Trace programs use it the way device code uses buffer_reference.
func (d *Device) resolve(addr, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := sort.Search(len(d.allocs), func(i int) bool {
		return d.allocs[i].addr+uint64(len(d.allocs[i].data)) > addr
	})
	if i < len(d.allocs) {
		b := d.allocs[i]
		if addr >= b.addr && addr+size <= b.addr+uint64(len(b.data)) {
			return b.data[addr-b.addr : addr-b.addr+size], nil
		}
	}
	return nil, fmt.Errorf("soft device: unmapped address %#x+%d", addr, size)
}

// WaitFrame implements device.Device. Dispatches run synchronously so
// the fence has nothing to wait on.
func (d *Device) WaitFrame() error {
	if d.closed {
		return fmt.Errorf("soft device: closed")
	}
	return nil
}

// Close implements device.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allocs = nil
	d.closed = true
	return nil
}
