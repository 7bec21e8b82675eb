package rt

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/HugoPeters1024/vk-rays/log"
	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
)

// Minimum alignments the arena enforces on top of whatever the caller
// asks for. Records that are referenced through raw device addresses
// get the larger one so address arithmetic in the trace programs stays
// trivially aligned.
const (
	minAlign    = 8
	recordAlign = 16
)

// Arena allocates and uploads device buffers for one tracer instance.
// It remembers every live allocation so a teardown can release them
// all even when a build failed halfway through.
//
// Addresses handed out by the arena are stable until the owning buffer
// is freed; everything that embeds them (binding table records, push
// constants) stays valid exactly that long.
type Arena struct {
	dev       device.Device
	logger    log.Logger
	live      map[device.Buffer]struct{}
	allocated uint64
}

// NewArena returns an empty arena on the given device.
func NewArena(dev device.Device) *Arena {
	return &Arena{
		dev:    dev,
		logger: log.New("arena"),
		live:   map[device.Buffer]struct{}{},
	}
}

// Alloc allocates size bytes with at least minAlign alignment. A zero
// align requests the minimum. Allocation failures are returned to the
// caller; the arena never retries.
func (a *Arena) Alloc(size uint64, align uint32, usage device.BufferUsage) (device.Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("arena: zero-size allocation")
	}
	if align < minAlign {
		align = minAlign
	}

	buf, err := a.dev.CreateBuffer(size, align, usage)
	if err != nil {
		return nil, fmt.Errorf("arena: alloc %d bytes: %w", size, err)
	}
	a.live[buf] = struct{}{}
	a.allocated += size
	a.logger.Debugf("alloc %d bytes @ %#x (align %d)", size, buf.Address(), align)
	return buf, nil
}

// Upload allocates a buffer sized for data and copies data into it.
// Data must be a slice; its element layout is uploaded verbatim.
func (a *Arena) Upload(data interface{}, align uint32, usage device.BufferUsage) (device.Buffer, error) {
	raw := byteView(data)
	if len(raw) == 0 {
		return nil, fmt.Errorf("arena: upload of empty slice")
	}

	buf, err := a.Alloc(uint64(len(raw)), align, usage)
	if err != nil {
		return nil, err
	}
	if err = buf.Write(0, raw); err != nil {
		a.Free(buf)
		return nil, fmt.Errorf("arena: upload: %w", err)
	}
	return buf, nil
}

// Free releases one buffer. The caller guarantees no in-flight
// dispatch can still read it.
func (a *Arena) Free(buf device.Buffer) {
	if buf == nil {
		return
	}
	if _, ok := a.live[buf]; !ok {
		return
	}
	delete(a.live, buf)
	a.allocated -= buf.Size()
	buf.Free()
}

// Release frees every live buffer.
func (a *Arena) Release() {
	for buf := range a.live {
		a.allocated -= buf.Size()
		buf.Free()
	}
	a.live = map[device.Buffer]struct{}{}
}

// Allocated returns the number of live bytes held by the arena.
func (a *Arena) Allocated() uint64 {
	return a.allocated
}

// byteView reinterprets a slice as its raw bytes without copying.
// It panics when data is not a slice; that is a programmer error.
func byteView(data interface{}) []byte {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice {
		panic(fmt.Sprintf("byteView: expected slice, got %s", v.Kind()))
	}
	size := v.Len() * int(v.Type().Elem().Size())
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(v.Pointer())), size)
}

// alignUp rounds v up to the next multiple of align. Align must be a
// power of two.
func alignUp(v uint64, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
