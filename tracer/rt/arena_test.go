package rt_test

import (
	"strings"
	"testing"

	"github.com/HugoPeters1024/vk-rays/tracer/rt"
	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
	"github.com/HugoPeters1024/vk-rays/tracer/soft"
)

func TestArenaUploadRoundTrip(t *testing.T) {
	dev := soft.New(1)
	defer dev.Close()
	arena := rt.NewArena(dev)
	defer arena.Release()

	values := []float32{1, 2, 3, 4}
	buf, err := arena.Upload(values, 0, device.UsageStorage|device.UsageHostVisible)
	if err != nil {
		t.Fatalf("expected upload to succeed; got %v", err)
	}
	if buf.Size() != 16 {
		t.Fatalf("expected 16 byte buffer; got %d", buf.Size())
	}
	if arena.Allocated() != 16 {
		t.Fatalf("expected 16 live bytes; got %d", arena.Allocated())
	}

	raw := make([]byte, 16)
	if err = buf.Read(0, raw); err != nil {
		t.Fatalf("expected read back to succeed; got %v", err)
	}
	// 2.0 is 0x40000000 little-endian
	if raw[4] != 0 || raw[7] != 0x40 {
		t.Fatalf("expected little-endian float encoding; got % x", raw[4:8])
	}

	arena.Free(buf)
	if arena.Allocated() != 0 {
		t.Fatalf("expected no live bytes after free; got %d", arena.Allocated())
	}
	// double free is a no-op
	arena.Free(buf)
	if arena.Allocated() != 0 {
		t.Fatalf("expected double free to not underflow; got %d", arena.Allocated())
	}
}

func TestArenaRejectsEmptyAllocations(t *testing.T) {
	dev := soft.New(1)
	defer dev.Close()
	arena := rt.NewArena(dev)

	if _, err := arena.Alloc(0, 0, device.UsageStorage); err == nil || !strings.Contains(err.Error(), "zero-size") {
		t.Fatalf("expected zero-size allocation to fail; got %v", err)
	}
	if _, err := arena.Upload([]byte{}, 0, device.UsageStorage); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty upload to fail; got %v", err)
	}
}

func TestArenaRelease(t *testing.T) {
	dev := soft.New(1)
	defer dev.Close()
	arena := rt.NewArena(dev)

	for i := 0; i < 4; i++ {
		if _, err := arena.Alloc(64, 0, device.UsageStorage); err != nil {
			t.Fatalf("expected allocation to succeed; got %v", err)
		}
	}
	if arena.Allocated() != 256 {
		t.Fatalf("expected 256 live bytes; got %d", arena.Allocated())
	}

	arena.Release()
	if arena.Allocated() != 0 {
		t.Fatalf("expected release to drop all allocations; got %d", arena.Allocated())
	}
}
