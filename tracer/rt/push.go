package rt

import (
	"encoding/binary"
	"math"

	"github.com/HugoPeters1024/vk-rays/types"
)

// PushSize is the byte size of the push constant block. The layout is
// fixed and little-endian; the device-side programs decode it at the
// same offsets.
const PushSize = 200

// Push constant field offsets.
const (
	pushInvView      = 0   // 64 bytes, column-major float32
	pushInvProj      = 64  // 64 bytes, column-major float32
	pushAccumAddr    = 128 // u64 accumulation buffer
	pushQueryAddr    = 136 // u64 pick query slot
	pushInstAttrAddr = 144 // u64 per-instance attribute table
	pushTLASAddr     = 152 // u64 top level structure
	pushEntropy      = 160 // u32 frame entropy seed
	pushClear        = 164 // u32 1 = reset accumulation
	pushMouseX       = 168 // u32 pick pixel x, (0,0) = none
	pushMouseY       = 172 // u32 pick pixel y
	pushExposure     = 176 // f32
	pushSamples      = 180 // u32 sample budget this frame
	pushBounces      = 184 // u32 bounce cap
	pushAperture     = 188 // f32 thin lens radius, 0 = pinhole
	pushFocal        = 192 // f32 focal distance, <= 0 = pinhole
)

// PushConstants is the per-dispatch parameter block.
type PushConstants struct {
	InvView  types.Mat4
	InvProj  types.Mat4
	Entropy  uint32
	Clear    bool
	MouseX   uint32
	MouseY   uint32
	Exposure float32
	Samples  uint32
	Bounces  uint32
	Aperture float32
	Focal    float32

	AccumAddr    uint64
	QueryAddr    uint64
	InstAttrAddr uint64
	TLASAddr     uint64
}

// Encode serializes the block into its wire layout.
func (p *PushConstants) Encode() []byte {
	buf := make([]byte, PushSize)
	putMat4(buf[pushInvView:], p.InvView)
	putMat4(buf[pushInvProj:], p.InvProj)
	binary.LittleEndian.PutUint64(buf[pushAccumAddr:], p.AccumAddr)
	binary.LittleEndian.PutUint64(buf[pushQueryAddr:], p.QueryAddr)
	binary.LittleEndian.PutUint64(buf[pushInstAttrAddr:], p.InstAttrAddr)
	binary.LittleEndian.PutUint64(buf[pushTLASAddr:], p.TLASAddr)
	binary.LittleEndian.PutUint32(buf[pushEntropy:], p.Entropy)
	var clear uint32
	if p.Clear {
		clear = 1
	}
	binary.LittleEndian.PutUint32(buf[pushClear:], clear)
	binary.LittleEndian.PutUint32(buf[pushMouseX:], p.MouseX)
	binary.LittleEndian.PutUint32(buf[pushMouseY:], p.MouseY)
	binary.LittleEndian.PutUint32(buf[pushExposure:], math.Float32bits(p.Exposure))
	binary.LittleEndian.PutUint32(buf[pushSamples:], p.Samples)
	binary.LittleEndian.PutUint32(buf[pushBounces:], p.Bounces)
	putF32(buf[pushAperture:], p.Aperture)
	putF32(buf[pushFocal:], p.Focal)
	return buf
}

// DecodePushConstants parses a wire-layout block. The software device
// uses it to see the dispatch exactly as hardware would.
func DecodePushConstants(buf []byte) PushConstants {
	var p PushConstants
	p.InvView = getMat4(buf[pushInvView:])
	p.InvProj = getMat4(buf[pushInvProj:])
	p.AccumAddr = binary.LittleEndian.Uint64(buf[pushAccumAddr:])
	p.QueryAddr = binary.LittleEndian.Uint64(buf[pushQueryAddr:])
	p.InstAttrAddr = binary.LittleEndian.Uint64(buf[pushInstAttrAddr:])
	p.TLASAddr = binary.LittleEndian.Uint64(buf[pushTLASAddr:])
	p.Entropy = binary.LittleEndian.Uint32(buf[pushEntropy:])
	p.Clear = binary.LittleEndian.Uint32(buf[pushClear:]) != 0
	p.MouseX = binary.LittleEndian.Uint32(buf[pushMouseX:])
	p.MouseY = binary.LittleEndian.Uint32(buf[pushMouseY:])
	p.Exposure = math.Float32frombits(binary.LittleEndian.Uint32(buf[pushExposure:]))
	p.Samples = binary.LittleEndian.Uint32(buf[pushSamples:])
	p.Bounces = binary.LittleEndian.Uint32(buf[pushBounces:])
	p.Aperture = getF32(buf[pushAperture:])
	p.Focal = getF32(buf[pushFocal:])
	return p
}

func putMat4(dst []byte, m types.Mat4) {
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(m[i]))
	}
}

func getMat4(src []byte) types.Mat4 {
	var m types.Mat4
	for i := 0; i < 16; i++ {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return m
}

func putF32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

func getF32(src []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src))
}
