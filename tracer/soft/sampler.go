package soft

import (
	"github.com/chewxy/math32"

	"github.com/HugoPeters1024/vk-rays/types"
)

// The sampler threads its state through every call: state in, state
// out, no shared mutable seed anywhere.

// wangHash decorrelates per-pixel seeds from the frame entropy.
func wangHash(s uint32) uint32 {
	s = (s ^ 61) ^ (s >> 16)
	s *= 9
	s ^= s >> 4
	s *= 0x27d4eb2d
	s ^= s >> 15
	return s
}

// pixelSeed derives the sampler state for one pixel of one frame.
func pixelSeed(x, y, sample, entropy uint32) uint32 {
	s := wangHash(x*1973 + y*9277 + sample*26699 + entropy)
	if s == 0 {
		s = 1
	}
	return s
}

func xorshift(s uint32) uint32 {
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	return s
}

// rand01 returns a uniform float in [0, 1) and the advanced state.
func rand01(s uint32) (float32, uint32) {
	s = xorshift(s)
	return float32(s>>8) * (1.0 / 16777216.0), s
}

// diskSample returns a uniform point on the unit disk.
func diskSample(s uint32) (x, y float32, out uint32) {
	var u, v float32
	u, s = rand01(s)
	v, s = rand01(s)
	r := math32.Sqrt(u)
	phi := 2 * math32.Pi * v
	return r * math32.Cos(phi), r * math32.Sin(phi), s
}

// cosineSample returns a cosine-weighted direction about the normal.
func cosineSample(n types.Vec3, s uint32) (types.Vec3, uint32) {
	var u, v float32
	u, s = rand01(s)
	v, s = rand01(s)

	r := math32.Sqrt(u)
	phi := 2 * math32.Pi * v
	x := r * math32.Cos(phi)
	y := r * math32.Sin(phi)
	z := math32.Sqrt(1 - u)

	t, b := orthoBasis(n)
	dir := t.Mul(x).Add(b.Mul(y)).Add(n.Mul(z))
	return dir.Normalize(), s
}

// orthoBasis builds a tangent frame around a unit normal.
func orthoBasis(n types.Vec3) (types.Vec3, types.Vec3) {
	var up types.Vec3
	if math32.Abs(n.Y()) < 0.99 {
		up = types.XYZ(0, 1, 0)
	} else {
		up = types.XYZ(1, 0, 0)
	}
	t := up.Cross(n).Normalize()
	return t, n.Cross(t)
}

func reflect(d, n types.Vec3) types.Vec3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

// refract bends d about n with relative index eta; ok is false on
// total internal reflection.
func refract(d, n types.Vec3, eta float32) (types.Vec3, bool) {
	cosI := -d.Dot(n)
	sin2T := eta * eta * (1 - cosI*cosI)
	if sin2T > 1 {
		return types.Vec3{}, false
	}
	cosT := math32.Sqrt(1 - sin2T)
	return d.Mul(eta).Add(n.Mul(eta*cosI - cosT)), true
}

// schlick approximates the Fresnel reflectance.
func schlick(cosI, eta float32) float32 {
	r0 := (1 - eta) / (1 + eta)
	r0 *= r0
	return r0 + (1-r0)*math32.Pow(1-cosI, 5)
}
