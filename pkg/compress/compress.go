// Package compress implements the numeric codecs used by BigWorld vertex
// data: spherical quantization of unit direction vectors to two 16-bit
// integers, and quantization of bone influences (weights and indices) to
// bytes.
package compress

import (
	"sort"

	"github.com/chewxy/math32"
)

// Quantization ranges.
const (
	u16Max = 65535
	u8Max  = 255
)

// CompressDir packs a direction vector into two 16-bit values using a
// spherical mapping: azimuth phi = atan2(y,x) and elevation
// theta = asin(z), both remapped to [0,1] and quantized to 0..65535.
// The input is normalized first; a near-zero vector falls back to (0,0,1).
// Lossy but deterministic. Round-trip angular error stays within
// 2*pi/65536 in azimuth and pi/65536 in elevation.
func CompressDir(x, y, z float32) (u, v uint16) {
	x, y, z = normalize3(x, y, z)

	phi := math32.Atan2(y, x)                 // [-pi, pi]
	theta := math32.Asin(clamp(z, -1.0, 1.0)) // [-pi/2, pi/2]

	phi01 := (phi + math32.Pi) / (2.0 * math32.Pi)
	theta01 := (theta + math32.Pi/2.0) / math32.Pi

	u = uint16(clamp(math32.Round(phi01*u16Max), 0, u16Max))
	v = uint16(clamp(math32.Round(theta01*u16Max), 0, u16Max))
	return u, v
}

// DecompressDir is the inverse of CompressDir: it reconstructs the
// azimuth/elevation angles from the quantized pair and converts them back
// to a renormalized unit vector.
func DecompressDir(u, v uint16) (x, y, z float32) {
	phi01 := float32(u) / u16Max
	theta01 := float32(v) / u16Max

	phi := phi01*(2.0*math32.Pi) - math32.Pi
	theta := theta01*math32.Pi - math32.Pi/2.0

	x = math32.Cos(theta) * math32.Cos(phi)
	y = math32.Cos(theta) * math32.Sin(phi)
	z = math32.Sin(theta)
	return normalize3(x, y, z)
}

// QuantizeWeights quantizes up to 3 bone weights to bytes. Weights are
// sorted descending, padded or cut to exactly 3, and normalized to sum 1
// (falling back to (1,0,0) when the sum is effectively zero). Only the
// first two quantized values are stored in a vertex; the third is derived
// as 255-q0-q1 so the stored triple always sums to exactly 255. The triple
// is returned in full for convenience.
func QuantizeWeights(weights []float32) (q0, q1, q2 uint8) {
	w := make([]float32, len(weights))
	copy(w, weights)
	sort.Slice(w, func(i, j int) bool { return w[i] > w[j] })

	if len(w) > 3 {
		w = w[:3]
	}
	for len(w) < 3 {
		w = append(w, 0)
	}

	s := w[0] + w[1] + w[2]
	if s <= 1e-20 {
		w[0], w[1], w[2] = 1, 0, 0
	} else {
		for i := range w {
			w[i] = clamp(w[i]/s, 0, 1)
		}
	}

	r0 := clampInt(int(math32.Round(w[0]*u8Max)), 0, u8Max)
	// The second byte is capped to the remaining headroom so the derived
	// third byte lands in 0..255 and the triple sums to exactly 255 even
	// when both roundings go up at a half step.
	r1 := clampInt(int(math32.Round(w[1]*u8Max)), 0, u8Max-r0)
	r2 := u8Max - r0 - r1

	return uint8(r0), uint8(r1), uint8(r2)
}

// QuantizeIndices quantizes up to 3 bone indices to bytes. Missing slots
// are filled with 0; each value is truncated to its low 8 bits, so a mesh
// may reference at most 256 distinct bones.
func QuantizeIndices(indices []int) (b0, b1, b2 uint8) {
	var idx [3]int
	for i := 0; i < 3 && i < len(indices); i++ {
		idx[i] = indices[i]
	}
	return uint8(idx[0] & 0xFF), uint8(idx[1] & 0xFF), uint8(idx[2] & 0xFF)
}

// PackUV passes a texture coordinate pair through unchanged. Formats store
// UVs as two 32-bit floats; this is the single seam to change if a future
// format packs them.
func PackUV(u, v float32) (float32, float32) {
	return u, v
}

// normalize3 returns the unit vector for (x,y,z), or (0,0,1) when the
// input length is effectively zero.
func normalize3(x, y, z float32) (float32, float32, float32) {
	n := math32.Sqrt(x*x + y*y + z*z)
	if n <= 1e-20 {
		return 0, 0, 1
	}
	return x / n, y / n, z / n
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
