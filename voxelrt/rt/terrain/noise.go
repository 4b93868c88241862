package terrain

import "github.com/chewxy/math32"

// Perlin3 is classic 3D gradient noise with permutation polynomials and a
// quintic fade, returning roughly [-1, 1]. terrain_gen.wgsl carries the same
// function term for term so CPU and GPU chunks agree.
func Perlin3(x, y, z float32) float32 {
	pi0 := [3]float32{math32.Floor(x), math32.Floor(y), math32.Floor(z)}
	pf0 := [3]float32{x - pi0[0], y - pi0[1], z - pi0[2]}
	pi1 := [3]float32{mod289(pi0[0] + 1), mod289(pi0[1] + 1), mod289(pi0[2] + 1)}
	pi0 = [3]float32{mod289(pi0[0]), mod289(pi0[1]), mod289(pi0[2])}
	pf1 := [3]float32{pf0[0] - 1, pf0[1] - 1, pf0[2] - 1}

	ix := [4]float32{pi0[0], pi1[0], pi0[0], pi1[0]}
	iy := [4]float32{pi0[1], pi0[1], pi1[1], pi1[1]}

	var ixy, ixy0, ixy1 [4]float32
	for i := 0; i < 4; i++ {
		ixy[i] = permute(permute(ix[i]) + iy[i])
		ixy0[i] = permute(ixy[i] + pi0[2])
		ixy1[i] = permute(ixy[i] + pi1[2])
	}

	g0 := gradients(ixy0)
	g1 := gradients(ixy1)

	// Corner order within each z layer: 00, 10, 01, 11 in x, y.
	n000 := dot3(g0[0], pf0[0], pf0[1], pf0[2])
	n100 := dot3(g0[1], pf1[0], pf0[1], pf0[2])
	n010 := dot3(g0[2], pf0[0], pf1[1], pf0[2])
	n110 := dot3(g0[3], pf1[0], pf1[1], pf0[2])
	n001 := dot3(g1[0], pf0[0], pf0[1], pf1[2])
	n101 := dot3(g1[1], pf1[0], pf0[1], pf1[2])
	n011 := dot3(g1[2], pf0[0], pf1[1], pf1[2])
	n111 := dot3(g1[3], pf1[0], pf1[1], pf1[2])

	fx, fy, fz := fade(pf0[0]), fade(pf0[1]), fade(pf0[2])
	nz := [4]float32{
		mix(n000, n001, fz),
		mix(n100, n101, fz),
		mix(n010, n011, fz),
		mix(n110, n111, fz),
	}
	nyz0 := mix(nz[0], nz[2], fy)
	nyz1 := mix(nz[1], nz[3], fy)
	return 2.2 * mix(nyz0, nyz1, fx)
}

// Unit maps noise into [0, 1].
func Unit(n float32) float32 {
	v := 0.5 + 0.5*n
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// gradients derives four normalized corner gradients from hashed lattice ids.
func gradients(h [4]float32) [4][3]float32 {
	var out [4][3]float32
	for i := 0; i < 4; i++ {
		gx := h[i] * (1.0 / 7.0)
		gy := fract(math32.Floor(gx)*(1.0/7.0)) - 0.5
		gx = fract(gx)
		gz := 0.5 - math32.Abs(gx) - math32.Abs(gy)
		sz := step(gz, 0)
		gx -= sz * (step(0, gx) - 0.5)
		gy -= sz * (step(0, gy) - 0.5)

		norm := taylorInvSqrt(gx*gx + gy*gy + gz*gz)
		out[i] = [3]float32{gx * norm, gy * norm, gz * norm}
	}
	return out
}

func mod289(x float32) float32 {
	return x - math32.Floor(x*(1.0/289.0))*289.0
}

func permute(x float32) float32 {
	return mod289((x*34.0 + 1.0) * x)
}

func taylorInvSqrt(r float32) float32 {
	return 1.79284291400159 - 0.85373472095314*r
}

func fract(x float32) float32 {
	return x - math32.Floor(x)
}

// step follows GLSL: 0 when x < edge, else 1.
func step(edge, x float32) float32 {
	if x < edge {
		return 0
	}
	return 1
}

// fade is the quintic t^3 (6t^2 - 15t + 10).
func fade(t float32) float32 {
	return t * t * t * (t*(t*6-15) + 10)
}

func mix(a, b, t float32) float32 {
	return a*(1-t) + b*t
}

func dot3(g [3]float32, x, y, z float32) float32 {
	return g[0]*x + g[1]*y + g[2]*z
}
