package mesh

import (
	"fmt"
	"math"
)

// UVSphere builds a unit-radius sphere from n longitude segments and n latitude bands.
// Vertex i*n+j sits at polar angle i/n*pi and azimuth j/n*2pi, so each latitude ring holds n
// vertices and the poles are repeated n times. Normals equal positions. Triangles wind
// counter-clockwise seen from outside.
//
// Parameters:
//   - n: the subdivision count, at least 3
//
// Returns:
//   - Mesh: the sphere mesh
//   - error: error if n is too small to enclose a volume
func UVSphere(n uint32) (Mesh, error) {
	if n < 3 {
		return nil, fmt.Errorf("uv sphere needs at least 3 subdivisions, got %d", n)
	}
	const radius = 1.0

	positions := make([][3]float32, 0, (n+1)*n)
	indices := make([]uint32, 0, 3*(n+2*n*(n-1)))

	quad := func(idx [4]uint32, i uint32) {
		indices = append(indices, idx[0], idx[1], idx[2])
		if i > 1 {
			indices = append(indices, idx[3], idx[2], idx[1])
		}
	}

	for i := uint32(0); i <= n; i++ {
		phi := float64(i) / float64(n) * math.Pi
		for j := uint32(0); j < n; j++ {
			theta := float64(j) / float64(n) * 2 * math.Pi
			positions = append(positions, [3]float32{
				float32(radius * math.Sin(phi) * math.Cos(theta)),
				float32(radius * math.Cos(phi)),
				float32(radius * math.Sin(phi) * math.Sin(theta)),
			})
			if i > 0 && j > 0 {
				quad([4]uint32{i*n + j, i*n + j - 1, (i-1)*n + j, (i-1)*n + j - 1}, i)
			}
		}
		// Close the ring by joining its last segment back to the first.
		if i > 0 {
			quad([4]uint32{i * n, (i+1)*n - 1, (i - 1) * n, i*n - 1}, i)
		}
	}

	normals := make([][3]float32, len(positions))
	copy(normals, positions)

	return NewMesh(
		WithName(fmt.Sprintf("uv_sphere_%d", n)),
		WithPositions(positions),
		WithNormals(normals),
		WithIndices(indices),
	), nil
}
