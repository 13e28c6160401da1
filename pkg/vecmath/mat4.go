package vecmath

// Mat4 is a 4x4 matrix stored row-major, using the row-vector convention:
// points transform as p' = p * M and the translation lives in the last row.
// This matches the row0..row3 transform layout of .visual descriptors.
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a matrix translating by v.
func Translation(v Vec3) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		v.X, v.Y, v.Z, 1,
	}
}

// Row returns row i as a 4-element array. i must be in 0..3.
func (m Mat4) Row(i int) [4]float32 {
	return [4]float32{m[i*4], m[i*4+1], m[i*4+2], m[i*4+3]}
}

// Mul returns m * other.
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			result[row*4+col] =
				m[row*4+0]*other[0*4+col] +
					m[row*4+1]*other[1*4+col] +
					m[row*4+2]*other[2*4+col] +
					m[row*4+3]*other[3*4+col]
		}
	}
	return result
}

// TransformPoint transforms a point by the matrix (w=1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return Vec3{
		p.X*m[0] + p.Y*m[4] + p.Z*m[8] + m[12],
		p.X*m[1] + p.Y*m[5] + p.Z*m[9] + m[13],
		p.X*m[2] + p.Y*m[6] + p.Z*m[10] + m[14],
	}
}

// TransformDirection transforms a direction by the matrix, ignoring the
// translation row.
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	return Vec3{
		d.X*m[0] + d.Y*m[4] + d.Z*m[8],
		d.X*m[1] + d.Y*m[5] + d.Z*m[9],
		d.X*m[2] + d.Y*m[6] + d.Z*m[10],
	}
}
