package types

// Transform3x4 is the row-major 3x4 world transform embedded in
// top-level acceleration structure instances. The layout matches the
// hardware instance record: three rows of four floats, the last column
// being the translation.
type Transform3x4 [12]float32

// IdentityTransform returns the identity 3x4 transform.
func IdentityTransform() Transform3x4 {
	return Transform3x4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
}

// TransformFromMat4 packs the upper three rows of a column-major 4x4
// matrix into the row-major instance layout.
func TransformFromMat4(m Mat4) Transform3x4 {
	var t Transform3x4
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			t[row*4+col] = m.At(row, col)
		}
	}
	return t
}

// Mat4 expands the transform back to a full 4x4 matrix with an
// implicit (0, 0, 0, 1) bottom row.
func (t Transform3x4) Mat4() Mat4 {
	var m Mat4
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			m[col*4+row] = t[row*4+col]
		}
	}
	m[15] = 1
	return m
}

// Apply transforms a point.
func (t Transform3x4) Apply(p Vec3) Vec3 {
	return Vec3{
		t[0]*p[0] + t[1]*p[1] + t[2]*p[2] + t[3],
		t[4]*p[0] + t[5]*p[1] + t[6]*p[2] + t[7],
		t[8]*p[0] + t[9]*p[1] + t[10]*p[2] + t[11],
	}
}

// ApplyDir transforms a direction, ignoring the translation column.
func (t Transform3x4) ApplyDir(d Vec3) Vec3 {
	return Vec3{
		t[0]*d[0] + t[1]*d[1] + t[2]*d[2],
		t[4]*d[0] + t[5]*d[1] + t[6]*d[2],
		t[8]*d[0] + t[9]*d[1] + t[10]*d[2],
	}
}
