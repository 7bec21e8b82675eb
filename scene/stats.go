package scene

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// WriteStats renders a scene resource summary as a table. The byte
// figures are the host-side sizes of the buffers the tracer will
// allocate, before acceleration structure overhead.
func (s *Scene) WriteStats(w io.Writer) {
	var vertices, indices int
	for _, m := range s.Meshes {
		vertices += len(m.Vertices)
		indices += len(m.Indices)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Resource", "Count", "Size"})
	table.Append([]string{"materials", fmt.Sprint(len(s.Materials)), fmtSize(len(s.Materials) * MaterialSize)})
	table.Append([]string{"meshes", fmt.Sprint(len(s.Meshes)), ""})
	table.Append([]string{"vertices", fmt.Sprint(vertices), fmtSize(vertices * VertexSize)})
	table.Append([]string{"indices", fmt.Sprint(indices), fmtSize(indices * 4)})
	table.Append([]string{"triangles", fmt.Sprint(s.TriangleCount()), ""})
	table.Append([]string{"spheres", fmt.Sprint(len(s.Spheres)), fmtSize(len(s.Spheres) * SphereSize)})
	table.Append([]string{"instances", fmt.Sprint(len(s.Instances)), ""})
	table.Render()
}

func fmtSize(size int) string {
	units := []string{"bytes", "kb", "mb", "gb"}
	v := float64(size)
	unit := 0
	for unit < len(units)-1 && v >= 1024 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%3.1f %s", v, units[unit])
}
