package fileformats

import (
	"bufio"
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/maurerpe/libpolyhedra/mesh"
)

// WriteSVG writes list as an .svg document per spec.md §6.1: a header
// sized to the bounding box of all input 2D points, then per-mesh
// "<g id=\"polyline_NNN\">" groups of either <line> elements (Line
// kind, stroked black width 1) or <polygon> elements (Triangle kind,
// filled blue, no stroke). Y values are written in input order (no
// flip). Reading SVG is not supported.
func WriteSVG(w io.Writer, list *mesh.List) error {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	seen := false
	list.Each(func(im *mesh.IndexedMesh) {
		for i := 0; i < im.NumVerts(); i++ {
			v := im.Vertex(uint32(i))
			if len(v) < 2 {
				continue
			}
			seen = true
			x, y := float64(v[0]), float64(v[1])
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
	})
	if !seen {
		minX, minY, maxX, maxY = 0, 0, 0, 0
	}
	width, height := maxX-minX, maxY-minY

	bw := bufio.NewWriter(w)
	canvas := svg.New(bw)
	canvas.Start(int(math.Ceil(width)), int(math.Ceil(height)),
		fmt.Sprintf(`viewBox="%g %g %g %g"`, minX, minY, width, height))

	idx := 0
	list.Each(func(im *mesh.IndexedMesh) {
		switch im.Kind() {
		case mesh.Line:
			fmt.Fprintf(bw, "<g id=\"polyline_%03d\" style=\"stroke:black;stroke-width:1\">\n", idx)
			for p := 0; p < im.NumPrimitives(); p++ {
				seg := im.Primitive(p)
				a, b := im.Vertex(seg[0]), im.Vertex(seg[1])
				fmt.Fprintf(bw, "<line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" />\n",
					a[0], a[1], b[0], b[1])
			}
			canvas.Gend()
		case mesh.Triangle:
			fmt.Fprintf(bw, "<g id=\"polyline_%03d\" style=\"fill:blue;stroke:none\">\n", idx)
			for p := 0; p < im.NumPrimitives(); p++ {
				tri := im.Primitive(p)
				fmt.Fprint(bw, "<polygon points=\"")
				for _, vi := range tri {
					v := im.Vertex(vi)
					fmt.Fprintf(bw, "%g,%g ", v[0], v[1])
				}
				fmt.Fprint(bw, "\" />\n")
			}
			canvas.Gend()
		default:
			fmt.Fprintf(bw, "<g id=\"polyline_%03d\">\n", idx)
			canvas.Gend()
		}
		idx++
	})

	canvas.End()
	return bw.Flush()
}
