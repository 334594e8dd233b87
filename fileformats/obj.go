package fileformats

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/maurerpe/libpolyhedra/mesh"
)

// ReadOBJ reads a Wavefront .obj stream per spec.md §6.1: v/vt/vn/f/o/#
// directives, triangle faces only, 1-based indices referencing
// previously declared v/vt/vn. vt is stored as (u, 1-v) after read. A
// new `o` directive starts a new mesh in the returned list; everything
// before the first `o` goes into an implicit leading mesh.
//
// Floats-per-vertex is inferred from whether the file carries vt and/or
// vn data anywhere: 3 with neither, 5 with vt only (position + uv), 6
// with vn only (position + normal), 8 with both.
func ReadOBJ(r io.Reader) (*mesh.List, error) {
	type face struct {
		vi, ti, ni [3]int // 0-based; -1 if absent
	}
	type sub struct {
		name  string
		faces []face
	}

	var positions [][3]float32
	var texcoords [][2]float32
	var normals [][3]float32
	subs := []*sub{{name: ""}}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "v":
			p, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, objErr(line, err)
			}
			positions = append(positions, p)
		case "vt":
			if len(fields) < 3 {
				return nil, objErr(line, errors.New("vt needs u and v"))
			}
			u, err := strconv.ParseFloat(fields[1], 32)
			if err != nil {
				return nil, objErr(line, err)
			}
			v, err := strconv.ParseFloat(fields[2], 32)
			if err != nil {
				return nil, objErr(line, err)
			}
			texcoords = append(texcoords, [2]float32{float32(u), float32(1 - v)})
		case "vn":
			n, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, objErr(line, err)
			}
			normals = append(normals, n)
		case "o":
			name := ""
			if len(fields) > 1 {
				name = fields[1]
			}
			subs = append(subs, &sub{name: name})
		case "f":
			if len(fields) != 4 {
				return nil, objErr(line, errors.Errorf("face vertex arity must be 3, got %d", len(fields)-1))
			}
			var f face
			for k, tok := range fields[1:4] {
				vi, ti, ni, err := parseFaceToken(tok)
				if err != nil {
					return nil, objErr(line, err)
				}
				if vi < 0 || vi >= len(positions) {
					return nil, objErr(line, errors.Errorf("face references undeclared vertex %d", vi+1))
				}
				if ti >= 0 && ti >= len(texcoords) {
					return nil, objErr(line, errors.Errorf("face references undeclared texcoord %d", ti+1))
				}
				if ni >= 0 && ni >= len(normals) {
					return nil, objErr(line, errors.Errorf("face references undeclared normal %d", ni+1))
				}
				f.vi[k], f.ti[k], f.ni[k] = vi, ti, ni
			}
			cur := subs[len(subs)-1]
			cur.faces = append(cur.faces, f)
		default:
			// Unknown directive: ignore, matching the teacher's
			// lenient parsing of optional mtllib/usemtl/s lines.
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "fileformats: read OBJ")
	}

	hasVt := len(texcoords) > 0
	hasVn := len(normals) > 0
	f := 3
	switch {
	case hasVt && hasVn:
		f = 8
	case hasVt:
		f = 5
	case hasVn:
		f = 6
	}

	list := mesh.NewList()
	for _, s := range subs {
		if len(s.faces) == 0 {
			continue
		}
		im, err := mesh.New(f, mesh.Triangle)
		if err != nil {
			return nil, errors.Wrap(err, "fileformats: read OBJ")
		}
		for _, face := range s.faces {
			for k := 0; k < 3; k++ {
				rec := make([]float32, 0, f)
				p := positions[face.vi[k]]
				rec = append(rec, p[0], p[1], p[2])
				if hasVt {
					if face.ti[k] >= 0 {
						t := texcoords[face.ti[k]]
						rec = append(rec, t[0], t[1])
					} else {
						rec = append(rec, 0, 0)
					}
				}
				if hasVn {
					if face.ni[k] >= 0 {
						n := normals[face.ni[k]]
						rec = append(rec, n[0], n[1], n[2])
					} else {
						rec = append(rec, 0, 0, 0)
					}
				}
				if _, err := im.Add(rec); err != nil {
					return nil, errors.Wrap(err, "fileformats: read OBJ")
				}
			}
		}
		im.Finalize()
		list.Append(im)
	}
	return list, nil
}

func objErr(line int, err error) error {
	return errors.Wrapf(mesh.Errorf(mesh.InvalidInput, "line %d: %v", line, err), "fileformats: read OBJ")
}

func parseFloats3(fields []string) ([3]float32, error) {
	var out [3]float32
	if len(fields) < 3 {
		return out, errors.New("expected 3 floats")
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return out, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// parseFaceToken parses "vi[/ti][/ni]" into 0-based indices, -1 when
// the slash-slot is absent.
func parseFaceToken(tok string) (vi, ti, ni int, err error) {
	parts := strings.Split(tok, "/")
	vi, err = parseIndex(parts[0])
	if err != nil {
		return 0, 0, 0, err
	}
	ti, ni = -1, -1
	if len(parts) >= 2 && parts[1] != "" {
		if ti, err = parseIndex(parts[1]); err != nil {
			return 0, 0, 0, err
		}
	}
	if len(parts) >= 3 && parts[2] != "" {
		if ni, err = parseIndex(parts[2]); err != nil {
			return 0, 0, 0, err
		}
	}
	return vi, ti, ni, nil
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed index %q", s)
	}
	return n - 1, nil
}

// WriteOBJ writes list as a Wavefront .obj stream per spec.md §6.1: a
// "# libpolyhedra" comment, then per-mesh "o polyhedra.NNN" plus
// deduplicated v/vt/vn sections and f entries, with index offsets
// accumulating across meshes.
func WriteOBJ(w io.Writer, list *mesh.List) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# libpolyhedra")

	vOff, vtOff, vnOff := 1, 1, 1
	idx := 0
	var werr error
	list.Each(func(im *mesh.IndexedMesh) {
		if werr != nil {
			return
		}
		if im.Kind() != mesh.Triangle || im.F() < 3 {
			werr = mesh.Errorf(mesh.InvalidInput, "fileformats: WriteOBJ needs triangle meshes with F>=3")
			return
		}
		hasVt, hasVn := objLayout(im.F())
		fmt.Fprintf(bw, "o polyhedra.%03d\n", idx)
		idx++

		n := im.NumVerts()
		for i := 0; i < n; i++ {
			v := im.Vertex(uint32(i))
			fmt.Fprintf(bw, "v %g %g %g\n", v[0], v[1], v[2])
		}
		if hasVt {
			for i := 0; i < n; i++ {
				v := im.Vertex(uint32(i))
				fmt.Fprintf(bw, "vt %g %g\n", v[3], 1-v[4])
			}
		}
		if hasVn {
			off := 3
			if hasVt {
				off = 5
			}
			for i := 0; i < n; i++ {
				v := im.Vertex(uint32(i))
				fmt.Fprintf(bw, "vn %g %g %g\n", v[off], v[off+1], v[off+2])
			}
		}

		for p := 0; p < im.NumPrimitives(); p++ {
			tri := im.Primitive(p)
			fmt.Fprint(bw, "f")
			for _, ix := range tri {
				fmt.Fprint(bw, " ", objFaceToken(int(ix), hasVt, hasVn, vOff, vtOff, vnOff))
			}
			fmt.Fprintln(bw)
		}
		vOff += n
		if hasVt {
			vtOff += n
		}
		if hasVn {
			vnOff += n
		}
	})
	if werr != nil {
		return werr
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "fileformats: write OBJ")
	}
	return nil
}

func objLayout(f int) (hasVt, hasVn bool) {
	switch f {
	case 5:
		return true, false
	case 6:
		return false, true
	case 8:
		return true, true
	default:
		return false, false
	}
}

// objFaceToken renders one "vi[/ti][/ni]" face token. Per spec.md §6.1's
// Open Question: vn-without-vt yields "vi//ni", vt-without-vn yields
// "vi/ti".
func objFaceToken(localIdx int, hasVt, hasVn bool, vOff, vtOff, vnOff int) string {
	vi := localIdx + vOff
	switch {
	case hasVt && hasVn:
		return fmt.Sprintf("%d/%d/%d", vi, localIdx+vtOff, localIdx+vnOff)
	case hasVt:
		return fmt.Sprintf("%d/%d", vi, localIdx+vtOff)
	case hasVn:
		return fmt.Sprintf("%d//%d", vi, localIdx+vnOff)
	default:
		return strconv.Itoa(vi)
	}
}
