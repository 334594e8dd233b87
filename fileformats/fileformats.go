// Package fileformats implements the mesh file formats of spec.md §6.1:
// Wavefront .obj (read/write), binary .stl (read/write), and .svg
// (write only), dispatched by the case-insensitive file suffix.
package fileformats

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/maurerpe/libpolyhedra/mesh"
)

// Read loads path's meshes, dispatching on its suffix. Only .obj and
// .stl support reading.
func Read(path string) (*mesh.List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "fileformats: read")
	}
	defer f.Close()

	switch suffix(path) {
	case ".obj":
		return ReadOBJ(f)
	case ".stl":
		return ReadSTL(f)
	default:
		return nil, mesh.Errorf(mesh.InvalidInput, "fileformats: cannot read %s", path)
	}
}

// Write saves list to path, dispatching on its suffix.
func Write(path string, list *mesh.List) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "fileformats: write")
	}
	defer f.Close()

	switch suffix(path) {
	case ".obj":
		return WriteOBJ(f, list)
	case ".stl":
		return WriteSTL(f, list)
	case ".svg":
		return WriteSVG(f, list)
	default:
		return mesh.Errorf(mesh.InvalidInput, "fileformats: cannot write %s", path)
	}
}

func suffix(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
