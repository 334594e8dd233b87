// Command primative implements the generator CLI of spec.md §6.3:
// cube, cylinder, uvsphere, or icosphere, written to a single output
// file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/maurerpe/libpolyhedra/fileformats"
	"github.com/maurerpe/libpolyhedra/mesh"
	"github.com/maurerpe/libpolyhedra/primitive"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: primative -t {cube|cylinder|uvsphere|icosphere} [-n N] [-x X] [-y Y] [-z Z] outfile")
	flag.PrintDefaults()
}

func main() {
	var (
		kind = flag.String("t", "", "primitive type: cube, cylinder, uvsphere, or icosphere")
		n    = flag.Int("n", 3, "segment/ring/subdivision count (meaning depends on -t)")
		x    = flag.Float64("x", 1, "X size / diameter")
		y    = flag.Float64("y", 1, "Y size (cube only)")
		z    = flag.Float64("z", 1, "Z size / height (cube/cylinder only)")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	outfile := flag.Arg(0)

	im, err := build(*kind, *n, *x, *y, *z)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log.Printf("Writing %s...", outfile)
	l := mesh.NewList()
	l.Append(im)
	if err := fileformats.Write(outfile, l); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func build(kind string, n int, x, y, z float64) (*mesh.IndexedMesh, error) {
	switch kind {
	case "cube":
		return primitive.Cube(x, y, z)
	case "cylinder":
		return primitive.Cylinder(x, z, n)
	case "uvsphere":
		return primitive.UVSphere(x, n)
	case "icosphere":
		return primitive.Icosphere(x, n)
	case "":
		return nil, errors.New("-t is required")
	default:
		return nil, errors.Errorf("unknown primitive type %q", kind)
	}
}
