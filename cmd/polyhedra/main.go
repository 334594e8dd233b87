// Command polyhedra implements the CLI of spec.md §6.2: read one or
// more mesh files, run a fixed pipeline of optional operations over
// them, and write the result.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"

	"github.com/maurerpe/libpolyhedra/decomp"
	"github.com/maurerpe/libpolyhedra/fileformats"
	"github.com/maurerpe/libpolyhedra/hull"
	"github.com/maurerpe/libpolyhedra/massprops"
	"github.com/maurerpe/libpolyhedra/mesh"
	"github.com/maurerpe/libpolyhedra/planecut"
	"github.com/maurerpe/libpolyhedra/simplify"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: polyhedra [-c] [-d tau] [-h] [-m] [-o outfile] [-p x,y,z,d] [-q] [-s N] [-v] [-x s] infile...")
	flag.PrintDefaults()
}

func main() {
	var (
		doHull    = flag.Bool("c", false, "compute the convex hull")
		decompTau = flag.Float64("d", 0, "approximate convex decomposition with threshold tau")
		help      = flag.Bool("h", false, "print usage and exit")
		doMass    = flag.Bool("m", false, "print mass properties")
		outfile   = flag.String("o", "out.obj", "output file (\"\" suppresses writing)")
		planeArg  = flag.String("p", "", "cut by plane \"x,y,z,d\"")
		quiet     = flag.Bool("q", false, "silence progress output")
		simplifyN = flag.Int("s", 0, "simplify to at most N faces")
		verbose   = flag.Bool("v", false, "print a vertex/face count summary after each stage")
		scale     = flag.Float64("x", 0, "uniformly scale by this factor")
	)
	flag.Usage = usage
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(1)
	}

	if err := run(flag.Args(), runOpts{
		doHull:      *doHull,
		decompTau:   *decompTau,
		decompSet:   isSet("d"),
		doMass:      *doMass,
		outfile:     *outfile,
		planeArg:    *planeArg,
		quiet:       *quiet,
		simplifyN:   *simplifyN,
		simplifySet: isSet("s"),
		verbose:     *verbose,
		scale:       *scale,
		scaleSet:    isSet("x"),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func isSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

type runOpts struct {
	doHull      bool
	decompTau   float64
	decompSet   bool
	doMass      bool
	outfile     string
	planeArg    string
	quiet       bool
	simplifyN   int
	simplifySet bool
	verbose     bool
	scale       float64
	scaleSet    bool
}

func (o runOpts) logf(format string, args ...any) {
	if !o.quiet {
		log.Printf(format, args...)
	}
}

// summary logs a vertex/face count line for meshes after a stage, per
// SPEC_FULL.md's -v/verbose supplemented feature.
func (o runOpts) summary(stage string, meshes *mesh.List) {
	if !o.verbose || o.quiet {
		return
	}
	verts, faces := 0, 0
	meshes.Each(func(m *mesh.IndexedMesh) {
		verts += m.NumVerts()
		faces += m.NumPrimitives()
	})
	log.Printf("%s: %d mesh(es), %d vertices, %d faces", stage, meshes.Len(), verts, faces)
}

// run implements operation order regardless of argv order: scale ->
// simplify -> convex hull -> plane cut -> convex decomposition -> mass
// properties (spec.md §6.2).
func run(infiles []string, o runOpts) error {
	var plane planecut.Plane
	var doCut bool
	if o.planeArg != "" {
		var err error
		plane, err = parsePlane(o.planeArg)
		if err != nil {
			return errors.Wrap(err, "parse -p")
		}
		doCut = true
	}

	meshes, err := loadAll(infiles)
	if err != nil {
		return err
	}

	if o.scaleSet {
		o.logf("Scaling by %g...", o.scale)
		meshes, err = mapStage(meshes, func(m *mesh.IndexedMesh) (*mesh.List, error) {
			return scaleMesh(m, o.scale)
		})
		if err != nil {
			return errors.Wrap(err, "scale")
		}
		o.summary("scale", meshes)
	}

	if o.simplifySet {
		o.logf("Simplifying to %d faces...", o.simplifyN)
		meshes, err = mapStage(meshes, func(m *mesh.IndexedMesh) (*mesh.List, error) {
			out, err := simplify.Simplify(m, o.simplifyN, 0)
			if err != nil {
				return nil, err
			}
			l := mesh.NewList()
			l.Append(out)
			return l, nil
		})
		if err != nil {
			return errors.Wrap(err, "simplify")
		}
		o.summary("simplify", meshes)
	}

	if o.doHull {
		o.logf("Computing convex hull...")
		meshes, err = mapStage(meshes, func(m *mesh.IndexedMesh) (*mesh.List, error) {
			out, err := hull.Build(m)
			if err != nil {
				return nil, err
			}
			l := mesh.NewList()
			l.Append(out)
			return l, nil
		})
		if err != nil {
			return errors.Wrap(err, "convex hull")
		}
		o.summary("convex hull", meshes)
	}

	if doCut {
		o.logf("Cutting by plane...")
		meshes, err = mapStage(meshes, func(m *mesh.IndexedMesh) (*mesh.List, error) {
			return planecut.Cut(m, plane)
		})
		if err != nil {
			return errors.Wrap(err, "plane cut")
		}
		o.summary("plane cut", meshes)
	}

	if o.decompSet {
		o.logf("Computing convex decomposition (tau=%g)...", o.decompTau)
		meshes, err = mapStage(meshes, func(m *mesh.IndexedMesh) (*mesh.List, error) {
			return decomp.Decomp(m, o.decompTau)
		})
		if err != nil {
			return errors.Wrap(err, "convex decomposition")
		}
		o.summary("convex decomposition", meshes)
	}

	if o.doMass {
		idx := 0
		meshes.Each(func(m *mesh.IndexedMesh) {
			if err != nil {
				return
			}
			var res massprops.Result
			res, err = massprops.Compute(m)
			if err != nil {
				return
			}
			fmt.Printf("mesh %d: volume=%g centroid=(%g, %g, %g)\n", idx, res.Volume, res.Centroid.X, res.Centroid.Y, res.Centroid.Z)
			idx++
		})
		if err != nil {
			return errors.Wrap(err, "mass properties")
		}
	}

	if o.outfile == "" {
		return nil
	}
	o.logf("Writing %s...", o.outfile)
	if err := fileformats.Write(o.outfile, meshes); err != nil {
		return errors.Wrap(err, "write output")
	}
	return nil
}

// loadAll reads every infile and flattens all of their meshes into a
// single list.
func loadAll(infiles []string) (*mesh.List, error) {
	out := mesh.NewList()
	for _, path := range infiles {
		l, err := fileformats.Read(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		l.Each(func(m *mesh.IndexedMesh) { out.Append(m) })
	}
	return out, nil
}

// mapStage applies f to every mesh in in and flattens the results into
// a single output list, matching the operations of spec.md §6.2 that
// may turn one mesh into several (plane cut, convex decomposition) or
// one into exactly one (scale, simplify, hull).
func mapStage(in *mesh.List, f func(*mesh.IndexedMesh) (*mesh.List, error)) (*mesh.List, error) {
	out := mesh.NewList()
	var err error
	in.Each(func(m *mesh.IndexedMesh) {
		if err != nil {
			return
		}
		var l *mesh.List
		l, err = f(m)
		if err != nil {
			return
		}
		l.Each(func(r *mesh.IndexedMesh) { out.Append(r) })
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scaleMesh(m *mesh.IndexedMesh, s float64) (*mesh.List, error) {
	out, err := mesh.New(m.F(), m.Kind())
	if err != nil {
		return nil, err
	}
	n := essentials.MinInt(3, m.F())
	for i := 0; i < m.NumIndices(); i++ {
		src := m.Vertex(m.Index(i))
		rec := append([]float32(nil), src...)
		for k := 0; k < n; k++ {
			rec[k] = float32(float64(rec[k]) * s)
		}
		if _, err := out.Add(rec); err != nil {
			return nil, err
		}
	}
	out.Finalize()
	l := mesh.NewList()
	l.Append(out)
	return l, nil
}

// parsePlane parses "-p x,y,z,d" into a planecut.Plane.
func parsePlane(s string) (planecut.Plane, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return planecut.Plane{}, mesh.Errorf(mesh.InvalidInput, "plane needs 4 comma-separated values, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return planecut.Plane{}, errors.Wrapf(err, "parse plane component %d", i)
		}
		v[i] = f
	}
	return planecut.Plane{N: mesh.NewVec3(v[0], v[1], v[2]), D: v[3]}, nil
}
