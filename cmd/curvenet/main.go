/*
Command curvenet builds surfaces from curve networks.

Usage:

	curvenet -f network.yaml [-o surfaces.yaml]
	curvenet -demo [-o surfaces.yaml]

The input document holds settings, a tolerance context and a list of
networks (see package config). For every network with profiles and
guides a Gordon surface is built; a network without guides results in a
skinning surface through its profiles. Surfaces are written as YAML;
the setting output.format must be "yaml" if present.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/curvenet/cache"
	"github.com/npillmayer/curvenet/config"
	"github.com/npillmayer/curvenet/fit"
	"github.com/npillmayer/curvenet/gordon"
	"github.com/npillmayer/curvenet/kernel"
	"github.com/npillmayer/curvenet/zapadapter"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/ungerik/go3d/float64/vec3"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.Error("curvenet failed", zap.Error(err))
		os.Exit(1)
	}
}

// run is main without process handling, writing to stdout if no output
// file is given.
func run(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("curvenet", flag.ContinueOnError)
	var (
		input  = flags.String("f", "", "input document (YAML)")
		output = flags.String("o", "", "output file, default stdout")
		demo   = flags.Bool("demo", false, "build a demo network instead of reading a document")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	var doc *config.Document
	var err error
	switch {
	case *demo:
		doc, err = demoDocument()
	case *input != "":
		doc, err = config.LoadFile(*input)
	default:
		flags.Usage()
		return fmt.Errorf("no input given")
	}
	if err != nil {
		return err
	}
	if f := doc.Settings.GetString(config.KeyOutputFormat); f != "yaml" {
		return fmt.Errorf("%w: unsupported output format %q", config.ErrInvalidDocument, f)
	}
	if err := setupTracing(doc.Settings); err != nil {
		return err
	}
	defer trace2go.Teardown()
	surfaces, err := build(doc)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := config.WriteSurfaces(&buf, surfaces); err != nil {
		return err
	}
	if *output == "" {
		_, err = stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(*output, buf.Bytes(), 0o644)
}

func setupTracing(settings config.Settings) error {
	tracing.RegisterTraceAdapter("zap", zapadapter.GetAdapter(), false)
	if err := trace2go.ConfigureRoot(settings, config.KeyTracePrefix, trace2go.ReplaceTracers(true)); err != nil {
		return err
	}
	tracing.SetTraceSelector(trace2go.Selector())
	return nil
}

// build creates a surface per network. Results are cached by content, so
// repeated networks in a document are built once.
func build(doc *config.Document) ([]config.SurfaceSpec, error) {
	tol := *doc.Tolerance
	k := kernel.Default()
	b, err := gordon.NewBuilder(tol, k)
	if err != nil {
		return nil, err
	}
	results := cache.New[*bspline.Surface](doc.Settings.GetInt(config.KeyCacheCapacity))
	var surfaces []config.SurfaceSpec
	for _, ns := range doc.Networks {
		net, err := ns.Network()
		if err != nil {
			return nil, err
		}
		key := cache.KeyOf(tol, net.Profiles, net.Guides)
		s, err := results.GetOrBuild(key, func() (*bspline.Surface, error) {
			if len(net.Guides) == 0 {
				tracing.Infof("network %s has no guides, skinning profiles", ns.Name)
				return b.Skin(net.Profiles, nil)
			}
			r, err := b.Build(net)
			if err != nil {
				return nil, err
			}
			return r.Surface, nil
		})
		if err != nil {
			if !curvenet.IsSoft(err) || s == nil {
				return nil, fmt.Errorf("network %s: %w", ns.Name, err)
			}
			tracing.Errorf("network %s: %v", ns.Name, err)
		}
		if _, err := k.MakeSurface(s); err != nil {
			return nil, fmt.Errorf("network %s: %w", ns.Name, err)
		}
		spec := config.FromSurface(ns.Name, s)
		spec.Key = key.Short()
		surfaces = append(surfaces, spec)
	}
	st := results.Stats()
	tracing.Infof("built %d surface(s), %d cache hit(s)", len(surfaces), st.Hits)
	return surfaces, nil
}

// demoDocument creates a network on the wave z = 0.3·sin(x)·cos(y) over
// [0,π]², with 4 profiles and 5 guides. The curves interpolate samples of
// the wave; every guide abscissa is a profile sample and vice versa, so
// the curves intersect exactly.
func demoDocument() (*config.Document, error) {
	wave := func(x, y float64) curvenet.Point {
		v := vec3.T{x, y, 0.3 * math.Sin(x) * math.Cos(y)}
		return curvenet.FromVec3(v)
	}
	sample := func(n int, at func(t float64) curvenet.Point) (*bspline.Curve, error) {
		pts := make([]curvenet.Point, n+1)
		for k := range pts {
			pts[k] = at(math.Pi * float64(k) / float64(n))
		}
		c, _, err := fit.Interpolate(pts, nil, fit.InterpolationOptions{Degree: 3})
		return c, err
	}
	ns := config.NetworkSpec{Name: "wave"}
	for i := 0; i <= 3; i++ {
		y := math.Pi * float64(i) / 3
		c, err := sample(8, func(x float64) curvenet.Point { return wave(x, y) })
		if err != nil {
			return nil, err
		}
		ns.Profiles = append(ns.Profiles, config.FromCurve(c))
	}
	for j := 0; j <= 4; j++ {
		x := math.Pi * float64(j) / 4
		c, err := sample(6, func(y float64) curvenet.Point { return wave(x, y) })
		if err != nil {
			return nil, err
		}
		ns.Guides = append(ns.Guides, config.FromCurve(c))
	}
	tol := curvenet.DefaultTolerance()
	doc := &config.Document{
		Settings:  config.Settings{},
		Tolerance: &tol,
		Networks:  []config.NetworkSpec{ns},
	}
	doc.Settings.InitDefaults()
	return doc, doc.Validate()
}
