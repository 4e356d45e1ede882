/*
Package network matches the two families of a curve network.

A curve network consists of profiles (running in direction U) and guides
(running in direction V). Every profile has to intersect every guide
exactly once. Matching computes all intersections, orders and orients
both families consistently, and finally reparametrizes every curve, such
that all profiles meet guide j at the common parameter u_j and all guides
meet profile i at the common parameter v_i. This is the precondition for
building a Gordon surface from the network.

Ordering follows the approach of the TiGL curve network sorter: the pair
of curves which start at each other is moved to the front, the families
are sorted along these first curves, and curves running backwards are
reversed. A network which is still not monotone after a single repair
attempt is rejected.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package network

import (
	"fmt"

	"github.com/npillmayer/curvenet"
	"github.com/npillmayer/curvenet/bspline"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'curvenet.network'
func tracer() tracing.Trace {
	return tracing.Select("curvenet.network")
}

// Network is a builder type for curve networks.
type Network struct {
	Profiles []*bspline.Curve
	Guides   []*bspline.Curve
}

// New creates an empty curve network. Clients add curves with Profile and
// Guide:
//
//	net := network.New().Profile(p1, p2, p3).Guide(g1, g2)
func New() *Network {
	return &Network{}
}

// Profile appends curves to the profile family.
func (net *Network) Profile(curves ...*bspline.Curve) *Network {
	net.Profiles = append(net.Profiles, curves...)
	return net
}

// Guide appends curves to the guide family.
func (net *Network) Guide(curves ...*bspline.Curve) *Network {
	net.Guides = append(net.Guides, curves...)
	return net
}

// Size returns the number of profiles and guides.
func (net *Network) Size() (int, int) {
	return len(net.Profiles), len(net.Guides)
}

// Validate checks that the network has at least two curves per family,
// that every curve is valid, and that all curves live in 3D space.
func (net *Network) Validate() error {
	if len(net.Profiles) < 2 || len(net.Guides) < 2 {
		return fmt.Errorf("%w: %d profiles, %d guides", curvenet.ErrDegenerateNetwork,
			len(net.Profiles), len(net.Guides))
	}
	for i, c := range net.Profiles {
		if err := checkCurve(c); err != nil {
			return fmt.Errorf("profile %d: %w", i, err)
		}
	}
	for j, c := range net.Guides {
		if err := checkCurve(c); err != nil {
			return fmt.Errorf("guide %d: %w", j, err)
		}
	}
	return nil
}

func checkCurve(c *bspline.Curve) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Dim() != 3 {
		return fmt.Errorf("%w: network curves must be 3D, have dimension %d", curvenet.ErrInvalidGeometry, c.Dim())
	}
	return nil
}
