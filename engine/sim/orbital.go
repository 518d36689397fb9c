package sim

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-space/common"
)

// OrbitalElements places a body on a Keplerian orbit around a named parent.
type OrbitalElements struct {
	Parent string
	// SemiMajorAxis is in meters.
	SemiMajorAxis float64
	Eccentricity  float64
	// Angles are in degrees.
	Inclination   float64
	ArgPeriapsis  float64
	AscendingNode float64
	TrueAnomaly   float64
}

// Descriptor describes a body before it is placed. Bodies without an orbit use their own position
// and velocity; orbiting bodies take theirs from the orbit around an earlier descriptor.
type Descriptor struct {
	Body
	Orbit *OrbitalElements
}

// FromOrbitalElements converts orbital elements into a position and velocity.
//
// Parameters:
//   - parent: the body being orbited, in simulation units
//   - mass: the orbiting body's mass in earth masses
//   - el: the orbit
//
// Returns:
//   - common.Vec3: the absolute position in AU
//   - common.Vec3: the absolute velocity in AU/s
func FromOrbitalElements(parent Body, mass float64, el OrbitalElements) (common.Vec3, common.Vec3) {
	mu := GAbs * (parent.Mass + mass) * M0
	a, e := el.SemiMajorAxis, el.Eccentricity
	inc := el.Inclination * math.Pi / 180
	argP := el.ArgPeriapsis * math.Pi / 180
	node := el.AscendingNode * math.Pi / 180
	nu := el.TrueAnomaly * math.Pi / 180

	ecc := math.Atan2(math.Sqrt(1-e*e)*math.Sin(nu), e+math.Cos(nu))
	r := a * (1 - e*math.Cos(ecc))
	p := a * (1 - e*e)
	h := math.Sqrt(mu * p)

	cosO, sinO := math.Cos(node), math.Sin(node)
	cosW, sinW := math.Cos(argP+nu), math.Sin(argP+nu)
	cosI, sinI := math.Cos(inc), math.Sin(inc)

	pos := common.Vec3{
		r * (cosO*cosW - sinO*sinW*cosI),
		r * (sinO*cosW + cosO*sinW*cosI),
		r * sinI * sinW,
	}

	radial := h * e / (r * p) * math.Sin(nu)
	vel := common.Vec3{
		pos[0]*radial - h/r*(cosO*sinW+sinO*cosW*cosI),
		pos[1]*radial - h/r*(sinO*sinW-cosO*cosW*cosI),
		pos[2]*radial + h/r*sinI*cosW,
	}

	return parent.Position.Add(pos.Scale(1 / AU)), parent.Velocity.Add(vel.Scale(1 / AU))
}

type placed struct {
	body          Body
	parent        int
	childMass     float64
	childMomentum common.Vec3
	children      []int
}

// Resolve places every descriptor and corrects velocities so that each parent and its satellites
// orbit their common barycenter instead of the parent alone.
//
// Parameters:
//   - ds: descriptors in order; an orbit may only name a descriptor that comes before it
//
// Returns:
//   - []Body: the placed bodies in input order
//   - error: if an orbit names an unknown or later parent, or a name repeats
func Resolve(ds []Descriptor) ([]Body, error) {
	nodes := make([]placed, len(ds))
	byName := make(map[string]int, len(ds))

	for i, d := range ds {
		nodes[i] = placed{body: d.Body, parent: -1}
		if d.Orbit != nil {
			p, ok := byName[d.Orbit.Parent]
			if !ok {
				return nil, fmt.Errorf("body %q orbits %q: %w", d.Name, d.Orbit.Parent, common.ErrNotFound)
			}
			nodes[i].parent = p
			nodes[i].body.Position, nodes[i].body.Velocity = FromOrbitalElements(nodes[p].body, d.Mass, *d.Orbit)
		}
		if d.Name != "" {
			if _, dup := byName[d.Name]; dup {
				return nil, fmt.Errorf("body name %q is used twice", d.Name)
			}
			byName[d.Name] = i
		}
	}

	// children always come after their parent, so walking backwards settles every subtree before
	// its parent is visited
	for i := len(nodes) - 1; i >= 0; i-- {
		n := &nodes[i]
		total := n.body.Mass + n.childMass
		if total != 0 {
			shift(nodes, i, n.childMomentum.Scale(1/total))
		}
		if n.parent < 0 {
			continue
		}
		parent := &nodes[n.parent]
		own := n.body.Velocity.Sub(parent.body.Velocity).Scale(total).Add(n.childMomentum)
		parent.childMass += total
		parent.childMomentum = parent.childMomentum.Add(own)
		parent.children = append(parent.children, i)
	}

	out := make([]Body, len(nodes))
	for i, n := range nodes {
		out[i] = n.body
	}
	return out, nil
}

// shift subtracts dv from the velocity of node i and everything orbiting it.
func shift(nodes []placed, i int, dv common.Vec3) {
	stack := []int{i}
	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes[j].body.Velocity = nodes[j].body.Velocity.Sub(dv)
		stack = append(stack, nodes[j].children...)
	}
}
