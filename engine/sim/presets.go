package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/Carmen-Shannon/oxy-space/common"
)

type preset struct {
	// bodies is the default body count for presets that take one.
	bodies int
	build  func(n int, rng *rand.Rand) ([]Body, error)
}

var presets = map[string]preset{
	"earth-sun": {build: func(int, *rand.Rand) ([]Body, error) {
		return earthSun(), nil
	}},
	"earth-sun-mars": {build: func(int, *rand.Rand) ([]Body, error) {
		return Resolve(solarSystem())
	}},
	"asteroid-belt": {bodies: 10000, build: func(n int, rng *rand.Rand) ([]Body, error) {
		return Resolve(append(solarSystem(), asteroidBelt(n, rng)...))
	}},
	"cloud": {bodies: 1000, build: func(n int, _ *rand.Rand) ([]Body, error) {
		return fixedCloud(n), nil
	}},
	"collision": {bodies: 1000, build: func(n int, _ *rand.Rand) ([]Body, error) {
		return append(fixedCloud(n), collisionCourse()), nil
	}},
	"shell": {bodies: 1000, build: func(n int, _ *rand.Rand) ([]Body, error) {
		return fixedShell(n), nil
	}},
	"field": {bodies: 10000, build: func(n int, rng *rand.Rand) ([]Body, error) {
		return field(n, rng), nil
	}},
}

// PresetNames returns the registered preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Preset builds the named initial system.
//
// Parameters:
//   - name: a name from PresetNames
//   - n: the number of generated bodies for presets that generate them; 0 uses the preset default
//   - seed: seeds every random choice, so equal arguments give equal systems
//
// Returns:
//   - []Body: the bodies
//   - error: ErrNotFound for an unknown name
func Preset(name string, n int, seed uint64) ([]Body, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("preset %q: %w", name, common.ErrNotFound)
	}
	if n <= 0 {
		n = p.bodies
	}
	bodies, err := p.build(n, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	if err != nil {
		return nil, fmt.Errorf("failed to build preset %q: %w", name, err)
	}
	return bodies, nil
}

func earthSun() []Body {
	return []Body{
		{
			Name:     "sun",
			Velocity: common.Vec3{0, 1e3 / AU, 0},
			Mass:     333000,
			Radius:   696340e3 / AU,
			Color:    common.Vec3f{1, 1, 0},
		},
		{
			Name:     "earth",
			Position: common.Vec3{1, 0, 0},
			Velocity: common.Vec3{0, (29.8e3 + 1e3) / AU, 0},
			Mass:     1,
			Radius:   6371e3 / AU,
			Color:    common.Vec3f{0, 0, 1},
		},
	}
}

func solarSystem() []Descriptor {
	return []Descriptor{
		{Body: Body{Name: "sun", Mass: 333000, Radius: 696340e3 / AU, Color: common.Vec3f{1, 1, 0}}},
		{
			Body: Body{Name: "earth", Mass: 1, Radius: 6371e3 / AU, Color: common.Vec3f{0, 0, 1}},
			Orbit: &OrbitalElements{
				Parent:        "sun",
				SemiMajorAxis: 1.495365477412831e8 * 1e3,
				Eccentricity:  1.639588231990315e-2,
				Inclination:   3.670030330713475e-3,
				ArgPeriapsis:  255.7573855355361,
				AscendingNode: 208.7400227953831,
				TrueAnomaly:   345.0278328909303,
			},
		},
		{
			Body: Body{Name: "moon", Mass: 7.349e22 / M0, Radius: 1737e3 / AU, Color: common.Vec3f{1, 1, 1}},
			Orbit: &OrbitalElements{
				Parent:        "earth",
				SemiMajorAxis: 3.815880763110870e5 * 1e3,
				Eccentricity:  3.179523012872624e-2,
				Inclination:   5.064604179512905,
				ArgPeriapsis:  301.2277898101174,
				AscendingNode: 22.29402837659016,
				TrueAnomaly:   64.54243862420770,
			},
		},
		{
			Body: Body{Name: "mars", Mass: 0.107, Radius: 3396.2e3 / AU, Color: common.Vec3f{1, 0, 0}},
			Orbit: &OrbitalElements{
				Parent:        "sun",
				SemiMajorAxis: 227956e6,
				Eccentricity:  0.0935,
				Inclination:   1.848,
				ArgPeriapsis:  286.5,
				AscendingNode: 49.578,
			},
		},
	}
}

func asteroidBelt(n int, rng *rand.Rand) []Descriptor {
	uniform := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	out := make([]Descriptor, n)
	for i := range out {
		grey := float32(0.5 + uniform(-0.2, 0.2))
		out[i] = Descriptor{
			Body: Body{
				Name:   fmt.Sprintf("asteroid-%d", i),
				Mass:   uniform(1e-10, 1e-6),
				Radius: uniform(1e3/AU, 1e6/AU),
				Color:  common.Vec3f{grey, grey, grey},
			},
			Orbit: &OrbitalElements{
				Parent:        "sun",
				SemiMajorAxis: 300000e6 + uniform(-1, 1)*25000e6,
				Eccentricity:  uniform(0, 0.15),
				Inclination:   uniform(0, 10),
				ArgPeriapsis:  uniform(0, 360),
				AscendingNode: uniform(0, 360),
				TrueAnomaly:   uniform(0, 360),
			},
		}
	}
	return out
}

// circularVelocity returns the velocity of a circular orbit at pos around a mass at center, in the
// plane perpendicular to axis.
func circularVelocity(pos, center, axis common.Vec3, mass float64) common.Vec3 {
	rel := pos.Sub(center)
	r := rel.Norm()
	if r == 0 {
		return common.Vec3{}
	}
	return axis.Normalize().Cross(rel.Normalize()).Normalize().Scale(math.Sqrt(G * mass / r))
}

func fixedCloud(n int) []Body {
	const lo, hi, centerMass = -10.0, 10.0, 1e7
	center := common.Vec3{-15, 0, 0}
	axis := common.Vec3{0, 1, 1}

	perAxis := int(math.Ceil(math.Cbrt(float64(n))))
	step := (hi - lo) / float64(max(perAxis, 1))

	out := make([]Body, 0, n+1)
	out = append(out, Body{Name: "center", Position: center, Mass: centerMass, Radius: 1e5 / AU, Color: common.Vec3f{1, 1, 1}})
	for i := range n {
		pos := common.Vec3{
			lo + float64(i%perAxis)*step,
			lo + float64((i/perAxis)%perAxis)*step,
			lo + float64((i/(perAxis*perAxis))%perAxis)*step,
		}
		col := pos.Sub(common.Vec3{lo, lo, lo}).Normalize()
		out = append(out, Body{
			Name:     fmt.Sprintf("particle-%d", i),
			Position: pos,
			Velocity: circularVelocity(pos, center, axis, centerMass),
			Mass:     1e4,
			Radius:   1e4 / AU,
			Color:    col.Float32(),
		})
	}
	return out
}

func collisionCourse() Body {
	return Body{
		Name:     "intruder",
		Position: common.Vec3{3, 0, 0},
		Velocity: common.Vec3{-0.5e5 / AU, -0.2e5 / AU, 0},
		Mass:     1e5,
		Radius:   1e6 / AU,
		Color:    common.Vec3f{0, 1, 0},
	}
}

func fixedShell(n int) []Body {
	const radius, centerMass = 10.0, 1e7
	axis := common.Vec3{0, 1, 1}
	perAxis := int(math.Ceil(math.Sqrt(float64(n))))
	angle := math.Pi / float64(max(perAxis, 1))

	out := make([]Body, 0, n+1)
	out = append(out, Body{Name: "center", Mass: centerMass, Radius: 1e5 / AU, Color: common.Vec3f{1, 1, 1}})
	for i := range n {
		theta := angle * float64((i/perAxis)%perAxis)
		phi := 2 * angle * float64(i%perAxis)
		pos := common.Vec3{
			radius * math.Sin(theta) * math.Cos(phi),
			radius * math.Sin(theta) * math.Sin(phi),
			radius * math.Cos(theta),
		}
		out = append(out, Body{
			Name:     fmt.Sprintf("particle-%d", i),
			Position: pos,
			Velocity: circularVelocity(pos, common.Vec3{}, axis, centerMass),
			Radius:   1e4 / AU,
			Color:    pos.Add(common.Vec3{radius, radius, radius}).Normalize().Float32(),
		})
	}
	return out
}

// field places n massless bodies on random circular orbits around one heavy body. The bodies do
// not pull on each other, so each one evolves independently.
func field(n int, rng *rand.Rand) []Body {
	const centerMass = 1e7
	out := make([]Body, 0, n+1)
	out = append(out, Body{Name: "center", Mass: centerMass, Radius: 1e5 / AU, Color: common.Vec3f{1, 1, 1}})
	for i := range n {
		r := 2 + rng.Float64()*18
		theta := math.Acos(2*rng.Float64() - 1)
		phi := rng.Float64() * 2 * math.Pi
		pos := common.Vec3{
			r * math.Sin(theta) * math.Cos(phi),
			r * math.Sin(theta) * math.Sin(phi),
			r * math.Cos(theta),
		}
		axis := common.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}
		if axis.Cross(pos).Norm2() == 0 {
			axis = common.Vec3{0, 0, 1}
		}
		out = append(out, Body{
			Name:     fmt.Sprintf("particle-%d", i),
			Position: pos,
			Velocity: circularVelocity(pos, common.Vec3{}, axis, centerMass),
			Radius:   1e4 / AU,
			Color:    pos.Normalize().Scale(0.5).Add(common.Vec3{0.5, 0.5, 0.5}).Float32(),
		})
	}
	return out
}
