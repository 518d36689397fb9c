package sim

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetNames(t *testing.T) {
	assert.Equal(t, []string{"asteroid-belt", "cloud", "collision", "earth-sun", "earth-sun-mars", "field", "shell"}, PresetNames())

	for _, name := range PresetNames() {
		bodies, err := Preset(name, 50, 1)
		require.NoError(t, err, name)
		require.NotEmpty(t, bodies, name)
		for i, b := range bodies {
			for k := range 3 {
				require.False(t, math.IsNaN(b.Position[k]) || math.IsNaN(b.Velocity[k]), "%s body %d", name, i)
			}
		}
	}

	_, err := Preset("andromeda", 0, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPresetCounts(t *testing.T) {
	cases := map[string]int{
		"earth-sun":      2,
		"earth-sun-mars": 4,
		"asteroid-belt":  4 + 20,
		"cloud":          1 + 20,
		"collision":      1 + 20 + 1,
		"shell":          1 + 20,
		"field":          1 + 20,
	}
	for name, want := range cases {
		bodies, err := Preset(name, 20, 1)
		require.NoError(t, err)
		assert.Len(t, bodies, want, name)
	}

	bodies, err := Preset("asteroid-belt", 0, 1)
	require.NoError(t, err)
	assert.Len(t, bodies, 4+10000, "zero uses the preset default")
}

func TestPresetSeedIsDeterministic(t *testing.T) {
	a, err := Preset("asteroid-belt", 100, 42)
	require.NoError(t, err)
	b, err := Preset("asteroid-belt", 100, 42)
	require.NoError(t, err)
	c, err := Preset("asteroid-belt", 100, 43)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a[10].Position, c[10].Position)
}

func TestFromOrbitalElementsCircular(t *testing.T) {
	sun := Body{Mass: 333000, Velocity: common.Vec3{0, 0, 1e-9}}
	pos, vel := FromOrbitalElements(sun, 0, OrbitalElements{SemiMajorAxis: AU})

	assert.InDelta(t, 1, pos[0], 1e-12)
	assert.InDelta(t, 0, pos[1], 1e-12)
	assert.InDelta(t, 0, pos[2], 1e-12)

	speed := math.Sqrt(GAbs*333000*M0/AU) / AU
	assert.InDelta(t, 0, vel[0], 1e-20)
	assert.InEpsilon(t, speed, vel[1], 1e-9)
	assert.InDelta(t, 1e-9, vel[2], 1e-20, "the parent's velocity is added")
}

func TestFromOrbitalElementsKeepsAngularMomentum(t *testing.T) {
	sun := Body{Mass: 333000}
	el := OrbitalElements{
		SemiMajorAxis: 2 * AU,
		Eccentricity:  0.3,
		Inclination:   20,
		ArgPeriapsis:  40,
		AscendingNode: 70,
		TrueAnomaly:   110,
	}
	pos, vel := FromOrbitalElements(sun, 0, el)

	// specific angular momentum h = sqrt(mu * a * (1 - e^2)), in AU^2/s
	mu := GAbs * 333000 * M0
	want := math.Sqrt(mu*el.SemiMajorAxis*(1-el.Eccentricity*el.Eccentricity)) / (AU * AU)
	h := pos.Cross(vel)
	assert.InEpsilon(t, want, h.Norm(), 1e-9)

	// the orbit normal is tilted by the inclination
	assert.InDelta(t, math.Cos(20*math.Pi/180), h.Normalize()[2], 1e-9)

	// r = a(1-e^2)/(1+e cos nu)
	r := 2 * (1 - 0.09) / (1 + 0.3*math.Cos(110*math.Pi/180))
	assert.InEpsilon(t, r, pos.Norm(), 1e-9)
}

func TestResolveBarycentric(t *testing.T) {
	bodies, err := Preset("earth-sun-mars", 0, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"sun", "earth", "moon", "mars"}, []string{bodies[0].Name, bodies[1].Name, bodies[2].Name, bodies[3].Name})

	var momentum common.Vec3
	var mass float64
	for _, b := range bodies {
		momentum = momentum.Add(b.Velocity.Scale(b.Mass))
		mass += b.Mass
	}
	earthMomentum := bodies[1].Velocity.Norm() * bodies[1].Mass
	assert.Less(t, momentum.Norm(), 1e-9*earthMomentum, "the system barycenter is at rest")

	// the earth-moon pair moves at the earth's uncorrected orbital speed around the sun
	earth, moon := bodies[1], bodies[2]
	pairVel := earth.Velocity.Scale(earth.Mass).Add(moon.Velocity.Scale(moon.Mass)).Scale(1 / (earth.Mass + moon.Mass))
	assert.InEpsilon(t, 30e3/AU, pairVel.Sub(bodies[0].Velocity).Norm(), 0.05)
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve([]Descriptor{
		{Body: Body{Name: "moon", Mass: 1}, Orbit: &OrbitalElements{Parent: "earth", SemiMajorAxis: 1e8}},
		{Body: Body{Name: "earth", Mass: 1}},
	})
	assert.ErrorIs(t, err, common.ErrNotFound, "a parent must come first")

	_, err = Resolve([]Descriptor{{Body: Body{Name: "a"}}, {Body: Body{Name: "a"}}})
	assert.Error(t, err)
}

func TestParseScenario(t *testing.T) {
	data := []byte(`
[[body]]
name = "star"
mass = 333000
radius = 0.005
color = [1.0, 0.9, 0.2]

[[body]]
name = "planet"
mass = 1

[body.orbit]
parent = "star"
semi_major_axis = 1.495e11

[[body]]
name = "rock"
mass = 0
position = [5.0, 0.0, 0.0]
velocity = [0.0, 1e-8, 0.0]
`)
	bodies, err := ParseScenario(data)
	require.NoError(t, err)
	require.Len(t, bodies, 3)

	assert.Equal(t, common.Vec3f{1, 0.9, 0.2}, bodies[0].Color)
	assert.Equal(t, common.Vec3f{1, 1, 1}, bodies[1].Color, "missing colors default to white")
	assert.InDelta(t, 1, bodies[1].Position.Sub(bodies[0].Position).Norm(), 1e-9)
	assert.Equal(t, common.Vec3{5, 0, 0}, bodies[2].Position)
	assert.Equal(t, common.Vec3{0, 1e-8, 0}, bodies[2].Velocity)
}

func TestParseScenarioRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":  "[[body]]\nname = \"a\"\nmas = 1\n",
		"no bodies":    "",
		"bad orbit":    "[[body]]\nname = \"a\"\n[[body]]\nname = \"b\"\n[body.orbit]\nparent = \"a\"\nsemi_major_axis = 1e9\neccentricity = 1.5\n",
		"negative":     "[[body]]\nname = \"a\"\nmass = -1\n",
		"missing root": "[[body]]\nname = \"b\"\n[body.orbit]\nparent = \"a\"\nsemi_major_axis = 1e9\n",
	}
	for name, data := range cases {
		_, err := ParseScenario([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestLoadScenario(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, common.ErrNotFound)

	bodies, err := Preset("earth-sun", 0, 1)
	require.NoError(t, err)
	data, err := MarshalScenario(bodies)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "earth-sun.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	loaded, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, bodies, loaded)
}

func TestElapsedTime(t *testing.T) {
	assert.Equal(t, "0Y 0D 00:00:00 (0 ticks)", ElapsedTime(0, 10))
	assert.Equal(t, "0Y 0D 01:01:01 (3661 ticks)", ElapsedTime(3661, 1))
	assert.Equal(t, "1Y 1D 00:00:10 (3164401 ticks)", ElapsedTime(3164401, 10))
	assert.Equal(t, "0Y 0D 00:00:00", FormatDuration(math.NaN()))
}
