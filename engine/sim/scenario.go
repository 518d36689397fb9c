package sim

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/pelletier/go-toml/v2"
)

// Scenario is the TOML form of an initial system.
//
//	[[body]]
//	name = "sun"
//	mass = 333000
//	radius = 0.00466
//	color = [1.0, 1.0, 0.0]
//
//	[[body]]
//	name = "earth"
//	mass = 1
//	[body.orbit]
//	parent = "sun"
//	semi_major_axis = 1.496e11
//	eccentricity = 0.0167
type Scenario struct {
	Bodies []ScenarioBody `toml:"body"`
}

// ScenarioBody is one [[body]] table. Without an orbit table, position and velocity are used as
// given in AU and AU/s.
type ScenarioBody struct {
	Name     string         `toml:"name"`
	Mass     float64        `toml:"mass"`
	Radius   float64        `toml:"radius"`
	Color    [3]float32     `toml:"color"`
	Position [3]float64     `toml:"position"`
	Velocity [3]float64     `toml:"velocity"`
	Orbit    *ScenarioOrbit `toml:"orbit,omitempty"`
}

// ScenarioOrbit is the orbit table of a body, with lengths in meters and angles in degrees.
type ScenarioOrbit struct {
	Parent        string  `toml:"parent"`
	SemiMajorAxis float64 `toml:"semi_major_axis"`
	Eccentricity  float64 `toml:"eccentricity"`
	Inclination   float64 `toml:"inclination"`
	ArgPeriapsis  float64 `toml:"arg_periapsis"`
	AscendingNode float64 `toml:"ascending_node"`
	TrueAnomaly   float64 `toml:"true_anomaly"`
}

// LoadScenario reads and resolves a scenario file.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - []Body: the placed bodies
//   - error: if the file is missing, malformed or inconsistent
func LoadScenario(path string) ([]Body, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("scenario %s: %w", path, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	bodies, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return bodies, nil
}

// ParseScenario decodes and resolves scenario TOML. Unknown keys are rejected.
func ParseScenario(data []byte) ([]Body, error) {
	var sc Scenario
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if len(sc.Bodies) == 0 {
		return nil, errors.New("scenario has no bodies")
	}

	ds := make([]Descriptor, len(sc.Bodies))
	for i, b := range sc.Bodies {
		if b.Mass < 0 || b.Radius < 0 {
			return nil, fmt.Errorf("body %d (%q): mass and radius must not be negative", i, b.Name)
		}
		color := common.Vec3f(b.Color)
		if color == (common.Vec3f{}) {
			color = common.Vec3f{1, 1, 1}
		}
		ds[i] = Descriptor{Body: Body{
			Name:     b.Name,
			Position: common.Vec3(b.Position),
			Velocity: common.Vec3(b.Velocity),
			Mass:     b.Mass,
			Radius:   b.Radius,
			Color:    color,
		}}
		if o := b.Orbit; o != nil {
			if o.SemiMajorAxis <= 0 || o.Eccentricity < 0 || o.Eccentricity >= 1 {
				return nil, fmt.Errorf("body %d (%q): orbit needs a positive semi-major axis and an eccentricity in [0, 1)", i, b.Name)
			}
			ds[i].Orbit = &OrbitalElements{
				Parent:        o.Parent,
				SemiMajorAxis: o.SemiMajorAxis,
				Eccentricity:  o.Eccentricity,
				Inclination:   o.Inclination,
				ArgPeriapsis:  o.ArgPeriapsis,
				AscendingNode: o.AscendingNode,
				TrueAnomaly:   o.TrueAnomaly,
			}
		}
	}
	return Resolve(ds)
}

// MarshalScenario encodes bodies as a scenario with absolute positions and velocities.
func MarshalScenario(bodies []Body) ([]byte, error) {
	sc := Scenario{Bodies: make([]ScenarioBody, len(bodies))}
	for i, b := range bodies {
		sc.Bodies[i] = ScenarioBody{
			Name:     b.Name,
			Mass:     b.Mass,
			Radius:   b.Radius,
			Color:    [3]float32(b.Color),
			Position: [3]float64(b.Position),
			Velocity: [3]float64(b.Velocity),
		}
	}
	return toml.Marshal(sc)
}
