// Package mobility implements the per-axis random-waypoint-lite movement
// model: each axis independently picks an initial direction and a velocity,
// then steps deterministically every tick, reflecting off the simulation
// area's boundaries.
package mobility

import "github.com/hgn/mdvrd/pkg/simrand"

// Direction is a single axis' direction of travel.
type Direction int

const (
	// Negative moves the axis toward zero (left on X, up on Y).
	Negative Direction = iota
	// Positive moves the axis toward the area bound (right on X, down on Y).
	Positive
	// None leaves the axis stationary.
	None
)

// Model is a router's mobility state: one direction per axis and a scalar
// velocity applied to whichever axis is moving.
type Model struct {
	DirX, DirY Direction
	Velocity   float64
}

// New picks a random initial direction for each axis and a random velocity
// in [minVelocity, maxVelocity), using rng so the whole simulation remains
// reproducible from a single seed.
func New(rng *simrand.Source, minVelocity, maxVelocity float64) Model {
	return Model{
		DirX:     Direction(rng.Intn(3)),
		DirY:     Direction(rng.Intn(3)),
		Velocity: rng.Float64Range(minVelocity, maxVelocity),
	}
}

// Move advances (x, y) by one tick under this model, reflecting off the
// [0, areaX] x [0, areaY] boundary. The Y axis treats increasing Y as
// "downwards", matching the simulation's screen-space convention. On
// reaching a boundary the position clamps to it and that axis' direction
// reverses; a "None" axis never moves.
func (m *Model) Move(x, y, areaX, areaY float64) (float64, float64) {
	return m.moveX(x, areaX), m.moveY(y, areaY)
}

func (m *Model) moveX(x, areaX float64) float64 {
	switch m.DirX {
	case Negative:
		x -= m.Velocity
		if x <= 0 {
			x = 0
			m.DirX = Positive
		}
	case Positive:
		x += m.Velocity
		if x >= areaX {
			x = areaX
			m.DirX = Negative
		}
	}
	return x
}

func (m *Model) moveY(y, areaY float64) float64 {
	switch m.DirY {
	case Positive:
		// Downwards.
		y += m.Velocity
		if y >= areaY {
			y = areaY
			m.DirY = Negative
		}
	case Negative:
		// Upwards.
		y -= m.Velocity
		if y <= 0 {
			y = 0
			m.DirY = Positive
		}
	}
	return y
}
