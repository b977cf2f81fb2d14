// Package simulation implements the pure, deterministic per-tick physics
// step shared by the server's authoritative tick loop and the client's
// prediction core. It must not import anything that differs between client
// and server builds: same inputs must always produce the same output.
package simulation

import (
	"math"

	"github.com/meridian-games/arena/config"
	"github.com/meridian-games/arena/internal/mapcatalog"
)

// Vec2 is a 2D vector/position.
type Vec2 struct {
	X, Y float64
}

// Body is the minimal kinematic state the step function reads and writes.
// Both the server's Player and the client's predicted player embed/convert
// to this shape before calling Step.
type Body struct {
	Pos Vec2
	Vel Vec2
}

// Input is the decoded directional/fire bitmask for one simulation step.
type Input struct {
	K int
}

// Bounds describes the rectangle a body's center must stay within after
// clamping for its half-extent.
type Bounds struct {
	W, H int
}

// Step advances body by dt using the bitmask-encoded input, against map
// bounds and static polygon geometry. It is a pure function: the same
// (body, input, dt, bounds, polygons) always yields the same result, which
// is what lets client prediction and server authority agree bit-for-bit in
// the absence of packet loss.
func Step(body Body, input Input, dt float64, bounds Bounds, polyBounds []mapcatalog.AABB) Body {
	vx, vy := decodeVelocity(input.K)

	newX := body.Pos.X + vx*dt
	newY := body.Pos.Y + vy*dt

	newX = clamp(newX, config.PlayerHalfSize, float64(bounds.W)-config.PlayerHalfSize)
	newY = clamp(newY, config.PlayerHalfSize, float64(bounds.H)-config.PlayerHalfSize)

	if collides(newX, newY, polyBounds) {
		// Reject the movement entirely: position stays, velocity zeroes.
		return Body{Pos: body.Pos, Vel: Vec2{}}
	}

	return Body{Pos: Vec2{X: newX, Y: newY}, Vel: Vec2{X: vx, Y: vy}}
}

// decodeVelocity turns an input bitmask into a velocity vector at
// config.PlayerSpeed, normalized by 1/sqrt(2) on diagonals so cardinal and
// diagonal speed match.
func decodeVelocity(k int) (float64, float64) {
	var vx, vy float64
	if k&config.InputUp != 0 {
		vy -= config.PlayerSpeed
	}
	if k&config.InputDown != 0 {
		vy += config.PlayerSpeed
	}
	if k&config.InputLeft != 0 {
		vx -= config.PlayerSpeed
	}
	if k&config.InputRight != 0 {
		vx += config.PlayerSpeed
	}

	if vx != 0 && vy != 0 {
		const diag = 1.0 / math.Sqrt2
		vx *= diag
		vy *= diag
	}
	return vx, vy
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		// Degenerate map smaller than one player; clamp to lo.
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// collides reports whether a PlayerSize box centered at (x,y) overlaps any
// of the given AABBs; any overlap rejects the move.
func collides(x, y float64, polyBounds []mapcatalog.AABB) bool {
	px1 := x - config.PlayerHalfSize
	px2 := x + config.PlayerHalfSize
	py1 := y - config.PlayerHalfSize
	py2 := y + config.PlayerHalfSize

	for _, b := range polyBounds {
		if px1 < b.MaxX && px2 > b.MinX && py1 < b.MaxY && py2 > b.MinY {
			return true
		}
	}
	return false
}
