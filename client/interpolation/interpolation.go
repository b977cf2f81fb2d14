// Package interpolation smooths remote players' positions between
// game_update snapshots, so a remote player's motion doesn't appear as a
// sequence of discrete jumps at tick rate.
package interpolation

import (
	"math"

	"github.com/meridian-games/arena/internal/simulation"
)

const (
	// SnapThreshold is the per-update position delta above which a remote
	// view snaps instead of interpolating.
	SnapThreshold = 100.0
	// Speed is how fast current chases target, in world units/s.
	Speed = 700.0
)

// RemotePlayerView tracks one other player's smoothed, render-facing state.
type RemotePlayerView struct {
	Current simulation.Vec2
	Target  simulation.Vec2
	Health  int
	Alive   bool
}

// New returns a view already settled at pos, so the first UpdateFromServer
// call for a freshly joined remote player never triggers a spurious snap.
func New(pos simulation.Vec2, health int, alive bool) *RemotePlayerView {
	return &RemotePlayerView{Current: pos, Target: pos, Health: health, Alive: alive}
}

// UpdateFromServer applies one server snapshot entry for this remote player:
// a large jump snaps immediately, a small one becomes a new interpolation
// target. Health and alive always take the server's value, regardless of
// position distance.
func (v *RemotePlayerView) UpdateFromServer(newPos simulation.Vec2, health int, alive bool) {
	dx := newPos.X - v.Current.X
	dy := newPos.Y - v.Current.Y
	if math.Hypot(dx, dy) > SnapThreshold {
		v.Current = newPos
		v.Target = newPos
	} else {
		v.Target = newPos
	}
	v.Health = health
	v.Alive = alive
}

// Tick advances Current toward Target by at most Speed*frameDt, clamped to
// the remaining distance so it never overshoots.
func (v *RemotePlayerView) Tick(frameDt float64) {
	dx := v.Target.X - v.Current.X
	dy := v.Target.Y - v.Current.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return
	}

	step := Speed * frameDt
	if step >= dist {
		v.Current = v.Target
		return
	}

	frac := step / dist
	v.Current.X += dx * frac
	v.Current.Y += dy * frac
}
