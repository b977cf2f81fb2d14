// Package prediction implements the client-side prediction core: local
// movement is simulated immediately using the same deterministic step the
// server uses, then reconciled against authoritative snapshots as they
// arrive. Unacknowledged inputs are replayed on correction rather than
// discarded.
package prediction

import (
	"math"
	"time"

	"github.com/meridian-games/arena/config"
	"github.com/meridian-games/arena/internal/mapcatalog"
	"github.com/meridian-games/arena/internal/simulation"
)

const (
	// MaxPendingInputs bounds retained unacknowledged-input history; the
	// oldest entry is dropped on overflow.
	MaxPendingInputs = 120

	// DefaultSendHz is the client's outbound input rate when nothing forces
	// an earlier send (a changed input mask always sends immediately).
	DefaultSendHz = 60

	// CorrectionRate is how fast the accumulated correction vector drains
	// into pos per second.
	CorrectionRate = 20.0
	// SmoothingRate is how fast render_pos chases pos per second.
	SmoothingRate = 20.0
	// SnapThreshold is the full-state position delta above which prediction
	// snaps instead of smoothly correcting.
	SnapThreshold = 100.0
)

// pendingEntry is one not-yet-acknowledged local input.
type pendingEntry struct {
	Seq int64
	K   int
}

// ServerUpdate is the subset of a game_update entry this client's own
// player state reconciles against.
type ServerUpdate struct {
	X, Y         float64
	LastInputSeq int64
}

// State is one local player's predicted movement state.
type State struct {
	Pos       simulation.Vec2
	RenderPos simulation.Vec2
	Vel       simulation.Vec2
	Correction simulation.Vec2

	pending          []pendingEntry
	lastProcessedSeq int64
	nextSeq          int64
	lastSendK        int
	lastSendAt       time.Time

	bounds     simulation.Bounds
	polyBounds []mapcatalog.AABB
}

// New returns a State seeded at spawn, ready to predict from the first
// input. lastProcessedSeq starts at -1 so reconciliation's "<=" discard
// rule never discards a legitimate first ack.
func New(spawn simulation.Vec2, bounds simulation.Bounds, polyBounds []mapcatalog.AABB) *State {
	return &State{
		Pos:              spawn,
		RenderPos:        spawn,
		lastProcessedSeq: -1,
		polyBounds:       polyBounds,
		bounds:           bounds,
	}
}

// ApplyLocalInput assigns the next sequence number, predicts pos forward
// using the fixed tick interval (never the frame's own dt, so client and
// server integrate identically), and enqueues the input for later replay.
// It returns the assigned seq so the caller can decide whether/how to
// transmit it.
func (s *State) ApplyLocalInput(k int) int64 {
	seq := s.nextSeq
	s.nextSeq++

	body := simulation.Step(
		simulation.Body{Pos: s.Pos, Vel: s.Vel},
		simulation.Input{K: k},
		config.TickInterval,
		s.bounds,
		s.polyBounds,
	)
	s.Pos = body.Pos
	s.Vel = body.Vel

	s.pending = append(s.pending, pendingEntry{Seq: seq, K: k})
	if len(s.pending) > MaxPendingInputs {
		s.pending = s.pending[len(s.pending)-MaxPendingInputs:]
	}
	return seq
}

// ShouldSend implements the rate-limit/change-triggered send rule. Call once
// per frame after ApplyLocalInput; on true, the caller transmits
// {t:"in", seq, dt, k} and must call MarkSent.
func (s *State) ShouldSend(now time.Time, k int, sendHz int) bool {
	if sendHz <= 0 {
		sendHz = DefaultSendHz
	}
	if k != s.lastSendK {
		return true
	}
	return now.Sub(s.lastSendAt) >= time.Duration(float64(time.Second)/float64(sendHz))
}

// MarkSent records that k was just transmitted, for the next ShouldSend call.
func (s *State) MarkSent(now time.Time, k int) {
	s.lastSendK = k
	s.lastSendAt = now
}

// Reconcile applies one game_update entry for this player: discard-stale,
// drop-acked, replay-remaining, accumulate-correction. It never overwrites
// Pos directly; only Correction accumulates, so the smoothing pass in
// Drain produces a seamless convergence instead of a visible snap.
func (s *State) Reconcile(u ServerUpdate) {
	if u.LastInputSeq <= s.lastProcessedSeq {
		return
	}
	s.lastProcessedSeq = u.LastInputSeq

	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.Seq > s.lastProcessedSeq {
			kept = append(kept, p)
		}
	}
	s.pending = kept

	sim := simulation.Vec2{X: u.X, Y: u.Y}
	body := simulation.Body{Pos: sim}
	for _, p := range s.pending {
		body = simulation.Step(body, simulation.Input{K: p.K}, config.TickInterval, s.bounds, s.polyBounds)
	}

	s.Correction.X += body.Pos.X - s.Pos.X
	s.Correction.Y += body.Pos.Y - s.Pos.Y
}

// SnapToFullState handles the full-game_state escape hatch: if the server's
// authoritative position differs from the predicted one by more than
// SnapThreshold, jump straight to it and discard any in-flight correction.
func (s *State) SnapToFullState(serverPos simulation.Vec2) {
	dx := serverPos.X - s.Pos.X
	dy := serverPos.Y - s.Pos.Y
	if math.Hypot(dx, dy) <= SnapThreshold {
		return
	}
	s.Pos = serverPos
	s.RenderPos = serverPos
	s.Correction = simulation.Vec2{}
}

// Drain runs the per-frame correction-drain and render-smoothing pass,
// independent of network activity.
func (s *State) Drain(frameDt float64) {
	cFrac := clampUnit(CorrectionRate * frameDt)
	stepX := s.Correction.X * cFrac
	stepY := s.Correction.Y * cFrac
	s.Pos.X += stepX
	s.Pos.Y += stepY
	s.Correction.X -= stepX
	s.Correction.Y -= stepY

	sFrac := clampUnit(SmoothingRate * frameDt)
	s.RenderPos.X += (s.Pos.X - s.RenderPos.X) * sFrac
	s.RenderPos.Y += (s.Pos.Y - s.RenderPos.Y) * sFrac
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
