package instance

import (
	"time"

	"github.com/meridian-games/arena/config"
	"github.com/meridian-games/arena/internal/simulation"
	"github.com/meridian-games/arena/internal/wire"
)

// Player is the authoritative, server-side player record. Created on join,
// mutated only by the owning Instance's tick loop, destroyed on disconnect
// or explicit leave.
type Player struct {
	ID   string
	Pos  simulation.Vec2
	Vel  simulation.Vec2
	Life simulation.Life

	LastInputSeq int64
	LastUpdate   time.Time
}

// newPlayer creates a player at spawn with full health and no processed
// input yet (LastInputSeq starts at -1).
func newPlayer(id string, spawn simulation.Vec2) *Player {
	return &Player{
		ID:           id,
		Pos:          spawn,
		Life:         simulation.NewLife(config.DefaultMaxHealth),
		LastInputSeq: -1,
		LastUpdate:   time.Now(),
	}
}

// PublicState strips internal fields down to the wire-visible subset.
func (p *Player) PublicState() wire.PlayerPublicState {
	return wire.PlayerPublicState{
		ID:           p.ID,
		X:            p.Pos.X,
		Y:            p.Pos.Y,
		Health:       p.Life.Current,
		Alive:        p.Life.Alive(),
		LastInputSeq: p.LastInputSeq,
	}
}

// pendingInput is one queued, not-yet-applied client input.
type pendingInput struct {
	Seq        int64
	K          int
	ReceivedAt time.Time
}
