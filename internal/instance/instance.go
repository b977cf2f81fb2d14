// Package instance implements one per-map simulation container: the fixed
// timestep tick loop, pending-input queues, and snapshot broadcast.
package instance

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridian-games/arena/config"
	"github.com/meridian-games/arena/internal/mapcatalog"
	"github.com/meridian-games/arena/internal/simulation"
	"github.com/meridian-games/arena/internal/wire"
)

// Broadcaster is the narrow fan-out interface an Instance needs from the
// connection registry, kept minimal so this package has no dependency on
// net.Conn or transport lifecycle.
type Broadcaster interface {
	// Send delivers v to the connection owned by id. A missing id or a
	// write error is the caller's problem to log; Instance does not retry.
	Send(id string, v interface{}) error
}

// Instance is the simulation container for one active map.
type Instance struct {
	MapID string
	Map   *mapcatalog.Descriptor

	tickInterval time.Duration
	broadcaster  Broadcaster
	log          *logrus.Entry

	mu      sync.Mutex
	players map[string]*Player
	pending map[string][]pendingInput

	running bool
	stop    chan struct{}
	done    chan struct{}

	tickCount       uint64
	inputsProcessed uint64
	messagesSent    uint64
	maxDt           time.Duration
	sumDt           time.Duration
	statsWindow     time.Time
}

// New creates an instance for mapID, not yet started.
func New(mapID string, desc *mapcatalog.Descriptor, tickRate int, b Broadcaster) *Instance {
	if tickRate <= 0 {
		tickRate = config.TickRate
	}
	return &Instance{
		MapID:        mapID,
		Map:          desc,
		tickInterval: time.Duration(float64(time.Second) / float64(tickRate)),
		broadcaster:  b,
		log:          logrus.WithFields(logrus.Fields{"system": "instance", "map": mapID}),
		players:      make(map[string]*Player),
		pending:      make(map[string][]pendingInput),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		statsWindow:  time.Now(),
	}
}

// Start launches the tick-loop goroutine. Safe to call once; a second call
// is a no-op.
func (in *Instance) Start() {
	in.mu.Lock()
	if in.running {
		in.mu.Unlock()
		return
	}
	in.running = true
	in.mu.Unlock()

	in.log.Info("instance starting")
	go in.run()
}

// Stop signals the tick loop to exit at its next sleep check. Safe to call
// more than once.
func (in *Instance) Stop() {
	in.mu.Lock()
	if !in.running {
		in.mu.Unlock()
		return
	}
	in.running = false
	in.mu.Unlock()

	close(in.stop)
	<-in.done
}

// CreatePlayer assigns a deterministic spawn point (len(players) % len(
// spawn_points)) and registers a fresh authoritative Player.
func (in *Instance) CreatePlayer(id string) *Player {
	in.mu.Lock()
	defer in.mu.Unlock()

	spawn := in.Map.SpawnFor(len(in.players))
	p := newPlayer(id, simulation.Vec2{X: spawn.X, Y: spawn.Y})
	in.players[id] = p
	in.pending[id] = nil
	return p
}

// RemovePlayer deletes a player's record and pending-input queue. Does not
// stop the instance: it may keep running with zero players.
func (in *Instance) RemovePlayer(id string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.players, id)
	delete(in.pending, id)
}

// Members returns the ids of every player currently in this instance.
func (in *Instance) Members() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	ids := make([]string, 0, len(in.players))
	for id := range in.players {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns the current public state of every player, used to build
// the joining client's game_state message.
func (in *Instance) Snapshot() map[string]wire.PlayerPublicState {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make(map[string]wire.PlayerPublicState, len(in.players))
	for id, p := range in.players {
		out[id] = p.PublicState()
	}
	return out
}

// GetPlayer returns a player's current public state, used to reply with the
// joiner's own game_state.your_player.
func (in *Instance) GetPlayer(id string) (wire.PlayerPublicState, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	p, ok := in.players[id]
	if !ok {
		return wire.PlayerPublicState{}, false
	}
	return p.PublicState(), true
}

// EnqueueInput appends an input to id's pending FIFO. Dropped silently if id
// is not a member; the caller is expected to have already checked
// membership before reaching here, this is just a safe zero-value guard.
func (in *Instance) EnqueueInput(id string, seq int64, k int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, ok := in.players[id]; !ok {
		return
	}
	in.pending[id] = append(in.pending[id], pendingInput{Seq: seq, K: k, ReceivedAt: time.Now()})
}

// IsMember reports whether id currently has a player in this instance.
func (in *Instance) IsMember(id string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	_, ok := in.players[id]
	return ok
}

// run is the fixed-timestep tick loop.
func (in *Instance) run() {
	defer close(in.done)
	defer func() {
		if r := recover(); r != nil {
			in.log.WithField("panic", r).Error("tick loop crashed, instance terminated")
			in.mu.Lock()
			in.running = false
			in.mu.Unlock()
		}
	}()

	lastTick := time.Now()
	statsTicker := time.NewTicker(config.StatsIntervalSeconds * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-in.stop:
			return
		case <-statsTicker.C:
			in.logStats()
		default:
		}

		tickStart := time.Now()
		dt := tickStart.Sub(lastTick)
		lastTick = tickStart

		in.tick()

		in.mu.Lock()
		in.tickCount++
		in.sumDt += dt
		if dt > in.maxDt {
			in.maxDt = dt
		}
		in.mu.Unlock()

		elapsed := time.Since(tickStart)
		sleep := in.tickInterval - elapsed
		if sleep < 0 {
			sleep = 0
		}

		select {
		case <-in.stop:
			return
		case <-time.After(sleep):
		}
	}
}

// tick drains each player's pending-input FIFO up to a per-tick cap,
// applies the deterministic simulation step using the fixed tick interval
// rather than measured dt, then broadcasts one snapshot to every member.
// Inputs past the cap stay queued for the next tick instead of being
// dropped.
func (in *Instance) tick() {
	in.mu.Lock()
	dtSeconds := in.tickInterval.Seconds()
	bounds := simulation.Bounds{W: in.Map.Size.W, H: in.Map.Size.H}
	polyBounds := in.Map.Bounds()

	var processed int
	for id, p := range in.players {
		all := in.pending[id]
		queue := all
		if len(queue) > config.MaxInputsPerTick {
			queue = queue[:config.MaxInputsPerTick]
		}
		for _, in_ := range queue {
			body := simulation.Step(
				simulation.Body{Pos: p.Pos, Vel: p.Vel},
				simulation.Input{K: in_.K},
				dtSeconds,
				bounds,
				polyBounds,
			)
			p.Pos = body.Pos
			p.Vel = body.Vel
			if in_.Seq > p.LastInputSeq {
				p.LastInputSeq = in_.Seq
			}
			p.LastUpdate = time.Now()
			processed++
		}
		in.pending[id] = all[len(queue):]
	}
	in.inputsProcessed += uint64(processed)

	hasPlayers := len(in.players) > 0
	var snapshot map[string]wire.PlayerPublicState
	if hasPlayers {
		snapshot = make(map[string]wire.PlayerPublicState, len(in.players))
		for id, p := range in.players {
			snapshot[id] = p.PublicState()
		}
	}
	members := make([]string, 0, len(in.players))
	for id := range in.players {
		members = append(members, id)
	}
	in.mu.Unlock()

	if !hasPlayers {
		return
	}

	update := wire.GameUpdate{
		Type:      wire.TagGameUpdate,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Players:   snapshot,
	}

	var sent uint64
	for _, id := range members {
		if err := in.broadcaster.Send(id, update); err != nil {
			in.log.WithError(err).WithField("player_id", id).Warn("failed to send game_update")
			continue
		}
		sent++
	}

	in.mu.Lock()
	in.messagesSent += sent
	in.mu.Unlock()
}

func (in *Instance) logStats() {
	in.mu.Lock()
	ticks := in.tickCount
	sumDt := in.sumDt
	maxDt := in.maxDt
	inputs := in.inputsProcessed
	sent := in.messagesSent
	in.tickCount, in.sumDt, in.maxDt, in.inputsProcessed, in.messagesSent = 0, 0, 0, 0, 0
	in.mu.Unlock()

	var avgDt time.Duration
	if ticks > 0 {
		avgDt = sumDt / time.Duration(ticks)
	}

	in.log.WithFields(logrus.Fields{
		"ticks":            ticks,
		"avg_dt_ms":        float64(avgDt.Microseconds()) / 1000,
		"max_dt_ms":        float64(maxDt.Microseconds()) / 1000,
		"inputs_processed": inputs,
		"messages_sent":    sent,
	}).Info("instance stats")
}
