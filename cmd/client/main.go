// Command client is a headless reference client: it joins a map, drives a
// scripted movement pattern through the client prediction core, and keeps
// every other visible player smoothed through the remote interpolator,
// logging state instead of rendering it. It exists to exercise
// client/prediction and client/interpolation end-to-end without a renderer.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridian-games/arena/client/interpolation"
	"github.com/meridian-games/arena/client/netclient"
	"github.com/meridian-games/arena/client/prediction"
	"github.com/meridian-games/arena/config"
	"github.com/meridian-games/arena/internal/mapcatalog"
	"github.com/meridian-games/arena/internal/simulation"
	"github.com/meridian-games/arena/internal/wire"
)

const frameRate = 60

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.WithField("system", "client")

	addr := "127.0.0.1:9000"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	nc, err := netclient.Dial(addr)
	if err != nil {
		log.WithError(err).Fatal("failed to connect")
	}
	defer nc.Close()

	var (
		yourID  string
		pred    *prediction.State
		remotes = map[string]*interpolation.RemotePlayerView{}
		joined  bool
		frame   int
	)

	ticker := time.NewTicker(time.Second / frameRate)
	defer ticker.Stop()

	scripted := scriptedInputSequence()
	lastSendAt := time.Time{}

	for range ticker.C {
		frame++
		now := time.Now()

		for _, msg := range nc.Drain() {
			if msg.Raw != "" {
				log.WithField("raw", msg.Raw).Warn("undecodable line from server")
				continue
			}

			switch msg.Tag.Type {
			case wire.TagWelcome:
				yourID = msg.Tag.Welcome.YourID
				log.WithField("your_id", yourID).Info("received welcome")
				_ = nc.Send(wire.Join{Type: wire.TagJoin})

			case wire.TagMapData:
				md := msg.Tag.MapData.Map
				bounds := simulation.Bounds{W: md.Size.W, H: md.Size.H}
				polyBounds := aabbFromWireObjects(md.Objects)
				pred = prediction.New(simulation.Vec2{}, bounds, polyBounds)
				log.WithField("map", md.ID).Info("received map_data")

			case wire.TagGameState:
				me := msg.Tag.GameState.YourPlayer
				if pred != nil {
					pred.Pos = simulation.Vec2{X: me.X, Y: me.Y}
					pred.RenderPos = pred.Pos
				}
				for id, p := range msg.Tag.GameState.Players {
					if id == yourID {
						continue
					}
					remotes[id] = interpolation.New(simulation.Vec2{X: p.X, Y: p.Y}, p.Health, p.Alive)
				}
				joined = true
				log.Info("received game_state, now simulating")

			case wire.TagPlayerJoined:
				p := msg.Tag.PlayerJoined.Player
				if p.ID != yourID {
					remotes[p.ID] = interpolation.New(simulation.Vec2{X: p.X, Y: p.Y}, p.Health, p.Alive)
				}

			case wire.TagPlayerLeft:
				delete(remotes, msg.Tag.PlayerLeft.PlayerID)

			case wire.TagGameUpdate:
				for id, p := range msg.Tag.GameUpdate.Players {
					if id == yourID {
						if pred != nil {
							pred.Reconcile(prediction.ServerUpdate{X: p.X, Y: p.Y, LastInputSeq: p.LastInputSeq})
						}
						continue
					}
					if rv, ok := remotes[id]; ok {
						rv.UpdateFromServer(simulation.Vec2{X: p.X, Y: p.Y}, p.Health, p.Alive)
					} else {
						remotes[id] = interpolation.New(simulation.Vec2{X: p.X, Y: p.Y}, p.Health, p.Alive)
					}
				}

			case wire.TagInfo:
				log.WithField("event", msg.Tag.Info.Event).Info("server connection closed")
				return

			case wire.TagError:
				log.WithField("where", msg.Tag.Error.Where).WithField("error", msg.Tag.Error.Err).Error("network error")
				return
			}
		}

		if !joined || pred == nil {
			continue
		}

		k := scripted[frame%len(scripted)]
		seq := pred.ApplyLocalInput(k)
		if pred.ShouldSend(now, k, prediction.DefaultSendHz) {
			_ = nc.Send(wire.Input{Type: wire.TagInput, Seq: seq, K: k, Dt: 1.0 / frameRate})
			pred.MarkSent(now, k)
			lastSendAt = now
		}

		pred.Drain(1.0 / frameRate)
		for _, rv := range remotes {
			rv.Tick(1.0 / frameRate)
		}

		if frame%frameRate == 0 {
			log.WithFields(logrus.Fields{
				"pos":         fmt.Sprintf("(%.1f, %.1f)", pred.Pos.X, pred.Pos.Y),
				"render_pos":  fmt.Sprintf("(%.1f, %.1f)", pred.RenderPos.X, pred.RenderPos.Y),
				"remotes":     len(remotes),
				"last_send_s": now.Sub(lastSendAt).Seconds(),
			}).Info("tick")
		}
	}
}

// scriptedInputSequence drives the headless client through a simple
// move-right, move-down, idle loop so prediction and reconciliation have
// something nontrivial to converge on without a real input device.
func scriptedInputSequence() []int {
	seq := make([]int, 0, 180)
	for i := 0; i < 60; i++ {
		seq = append(seq, config.InputRight)
	}
	for i := 0; i < 60; i++ {
		seq = append(seq, config.InputDown)
	}
	for i := 0; i < 60; i++ {
		seq = append(seq, 0)
	}
	return seq
}

func aabbFromWireObjects(objects []wire.Polygon) []mapcatalog.AABB {
	out := make([]mapcatalog.AABB, 0, len(objects))
	for _, obj := range objects {
		if len(obj.Points) == 0 {
			continue
		}
		b := mapcatalog.AABB{
			MinX: obj.Points[0].X, MaxX: obj.Points[0].X,
			MinY: obj.Points[0].Y, MaxY: obj.Points[0].Y,
		}
		for _, pt := range obj.Points[1:] {
			if pt.X < b.MinX {
				b.MinX = pt.X
			}
			if pt.X > b.MaxX {
				b.MaxX = pt.X
			}
			if pt.Y < b.MinY {
				b.MinY = pt.Y
			}
			if pt.Y > b.MaxY {
				b.MaxY = pt.Y
			}
		}
		out = append(out, b)
	}
	return out
}
