// Package router implements the Instance Router: the per-connection receive
// loop's dispatch table, translating inbound wire messages into registry,
// map catalog, and instance operations.
package router

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/meridian-games/arena/internal/instance"
	"github.com/meridian-games/arena/internal/mapcatalog"
	"github.com/meridian-games/arena/internal/registry"
	"github.com/meridian-games/arena/internal/transport"
	"github.com/meridian-games/arena/internal/wire"
)

// Router dispatches one connection's decoded messages. It is stateless
// across connections: all per-client state lives in the registry and in
// whichever Instance the client has joined.
type Router struct {
	registry *registry.Registry
	catalog  *mapcatalog.Catalog
	manager  *instance.Manager
	log      *logrus.Entry
}

// New returns a Router wired to the process-wide registry, map catalog, and
// instance manager.
func New(reg *registry.Registry, catalog *mapcatalog.Catalog, manager *instance.Manager) *Router {
	return &Router{
		registry: reg,
		catalog:  catalog,
		manager:  manager,
		log:      logrus.WithField("system", "router"),
	}
}

// Serve owns one accepted connection end-to-end: sends welcome, then reads
// and dispatches lines until a read error, EOF, or oversized line, at which
// point it runs the cleanup path exactly once.
func (r *Router) Serve(c *transport.Conn) {
	log := r.log.WithFields(logrus.Fields{"client_id": c.ID(), "remote_addr": c.RemoteAddr()})

	r.registry.Add(c)
	log.Info("client connected")

	welcome := wire.Welcome{
		Type:          wire.TagWelcome,
		YourID:        c.ID(),
		AvailableMaps: r.catalog.List(),
	}
	if err := c.Send(welcome); err != nil {
		log.WithError(err).Warn("failed to send welcome")
		r.cleanup(c, log)
		return
	}

	scanner := c.Lines()
	for scanner.Scan() {
		line := scanner.Bytes()
		if wire.IsBlank(line) {
			continue
		}
		r.dispatch(c, line, log)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		log.WithError(transport.TranslateScanErr(err)).Info("connection read error")
	} else {
		log.Info("client disconnected")
	}

	r.cleanup(c, log)
}

// dispatch decodes one line's tag and routes it to the matching handler.
// Malformed JSON is logged and ignored, same as an unknown tag: neither
// closes the connection, only a transport-level fault does that.
func (r *Router) dispatch(c *transport.Conn, line []byte, log *logrus.Entry) {
	tag, err := wire.DecodeTag(line)
	if err != nil {
		log.WithError(err).Warn("dropping malformed line")
		return
	}

	switch tag {
	case wire.TagJoin:
		r.handleJoin(c, line, log)
	case wire.TagInput:
		r.handleInput(c, line, log)
	case wire.TagPing:
		r.handlePing(c, log)
	case wire.TagChat:
		r.handleChat(c, line, log)
	case wire.TagListMaps:
		r.handleListMaps(c, log)
	default:
		log.WithField("tag", tag).Warn("unknown message type")
	}
}

func (r *Router) handleJoin(c *transport.Conn, line []byte, log *logrus.Entry) {
	if _, ok := r.manager.Find(c.ID()); ok {
		log.Warn("join rejected: already a member of an instance")
		return
	}

	var msg wire.Join
	if err := wire.Decode(line, &msg); err != nil {
		log.WithError(err).Warn("malformed join")
		return
	}

	in, err := r.manager.Get(msg.Map)
	if err != nil {
		log.WithError(err).Warn("join failed: no resolvable map")
		wireErr := wire.Error{Type: wire.TagError, Where: "join", Err: "no maps available"}
		if sendErr := c.Send(wireErr); sendErr != nil {
			log.WithError(sendErr).Warn("failed to send join error")
		}
		return
	}

	player := in.CreatePlayer(c.ID())

	mapData := wire.MapDataMsg{Type: wire.TagMapData, Map: toWireMapData(in.Map)}
	if err := c.Send(mapData); err != nil {
		log.WithError(err).Warn("failed to send map_data")
		return
	}

	state := wire.GameState{
		Type:       wire.TagGameState,
		YourPlayer: player.PublicState(),
		Players:    in.Snapshot(),
	}
	if err := c.Send(state); err != nil {
		log.WithError(err).Warn("failed to send game_state")
		return
	}

	joined := wire.PlayerJoined{Type: wire.TagPlayerJoined, Player: player.PublicState()}
	for _, id := range in.Members() {
		if id == c.ID() {
			continue
		}
		if err := r.registry.Send(id, joined); err != nil {
			log.WithError(err).WithField("to", id).Warn("failed to broadcast player_joined")
		}
	}

	log.WithField("map", in.MapID).Info("client joined instance")
}

func (r *Router) handleInput(c *transport.Conn, line []byte, log *logrus.Entry) {
	in, ok := r.manager.Find(c.ID())
	if !ok {
		return
	}

	var msg wire.Input
	if err := wire.Decode(line, &msg); err != nil {
		log.WithError(err).Warn("malformed input")
		return
	}

	in.EnqueueInput(c.ID(), msg.Seq, msg.K)
}

func (r *Router) handlePing(c *transport.Conn, log *logrus.Entry) {
	if err := c.Send(wire.Pong{Type: wire.TagPong}); err != nil {
		log.WithError(err).Warn("failed to send pong")
	}
}

func (r *Router) handleChat(c *transport.Conn, line []byte, log *logrus.Entry) {
	var msg wire.Chat
	if err := wire.Decode(line, &msg); err != nil {
		log.WithError(err).Warn("malformed chat")
		return
	}
	msg.Type = wire.TagChat
	msg.From = c.ID()

	in, isMember := r.manager.Find(c.ID())
	if isMember {
		for _, id := range in.Members() {
			if err := r.registry.Send(id, msg); err != nil {
				log.WithError(err).WithField("to", id).Warn("failed to send chat")
			}
		}
		return
	}

	for _, conn := range r.registry.All() {
		if err := conn.Send(msg); err != nil {
			log.WithError(err).WithField("to", conn.ID()).Warn("failed to send global chat")
		}
	}
}

func (r *Router) handleListMaps(c *transport.Conn, log *logrus.Entry) {
	msg := wire.MapsList{Type: wire.TagMapsList, Maps: r.catalog.List()}
	if err := c.Send(msg); err != nil {
		log.WithError(err).Warn("failed to send maps_list")
	}
}

// cleanup removes the client from the registry and its instance (if any)
// and broadcasts player_left to the remaining members. Serve guarantees
// this runs exactly once per connection.
func (r *Router) cleanup(c *transport.Conn, log *logrus.Entry) {
	r.registry.Remove(c.ID())
	_ = c.Close()

	in, ok := r.manager.Find(c.ID())
	if !ok {
		return
	}
	in.RemovePlayer(c.ID())

	left := wire.PlayerLeft{Type: wire.TagPlayerLeft, PlayerID: c.ID()}
	for _, id := range in.Members() {
		if err := r.registry.Send(id, left); err != nil {
			log.WithError(err).WithField("to", id).Warn("failed to broadcast player_left")
		}
	}
}

func toWireMapData(d *mapcatalog.Descriptor) wire.MapData {
	objects := make([]wire.Polygon, len(d.Objects))
	for i, obj := range d.Objects {
		points := make([]wire.Point, len(obj.Points))
		for j, p := range obj.Points {
			points[j] = wire.Point{X: p.X, Y: p.Y}
		}
		objects[i] = wire.Polygon{Points: points}
	}
	return wire.MapData{
		ID:      d.ID,
		Name:    d.Name,
		Size:    wire.MapSize{W: d.Size.W, H: d.Size.H},
		Objects: objects,
	}
}
