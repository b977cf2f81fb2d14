// Package wire implements the message codec: newline-delimited JSON framing
// over a reliable ordered byte stream, one object per line, each carrying a
// type tag "t".
package wire

// Tag is the wire message type discriminator.
type Tag string

const (
	TagWelcome      Tag = "welcome"
	TagPing         Tag = "ping"
	TagPong         Tag = "pong"
	TagListMaps     Tag = "list_maps"
	TagMapsList     Tag = "maps_list"
	TagJoin         Tag = "join"
	TagMapData      Tag = "map_data"
	TagGameState    Tag = "game_state"
	TagPlayerJoined Tag = "player_joined"
	TagPlayerLeft   Tag = "player_left"
	TagInput        Tag = "in"
	TagGameUpdate   Tag = "game_update"
	TagChat         Tag = "chat"

	// Client-internal only; never sent by the server.
	TagInfo  Tag = "_info"
	TagError Tag = "_error"
	TagExit  Tag = "_exit"
)

// Envelope is the outer shape of every wire message: only its type tag is
// read. Handlers re-decode the whole line into the concrete payload type
// for Tag, a tagged union in place of duck-typed objects.
type Envelope struct {
	Type Tag `json:"t"`
}

// PlayerPublicState is the subset of Player exposed over the wire: internal
// bookkeeping fields (velocity, timestamps) never leave the server.
type PlayerPublicState struct {
	ID           string  `json:"id,omitempty"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Health       int     `json:"health"`
	Alive        bool    `json:"alive"`
	LastInputSeq int64   `json:"last_input_seq"`
}

// MapSize mirrors mapcatalog.Size for the wire (kept separate so the wire
// package has no dependency on mapcatalog's internal bounds cache).
type MapSize struct {
	W int `json:"w"`
	H int `json:"h"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Polygon struct {
	Points []Point `json:"points"`
}

// MapData is the map geometry sent once to a joining client, before its
// first game_state.
type MapData struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Size    MapSize   `json:"size"`
	Objects []Polygon `json:"objects"`
}

// Welcome is sent once on accept, before any other message.
type Welcome struct {
	Type           Tag               `json:"t"`
	YourID         string            `json:"your_id"`
	AvailableMaps  map[string]string `json:"available_maps"`
}

// Ping carries no body; the server replies with Pong.
type Ping struct {
	Type Tag `json:"t"`
}

// Pong carries no body.
type Pong struct {
	Type Tag `json:"t"`
}

// ListMaps is the client's request for the map catalog.
type ListMaps struct {
	Type Tag `json:"t"`
}

// MapsList answers ListMaps.
type MapsList struct {
	Type Tag               `json:"t"`
	Maps map[string]string `json:"maps"`
}

// Join requests membership in a map's instance. Map may be omitted, in
// which case the server falls back to its default (first-loaded) map.
type Join struct {
	Type Tag    `json:"t"`
	Map  string `json:"map,omitempty"`
}

// MapDataMsg wraps MapData with its tag.
type MapDataMsg struct {
	Type Tag     `json:"t"`
	Map  MapData `json:"map"`
}

// GameState is the full authoritative snapshot sent once, right after join.
type GameState struct {
	Type       Tag                          `json:"t"`
	YourPlayer PlayerPublicState            `json:"your_player"`
	Players    map[string]PlayerPublicState `json:"players"`
}

// PlayerJoined is broadcast to the other instance members when someone
// joins; the joiner itself does not receive this (it gets GameState).
type PlayerJoined struct {
	Type   Tag               `json:"t"`
	Player PlayerPublicState `json:"player"`
}

// PlayerLeft is broadcast on disconnect/leave.
type PlayerLeft struct {
	Type     Tag    `json:"t"`
	PlayerID string `json:"player_id"`
}

// Input is a client's per-frame control input. Dt is advisory only; the
// server always integrates with its own fixed tick interval.
type Input struct {
	Type Tag     `json:"t"`
	Seq  int64   `json:"seq"`
	K    int     `json:"k"`
	Dt   float64 `json:"dt"`
	Ack  *int64  `json:"ack,omitempty"`
}

// GameUpdate is the per-tick authoritative snapshot, broadcast to every
// member of one instance.
type GameUpdate struct {
	Type      Tag                          `json:"t"`
	Timestamp float64                      `json:"timestamp"`
	Players   map[string]PlayerPublicState `json:"players"`
}

// Chat is instance-scoped when the sender is a member, global otherwise.
type Chat struct {
	Type Tag    `json:"t"`
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

// Info is a client-network-layer-only informational signal, never sent by
// the server (e.g. {"event":"server_closed"} on a clean peer EOF).
type Info struct {
	Type  Tag    `json:"t"`
	Event string `json:"event"`
}

// Error is a client-network-layer-only error signal.
type Error struct {
	Type  Tag    `json:"t"`
	Where string `json:"where,omitempty"`
	Err   string `json:"error"`
}
