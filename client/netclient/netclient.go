// Package netclient is the reference client's network layer: it owns the
// socket, runs a reader goroutine that decodes inbound wire messages into a
// thread-safe queue, and exposes a non-blocking per-frame drain for the main
// loop.
package netclient

import (
	"encoding/json"
	"net"
	"sync"

	"github.com/meridian-games/arena/internal/transport"
	"github.com/meridian-games/arena/internal/wire"
)

// Message is one decoded inbound item: Tag identifies which concrete field
// is populated. A malformed line becomes a Raw entry instead of being
// dropped, mirroring the original's "_raw" fallback.
type Message struct {
	Tag Wire
	Raw string
}

// Wire carries the concrete decoded payload alongside its tag, so callers
// can type-switch without a second decode pass.
type Wire struct {
	Type    wire.Tag
	Welcome *wire.Welcome
	Pong    *wire.Pong
	MapsList *wire.MapsList
	MapData *wire.MapDataMsg
	GameState *wire.GameState
	PlayerJoined *wire.PlayerJoined
	PlayerLeft *wire.PlayerLeft
	GameUpdate *wire.GameUpdate
	Chat    *wire.Chat
	Info    *wire.Info
	Error   *wire.Error
}

// Client owns one connection to the server.
type Client struct {
	conn *transport.Conn

	mu    sync.Mutex
	queue []Message

	closeOnce sync.Once
}

// Dial connects to addr with TCP_NODELAY enabled (via transport.New) and
// starts the reader goroutine. The returned Client has no id of its own
// until the server's welcome message is drained and read by the caller.
func Dial(addr string) (*Client, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	c := &Client{conn: transport.New("", nc)}
	go c.readLoop()
	return c, nil
}

// Send transmits v immediately; the caller is responsible for building a
// well-formed wire message (e.g. wire.Input).
func (c *Client) Send(v interface{}) error {
	return c.conn.Send(v)
}

// Close shuts down the connection. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// Drain returns and clears every message received since the last Drain
// call, non-blocking, for the main loop to process once per frame.
func (c *Client) Drain() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	out := c.queue
	c.queue = nil
	return out
}

func (c *Client) push(m Message) {
	c.mu.Lock()
	c.queue = append(c.queue, m)
	c.mu.Unlock()
}

// readLoop decodes lines until a read error, EOF, or oversized line, then
// emits exactly one terminal signal: _info{server_closed} on a clean peer
// close, _error otherwise.
func (c *Client) readLoop() {
	scanner := c.conn.Lines()
	for scanner.Scan() {
		line := scanner.Bytes()
		if wire.IsBlank(line) {
			continue
		}
		c.push(decodeOne(line))
	}

	if err := scanner.Err(); err != nil {
		translated := transport.TranslateScanErr(err)
		c.push(Message{Tag: Wire{
			Type:  wire.TagError,
			Error: &wire.Error{Type: wire.TagError, Where: "recv", Err: translated.Error()},
		}})
		return
	}

	c.push(Message{Tag: Wire{
		Type: wire.TagInfo,
		Info: &wire.Info{Type: wire.TagInfo, Event: "server_closed"},
	}})
}

// decodeOne sniffs the tag and fully decodes into the matching concrete
// type. An undecodable line becomes Message.Raw, matching the original's
// "_raw" fallback instead of dropping the line silently.
func decodeOne(line []byte) Message {
	tag, err := wire.DecodeTag(line)
	if err != nil {
		return Message{Raw: string(line)}
	}

	w := Wire{Type: tag}
	var decodeErr error
	switch tag {
	case wire.TagWelcome:
		w.Welcome = &wire.Welcome{}
		decodeErr = json.Unmarshal(line, w.Welcome)
	case wire.TagPong:
		w.Pong = &wire.Pong{}
		decodeErr = json.Unmarshal(line, w.Pong)
	case wire.TagMapsList:
		w.MapsList = &wire.MapsList{}
		decodeErr = json.Unmarshal(line, w.MapsList)
	case wire.TagMapData:
		w.MapData = &wire.MapDataMsg{}
		decodeErr = json.Unmarshal(line, w.MapData)
	case wire.TagGameState:
		w.GameState = &wire.GameState{}
		decodeErr = json.Unmarshal(line, w.GameState)
	case wire.TagPlayerJoined:
		w.PlayerJoined = &wire.PlayerJoined{}
		decodeErr = json.Unmarshal(line, w.PlayerJoined)
	case wire.TagPlayerLeft:
		w.PlayerLeft = &wire.PlayerLeft{}
		decodeErr = json.Unmarshal(line, w.PlayerLeft)
	case wire.TagGameUpdate:
		w.GameUpdate = &wire.GameUpdate{}
		decodeErr = json.Unmarshal(line, w.GameUpdate)
	case wire.TagChat:
		w.Chat = &wire.Chat{}
		decodeErr = json.Unmarshal(line, w.Chat)
	default:
		return Message{Raw: string(line)}
	}

	if decodeErr != nil {
		return Message{Raw: string(line)}
	}
	return Message{Tag: w}
}
