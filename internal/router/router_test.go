package router

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-games/arena/internal/instance"
	"github.com/meridian-games/arena/internal/mapcatalog"
	"github.com/meridian-games/arena/internal/registry"
	"github.com/meridian-games/arena/internal/transport"
	"github.com/meridian-games/arena/internal/wire"
)

// testClient drives one side of a net.Pipe the way a real socket client
// would: it reads decoded lines off a channel (fed by a background goroutine,
// since net.Pipe is synchronous) and writes raw JSON lines on demand.
type testClient struct {
	conn net.Conn
	recv chan map[string]interface{}
}

func newTestClient(t *testing.T, r *Router, id string) *testClient {
	t.Helper()
	server, client := net.Pipe()
	c := transport.New(id, server)
	go r.Serve(c)

	tc := &testClient{conn: client, recv: make(chan map[string]interface{}, 64)}
	go func() {
		scanner := bufio.NewScanner(client)
		scanner.Buffer(make([]byte, 0, 4096), 256*1024)
		for scanner.Scan() {
			var m map[string]interface{}
			if json.Unmarshal(scanner.Bytes(), &m) == nil {
				tc.recv <- m
			}
		}
		close(tc.recv)
	}()
	return tc
}

func (tc *testClient) send(t *testing.T, v interface{}) {
	t.Helper()
	data, err := wire.Encode(v)
	require.NoError(t, err)
	_, err = tc.conn.Write(data)
	require.NoError(t, err)
}

// expect reads until it sees tag, silently skipping any interleaved
// game_update ticks (an instance starts broadcasting the moment it has a
// member, and these tests don't control tick timing).
func (tc *testClient) expect(t *testing.T, tag string) map[string]interface{} {
	t.Helper()
	for {
		select {
		case m, ok := <-tc.recv:
			require.True(t, ok, "connection closed while waiting for %q", tag)
			if m["t"] == "game_update" && tag != "game_update" {
				continue
			}
			require.Equal(t, tag, m["t"])
			return m
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", tag)
			return nil
		}
	}
}

func newTestRouter(t *testing.T) (*Router, *registry.Registry, *instance.Manager) {
	t.Helper()
	catalog, err := mapcatalog.Load("../mapcatalog/testdata/maps")
	require.NoError(t, err)

	reg := registry.New()
	manager := instance.NewManager(catalog, reg, 1000)
	return New(reg, catalog, manager), reg, manager
}

func TestJoin_SendsErrorWhenNoMapsLoaded(t *testing.T) {
	catalog, err := mapcatalog.Load(t.TempDir())
	require.NoError(t, err)

	reg := registry.New()
	manager := instance.NewManager(catalog, reg, 1000)
	r := New(reg, catalog, manager)

	tc := newTestClient(t, r, "p1")
	defer tc.conn.Close()

	tc.expect(t, "welcome")
	tc.send(t, wire.Join{Type: wire.TagJoin, Map: "forest"})

	errMsg := tc.expect(t, "_error")
	require.Equal(t, "join", errMsg["where"])

	_, ok := manager.Find("p1")
	require.False(t, ok)
}

func TestServe_SendsWelcomeFirst(t *testing.T) {
	r, _, _ := newTestRouter(t)
	tc := newTestClient(t, r, "p1")
	defer tc.conn.Close()

	w := tc.expect(t, "welcome")
	require.Equal(t, "p1", w["your_id"])
}

func TestJoin_SendsMapDataThenGameState(t *testing.T) {
	r, _, _ := newTestRouter(t)
	tc := newTestClient(t, r, "p1")
	defer tc.conn.Close()

	tc.expect(t, "welcome")
	tc.send(t, wire.Join{Type: wire.TagJoin, Map: "forest"})

	md := tc.expect(t, "map_data")
	require.Equal(t, "forest", md["map"].(map[string]interface{})["id"])
	tc.expect(t, "game_state")
}

func TestJoin_RejectsSecondJoinFromSameClient(t *testing.T) {
	r, _, manager := newTestRouter(t)
	tc := newTestClient(t, r, "p1")
	defer tc.conn.Close()

	tc.expect(t, "welcome")
	tc.send(t, wire.Join{Type: wire.TagJoin, Map: "forest"})
	tc.expect(t, "map_data")
	tc.expect(t, "game_state")

	tc.send(t, wire.Join{Type: wire.TagJoin, Map: "cave"})

	// No second map_data should arrive: the ping sent right after must be
	// answered with pong as the next non-game_update message if the join was
	// correctly rejected rather than crashing the connection.
	tc.send(t, wire.Ping{Type: wire.TagPing})
	tc.expect(t, "pong")

	in, ok := manager.Find("p1")
	require.True(t, ok)
	require.Equal(t, "forest", in.MapID)
}

func TestJoin_BroadcastsPlayerJoinedToExistingMembersOnly(t *testing.T) {
	r, _, _ := newTestRouter(t)

	tc1 := newTestClient(t, r, "p1")
	defer tc1.conn.Close()
	tc1.expect(t, "welcome")
	tc1.send(t, wire.Join{Type: wire.TagJoin, Map: "forest"})
	tc1.expect(t, "map_data")
	tc1.expect(t, "game_state")

	tc2 := newTestClient(t, r, "p2")
	defer tc2.conn.Close()
	tc2.expect(t, "welcome")
	tc2.send(t, wire.Join{Type: wire.TagJoin, Map: "forest"})
	tc2.expect(t, "map_data")
	tc2.expect(t, "game_state")

	joined := tc1.expect(t, "player_joined")
	require.Equal(t, "p2", joined["player"].(map[string]interface{})["id"])
}

func TestPing_RepliesPong(t *testing.T) {
	r, _, _ := newTestRouter(t)
	tc := newTestClient(t, r, "p1")
	defer tc.conn.Close()

	tc.expect(t, "welcome")
	tc.send(t, wire.Ping{Type: wire.TagPing})
	tc.expect(t, "pong")
}

func TestListMaps_RepliesMapsList(t *testing.T) {
	r, _, _ := newTestRouter(t)
	tc := newTestClient(t, r, "p1")
	defer tc.conn.Close()

	tc.expect(t, "welcome")
	tc.send(t, wire.ListMaps{Type: wire.TagListMaps})
	m := tc.expect(t, "maps_list")
	maps := m["maps"].(map[string]interface{})
	require.Contains(t, maps, "forest")
	require.Contains(t, maps, "cave")
}

func TestChat_GlobalWhenNotAMember(t *testing.T) {
	r, _, _ := newTestRouter(t)

	tc1 := newTestClient(t, r, "p1")
	defer tc1.conn.Close()
	tc1.expect(t, "welcome")

	tc2 := newTestClient(t, r, "p2")
	defer tc2.conn.Close()
	tc2.expect(t, "welcome")

	tc1.send(t, wire.Chat{Type: wire.TagChat, Text: "hi"})

	m := tc2.expect(t, "chat")
	require.Equal(t, "hi", m["text"])
	require.Equal(t, "p1", m["from"])
}

func TestCleanup_BroadcastsPlayerLeftOnDisconnect(t *testing.T) {
	r, reg, _ := newTestRouter(t)

	tc1 := newTestClient(t, r, "p1")
	defer tc1.conn.Close()
	tc1.expect(t, "welcome")
	tc1.send(t, wire.Join{Type: wire.TagJoin, Map: "forest"})
	tc1.expect(t, "map_data")
	tc1.expect(t, "game_state")

	tc2 := newTestClient(t, r, "p2")
	tc2.expect(t, "welcome")
	tc2.send(t, wire.Join{Type: wire.TagJoin, Map: "forest"})
	tc2.expect(t, "map_data")
	tc2.expect(t, "game_state")
	tc1.expect(t, "player_joined")

	tc2.conn.Close()

	left := tc1.expect(t, "player_left")
	require.Equal(t, "p2", left["player_id"])

	require.Eventually(t, func() bool {
		_, ok := reg.Get("p2")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestInput_DroppedSilentlyWhenSenderHasNoInstance(t *testing.T) {
	r, _, _ := newTestRouter(t)
	tc := newTestClient(t, r, "p1")
	defer tc.conn.Close()

	tc.expect(t, "welcome")
	tc.send(t, wire.Input{Type: wire.TagInput, Seq: 0, K: 1})

	// Must not crash the connection: a subsequent ping still gets answered.
	tc.send(t, wire.Ping{Type: wire.TagPing})
	tc.expect(t, "pong")
}
