package coordinator_test

import (
	"context"
	"fmt"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"room-broker/domain"
	"room-broker/infra/memory"
	"room-broker/internal/api/ws/hub"
	wsUsecase "room-broker/internal/api/ws/usecase"
	"room-broker/internal/coordinator"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roomBuilder(store wsUsecase.RoomStore, shards int) coordinator.FactoryBuilder {
	return func(_ string, owns func(string) bool) hub.Factory {
		return wsUsecase.NewRoomCoordinatorFactory(wsUsecase.Dependencies{Store: store, Owns: owns, Shards: shards})
	}
}

func newNamespace(t *testing.T, shards int) *coordinator.Namespace {
	t.Helper()

	ns := coordinator.NewNamespace(context.Background(), shards, hub.Config{}, roomBuilder(memory.NewRoomStore(), shards))
	t.Cleanup(func() { _ = ns.Close() })
	return ns
}

func TestNamespace_GetIsStable(t *testing.T) {
	ns := newNamespace(t, 1)

	first := ns.Get(coordinator.DefaultName)
	assert.Same(t, first, ns.Get(coordinator.DefaultName))
	assert.NotSame(t, first, ns.Get("other"))
	assert.Equal(t, coordinator.DefaultName, first.Name())
}

func TestNamespace_ShardFor(t *testing.T) {
	single := newNamespace(t, 1)
	assert.Equal(t, coordinator.DefaultName, single.ShardFor("a1b2c3d4"))

	sharded := newNamespace(t, 4)
	seen := make(map[string]int)
	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("%08x", i*7919)
		shard := sharded.ShardFor(key)
		assert.Equal(t, shard, sharded.ShardFor(key), "routing must be deterministic")
		seen[shard]++
	}
	assert.Len(t, seen, 4)
	for shard, n := range seen {
		assert.Regexp(t, `^shard-[0-3]$`, shard)
		assert.Greater(t, n, 100, "shard %s is starved", shard)
	}
}

func TestNamespace_FetchRejectsPlainRequests(t *testing.T) {
	ns := newNamespace(t, 1)
	app := fiber.New()
	app.Get("/websocket", func(c *fiber.Ctx) error { return ns.Fetch(coordinator.DefaultName, c) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/websocket", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func serve(t *testing.T, ns *coordinator.Namespace, route func(*fiber.Ctx) string) string {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/websocket", func(c *fiber.Ctx) error { return ns.Fetch(route(c), c) })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(time.Second) })

	return "ws://" + ln.Addr().String() + "/websocket"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		c, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 2*time.Second, 20*time.Millisecond)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readResponse[T any](t *testing.T, conn *websocket.Conn) domain.SocketResponse[T] {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var resp domain.SocketResponse[T]
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestNamespace_RoomOverRealConnections(t *testing.T) {
	ns := newNamespace(t, 1)
	url := serve(t, ns, func(*fiber.Ctx) string { return coordinator.DefaultName })

	alice := dial(t, url)
	require.NoError(t, alice.WriteJSON(map[string]string{"type": "create", "username": "alice"}))
	created := readResponse[domain.RoomCreatedData](t, alice)
	require.Equal(t, domain.TypeRoomCreated, created.Type)
	roomID := created.Data.RoomID

	bob := dial(t, url)
	require.NoError(t, bob.WriteJSON(map[string]string{"type": "join", "roomId": roomID, "username": "bob"}))
	joined := readResponse[domain.RoomJoinedData](t, bob)
	assert.Equal(t, 2, joined.Data.Members)
	assert.Equal(t, domain.TypeMemberJoined, readResponse[domain.MemberData](t, alice).Type)

	// Force an eviction between messages; routing must survive it.
	ns.Get(coordinator.DefaultName).Hibernate()

	require.NoError(t, bob.WriteJSON(map[string]string{"type": "message", "content": "hello alice"}))
	msg := readResponse[domain.ChatData](t, alice)
	assert.Equal(t, "hello alice", msg.Data.Content)
	assert.Equal(t, "bob", msg.Data.From)

	require.NoError(t, bob.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	left := readResponse[domain.MemberData](t, alice)
	assert.Equal(t, domain.TypeMemberLeft, left.Type)
	assert.Equal(t, "bob", left.Data.Username)

	assert.GreaterOrEqual(t, ns.Get(coordinator.DefaultName).Wakes(), int64(2))
}

func TestNamespace_ShardedMintingStaysOnShard(t *testing.T) {
	ns := newNamespace(t, 3)
	url := serve(t, ns, func(c *fiber.Ctx) string {
		if room := c.Query("room"); room != "" {
			return ns.ShardFor(room)
		}
		return c.Query("shard")
	})

	for _, shard := range []string{"shard-0", "shard-1", "shard-2"} {
		conn := dial(t, url+"?shard="+shard)
		require.NoError(t, conn.WriteJSON(map[string]string{"type": "create"}))
		created := readResponse[domain.RoomCreatedData](t, conn)
		require.Equal(t, domain.TypeRoomCreated, created.Type)
		assert.Equal(t, shard, ns.ShardFor(created.Data.RoomID))

		peer := dial(t, url+"?room="+created.Data.RoomID)
		require.NoError(t, peer.WriteJSON(map[string]string{"type": "join", "roomId": created.Data.RoomID}))
		assert.Equal(t, domain.TypeRoomJoined, readResponse[domain.RoomJoinedData](t, peer).Type)
	}
}
