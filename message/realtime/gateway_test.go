package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthTestServer(t *testing.T, secret string) (*Registry, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registry := NewRegistry(zap.NewNop())
	gateway := NewGateway(registry, zap.NewNop(), secret)
	r := gin.New()
	r.GET("/ws", gateway.Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return registry, srv
}

func newTestServer(t *testing.T) (*Registry, *httptest.Server) {
	t.Helper()
	return newAuthTestServer(t, "")
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGateway_JoinThenReceive(t *testing.T) {
	registry, srv := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Event{Event: CommandJoin, Data: "alice"}))
	require.Eventually(t, func() bool {
		return registry.RoomSize("alice") == 1
	}, 2*time.Second, 10*time.Millisecond)

	registry.Emit("alice", EventNewMessage, map[string]string{"content": "hi"})

	var ev Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventNewMessage, ev.Event)
	data, ok := ev.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "hi", data["content"])
}

func TestGateway_NoTrafficBeforeJoin(t *testing.T) {
	registry, srv := newTestServer(t)
	conn := dial(t, srv)

	assert.Equal(t, 0, registry.Emit("alice", EventNewMessage, nil))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var ev Event
	assert.Error(t, conn.ReadJSON(&ev))
}

func TestGateway_DisconnectLeavesRoom(t *testing.T) {
	registry, srv := newTestServer(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(Event{Event: CommandJoin, Data: "alice"}))
	require.Eventually(t, func() bool {
		return registry.RoomSize("alice") == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return registry.RoomSize("alice") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_MultiDevice(t *testing.T) {
	registry, srv := newTestServer(t)
	c1 := dial(t, srv)
	c2 := dial(t, srv)

	require.NoError(t, c1.WriteJSON(Event{Event: CommandJoin, Data: "alice"}))
	require.NoError(t, c2.WriteJSON(Event{Event: CommandJoin, Data: "alice"}))
	require.Eventually(t, func() bool {
		return registry.RoomSize("alice") == 2
	}, 2*time.Second, 10*time.Millisecond)

	registry.Emit("alice", EventMessagesRead, map[string]interface{}{"userId": "bob", "count": 1})

	for _, conn := range []*websocket.Conn{c1, c2} {
		var ev Event
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, EventMessagesRead, ev.Event)
	}
}

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestGateway_AuthRejectsUnauthenticatedUpgrade(t *testing.T) {
	// 开了鉴权之后裸连接在升级前就被拒绝，收不到任何 room 的事件
	registry, srv := newAuthTestServer(t, "super-secret")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, registry.RoomSize("alice"))
}

func TestGateway_AuthAcceptsTokenViaHeaderAndQuery(t *testing.T) {
	registry, srv := newAuthTestServer(t, "super-secret")
	signed := signToken(t, "super-secret", "alice")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+signed)
	c1, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	t.Cleanup(func() { c1.Close() })

	c2, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+signed, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c2.Close() })

	require.NoError(t, c1.WriteJSON(Event{Event: CommandJoin, Data: "alice"}))
	require.NoError(t, c2.WriteJSON(Event{Event: CommandJoin, Data: "alice"}))
	require.Eventually(t, func() bool {
		return registry.RoomSize("alice") == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_AuthRejectsJoinAsSomeoneElse(t *testing.T) {
	// token 声明的是 alice，就不能 join 进 bob 的 room
	registry, srv := newAuthTestServer(t, "super-secret")
	signed := signToken(t, "super-secret", "alice")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+signed, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(Event{Event: CommandJoin, Data: "bob"}))
	// 自己的身份可以正常 join，作为注册已处理完毕的同步点
	require.NoError(t, conn.WriteJSON(Event{Event: CommandJoin, Data: "alice"}))
	require.Eventually(t, func() bool {
		return registry.RoomSize("alice") == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, registry.RoomSize("bob"))
}

func TestGateway_AuthRejectsBadToken(t *testing.T) {
	registry, srv := newAuthTestServer(t, "super-secret")
	signed := signToken(t, "wrong-secret", "alice")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+signed, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, registry.RoomSize("alice"))
}
