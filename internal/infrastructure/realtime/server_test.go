package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sketchroom/internal/core/collab"
	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
	"sketchroom/internal/core/services"
	"sketchroom/internal/infrastructure/repositories/memory"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const testCookie = "sketchroom_session"

// dropCounter counts dropped events by reason.
type dropCounter struct {
	mu      sync.Mutex
	dropped map[string]int
}

func (d *dropCounter) ConnectionOpened()         {}
func (d *dropCounter) ConnectionClosed()         {}
func (d *dropCounter) RoomJoined(int)            {}
func (d *dropCounter) EventRelayed(string, int)  {}
func (d *dropCounter) SlowConsumerDisconnected() {}

func (d *dropCounter) EventDropped(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropped[reason]++
}

func (d *dropCounter) count(reason string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped[reason]
}

type testEnv struct {
	server      *httptest.Server
	hub         *collab.Hub
	drops       *dropCounter
	auth        ports.AuthService
	whiteboards ports.WhiteboardService
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t).Sugar()

	users := memory.NewMemoryUserRepository()
	auth := services.NewAuthService(users, memory.NewMemorySessionRepository(), services.AuthConfig{
		Secret:     "test-secret",
		SessionTTL: time.Hour,
		HashCost:   bcrypt.MinCost,
	}, logger)
	whiteboards := services.NewWhiteboardService(
		memory.NewMemoryWhiteboardRepository(),
		memory.NewMemorySnapshotRepository(),
		users,
		1<<20,
		logger,
	)
	drops := &dropCounter{dropped: make(map[string]int)}
	hub := collab.NewHub(whiteboards, collab.DefaultSendQueueSize, drops, logger)

	opts := DefaultOptions()
	opts.CookieName = testCookie
	if mutate != nil {
		mutate(&opts)
	}
	srv := NewServer(hub, auth, opts, logger)

	router := gin.New()
	router.GET("/ws", srv.Handle)
	ts := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.DisconnectAll()
		ts.Close()
	})

	return &testEnv{server: ts, hub: hub, drops: drops, auth: auth, whiteboards: whiteboards}
}

// login registers username and returns its id and session token.
func (e *testEnv) login(t *testing.T, username string) (domain.UserID, string) {
	t.Helper()
	ctx := context.Background()
	_, err := e.auth.Register(ctx, username, "secret123")
	require.NoError(t, err)
	user, token, err := e.auth.Login(ctx, username, "secret123")
	require.NoError(t, err)
	return user.ID, token
}

func (e *testEnv) dial(t *testing.T, token string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	if header == nil {
		header = http.Header{}
	}
	if token != "" {
		header.Set("Cookie", testCookie+"="+token)
	}
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, header)
	if ws != nil {
		t.Cleanup(func() { ws.Close() })
	}
	return ws, resp, err
}

func send(t *testing.T, ws *websocket.Conn, event string, data interface{}) {
	t.Helper()
	frame, err := collab.Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, frame))
}

func read(t *testing.T, ws *websocket.Conn) *collab.Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err)
	msg, err := collab.Decode(frame)
	require.NoError(t, err)
	return msg
}

func join(t *testing.T, ws *websocket.Conn, room domain.WhiteboardID, user domain.UserID) *collab.Message {
	t.Helper()
	send(t, ws, collab.EventJoinRoom, collab.JoinRoomRequest{RoomID: room, UserID: user})
	return read(t, ws)
}

func TestServer_RejectsUnauthenticatedHandshake(t *testing.T) {
	env := newTestEnv(t, nil)

	_, resp, err := env.dial(t, "", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = env.dial(t, "not-a-token", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, env.hub.Stats().Connections)
}

func TestServer_RejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.AllowedOrigins = []string{"http://sketch.example"} })
	_, token := env.login(t, "alice")

	_, resp, err := env.dial(t, token, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ws, _, err := env.dial(t, token, http.Header{"Origin": {"http://sketch.example"}})
	require.NoError(t, err)
	require.NotNil(t, ws)
}

func TestServer_RelaysDrawToPeersWithoutEcho(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	aliceID, aliceToken := env.login(t, "alice")
	bobID, bobToken := env.login(t, "bob")
	wb, err := env.whiteboards.Create(ctx, aliceID, "Sprint Plan", "")
	require.NoError(t, err)
	_, err = env.whiteboards.Share(ctx, aliceID, wb.ID, "bob")
	require.NoError(t, err)

	alice, _, err := env.dial(t, aliceToken, nil)
	require.NoError(t, err)
	bob, _, err := env.dial(t, bobToken, nil)
	require.NoError(t, err)

	assert.Equal(t, collab.EventJoined, join(t, alice, wb.ID, aliceID).Event)

	joined := join(t, bob, wb.ID, bobID)
	require.Equal(t, collab.EventJoined, joined.Event)
	var payload collab.JoinedPayload
	require.NoError(t, collab.DecodeData(joined, &payload))
	assert.ElementsMatch(t, []domain.UserID{aliceID, bobID}, payload.Members)

	presence := read(t, alice)
	assert.Equal(t, collab.EventUserJoined, presence.Event)

	line := fmt.Sprintf(`{"roomId":%q,"userId":%q,"x0":0,"y0":0,"x1":10,"y1":10,"color":"#000","lineWidth":5}`, wb.ID, aliceID)
	send(t, alice, collab.EventDraw, json.RawMessage(line))
	text := fmt.Sprintf(`{"roomId":%q,"userId":%q,"text":"hi","x":0,"y":4,"textSize":16,"color":"#000"}`, wb.ID, aliceID)
	send(t, alice, collab.EventDraw, json.RawMessage(text))

	got := read(t, bob)
	require.Equal(t, collab.EventDraw, got.Event)
	assert.JSONEq(t,
		fmt.Sprintf(`{"roomId":%q,"userId":%q,"tool":"pencil","x0":0,"y0":0,"x1":10,"y1":10,"lineWidth":5,"color":"#000"}`, wb.ID, aliceID),
		string(got.Data))
	got = read(t, bob)
	require.Equal(t, collab.EventDraw, got.Event)
	assert.JSONEq(t,
		fmt.Sprintf(`{"roomId":%q,"userId":%q,"tool":"text","text":"hi","x":0,"y":4,"textSize":16,"color":"#000"}`, wb.ID, aliceID),
		string(got.Data))

	// If alice's own stroke were echoed it would be queued ahead of bob's.
	send(t, bob, collab.EventCursorMove, domain.CursorEvent{RoomID: wb.ID, UserID: bobID, X: 10, Y: 20})
	next := read(t, alice)
	assert.Equal(t, collab.EventCursorMove, next.Event)
	var cursor domain.CursorEvent
	require.NoError(t, json.Unmarshal(next.Data, &cursor))
	assert.Equal(t, bobID, cursor.UserID)
}

func TestServer_JoinErrorsAreReported(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	aliceID, _ := env.login(t, "alice")
	malloryID, malloryToken := env.login(t, "mallory")
	wb, err := env.whiteboards.Create(ctx, aliceID, "Private", "")
	require.NoError(t, err)

	mallory, _, err := env.dial(t, malloryToken, nil)
	require.NoError(t, err)

	cases := []struct {
		name   string
		userID domain.UserID
		code   string
	}{
		{"forbidden", malloryID, "FORBIDDEN"},
		{"identity mismatch", aliceID, "IDENTITY_MISMATCH"},
		{"missing user id", "", "IDENTITY_MISMATCH"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := join(t, mallory, wb.ID, tc.userID)
			require.Equal(t, collab.EventError, msg.Event)
			var payload collab.ErrorPayload
			require.NoError(t, collab.DecodeData(msg, &payload))
			assert.Equal(t, tc.code, payload.Code)
		})
	}
	assert.Empty(t, env.hub.RoomMembers(wb.ID))

	msg := join(t, mallory, "no-such-board", malloryID)
	require.Equal(t, collab.EventError, msg.Event)
	var payload collab.ErrorPayload
	require.NoError(t, collab.DecodeData(msg, &payload))
	assert.Equal(t, "NOT_FOUND", payload.Code)
}

func TestServer_DisconnectNotifiesRoom(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	aliceID, aliceToken := env.login(t, "alice")
	bobID, bobToken := env.login(t, "bob")
	wb, err := env.whiteboards.Create(ctx, aliceID, "Board", "")
	require.NoError(t, err)
	_, err = env.whiteboards.Share(ctx, aliceID, wb.ID, "bob")
	require.NoError(t, err)

	alice, _, err := env.dial(t, aliceToken, nil)
	require.NoError(t, err)
	bob, _, err := env.dial(t, bobToken, nil)
	require.NoError(t, err)

	join(t, alice, wb.ID, aliceID)
	join(t, bob, wb.ID, bobID)
	require.Equal(t, collab.EventUserJoined, read(t, alice).Event)

	require.NoError(t, bob.Close())

	left := read(t, alice)
	require.Equal(t, collab.EventUserLeft, left.Event)
	var payload collab.PresencePayload
	require.NoError(t, collab.DecodeData(left, &payload))
	assert.Equal(t, bobID, payload.UserID)

	assert.Eventually(t, func() bool {
		return env.hub.Stats().Connections == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []domain.UserID{aliceID}, env.hub.RoomMembers(wb.ID))
}

func TestServer_RateLimitDropsExcessFrames(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.MessagesPerSecond = 0.001
		o.Burst = 2
	})
	ctx := context.Background()

	aliceID, aliceToken := env.login(t, "alice")
	bobID, bobToken := env.login(t, "bob")
	wb, err := env.whiteboards.Create(ctx, aliceID, "Board", "")
	require.NoError(t, err)
	_, err = env.whiteboards.Share(ctx, aliceID, wb.ID, "bob")
	require.NoError(t, err)

	alice, _, err := env.dial(t, aliceToken, nil)
	require.NoError(t, err)
	bob, _, err := env.dial(t, bobToken, nil)
	require.NoError(t, err)

	join(t, alice, wb.ID, aliceID)
	join(t, bob, wb.ID, bobID)
	require.Equal(t, collab.EventUserJoined, read(t, alice).Event)

	// alice spent one token on join; one draw passes, the rest are dropped.
	for i := 0; i < 3; i++ {
		send(t, alice, collab.EventDraw, domain.DrawEvent{RoomID: wb.ID, UserID: aliceID, Tool: domain.ToolPencil, X1: float64(i), LineWidth: 1, Color: "red"})
	}
	first := read(t, bob)
	require.Equal(t, collab.EventDraw, first.Event)

	assert.Eventually(t, func() bool {
		return env.drops.count(collab.DropRateLimited) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// bob's budget is separate, so bob can still reach alice.
	send(t, bob, collab.EventCursorMove, domain.CursorEvent{RoomID: wb.ID, UserID: bobID, X: 1, Y: 1})
	assert.Equal(t, collab.EventCursorMove, read(t, alice).Event)
}

func TestServer_DropsSpoofedEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	aliceID, aliceToken := env.login(t, "alice")
	bobID, bobToken := env.login(t, "bob")
	wb, err := env.whiteboards.Create(ctx, aliceID, "Board", "")
	require.NoError(t, err)
	_, err = env.whiteboards.Share(ctx, aliceID, wb.ID, "bob")
	require.NoError(t, err)

	alice, _, err := env.dial(t, aliceToken, nil)
	require.NoError(t, err)
	bob, _, err := env.dial(t, bobToken, nil)
	require.NoError(t, err)

	join(t, alice, wb.ID, aliceID)
	join(t, bob, wb.ID, bobID)
	require.Equal(t, collab.EventUserJoined, read(t, alice).Event)

	send(t, bob, collab.EventDraw, domain.DrawEvent{RoomID: wb.ID, UserID: aliceID, Tool: domain.ToolPencil, LineWidth: 1, Color: "red"})
	send(t, bob, collab.EventCursorMove, domain.CursorEvent{RoomID: "other-room", UserID: bobID})
	send(t, bob, collab.EventDraw, map[string]string{"roomId": string(wb.ID)})
	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte("not json")))

	// the spoofed frames never reach alice; the valid cursor after them does
	send(t, bob, collab.EventCursorMove, domain.CursorEvent{RoomID: wb.ID, UserID: bobID, X: 5, Y: 5})
	msg := read(t, alice)
	require.Equal(t, collab.EventCursorMove, msg.Event)
	var cursor domain.CursorEvent
	require.NoError(t, json.Unmarshal(msg.Data, &cursor))
	assert.Equal(t, float64(5), cursor.X)

	assert.Equal(t, 1, env.drops.count(collab.DropIdentityMismatch))
	assert.Equal(t, 1, env.drops.count(collab.DropRoomMismatch))
	assert.Equal(t, 2, env.drops.count(collab.DropInvalid))
}
