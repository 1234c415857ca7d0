package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/config"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

type wsFixture struct {
	engine   *game.Engine
	hub      *Hub
	url      string
	battleID string
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	engine, catalog := newTestEngine(t)
	hub := NewHub(engine, config.Default().Server.WebSocket, zaptest.NewLogger(t))
	srv := httptest.NewServer(NewHTTPServer(config.Default().Server.WebSocket, hub).Handler)
	t.Cleanup(srv.Close)

	beasts, _ := catalog.Deck("beasts")
	bones, _ := catalog.Deck("bones")
	h, err := engine.StartBattle(context.Background(), game.BattleConfig{
		Options: fight.DefaultOptions(),
		Decks:   [2]fight.DeckList{beasts, bones},
		Seed:    11,
	})
	require.NoError(t, err)
	return &wsFixture{
		engine:   engine,
		hub:      hub,
		url:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		battleID: h.ID,
	}
}

func (f *wsFixture) dial(t *testing.T, side string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(f.url+"?battle="+f.battleID+"&side="+side, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubSyncThenPackets(t *testing.T) {
	f := newWSFixture(t)
	a := f.dial(t, "0")
	b := f.dial(t, "1")

	syncA := readMessage(t, a)
	require.Equal(t, MessageSync, syncA.Type)
	require.NotNil(t, syncA.View)
	assert.Len(t, syncA.View.Hand, 4)
	assert.Equal(t, MessageSync, readMessage(t, b).Type)

	require.NoError(t, a.WriteJSON(ClientMessage{
		Type:   MessageAction,
		Action: &game.Action{Type: game.ActionDraw, Deck: fight.DeckSide},
	}))

	packetA := readMessage(t, a)
	require.Equal(t, MessagePacket, packetA.Type)
	require.NotNil(t, packetA.Packet)
	assert.Equal(t, fight.SideA, packetA.Packet.Side)
	require.NotEmpty(t, packetA.Packet.Settled)
	assert.Equal(t, rules.KindDraw, packetA.Packet.Settled[0].Kind)
	assert.NotNil(t, packetA.Packet.Settled[0].Draw.Card)

	packetB := readMessage(t, b)
	require.Equal(t, MessagePacket, packetB.Type)
	assert.Equal(t, fight.SideB, packetB.Packet.Side)
	assert.Nil(t, packetB.Packet.Settled[0].Draw.Card)
	assert.Equal(t, 5, packetB.Packet.View.OpponentHand)
}

func TestHubReportsRejections(t *testing.T) {
	f := newWSFixture(t)
	b := f.dial(t, "1")
	readMessage(t, b)

	require.NoError(t, b.WriteJSON(ClientMessage{Type: MessageAction, Action: &game.Action{Type: game.ActionBellRing}}))
	msg := readMessage(t, b)
	require.Equal(t, MessageError, msg.Type)
	assert.Equal(t, "INVALID_ACTION", msg.Error.Kind)

	require.NoError(t, b.WriteJSON(ClientMessage{Type: "chat"}))
	msg = readMessage(t, b)
	require.Equal(t, MessageError, msg.Type)
	assert.Contains(t, msg.Error.Message, "chat")
}

func TestHubRejectsBadUpgrades(t *testing.T) {
	f := newWSFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(f.url+"?battle="+f.battleID+"&side=2", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(f.url+"?battle=missing&side=0", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHubDropsClosedConnections(t *testing.T) {
	f := newWSFixture(t)
	a := f.dial(t, "0")
	readMessage(t, a)
	require.Equal(t, 1, f.hub.Connections(f.battleID))

	require.NoError(t, a.Close())
	assert.Eventually(t, func() bool { return f.hub.Connections(f.battleID) == 0 }, 5*time.Second, 10*time.Millisecond)
}
