package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cardclash/cardclash-server/internal/catalog"
	"github.com/cardclash/cardclash-server/internal/engine"
	"github.com/cardclash/cardclash-server/internal/hub"
	"github.com/cardclash/cardclash-server/internal/lobby"
	"github.com/cardclash/cardclash-server/internal/types"
)

type frame struct {
	Type types.Kind      `json:"type"`
	Data json.RawMessage `json:"data"`
}

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
}

func setup(t *testing.T) (*hub.Hub, string) {
	t.Helper()
	settings := lobby.Settings{HandSize: 1, ResponseTicks: 5, CountdownTicks: 0, MaxRounds: 50, Tick: time.Hour}
	h := hub.NewHub(context.Background(), settings, zap.NewNop())
	srv := httptest.NewServer(Handler(h, zap.NewNop(), Options{}))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *testConn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return &testConn{t: t, conn: conn}
}

func (c *testConn) send(kind types.Kind, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	msg, err := json.Marshal(types.ClientMessage{Type: kind, Data: raw})
	require.NoError(c.t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(c.t, c.conn.Write(ctx, websocket.MessageText, msg))
}

// expect reads frames until one of the given kind arrives and decodes its
// data into v.
func (c *testConn) expect(kind types.Kind, v any) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, data, err := c.conn.Read(ctx)
		require.NoError(c.t, err, "waiting for %s", kind)
		var f frame
		require.NoError(c.t, json.Unmarshal(data, &f))
		if f.Type != kind {
			continue
		}
		if v != nil {
			require.NoError(c.t, json.Unmarshal(f.Data, v))
		}
		return
	}
}

func TestHandler_ErrorsGoToSender(t *testing.T) {
	_, url := setup(t)
	c := dial(t, url)

	c.send(types.KindGaveUp, types.GaveUp{RoomCode: "ABCDEF"})
	var e types.Error
	c.expect(types.KindError, &e)
	assert.Equal(t, errNotInRoom.Error(), e.Message)

	c.send("dance", map[string]any{})
	c.expect(types.KindError, &e)
	assert.Contains(t, e.Message, "dance")

	c.send(types.KindJoinRoom, types.JoinRoom{RoomCode: "NOPE00"})
	c.expect(types.KindError, &e)
	assert.Equal(t, hub.ErrSessionNotFound.Error(), e.Message)
}

func TestHandler_UnknownRoomQueryIs404(t *testing.T) {
	_, url := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, url+"?code=NOPE00", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestHandler_PlaysARound(t *testing.T) {
	h, url := setup(t)
	ctx := context.Background()
	lb, err := h.Create(ctx, 2)
	require.NoError(t, err)

	a, b := dial(t, url), dial(t, url+"?code="+strings.ToLower(lb.Code()))
	a.send(types.KindJoinRoom, types.JoinRoom{RoomCode: lb.Code()})

	var ja, jb types.Joined
	a.expect(types.KindJoined, &ja)
	b.expect(types.KindJoined, &jb)
	assert.Equal(t, lb.Code(), ja.RoomCode)
	assert.NotEqual(t, ja.PlayerID, jb.PlayerID)
	a.expect(types.KindGameStart, nil)

	cards := catalog.NewMemory([]engine.Card{{ID: "x", Runs: 10}, {ID: "y", Runs: 20}})
	require.NoError(t, lb.StartGame(ctx, cards))

	var da types.GameData
	a.expect(types.KindGameData, &da)
	require.Len(t, da.Cards, 1)
	require.Len(t, da.Players, 2)

	claimant, other := a, b
	claimantID, otherID := ja.PlayerID, jb.PlayerID
	dc := da
	if da.CurrentTurn != ja.PlayerID {
		claimant, other = b, a
		claimantID, otherID = jb.PlayerID, ja.PlayerID
		b.expect(types.KindGameData, &dc)
	}

	other.send(types.KindSubmitStat, types.SubmitStat{RoomCode: lb.Code(), CardIndex: 0, Stat: "runs", Value: 1})
	var e types.Error
	other.expect(types.KindError, &e)
	assert.Equal(t, engine.ErrNotYourTurn.Error(), e.Message)

	claimant.send(types.KindSubmitStat, types.SubmitStat{RoomCode: lb.Code(), CardIndex: 0, Stat: "runs", Value: dc.Cards[0].Runs})
	var ci types.ChallengeInitiated
	other.expect(types.KindChallengeInitiated, &ci)
	assert.Equal(t, claimantID, ci.ActivePlayer)
	assert.Equal(t, "runs", ci.Stat)
	assert.Equal(t, 5, ci.TimeRemaining)

	other.send(types.KindGaveUp, types.GaveUp{RoomCode: lb.Code()})
	var rr types.RoundResult
	claimant.expect(types.KindRoundResult, &rr)
	assert.Equal(t, claimantID, rr.Winner)
	assert.Equal(t, "gaveUp", rr.Submissions[otherID].Stat)
	assert.Equal(t, []string{otherID}, rr.Eliminated)

	var end struct {
		Winner *string            `json:"winner"`
		Scores map[string]float64 `json:"scores"`
	}
	other.expect(types.KindGameEnd, &end)
	require.NotNil(t, end.Winner)
	assert.Equal(t, claimantID, *end.Winner)
	assert.Equal(t, 1.5, end.Scores[claimantID])
	assert.Equal(t, -1.0, end.Scores[otherID])
}

func TestHandler_OriginPatterns(t *testing.T) {
	h := hub.NewHub(context.Background(), lobby.DefaultSettings(), zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	open := httptest.NewServer(Handler(h, zap.NewNop(), Options{}))
	t.Cleanup(open.Close)
	strict := httptest.NewServer(Handler(h, zap.NewNop(), Options{OriginPatterns: []string{"localhost:5173"}}))
	t.Cleanup(strict.Close)

	dialFrom := func(srv *httptest.Server, origin string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), &websocket.DialOptions{
			HTTPHeader: http.Header{"Origin": []string{origin}},
		})
		if err == nil {
			conn.Close(websocket.StatusNormalClosure, "")
		}
		return err
	}

	assert.NoError(t, dialFrom(open, "http://elsewhere.example"), "no patterns allows any origin")
	assert.NoError(t, dialFrom(strict, "http://localhost:5173"))
	assert.Error(t, dialFrom(strict, "http://elsewhere.example"))
}
