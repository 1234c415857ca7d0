package server

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/config"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/content"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

func newTestEngine(t *testing.T) (*game.Engine, *content.Catalog) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg, catalog, err := content.Ruleset(content.StarterRuleset, logger)
	require.NoError(t, err)
	return game.NewEngine(game.NewResolver(reg, logger, 0), game.NewMemoryStore(), logger), catalog
}

// dialBattleService serves the battle service on an in-memory listener.
func dialBattleService(t *testing.T, engine *game.Engine, catalog *content.Catalog) *grpc.ClientConn {
	t.Helper()
	logger := zaptest.NewLogger(t)
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(config.Default().Server.GRPC, NewBattleServer(engine, catalog, fight.DefaultOptions(), logger), logger)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke[Resp any](t *testing.T, conn *grpc.ClientConn, method string, req any) (*Resp, error) {
	t.Helper()
	out := new(Resp)
	err := conn.Invoke(context.Background(), "/"+ServiceName+"/"+method, req, out)
	return out, err
}

func TestBattleServiceFlow(t *testing.T) {
	engine, catalog := newTestEngine(t)
	conn := dialBattleService(t, engine, catalog)

	started, err := invoke[StartBattleResponse](t, conn, "StartBattle", &StartBattleRequest{
		DeckNames: [2]string{"beasts", "machines"},
		Seed:      5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, started.BattleID)
	assert.Equal(t, int64(5), started.Seed)

	view, err := invoke[ViewResponse](t, conn, "View", &ViewRequest{BattleID: started.BattleID, Side: fight.SideA})
	require.NoError(t, err)
	assert.Len(t, view.View.Hand, 4)
	assert.Equal(t, fight.PhaseDraw, view.View.Turn.Phase)

	applied, err := invoke[SettleResponse](t, conn, "Apply", &ApplyRequest{
		BattleID: started.BattleID,
		Side:     fight.SideA,
		Action:   game.Action{Type: game.ActionDraw, Deck: fight.DeckSide},
	})
	require.NoError(t, err)
	require.Len(t, applied.Settled, 2)
	assert.Equal(t, rules.KindDraw, applied.Settled[0].Kind)
	assert.Len(t, applied.View.Hand, 5)
}

func TestBattleServiceErrors(t *testing.T) {
	engine, catalog := newTestEngine(t)
	conn := dialBattleService(t, engine, catalog)

	_, err := invoke[StartBattleResponse](t, conn, "StartBattle", &StartBattleRequest{DeckNames: [2]string{"beasts", "dragons"}})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke[SettleResponse](t, conn, "Apply", &ApplyRequest{BattleID: "missing", Action: game.Action{Type: game.ActionBellRing}})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = invoke[SettleResponse](t, conn, "Respond", &RespondRequest{Side: fight.SideA})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	started, err := invoke[StartBattleResponse](t, conn, "StartBattle", &StartBattleRequest{DeckNames: [2]string{"beasts", "bones"}})
	require.NoError(t, err)
	_, err = invoke[SettleResponse](t, conn, "Apply", &ApplyRequest{
		BattleID: started.BattleID,
		Side:     fight.SideB,
		Action:   game.Action{Type: game.ActionBellRing},
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(zaptest.NewLogger(t))
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/test/Panic"},
		func(context.Context, any) (any, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))
}
