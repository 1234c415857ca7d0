package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/config"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/content"
	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/perspective"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fight.v1.BattleService"

// CodecName is the content subtype clients select with grpc.CallContentSubtype.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec carries the battle messages as JSON so the wire shapes match the
// WebSocket protocol.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

// StartBattleRequest names two starter decks or gives explicit lists. Options
// default to the server's configured options when nil.
type StartBattleRequest struct {
	DeckNames [2]string         `json:"deckNames,omitempty"`
	Decks     [2]fight.DeckList `json:"decks,omitempty"`
	Options   *fight.Options    `json:"options,omitempty"`
	Seed      int64             `json:"seed,omitempty"`
}

type StartBattleResponse struct {
	BattleID string `json:"battleId"`
	Seed     int64  `json:"seed"`
}

type ApplyRequest struct {
	BattleID string      `json:"battleId"`
	Side     fight.Side  `json:"side"`
	Action   game.Action `json:"action"`
}

type RespondRequest struct {
	BattleID string         `json:"battleId"`
	Side     fight.Side     `json:"side"`
	Response rules.Response `json:"response"`
}

// SettleResponse is the caller's projection of what a command settled and the
// resulting view.
type SettleResponse struct {
	Settled []rules.Event    `json:"settled"`
	View    perspective.View `json:"view"`
}

type ViewRequest struct {
	BattleID string     `json:"battleId"`
	Side     fight.Side `json:"side"`
}

type ViewResponse struct {
	View perspective.View `json:"view"`
}

// BattleServiceServer is the server API of fight.v1.BattleService.
type BattleServiceServer interface {
	StartBattle(context.Context, *StartBattleRequest) (*StartBattleResponse, error)
	Apply(context.Context, *ApplyRequest) (*SettleResponse, error)
	Respond(context.Context, *RespondRequest) (*SettleResponse, error)
	View(context.Context, *ViewRequest) (*ViewResponse, error)
}

func unaryHandler[Req any, Resp any](method string, call func(BattleServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BattleServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BattleServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BattleServiceDesc describes fight.v1.BattleService for grpc.Server.RegisterService.
var BattleServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BattleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartBattle", Handler: unaryHandler("StartBattle", BattleServiceServer.StartBattle)},
		{MethodName: "Apply", Handler: unaryHandler("Apply", BattleServiceServer.Apply)},
		{MethodName: "Respond", Handler: unaryHandler("Respond", BattleServiceServer.Respond)},
		{MethodName: "View", Handler: unaryHandler("View", BattleServiceServer.View)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fight/v1/battle.proto",
}

// RegisterBattleService registers srv on s.
func RegisterBattleService(s grpc.ServiceRegistrar, srv BattleServiceServer) {
	s.RegisterService(&BattleServiceDesc, srv)
}

// battleServer implements BattleServiceServer over the engine.
type battleServer struct {
	engine   *game.Engine
	catalog  *content.Catalog
	defaults fight.Options
	logger   *zap.Logger
}

// NewBattleServer creates the gRPC battle service.
func NewBattleServer(engine *game.Engine, catalog *content.Catalog, defaults fight.Options, logger *zap.Logger) BattleServiceServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &battleServer{engine: engine, catalog: catalog, defaults: defaults, logger: logger}
}

// StartBattle creates a battle from deck names or explicit lists.
func (s *battleServer) StartBattle(ctx context.Context, req *StartBattleRequest) (*StartBattleResponse, error) {
	cfg := game.BattleConfig{Options: s.defaults, Decks: req.Decks, Seed: req.Seed}
	if req.Options != nil {
		cfg.Options = *req.Options
	}
	for side, name := range req.DeckNames {
		if name == "" {
			continue
		}
		deck, ok := s.catalog.Deck(name)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown deck %q", name)
		}
		cfg.Decks[side] = deck
	}

	h, err := s.engine.StartBattle(ctx, cfg)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("battle created",
		zap.String("battle_id", h.ID),
		zap.String("host", extractHostFromContext(ctx)))
	return &StartBattleResponse{BattleID: h.ID, Seed: h.Seed}, nil
}

// Apply runs an action and returns the caller's projection.
func (s *battleServer) Apply(ctx context.Context, req *ApplyRequest) (*SettleResponse, error) {
	if req.BattleID == "" {
		return nil, status.Error(codes.InvalidArgument, "battle id is required")
	}
	settled, err := s.engine.Apply(ctx, req.BattleID, req.Side, req.Action)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.settleResponse(ctx, req.BattleID, req.Side, settled)
}

// Respond answers a pending request and returns the caller's projection.
func (s *battleServer) Respond(ctx context.Context, req *RespondRequest) (*SettleResponse, error) {
	if req.BattleID == "" {
		return nil, status.Error(codes.InvalidArgument, "battle id is required")
	}
	settled, err := s.engine.Respond(ctx, req.BattleID, req.Side, req.Response)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.settleResponse(ctx, req.BattleID, req.Side, settled)
}

// View returns a side's projection.
func (s *battleServer) View(ctx context.Context, req *ViewRequest) (*ViewResponse, error) {
	view, err := s.engine.View(ctx, req.BattleID, req.Side)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ViewResponse{View: view}, nil
}

func (s *battleServer) settleResponse(ctx context.Context, id string, side fight.Side, settled []rules.Event) (*SettleResponse, error) {
	view, err := s.engine.View(ctx, id, side)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SettleResponse{Settled: perspective.ProjectAll(settled, side), View: view}, nil
}

// toStatus maps engine errors onto gRPC codes.
func toStatus(err error) error {
	if errors.Is(err, game.ErrHostNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return apperrors.ToGRPCStatus(err)
}

// NewGRPCServer builds a server with recovery, logging, tracing and health checks
// and registers svc on it.
func NewGRPCServer(cfg config.GRPCConfig, svc BattleServiceServer, logger *zap.Logger) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.KeepaliveTime,
			Timeout: cfg.KeepaliveTimeout,
		}),
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}
	grpcServer := grpc.NewServer(opts...)
	RegisterBattleService(grpcServer, svc)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	return grpcServer
}

// RecoveryInterceptor turns handler panics into Internal errors.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				err = status.Error(codes.Internal, fmt.Sprintf("internal error in %s", info.FullMethod))
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every call with its code and duration.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
			zap.String("host", extractHostFromContext(ctx)),
		}
		switch code {
		case codes.OK:
			logger.Debug("gRPC call", fields...)
		case codes.Internal, codes.Unknown:
			logger.Error("gRPC call failed", append(fields, zap.Error(err))...)
		default:
			logger.Info("gRPC call rejected", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}

func extractHostFromContext(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != net.Addr(nil) {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
