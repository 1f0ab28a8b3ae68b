package gameserver

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/tactics/internal/game/ai"
	"github.com/cory-johannsen/tactics/internal/game/world"
)

// Advisor method names.
const (
	AdvisorServiceName       = "tactics.v1.Advisor"
	AdvisorCityThreatsMethod = "/tactics.v1.Advisor/CityThreats"
	AdvisorUnitTasksMethod   = "/tactics.v1.Advisor/UnitTasks"
)

// AdvisorServer answers production and diplomacy advisors. Requests and
// responses are protobuf Structs; every request carries {"player": id}.
type AdvisorServer interface {
	CityThreats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UnitTasks(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// AdvisorServiceDesc describes tactics.v1.Advisor for grpc.Server.
var AdvisorServiceDesc = grpc.ServiceDesc{
	ServiceName: AdvisorServiceName,
	HandlerType: (*AdvisorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CityThreats", Handler: advisorHandler(AdvisorCityThreatsMethod, AdvisorServer.CityThreats)},
		{MethodName: "UnitTasks", Handler: advisorHandler(AdvisorUnitTasksMethod, AdvisorServer.UnitTasks)},
	},
	Metadata: "tactics/v1/advisor.proto",
}

type advisorMethod func(AdvisorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func advisorHandler(fullMethod string, call advisorMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AdvisorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AdvisorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterAdvisorServer registers srv on s.
func RegisterAdvisorServer(s grpc.ServiceRegistrar, srv AdvisorServer) {
	s.RegisterService(&AdvisorServiceDesc, srv)
}

// AdvisorService serves a Game's latest reports.
type AdvisorService struct {
	game   *Game
	logger *zap.Logger
}

// NewAdvisorService creates the advisor over game.
//
// Precondition: game and logger must be non-nil.
func NewAdvisorService(game *Game, logger *zap.Logger) *AdvisorService {
	if game == nil || logger == nil {
		panic("gameserver.NewAdvisorService: game and logger must not be nil")
	}
	return &AdvisorService{game: game, logger: logger}
}

func playerOf(req *structpb.Struct) (world.PlayerID, error) {
	v, ok := req.GetFields()["player"]
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "player is required")
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue <= 0 || n.NumberValue != float64(int(n.NumberValue)) {
		return 0, status.Error(codes.InvalidArgument, "player must be a positive integer")
	}
	return world.PlayerID(n.NumberValue), nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, world.ErrUnknownPlayer), errors.Is(err, ErrNoReport):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// CityThreats returns the threat snapshot of every city of the requested
// player from its latest turn.
func (a *AdvisorService) CityThreats(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	player, err := playerOf(req)
	if err != nil {
		return nil, err
	}
	report, err := a.game.Report(player)
	if err != nil {
		return nil, toStatus(err)
	}
	cities := make([]any, 0, len(report.Cities))
	for _, c := range report.Cities {
		cities = append(cities, cityThreat(c))
	}
	out, err := structpb.NewStruct(map[string]any{
		"player": int(report.Player),
		"turn":   report.Turn,
		"run_id": report.RunID.String(),
		"cities": cities,
	})
	if err != nil {
		a.logger.Error("encoding city threats", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func cityThreat(c ai.CityReport) map[string]any {
	reduced := make(map[string]any, len(c.DangerReduced))
	for id, v := range c.DangerReduced {
		reduced[id] = v
	}
	want := make(map[string]any, len(c.BuildingWant))
	for id, v := range c.BuildingWant {
		want[id] = float64(v)
	}
	return map[string]any{
		"city":            int(c.City),
		"name":            c.Name,
		"danger":          c.Danger,
		"urgency":         c.Urgency,
		"grave_danger":    c.GraveDanger,
		"wall_value":      c.WallValue,
		"diplomat_threat": c.DiplomatThreat,
		"danger_reduced":  reduced,
		"building_want":   want,
	}
}

// UnitTasks returns every unit of the requested player with its task.
func (a *AdvisorService) UnitTasks(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	player, err := playerOf(req)
	if err != nil {
		return nil, err
	}
	tasks, err := a.game.UnitTasks(player)
	if err != nil {
		return nil, toStatus(err)
	}
	units := make([]any, 0, len(tasks))
	counts := make(map[string]any)
	for _, t := range tasks {
		units = append(units, map[string]any{
			"unit":      int(t.Unit),
			"type":      t.Type,
			"x":         t.Tile.X,
			"y":         t.Tile.Y,
			"task":      t.Task.String(),
			"charge":    t.Charge,
			"bodyguard": t.Bodyguard,
			"ferryboat": t.Ferryboat,
		})
		n, _ := counts[t.Task.String()].(int)
		counts[t.Task.String()] = n + 1
	}
	out, err := structpb.NewStruct(map[string]any{
		"player": int(player),
		"units":  units,
		"counts": counts,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// AdvisorClient calls tactics.v1.Advisor.
type AdvisorClient struct {
	cc grpc.ClientConnInterface
}

// NewAdvisorClient wraps cc.
func NewAdvisorClient(cc grpc.ClientConnInterface) *AdvisorClient {
	return &AdvisorClient{cc: cc}
}

func (c *AdvisorClient) invoke(ctx context.Context, method string, player world.PlayerID, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"player": int(player)})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CityThreats fetches player's city threats.
func (c *AdvisorClient) CityThreats(ctx context.Context, player world.PlayerID, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AdvisorCityThreatsMethod, player, opts...)
}

// UnitTasks fetches player's unit tasks.
func (c *AdvisorClient) UnitTasks(ctx context.Context, player world.PlayerID, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AdvisorUnitTasksMethod, player, opts...)
}

// CityNames returns the city names of a CityThreats response, sorted.
func CityNames(resp *structpb.Struct) []string {
	var names []string
	for _, v := range resp.GetFields()["cities"].GetListValue().GetValues() {
		names = append(names, v.GetStructValue().GetFields()["name"].GetStringValue())
	}
	sort.Strings(names)
	return names
}
