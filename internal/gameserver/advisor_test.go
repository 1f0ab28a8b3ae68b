package gameserver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/tactics/internal/gameserver"
)

// testAdvisor serves g on a loopback port and returns a connection to it.
func testAdvisor(t *testing.T, g *gameserver.Game) *grpc.ClientConn {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc := gameserver.NewGRPCService("127.0.0.1:0", gameserver.NewAdvisorService(g, logger), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	var addr net.Addr
	select {
	case addr = <-svc.Bound():
	case err := <-done:
		t.Fatalf("advisor failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("advisor did not bind")
	}

	conn, err := grpc.NewClient(addr.String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestAdvisor_CityThreats(t *testing.T) {
	g, _ := newSkirmish(t)
	_, err := g.PlayTurn(context.Background(), 1)
	require.NoError(t, err)
	client := gameserver.NewAdvisorClient(testAdvisor(t, g))

	resp, err := client.CityThreats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Antium", "Roma"}, gameserver.CityNames(resp))
	assert.Equal(t, float64(1), resp.GetFields()["player"].GetNumberValue())
	assert.NotEmpty(t, resp.GetFields()["run_id"].GetStringValue())

	city := resp.GetFields()["cities"].GetListValue().GetValues()[0].GetStructValue().GetFields()
	for _, key := range []string{"danger", "urgency", "grave_danger", "wall_value", "diplomat_threat", "building_want"} {
		assert.Contains(t, city, key)
	}
}

func TestAdvisor_CityThreatsBeforeFirstTurn(t *testing.T) {
	g, _ := newSkirmish(t)
	client := gameserver.NewAdvisorClient(testAdvisor(t, g))
	_, err := client.CityThreats(context.Background(), 2)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestAdvisor_UnitTasks(t *testing.T) {
	g, _ := newSkirmish(t)
	_, err := g.PlayTurn(context.Background(), 1)
	require.NoError(t, err)
	client := gameserver.NewAdvisorClient(testAdvisor(t, g))

	resp, err := client.UnitTasks(context.Background(), 1)
	require.NoError(t, err)
	tasks, err := g.UnitTasks(1)
	require.NoError(t, err)
	units := resp.GetFields()["units"].GetListValue().GetValues()
	require.Len(t, units, len(tasks))
	first := units[0].GetStructValue().GetFields()
	assert.Equal(t, float64(tasks[0].Unit), first["unit"].GetNumberValue())
	assert.Equal(t, tasks[0].Task.String(), first["task"].GetStringValue())

	var total float64
	for _, v := range resp.GetFields()["counts"].GetStructValue().GetFields() {
		total += v.GetNumberValue()
	}
	assert.Equal(t, float64(len(tasks)), total)
}

func TestAdvisor_UnknownPlayer(t *testing.T) {
	g, _ := newSkirmish(t)
	client := gameserver.NewAdvisorClient(testAdvisor(t, g))
	_, err := client.UnitTasks(context.Background(), 77)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestAdvisor_InvalidRequest(t *testing.T) {
	g, _ := newSkirmish(t)
	conn := testAdvisor(t, g)
	for name, req := range map[string]map[string]any{
		"missing":  {},
		"negative": {"player": -1},
		"fraction": {"player": 1.5},
		"string":   {"player": "rome"},
	} {
		t.Run(name, func(t *testing.T) {
			in, err := structpb.NewStruct(req)
			require.NoError(t, err)
			err = conn.Invoke(context.Background(), gameserver.AdvisorCityThreatsMethod, in, new(structpb.Struct))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestAdvisor_Health(t *testing.T) {
	g, _ := newSkirmish(t)
	hc := healthpb.NewHealthClient(testAdvisor(t, g))
	resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: gameserver.AdvisorServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
