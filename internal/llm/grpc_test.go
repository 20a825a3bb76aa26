package llm

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

// echoSidecar answers Generate with "eco: <prompt>", or an empty text for an
// empty prompt.
var echoSidecar = grpc.ServiceDesc{
	ServiceName: "psicoflow.llm.v1.Generator",
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Generate",
		Handler: func(_ interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			prompt := in.GetFields()["prompt"].GetStringValue()
			if prompt == "" {
				return structpb.NewStruct(map[string]any{"text": ""})
			}
			return structpb.NewStruct(map[string]any{"text": "eco: " + prompt})
		},
	}},
}

func startSidecar(t *testing.T) (string, *health.Server) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	srv.RegisterService(&echoSidecar, struct{}{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis.Addr().String(), hs
}

func newTestGRPC(t *testing.T, addr string) *GRPC {
	t.Helper()
	cfg := DefaultGRPCConfig(addr)
	cfg.ConnectTimeout = 2 * time.Second
	g, err := NewGRPC(cfg, nil)
	if err != nil {
		t.Fatalf("NewGRPC() error = %v", err)
	}
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestGRPCGenerate(t *testing.T) {
	addr, _ := startSidecar(t)
	g := newTestGRPC(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	text, err := g.Generate(ctx, Request{Prompt: "olá", JSON: true})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "eco: olá" {
		t.Errorf("Generate() = %q, want %q", text, "eco: olá")
	}

	if _, err := g.Generate(ctx, Request{}); !errors.Is(err, ErrEmpty) {
		t.Errorf("Generate(empty) error = %v, want ErrEmpty", err)
	}
}

func TestGRPCHealth(t *testing.T) {
	addr, hs := startSidecar(t)
	g := newTestGRPC(t, addr)
	gw := NewGateway(g, nil, WithTimeout(time.Second))

	if err := gw.Health(context.Background()); err != nil {
		t.Fatalf("Health() while serving = %v", err)
	}

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	err := gw.Health(context.Background())
	if !errors.Is(err, errSidecarNotServing) {
		t.Fatalf("Health() while not serving = %v, want errSidecarNotServing", err)
	}
}

func TestGRPCConnectFailsFast(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	cfg := DefaultGRPCConfig(addr)
	cfg.ConnectTimeout = 200 * time.Millisecond
	if _, err := NewGRPC(cfg, nil); err == nil {
		t.Fatal("NewGRPC() to a closed port should fail")
	}
}

func TestGatewayHealthWithoutProbe(t *testing.T) {
	if err := NewGateway(nil, nil).Health(context.Background()); err != nil {
		t.Errorf("Health() without generator = %v", err)
	}
	if err := NewGateway(&fakeGenerator{}, nil).Health(context.Background()); err != nil {
		t.Errorf("Health() for generator without probe = %v", err)
	}
}
