package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// GenerateMethod is the unary RPC served by the generation sidecar. Request
// and response are google.protobuf.Struct values: {"prompt", "json"} in and
// {"text"} out.
const GenerateMethod = "/psicoflow.llm.v1.Generator/Generate"

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
	errSidecarNotServing        = errors.New("generation sidecar not serving")
)

// GRPCConfig holds configuration for the sidecar client.
type GRPCConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultGRPCConfig returns default configuration.
func DefaultGRPCConfig(addr string) GRPCConfig {
	if addr == "" {
		addr = "localhost:50051"
	}
	return GRPCConfig{
		Address:          addr,
		ConnectTimeout:   5 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// GRPC forwards generation requests to a sidecar service.
type GRPC struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	addr   string
	logger *slog.Logger
}

// NewGRPC connects to the sidecar and fails fast when it is not ready.
func NewGRPC(cfg GRPCConfig, logger *slog.Logger) (*GRPC, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}

	conn, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", cfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("generation sidecar at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("connected to generation sidecar", "address", cfg.Address)
	return &GRPC{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
		addr:   cfg.Address,
		logger: logger,
	}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Name implements Generator.
func (c *GRPC) Name() string { return "grpc" }

// Generate implements Generator.
func (c *GRPC) Generate(ctx context.Context, req Request) (string, error) {
	in, err := structpb.NewStruct(map[string]any{
		"prompt": req.Prompt,
		"json":   req.JSON,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, GenerateMethod, in, out); err != nil {
		return "", fmt.Errorf("generate rpc failed: %w", err)
	}
	text := out.GetFields()["text"].GetStringValue()
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// Health checks the sidecar's standard health service.
func (c *GRPC) Health(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", errSidecarNotServing, resp.GetStatus())
	}
	return nil
}

// Close closes the connection.
func (c *GRPC) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Warn("failed to close gRPC connection", "error", err)
		return err
	}
	return nil
}
