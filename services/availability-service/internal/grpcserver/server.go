package grpcserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/md-rashed-zaman/bookable/libs/grpcx"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName               = "bookable.availability.v1.AvailabilityService"
	ComputeAvailabilityMethod = "/" + ServiceName + "/ComputeAvailability"
)

type Computer interface {
	Compute(ctx context.Context, req availability.Request) (availability.Result, error)
}

// AvailabilityServer is the server side of ServiceDesc.
type AvailabilityServer interface {
	ComputeAvailability(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ComputeAvailability", Handler: computeAvailabilityHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookable/availability/v1/availability.proto",
}

func computeAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).ComputeAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ComputeAvailabilityMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).ComputeAvailability(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type server struct {
	computer Computer
	logger   *slog.Logger
}

// NewServer builds a gRPC server exposing the availability service and the
// standard health service.
func NewServer(logger *slog.Logger, computer Computer) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerLoggingInterceptor(logger),
		),
	)
	srv.RegisterService(&ServiceDesc, &server{computer: computer, logger: logger})

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, hs
}

func (s *server) ComputeAvailability(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := StructToRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.computer.Compute(ctx, req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out, err := ResultToStruct(res)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode result")
	}
	return out, nil
}

func (s *server) toStatus(ctx context.Context, err error) error {
	var gwErr *availability.GatewayError
	switch {
	case errors.Is(err, availability.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, availability.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, availability.ErrUnsupportedBusinessType):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "availability timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.As(err, &gwErr):
		s.logger.ErrorContext(ctx, "availability data unavailable", "request_id", grpcx.RequestIDFromContext(ctx), "op", gwErr.Op, "err", gwErr.Err)
		return status.Error(codes.Unavailable, "availability data unavailable")
	default:
		s.logger.ErrorContext(ctx, "availability failed", "request_id", grpcx.RequestIDFromContext(ctx), "err", err)
		return status.Error(codes.Internal, "failed to compute availability")
	}
}
