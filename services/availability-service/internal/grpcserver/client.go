package grpcserver

import (
	"context"

	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls ComputeAvailability on a remote server.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Compute(ctx context.Context, req availability.Request, opts ...grpc.CallOption) (availability.Result, error) {
	in, err := RequestToStruct(req)
	if err != nil {
		return availability.Result{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ComputeAvailabilityMethod, in, out, opts...); err != nil {
		return availability.Result{}, err
	}
	res, err := StructToResult(out)
	if err != nil {
		return availability.Result{}, status.Error(codes.Internal, err.Error())
	}
	return res, nil
}
