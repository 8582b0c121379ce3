package sidechannel

import (
	"context"
	"errors"
	"log"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/registry"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Sink applies a raw configuration message and returns the id of the stored
// batch version.
type Sink interface {
	Submit(ctx context.Context, data []byte, source string) (string, error)
}

// #region server-struct
// Server receives configuration messages pushed by the trainer.
type Server struct {
	sink   Sink
	logger *log.Logger
}

// #endregion server-struct

// NewServer returns a server forwarding accepted messages to sink.
func NewServer(sink Sink, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{sink: sink, logger: logger}
}

// Register attaches the service to g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&serviceDesc, s)
}

// #region push
// Push implements ParametersServer.
func (s *Server) Push(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if err := checkChannel(ctx); err != nil {
		s.logger.Printf("[SIDECHANNEL] rejected message: %v", err)
		return nil, err
	}

	versionID, err := s.sink.Submit(ctx, in.GetValue(), "grpc")
	if err != nil {
		s.logger.Printf("[SIDECHANNEL] message of %d bytes not applied: %v", len(in.GetValue()), err)
		if registry.IsMalformed(err) {
			return nil, status.Errorf(codes.InvalidArgument, "apply configuration: %v", err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		return nil, status.Errorf(codes.Internal, "apply configuration: %v", err)
	}

	s.logger.Printf("[SIDECHANNEL] applied batch %s (%d bytes)", versionID, len(in.GetValue()))
	return wrapperspb.String(versionID), nil
}

// #endregion push

// #region helpers
func checkChannel(ctx context.Context) error {
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(channelHeader)
	if len(vals) == 0 {
		return status.Error(codes.InvalidArgument, "missing channel id")
	}
	id, err := uuid.Parse(vals[0])
	if err != nil || id != ChannelID {
		return status.Errorf(codes.InvalidArgument, "unknown channel id %q", vals[0])
	}
	return nil
}

// #endregion helpers
