package sidechannel

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region client-struct
// Client pushes arena configuration messages to a running controller.
type Client struct {
	conn   *grpc.ClientConn
	client ParametersClient
}

// #endregion client-struct

// #region constructor
// NewClient connects to the controller's side channel.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewParametersClient(conn),
	}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
func NewClientWithService(svc ParametersClient) *Client {
	return &Client{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region push
// Push sends a YAML configuration message and returns the stored batch version id.
func (c *Client) Push(ctx context.Context, data []byte) (string, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, channelHeader, ChannelID.String())
	resp, err := c.client.Push(ctx, wrapperspb.Bytes(data))
	if err != nil {
		return "", fmt.Errorf("push rpc: %w", err)
	}
	return resp.GetValue(), nil
}

// #endregion push
