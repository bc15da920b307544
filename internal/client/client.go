package client

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/matheus3301/collab/internal/rpc"
)

// Client wraps gRPC connections to the daemon.
type Client struct {
	conn      *grpc.ClientConn
	Directory rpc.DirectoryClient
	Chat      rpc.ChatClient
	Message   rpc.MessageClient
	Status    rpc.StatusClient
}

// New dials the daemon's Unix domain socket and returns typed service clients.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		rpc.CallOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return Wrap(conn), nil
}

// Wrap builds a Client over an existing connection. The connection must have
// been created with rpc.CallOptions.
func Wrap(conn *grpc.ClientConn) *Client {
	return &Client{
		conn:      conn,
		Directory: rpc.NewDirectoryClient(conn),
		Chat:      rpc.NewChatClient(conn),
		Message:   rpc.NewMessageClient(conn),
		Status:    rpc.NewStatusClient(conn),
	}
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
