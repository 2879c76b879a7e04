package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Req, Resp any](c *Client, method string, req Req) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusRequest, StatusResponse](c, "Status", StatusRequest{})
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	return call[ShutdownRequest, ShutdownResponse](c, "Shutdown", ShutdownRequest{})
}

// ListAvailable pages through unselected items.
func (c *Client) ListAvailable(req ListRequest) (*ListResponse, error) {
	return call[ListRequest, ListResponse](c, "ListAvailable", req)
}

// ListSelected pages through selected items in selection order.
func (c *Client) ListSelected(req ListRequest) (*ListResponse, error) {
	return call[ListRequest, ListResponse](c, "ListSelected", req)
}

// Enqueue queues a select, deselect, add or reorder operation.
func (c *Client) Enqueue(req EnqueueRequest) (*EnqueueResponse, error) {
	return call[EnqueueRequest, EnqueueResponse](c, "Enqueue", req)
}

// Flush applies a lane's pending operations immediately.
func (c *Client) Flush(lane string) (*FlushResponse, error) {
	return call[FlushRequest, FlushResponse](c, "Flush", FlushRequest{Lane: lane})
}

// Batches lists journaled batches or describes one batch.
func (c *Client) Batches(req BatchesRequest) (*BatchesResponse, error) {
	return call[BatchesRequest, BatchesResponse](c, "Batches", req)
}

// LogTail returns log lines from the daemon's current log file.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailRequest, LogTailResponse](c, "LogTail", req)
}

// DebugState returns a dump of daemon internals.
func (c *Client) DebugState() (*DebugStateResponse, error) {
	return call[DebugStateRequest, DebugStateResponse](c, "DebugState", DebugStateRequest{})
}
