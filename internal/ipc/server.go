package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sanity-io/litter"

	"picker/internal/api"
	"picker/internal/daemon"
	"picker/internal/logging"
	"picker/internal/logs"
	"picker/internal/queue"
	"picker/internal/services"
)

// ServiceName is the JSON-RPC service prefix.
const ServiceName = "Picker"

const shutdownDelay = 100 * time.Millisecond

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// ServerOption configures optional server behavior.
type ServerOption func(*service)

// WithShutdown installs the callback run by the Shutdown RPC.
func WithShutdown(fn func()) ServerOption {
	return func(s *service) {
		s.shutdown = fn
	}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: serverCtx}
	for _, opt := range opts {
		opt(srv)
	}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			if !s.track(conn) {
				_ = conn.Close()
				return
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.untrack(c)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(conn net.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.conns, conn)
}

// Close stops the server, drops open connections, and removes the socket
// file. Safe to call more than once.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = nil
	s.connMu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun picker stop"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

// publicError keeps validation messages intact and hides internals.
func publicError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(api.PublicMessage(err))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = daemon.StatusDTO(s.daemon.Status(s.ctx))
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.logger.Info("daemon shutdown requested",
		logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
	if s.shutdown == nil {
		resp.Accepted = false
		return nil
	}
	// Reply before the listener goes away.
	time.AfterFunc(shutdownDelay, s.shutdown)
	resp.Accepted = true
	return nil
}

func (s *service) ListAvailable(req ListRequest, resp *ListResponse) error {
	svc := s.daemon.Items()
	*resp = svc.Available(pageQuery(req, svc))
	return nil
}

func (s *service) ListSelected(req ListRequest, resp *ListResponse) error {
	svc := s.daemon.Items()
	*resp = svc.Selected(pageQuery(req, svc))
	return nil
}

func pageQuery(req ListRequest, svc *api.ItemService) api.PageQuery {
	offset, limit := "", ""
	if req.Offset != 0 {
		offset = fmt.Sprint(req.Offset)
	}
	if req.Limit != 0 {
		limit = fmt.Sprint(req.Limit)
	}
	return api.ParsePageQuery(offset, limit, req.Filter, svc.Limits())
}

func (s *service) Enqueue(req EnqueueRequest, resp *EnqueueResponse) error {
	ctx := services.WithRequestID(s.ctx, "ipc-"+uuid.NewString())
	opType, ok := queue.ParseOpType(req.Type)
	if !ok {
		return errors.New("unknown operation type")
	}
	var (
		out api.MutationResponse
		err error
	)
	if opType == queue.OpReorder {
		out, err = s.daemon.Items().Reorder(ctx, req.Order)
	} else {
		out, err = s.daemon.Items().Mutate(ctx, opType, req.ID)
	}
	if err != nil {
		return publicError(err)
	}
	*resp = out
	s.logger.Debug("operation queued via IPC",
		logging.Args(logging.OpType(string(opType)), logging.ItemID(req.ID))...)
	return nil
}

func (s *service) Flush(req FlushRequest, resp *FlushResponse) error {
	lane, ok := queue.ParseLane(req.Lane)
	if !ok {
		return fmt.Errorf("unknown lane %q", req.Lane)
	}
	flushed := s.daemon.Flush(s.ctx, lane)
	*resp = api.FlushResponse{Lane: string(lane), Flushed: flushed}
	s.logger.Info("lane flushed via IPC",
		logging.String(logging.FieldEventType, "lane_flush"),
		logging.Lane(string(lane)),
		logging.Int("batch_size", flushed))
	return nil
}

func (s *service) Batches(req BatchesRequest, resp *BatchesResponse) error {
	if id := strings.TrimSpace(req.ID); id != "" {
		batch, err := s.daemon.Batch(s.ctx, id)
		if err != nil {
			return publicError(err)
		}
		resp.Batches = []api.Batch{api.FromJournalBatch(*batch)}
		return nil
	}
	lane := strings.TrimSpace(req.Lane)
	if lane != "" {
		parsed, ok := queue.ParseLane(lane)
		if !ok {
			return fmt.Errorf("unknown lane %q", req.Lane)
		}
		lane = string(parsed)
	}
	batches, err := s.daemon.Batches(s.ctx, lane, req.Limit)
	if err != nil {
		return publicError(err)
	}
	resp.Batches = api.FromJournalBatches(batches)
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) DebugState(_ DebugStateRequest, resp *DebugStateResponse) error {
	snapshot := s.daemon.DebugSnapshot(s.ctx)
	dumper := litter.Options{
		HidePrivateFields: true,
		HideZeroValues:    true,
		StripPackageNames: true,
	}
	resp.Dump = dumper.Sdump(snapshot)
	return nil
}
