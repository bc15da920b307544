// Package httpapi serves health, metrics and WebSocket message feeds.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/matheus3301/collab/internal/channel"
	"github.com/matheus3301/collab/internal/metrics"
	"github.com/matheus3301/collab/internal/rpc"
	"github.com/matheus3301/collab/internal/status"
	"github.com/matheus3301/collab/internal/store"
)

const writeTimeout = 5 * time.Second

// Pinger checks backend reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server is the optional HTTP listener of the daemon.
type Server struct {
	channel *channel.Channel
	db      Pinger
	machine *status.Machine
	metrics *metrics.Metrics
	logger  *zap.Logger

	srv *http.Server
	ln  net.Listener
}

func New(ch *channel.Channel, db Pinger, machine *status.Machine, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{channel: ch, db: db, machine: machine, metrics: m, logger: logger}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.healthz)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.HandleFunc("GET /ws/chats/{id}", s.watchChat)
	return mux
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

type health struct {
	Status string `json:"status"`
	State  string `json:"state,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := health{Status: "ok"}
	code := http.StatusOK
	if s.machine != nil {
		resp.State = string(s.machine.Current())
	}
	if err := s.db.PingContext(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Error = err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// watchChat streams a MessageSnapshot on connect and after every change.
// The feed is push-only; client frames are discarded.
func (s *Server) watchChat(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")
	if _, err := s.channel.History(r.Context(), chatID); err != nil {
		if errors.Is(err, channel.ErrChatNotFound) {
			writeJSON(w, http.StatusNotFound, health{Status: "not_found", Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, health{Status: "unavailable", Error: err.Error()})
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return // Accept already wrote the response.
	}
	defer func() { _ = conn.CloseNow() }()
	ctx := conn.CloseRead(r.Context())

	latest := make(chan []store.Message, 1)
	sub, err := s.channel.Subscribe(ctx, chatID, func(msgs []store.Message) {
		select {
		case <-latest:
		default:
		}
		latest <- msgs
	})
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer sub.Unsubscribe()

	var seq int64
	for {
		select {
		case <-ctx.Done():
			return
		case msgs := <-latest:
			seq++
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, rpc.MessageSnapshot{
				ChatID:   chatID,
				Seq:      seq,
				Messages: rpc.FromMessages(msgs),
			})
			cancel()
			if err != nil {
				s.logger.Debug("websocket write failed", zap.String("chat_id", chatID), zap.Error(err))
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
