package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/galois26/creator-feed/internal/config"
	"github.com/galois26/creator-feed/internal/engine"
	"github.com/galois26/creator-feed/internal/metrics"
	"github.com/galois26/creator-feed/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Server exposes lane snapshots over HTTP and websockets, plus /metrics and /healthz.
type Server struct {
	engine   *engine.Engine
	hubs     map[string]*Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mux    *http.ServeMux
	server *http.Server
}

// New registers a hub listener on every lane of eng. m may be nil.
func New(cfg config.ServerConfig, eng *engine.Engine, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine: eng,
		hubs:   make(map[string]*Hub),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "server"),
		mux:    http.NewServeMux(),
	}
	for _, l := range eng.Lanes() {
		name := l.Name()
		var onCount func(int)
		if m != nil {
			onCount = func(n int) { m.SetClients(name, n) }
		}
		h := NewHub(name, onCount)
		s.hubs[name] = h
		l.Listen(h.Broadcast)
	}

	if m != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("GET /feed/{lane}", s.handleFeed)
	s.mux.HandleFunc("GET /ws/{lane}", s.handleWS)

	s.server = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      s.mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler              { return s.mux }
func (s *Server) Serve() error                       { return s.server.ListenAndServe() }
func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }

type feedResponse struct {
	Lane     string        `json:"lane"`
	Capacity int           `json:"capacity"`
	Events   []model.Event `json:"events"`
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	lane, ok := s.engine.Lane(r.PathValue("lane"))
	if !ok {
		http.Error(w, "unknown lane", http.StatusNotFound)
		return
	}
	events := lane.Snapshot()
	if events == nil {
		events = []model.Event{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(feedResponse{Lane: lane.Name(), Capacity: lane.Capacity(), Events: events}); err != nil {
		s.logger.Warn("encode feed", "err", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	lane, ok := s.engine.Lane(r.PathValue("lane"))
	if !ok {
		http.Error(w, "unknown lane", http.StatusNotFound)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	hub := s.hubs[lane.Name()]
	sub := hub.subscribe()
	offer(sub.send, Message{Lane: lane.Name(), Events: lane.Snapshot()})

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		hub.unsubscribe(sub)
		_ = conn.Close()
	}()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case msg := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if msg.Events == nil {
				msg.Events = []model.Event{}
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
