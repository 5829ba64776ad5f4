package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"CoinPulse/internal/metrics"
	"CoinPulse/internal/model"
	"CoinPulse/internal/prefs"
)

// Controller is what the server needs from the refresh scheduler: the user
// mode-switch callbacks and the latest board.
type Controller interface {
	SetOrder(order model.SortOrder)
	SetTimeframe(tf model.Timeframe)
	Board() model.Board
}

// event is the frame pushed to WebSocket clients.
type event struct {
	Type  string       `json:"type"` // "board" or "error"
	Board *model.Board `json:"board,omitempty"`
	Error string       `json:"error,omitempty"`
}

// Server exposes the JSON API and a WebSocket push stream that feeds the
// browser dashboard. It is the scheduler's presentation sink.
type Server struct {
	addr     string
	prefs    *prefs.Store
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	ctrl    Controller
	lastErr string
	clients map[*websocket.Conn]struct{}

	// gorilla allows one concurrent writer per connection; all pushes are
	// serialized through writeMu.
	writeMu sync.Mutex
}

// NewServer creates the server. AttachController must be called before
// Start, once the scheduler exists.
func NewServer(addr string, store *prefs.Store, log *zap.Logger) *Server {
	return &Server{
		addr:    addr,
		prefs:   store,
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// AttachController wires the scheduler in after construction; the scheduler
// itself is built with this server as its sink.
func (s *Server) AttachController(ctrl Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl = ctrl
}

// PublishBoard implements the scheduler sink: clears any sticky error and
// pushes the new board to every connected client.
func (s *Server) PublishBoard(board model.Board) {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
	s.broadcast(event{Type: "board", Board: &board})
}

// PublishError implements the scheduler sink: remembers the error so the
// next /api/board poll sees it, and pushes it to connected clients.
func (s *Server) PublishError(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	s.broadcast(event{Type: "error", Error: err.Error()})
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/board", s.handleBoard)
	mux.HandleFunc("POST /api/order", s.handleOrder)
	mux.HandleFunc("POST /api/timeframe", s.handleTimeframe)
	mux.HandleFunc("GET /api/darkmode", s.handleGetDarkMode)
	mux.HandleFunc("POST /api/darkmode", s.handleToggleDarkMode)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		s.closeClients()
	}()

	s.log.Info("dashboard listening", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type boardResponse struct {
	model.Board
	DarkMode bool   `json:"dark_mode"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller()
	if ctrl == nil {
		http.Error(w, "scheduler not attached", http.StatusServiceUnavailable)
		return
	}
	s.mu.Lock()
	lastErr := s.lastErr
	s.mu.Unlock()

	writeJSON(w, boardResponse{
		Board:    ctrl.Board(),
		DarkMode: s.prefs.DarkMode(),
		Error:    lastErr,
	})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller()
	if ctrl == nil {
		http.Error(w, "scheduler not attached", http.StatusServiceUnavailable)
		return
	}
	order, ok := model.ParseSortOrder(r.URL.Query().Get("value"))
	if !ok {
		http.Error(w, "unknown order", http.StatusBadRequest)
		return
	}
	ctrl.SetOrder(order)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTimeframe(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller()
	if ctrl == nil {
		http.Error(w, "scheduler not attached", http.StatusServiceUnavailable)
		return
	}
	tf, ok := model.ParseTimeframe(r.URL.Query().Get("value"))
	if !ok {
		http.Error(w, "unknown timeframe", http.StatusBadRequest)
		return
	}
	ctrl.SetTimeframe(tf)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetDarkMode(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]bool{"dark_mode": s.prefs.DarkMode()})
}

func (s *Server) handleToggleDarkMode(w http.ResponseWriter, _ *http.Request) {
	on, err := s.prefs.ToggleDarkMode()
	if err != nil {
		s.log.Error("persist dark mode", zap.Error(err))
		http.Error(w, "persist failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]bool{"dark_mode": on})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	ctrl := s.ctrl
	s.mu.Unlock()
	metrics.ConnectedClients.Inc()

	// Send the latest board right away so a new tab is not blank until the
	// next cycle completes.
	if ctrl != nil {
		if board := ctrl.Board(); len(board.Records) > 0 {
			s.send(conn, event{Type: "board", Board: &board})
		}
	}

	// Reader loop only to detect close; clients never send data frames.
	go func() {
		defer s.dropClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) broadcast(evt event) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		s.send(c, evt)
	}
}

func (s *Server) send(conn *websocket.Conn, evt event) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(evt); err != nil {
		s.log.Debug("websocket write failed, dropping client", zap.Error(err))
		s.dropClient(conn)
	}
}

func (s *Server) dropClient(conn *websocket.Conn) {
	s.mu.Lock()
	_, present := s.clients[conn]
	delete(s.clients, conn)
	s.mu.Unlock()
	if present {
		metrics.ConnectedClients.Dec()
		conn.Close()
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		s.dropClient(c)
	}
}

func (s *Server) controller() Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
