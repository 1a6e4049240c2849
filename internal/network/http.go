package network

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MRamiBalles/IdleAbsurditree/internal/engine"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/logger"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/metrics"
)

const maxBodyBytes = 1 << 16

// ServerOptions configures the API server.
type ServerOptions struct {
	DevRoutes      bool
	ClickRate      float64 // Websocket actions per second per client
	ClickBurst     int
	AllowedOrigins []string // Empty allows any origin
}

// Server exposes the Manager over HTTP and websockets.
type Server struct {
	manager  *engine.Manager
	hub      *Hub
	logger   *logger.Logger
	metrics  *metrics.Collector
	opts     ServerOptions
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// NewServer registers every route on a fresh mux.
func NewServer(m *engine.Manager, hub *Hub, log *logger.Logger, mc *metrics.Collector, opts ServerOptions) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if mc == nil {
		mc = metrics.Get()
	}
	s := &Server{
		manager: m,
		hub:     hub,
		logger:  log,
		metrics: mc,
		opts:    opts,
		mux:     http.NewServeMux(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/generators", s.handleGenerators)
	s.mux.HandleFunc("POST /api/click", s.handleClick)
	s.mux.HandleFunc("POST /api/generators/{index}/buy", s.handleBuy)
	s.mux.HandleFunc("POST /api/save", s.handleSave)
	s.mux.HandleFunc("POST /api/load", s.handleLoad)
	s.mux.HandleFunc("POST /api/reset", s.handleReset)
	if s.opts.DevRoutes {
		s.mux.HandleFunc("POST /api/dev/nutrients", s.handleDevNutrients)
		s.mux.HandleFunc("POST /api/dev/production", s.handleDevProduction)
	}
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.mux.Handle("GET /metrics/prometheus", s.metrics.PrometheusHandler())
	s.mux.HandleFunc("GET /ws", s.serveWs)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// HTTPServer builds an http.Server for addr with conservative timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range s.opts.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrGeneratorIndex):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInsufficientNutrients):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Snapshot())
}

func (s *Server) handleGenerators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Generators())
}

type clickResponse struct {
	Value float64         `json:"value"`
	State engine.Snapshot `json:"state"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	v := s.manager.Click()
	writeJSON(w, http.StatusOK, clickResponse{Value: v, State: s.manager.Snapshot()})
}

type buyRequest struct {
	Count int  `json:"count"`
	Max   bool `json:"max"`
}

type buyResponse struct {
	Purchase engine.Purchase `json:"purchase"`
	State    engine.Snapshot `json:"state"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "generator index must be an integer")
		return
	}
	var req buyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	var p engine.Purchase
	switch {
	case req.Max:
		p, err = s.manager.BuyMaxGenerators(r.Context(), index)
	case req.Count == 0:
		p, err = s.manager.BuyGenerator(r.Context(), index)
	default:
		p, err = s.manager.BuyGenerators(r.Context(), index, req.Count)
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, buyResponse{Purchase: p, State: s.manager.Snapshot()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Save(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Snapshot())
}

type loadResponse struct {
	Offline engine.OfflineReport `json:"offline"`
	State   engine.Snapshot      `json:"state"`
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Load(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	report, err := s.manager.ProcessOfflineGains(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loadResponse{Offline: report, State: s.manager.Snapshot()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Snapshot())
}

type devNutrientsRequest struct {
	Op     string  `json:"op"` // add, set, clear
	Target string  `json:"target"`
	Amount float64 `json:"amount"`
}

func (s *Server) handleDevNutrients(w http.ResponseWriter, r *http.Request) {
	var req devNutrientsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	target, err := engine.ParseTarget(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Op {
	case "add":
		err = s.manager.DevAdd(target, req.Amount)
	case "set":
		err = s.manager.DevSet(target, req.Amount)
	case "clear":
		err = s.manager.DevClear(target)
	default:
		writeError(w, http.StatusBadRequest, "op must be add, set or clear")
		return
	}
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Snapshot())
}

type devProductionRequest struct {
	Rate *float64 `json:"rate"`
}

func (s *Server) handleDevProduction(w http.ResponseWriter, r *http.Request) {
	var req devProductionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	if req.Rate == nil {
		writeError(w, http.StatusBadRequest, "rate is required")
		return
	}
	s.manager.SetAutoProduction(*req.Rate)
	writeJSON(w, http.StatusOK, s.manager.Snapshot())
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	if s.hub.Full() {
		s.metrics.RecordWSRejected()
		writeError(w, http.StatusServiceUnavailable, "too many clients")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.metrics.RecordWSError()
		s.logger.Warn("Failed to upgrade websocket connection", zap.Error(err))
		return
	}

	client := NewClient(s.hub, conn, s.opts.ClickRate, s.opts.ClickBurst)
	if err := s.hub.Register(client); err != nil {
		if errors.Is(err, ErrHubFull) {
			msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		}
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}

// Shutdown stops an http.Server, waiting at most timeout for in-flight requests.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
