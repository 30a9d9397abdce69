package distribution

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/storage"
)

// checksumHeader carries a digest of the full config set so live bots can
// cheap-poll: re-fetch only when the value changes.
const checksumHeader = "X-Config-Checksum"

// Server exposes the tuned config set over HTTP.
type Server struct {
	store  storage.TunedConfigStore
	hub    *Hub
	logger *log.Logger
}

// NewServer creates a distribution server over the given store.
func NewServer(store storage.TunedConfigStore, logger *log.Logger) *Server {
	return &Server{
		store:  store,
		hub:    NewHub(logger),
		logger: logger,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /configs", s.handleConfigs)
	mux.HandleFunc("GET /configs/{symbol}", s.handleConfigBySymbol)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.hub.ServeWS)
	return mux
}

// Publish stores a new tuned config and pushes it to subscribers.
func (s *Server) Publish(ctx context.Context, r *domain.OptimizationResult) error {
	if err := s.store.Put(ctx, r); err != nil {
		return fmt.Errorf("store tuned config: %w", err)
	}

	message, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal config update: %w", err)
	}
	s.hub.Broadcast(message)

	if s.logger != nil {
		s.logger.Printf("distribution: published config for %s to %d subscribers",
			r.Symbol, s.hub.ClientCount())
	}
	return nil
}

// Close disconnects all websocket subscribers.
func (s *Server) Close() {
	s.hub.Close()
}

func (s *Server) handleConfigs(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.GetAll(r.Context())
	if err != nil {
		s.serverError(w, "list tuned configs", err)
		return
	}
	if results == nil {
		results = []*domain.OptimizationResult{}
	}
	s.writeJSON(w, results)
}

func (s *Server) handleConfigBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	result, err := s.store.Get(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, fmt.Sprintf("no tuned config for %s", symbol), http.StatusNotFound)
			return
		}
		s.serverError(w, "get tuned config", err)
		return
	}
	s.writeJSON(w, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		s.serverError(w, "marshal response", err)
		return
	}

	sum := sha256.Sum256(body)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(checksumHeader, hex.EncodeToString(sum[:]))
	w.Write(body)
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	if s.logger != nil {
		s.logger.Printf("distribution: %s: %v", op, err)
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}
