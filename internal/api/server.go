package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/dispatch"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/logging"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/queue"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/services"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/store"
)

// successMessage is the acknowledgement body the frontend matches on.
const successMessage = "Successfully added process to queue"

// Server is the API process. It owns no generation state; every request
// either reads the store or enqueues through the dispatcher.
type Server struct {
	bind       string
	logger     *slog.Logger
	store      *store.Store
	broker     queue.Broker
	dispatcher *dispatch.Dispatcher

	listener net.Listener
	server   *http.Server
}

func NewServer(cfg *config.Config, st *store.Store, broker queue.Broker, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Server {
	srv := &Server{
		bind:       strings.TrimSpace(cfg.Paths.APIBind),
		logger:     logging.NewComponentLogger(logger, "api"),
		store:      st,
		broker:     broker,
		dispatcher: dispatcher,
	}
	srv.server = &http.Server{
		Handler:           srv.Handler(cfg.Auth.SecretKey),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux without binding a socket.
func (s *Server) Handler(secret string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts/create-topics", authMiddleware(secret, s.handleCreateTopics))
	mux.HandleFunc("/api/posts/create-topic", authMiddleware(secret, s.handleCreateTopic))
	mux.HandleFunc("/api/posts/create-topic/retry", authMiddleware(secret, s.handleRetryTopic))
	mux.HandleFunc("/api/posts/create-article", authMiddleware(secret, s.handleCreateArticle))
	mux.HandleFunc("/api/posts/create-manual-article", authMiddleware(secret, s.handleCreateManualArticle))
	mux.HandleFunc("/api/posts/jobs", authMiddleware(secret, s.handleJobs))
	mux.HandleFunc("/api/posts/jobs/", authMiddleware(secret, s.handleJobItem))
	mux.HandleFunc("/api/health", s.handleHealth)
	return mux
}

// Start listens and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Error(err))
	}
	s.writeError(w, status, err.Error())
}
