// Package server is the read-only diagnostic HTTP surface. It serves the
// process-wide readiness atomics and the session state; it never touches
// loop-local state.
package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dpp/homer/internal/pkg/readiness"
)

type server struct {
	flags   *readiness.Flags
	session func() string
	logger  *zap.Logger
}

// New builds the diagnostic handler. session reports the current session
// manager state as a string.
func New(flags *readiness.Flags, session func() string) http.Handler {
	s := &server{flags: flags, session: session, logger: zap.L()}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.healthz)
	return LoggingMiddleware(mux)
}

type health struct {
	NetworkReady bool   `json:"network_ready"`
	TimeSynced   bool   `json:"time_synced"`
	LastQuad     int32  `json:"last_quad"`
	Session      string `json:"session"`
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	body := health{
		NetworkReady: s.flags.NetworkReady(),
		TimeSynced:   s.flags.TimeSynced(),
		LastQuad:     s.flags.LastQuad(),
		Session:      s.session(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to write health response", zap.Error(err))
	}
}
