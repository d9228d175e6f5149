// Package server implements a small HTTP introspection/debug endpoint
// over a running layerstore.Store.
//
// Grounded on gateway/server.go's Gateway struct and Start/Stop
// pairing around an *http.Server plus a gorilla/mux router, trimmed to
// the subset relevant to operating a store. No auth, no TLS, no
// static assets: this is a debug surface, not a file-sharing gateway.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/layerstore/layerstore"
)

// Server exposes GET /stat, POST /flush, and POST /evict against a
// single *layerstore.Store.
type Server struct {
	store *layerstore.Store
	log   *logrus.Entry

	srv *http.Server
}

// New returns a Server for store, not yet listening.
func New(store *layerstore.Store, addr string) *Server {
	s := &Server{
		store: store,
		log:   logrus.WithField("component", "layerstore-server"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/stat", s.handleStat).Methods("GET")
	router.HandleFunc("/flush", s.handleFlush).Methods("POST")
	router.HandleFunc("/evict", s.handleEvict).Methods("POST")

	s.srv = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start begins serving in the background. It returns once the
// listener is ready or an error is produced synchronously.
func (s *Server) Start() error {
	addr := s.srv.Addr
	if addr == "" {
		addr = ":http"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.WithField("err", err).Warn("server stopped")
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type statResponse struct {
	Size uint64 `json:"size"`
}

func (s *Server) handleStat(w http.ResponseWriter, r *http.Request) {
	size, err := s.store.Stat()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, statResponse{Size: size})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	size, err := s.store.Stat()
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.store.Flush(0, size); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvict(w http.ResponseWriter, r *http.Request) {
	percent := 1.0
	if v := r.URL.Query().Get("percent"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			percent = parsed
		}
	}

	flushFirst := r.URL.Query().Get("flush_first") == "true"

	if err := s.store.Evict(percent, flushFirst); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithField("err", err).Warn("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.WithField("err", err).Warn("request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
