package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/simensrostad/mailpal/network"
	"github.com/simensrostad/mailpal/pdp"
	"github.com/simensrostad/mailpal/registration"
)

// Identity describes the attached modem
type Identity struct {
	Firmware string `json:"firmware,omitempty"`
	IMEI     string `json:"imei,omitempty"`
}

// Server handles incoming HTTP requests for inspecting connectivity and
// controlling the PDP context
type Server struct {
	Logger       *slog.Logger
	Registration *registration.Monitor
	PDP          *pdp.Monitor
	Stack        *network.Stack
	Identity     Identity
	// Metrics serves /metrics when set
	Metrics http.Handler
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/pdp/deactivate", s.handleDeactivate).Methods(http.MethodPost)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.Metrics != nil {
		router.Handle("/metrics", s.Metrics).Methods(http.MethodGet)
	}
	router.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// handleStatus reports the last known registration, PDP and network state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type RegistrationResponse struct {
		Code       uint8  `json:"code"`
		Status     string `json:"status"`
		Registered bool   `json:"registered"`
	}
	type StatusResponse struct {
		Registration RegistrationResponse  `json:"registration"`
		PDP          pdp.Status            `json:"pdp"`
		Network      *network.StaticConfig `json:"network"`
		Modem        Identity              `json:"modem"`
	}

	reg := s.Registration.Last()
	resp := StatusResponse{
		Registration: RegistrationResponse{
			Code:       uint8(reg),
			Status:     reg.String(),
			Registered: reg.IsRegistered(),
		},
		PDP:   s.PDP.Status(),
		Modem: s.Identity,
	}
	if config, ok := s.Stack.ConfigV4(); ok {
		resp.Network = &config
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleDeactivate tears the default PDP context down
func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := s.PDP.Deactivate(r.Context()); err != nil {
		s.Logger.Error("Failed to deactivate PDP context", "error", err)
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.Logger.Info("PDP context deactivated")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
