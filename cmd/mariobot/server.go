package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/void-rizqiagung/bot-mariioV2/internal/constants"
	"github.com/void-rizqiagung/bot-mariioV2/internal/router"
	"github.com/void-rizqiagung/bot-mariioV2/internal/service"
	"github.com/void-rizqiagung/bot-mariioV2/pkg/whatsapp"
)

// Server receives gateway webhooks and exposes the health and status
// surfaces.
type Server struct {
	mux       *mux.Router
	logger    *logrus.Logger
	msgRouter *router.Router
	status    *service.StatusService
	port      int
	server    *http.Server
}

func NewServer(port int, msgRouter *router.Router, status *service.StatusService, logger *logrus.Logger) *Server {
	s := &Server{
		mux:       mux.NewRouter(),
		logger:    logger,
		msgRouter: msgRouter,
		status:    status,
		port:      port,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.mux.HandleFunc("/status", s.handleStatus()).Methods(http.MethodGet)
	s.mux.HandleFunc("/webhook/whatsapp", s.handleWebhook()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.mux,
		ReadTimeout:  constants.DefaultServerReadTimeout,
		WriteTimeout: constants.DefaultServerWriteTimeout,
		IdleTimeout:  constants.DefaultServerIdleTimeout,
	}

	s.logger.WithField("port", s.port).Info("Starting server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.WithError(err).Warn("Failed to write health response")
		}
	}
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.status.Current()); err != nil {
			s.logger.WithError(err).Warn("Failed to write status response")
		}
	}
}

// handleWebhook acknowledges the gateway immediately and processes the
// message in the background; command handlers can outlive the request by
// design (AI calls, downloads).
func (s *Server) handleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event whatsapp.WebhookEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			s.logger.WithError(err).Warn("Malformed webhook request")
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		msg, err := whatsapp.DecodeMessage(&event)
		if err != nil {
			if !errors.Is(err, whatsapp.ErrIgnoredEvent) {
				s.logger.WithField("event", event.Event).WithError(err).Warn("Failed to decode webhook event")
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		go s.msgRouter.HandleMessage(context.Background(), msg)
		w.WriteHeader(http.StatusOK)
	}
}
