package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"wastewatch/internal/service"
	"wastewatch/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type Service struct {
	logger *logrus.Logger
	config *types.Config
	app    *service.Service

	cognito  CognitoAuth
	verifier TokenVerifier
	cookie   *securecookie.SecureCookie
	limiter  *rateLimiter
	health   func(ctx context.Context) error

	server *http.Server
}

// New builds the HTTP API. cognito may be nil, which disables password login;
// health may be nil.
func New(
	config *types.Config,
	logger *logrus.Logger,
	app *service.Service,
	cognito CognitoAuth,
	verifier TokenVerifier,
	health func(ctx context.Context) error,
) (*Service, error) {
	mux := flow.New()

	hashKey, err := cookieKey(config.CookieHashKey, 32)
	if err != nil {
		return nil, fmt.Errorf("cookie hash key: %w", err)
	}
	blockKey, err := cookieKey(config.CookieBlockKey, 32)
	if err != nil {
		return nil, fmt.Errorf("cookie block key: %w", err)
	}
	if config.CookieHashKey == "" || config.CookieBlockKey == "" {
		logger.Warn("cookie keys not configured, sessions will not survive a restart")
	}

	s := &Service{
		logger:   logger,
		config:   config,
		app:      app,
		cognito:  cognito,
		verifier: verifier,
		cookie:   securecookie.New(hashKey, blockKey),
		limiter:  newRateLimiter(config.SubmitRateRPS, config.SubmitRateBurst),
		health:   health,

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

// cookieKey decodes a base64 key, generating a random one when unset.
func cookieKey(encoded string, size int) ([]byte, error) {
	if encoded == "" {
		return securecookie.GenerateRandomKey(size), nil
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.RequestID)
	r.Use(s.LoggingMiddleware)

	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeErrorCode(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeErrorCode(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/auth/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/auth/logout", s.handlePostLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		// Routes match in registration order, so the literal path goes first.
		r.Handle("/api/v1/reports/mine", s.RequireRole(types.RoleCitizen)(http.HandlerFunc(s.handleGetMyReports)), http.MethodGet)
		r.HandleFunc("/api/v1/reports/:id", s.handleGetReport, http.MethodGet)
		r.HandleFunc("/api/v1/workers/apply", s.handlePostWorkerApply, http.MethodPost)

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleCitizen))

			r.HandleFunc("/api/v1/classify", s.handlePostClassify, http.MethodPost)
			r.HandleFunc("/api/v1/transcribe", s.handlePostTranscribe, http.MethodPost)
			r.HandleFunc("/api/v1/profile", s.handleGetProfile, http.MethodGet)

			r.Group(func(r *flow.Mux) {
				r.Use(s.RateLimit)
				r.HandleFunc("/api/v1/reports", s.handlePostReport, http.MethodPost)
			})
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleAuthority))

			r.HandleFunc("/api/v1/authority/reports", s.handleGetAuthorityReports, http.MethodGet)
			r.HandleFunc("/api/v1/authority/reports/pending", s.handleGetPendingReports, http.MethodGet)
			r.HandleFunc("/api/v1/authority/reports/breached", s.handleGetBreachedReports, http.MethodGet)
			r.HandleFunc("/api/v1/authority/reports/auto-assign", s.handlePostAutoAssign, http.MethodPost)
			r.HandleFunc("/api/v1/authority/reports/:id/events", s.handleGetReportEvents, http.MethodGet)
			r.HandleFunc("/api/v1/authority/reports/:id/review", s.handlePostReview, http.MethodPost)
			r.HandleFunc("/api/v1/authority/reports/:id/assign", s.handlePostAssign, http.MethodPost)
			r.HandleFunc("/api/v1/authority/reports/:id/confirm", s.handlePostConfirm, http.MethodPost)

			r.HandleFunc("/api/v1/authority/workers", s.handleGetWorkers, http.MethodGet)
			r.HandleFunc("/api/v1/authority/workers/available", s.handleGetAvailableWorkers, http.MethodGet)
			r.HandleFunc("/api/v1/authority/workers/:id/approve", s.handlePostWorkerApprove, http.MethodPost)
			r.HandleFunc("/api/v1/authority/workers/:id/reject", s.handlePostWorkerReject, http.MethodPost)
			r.HandleFunc("/api/v1/authority/workers/:id/activate", s.handlePostWorkerActivate, http.MethodPost)
			r.HandleFunc("/api/v1/authority/workers/:id/deactivate", s.handlePostWorkerDeactivate, http.MethodPost)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleWorker))

			r.HandleFunc("/api/v1/worker/tasks", s.handleGetTasks, http.MethodGet)
			r.HandleFunc("/api/v1/worker/tasks/:id/accept", s.handlePostTaskAccept, http.MethodPost)
			r.HandleFunc("/api/v1/worker/tasks/:id/reject", s.handlePostTaskReject, http.MethodPost)
			r.HandleFunc("/api/v1/worker/tasks/:id/complete", s.handlePostTaskComplete, http.MethodPost)
			r.HandleFunc("/api/v1/worker/rewards", s.handleGetRewards, http.MethodGet)
		})
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.health(ctx); err != nil {
			s.logger.WithError(err).Error("health check failed")
			s.writeErrorCode(w, r, http.StatusServiceUnavailable, "unhealthy", "database unreachable")
			return
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
