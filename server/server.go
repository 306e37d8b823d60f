// Package server assembles the HTTP surface of the service: it builds the
// auth and profile components from configuration, mounts them on a chi router
// behind the shared middleware stack and runs the listener with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/user/moviesns-go/apperror"
	"github.com/user/moviesns-go/auth"
	"github.com/user/moviesns-go/config"
	"github.com/user/moviesns-go/logutil"
	"github.com/user/moviesns-go/metrics"
	"github.com/user/moviesns-go/users"
)

// Store is the persistence the server needs: the user repository plus a health probe.
type Store interface {
	users.Repository
	Ping(ctx context.Context) error
}

// Server holds the assembled components.
type Server struct {
	cfg     *config.AppConfig
	logger  zerolog.Logger
	store   Store
	metrics *metrics.Recorder
	tokens  *auth.TokenManager
	handler http.Handler
}

// New wires every component from cfg on top of store.
func New(cfg *config.AppConfig, store Store, logger zerolog.Logger) (*Server, error) {
	rec := metrics.New()

	var revocations auth.RevocationSet
	tokenOpts := []auth.TokenOption{auth.WithMetrics(rec)}
	if cfg.Auth.Revocation {
		set, err := auth.InMemoryRevocations(cfg.Auth.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("revocation set: %w", err)
		}
		revocations = set
		tokenOpts = append(tokenOpts, auth.WithRevocations(set))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, tokenOpts...)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost, rec)
	authService := auth.NewAuthService(store, hasher, tokens, revocations, rec)
	authHandlers := auth.NewHandlers(authService, auth.CookieOptions{
		Secure: cfg.Auth.CookieSecure,
	})
	userHandlers := users.NewUserHandlers(users.NewUserService(store))

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		metrics: rec,
		tokens:  tokens,
	}
	s.handler = s.routes(authHandlers, userHandlers)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes(authHandlers *auth.Handlers, userHandlers *users.UserHandlers) http.Handler {
	r := chi.NewRouter()

	// Middleware must be registered before any route.
	r.Use(middleware.RealIP)
	r.Use(logutil.Middleware(s.logger))
	r.Use(recoverJSON)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Set before Route so mounted subrouters inherit them.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		auth.WriteError(w, r, apperror.NewNotFoundError("route not found", nil))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		auth.WriteError(w, r, apperror.NewMethodNotAllowedError("method not allowed"))
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/auth", authHandlers.RegisterRoutes)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.IdentityBridge(s.tokens))
		r.Route("/users", userHandlers.RegisterRoutes)
	})

	return r
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("health check failed")
		apperror.WriteJSON(w, http.StatusServiceUnavailable, apperror.ErrorResponse{Message: "store unavailable"})
		return
	}
	apperror.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// recoverJSON turns a handler panic into the standard 500 body.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				log := logutil.GetOrDefault(r.Context())
				log.Error().Interface("panic", rvr).Bytes("stack", debug.Stack()).Msg("handler panicked")
				auth.WriteError(w, r, apperror.NewInternalError("internal server error", nil))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Run serves on cfg.Server.Port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info().Msg("server stopped gracefully")
	return nil
}
