package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

const shutdownTimeout = 5 * time.Second

// Server is the reference move/winner oracle: the HTTP surface the client
// consumes, backed by the in-memory store and the board engine.
type Server struct {
	logger *slog.Logger
	store  *Store
	secret []byte
}

func NewServer(logger *slog.Logger, secret string) *Server {
	return &Server{
		logger: logger.With("component", "oracle"),
		store:  NewStore(),
		secret: []byte(secret),
	}
}

// Router builds the endpoint tree. The consumer is a browser app, so CORS
// runs in front of everything.
func (that *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           60 * 15,
	}))

	r.Get("/ping", that.handlePing)

	r.Route("/users", func(r chi.Router) {
		r.Post("/login", that.handleLogin)
		r.Post("/logout", that.handleLogout)
		r.Post("/signup", that.handleSignup)
		r.Post("/check-session", that.handleCheckSession)
		r.Post("/is-used-email", that.handleIsUsedEmail)
		r.Patch("/update-user", that.handleUpdateUser)
		r.Post("/check-password", that.handleCheckPassword)
	})

	r.Route("/game", func(r chi.Router) {
		r.Post("/ai-move", that.handleAIMove)
		r.Post("/check-board", that.handleCheckBoard)
	})

	r.Route("/graphql", func(r chi.Router) {
		r.Post("/users", that.handleUsersGraphQL)
		r.Post("/game", that.handleGameGraphQL)
	})

	return r
}

// Start serves until the context is canceled, then shuts down gracefully.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down cleanly", "error", err)
		}
	}()

	that.logger.Info("oracle listening", "port", port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
