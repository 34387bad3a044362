// Package server assembles the HTTP routes.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/countdown"
	"github.com/BuzzLyutic/task-tracker/internal/handler"
	"github.com/BuzzLyutic/task-tracker/internal/identity"
	"github.com/BuzzLyutic/task-tracker/pkg/respond"
)

type Deps struct {
	Resolver  *identity.Resolver
	Tasks     *handler.TaskHandler
	Auth      *handler.AuthHandler
	Countdown *countdown.Handler
	Logger    *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/ws/timer/{timer_seconds}", d.Countdown.Timer)

	r.Route("/api", func(r chi.Router) {
		r.Use(d.Resolver.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)
			r.Post("/token", d.Auth.Token)
			r.Post("/logout", d.Auth.Logout)
			r.Get("/status", d.Auth.Status)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", d.Tasks.List)
			r.Post("/", d.Tasks.Create)
			r.Delete("/", d.Tasks.Delete)
			r.Get("/{id}", d.Tasks.Get)
			r.Put("/{id}", d.Tasks.Update)
			r.Put("/{id}/timer_start", d.Tasks.StartTimer)
			r.Put("/{id}/timer_stop", d.Tasks.StopTimer)
		})
	})

	return r
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
