package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/tasknest/tasknest-go/internal/config"
	"github.com/tasknest/tasknest-go/internal/handler"
	"github.com/tasknest/tasknest-go/internal/mailer"
	"github.com/tasknest/tasknest-go/internal/middleware"
	"github.com/tasknest/tasknest-go/internal/repository"
	"github.com/tasknest/tasknest-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	// Refresh sessions need Redis; without it the service still runs with
	// access tokens only.
	var sessions service.SessionStore
	if cfg.RedisURL != "" {
		client, err := repository.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis connection failed — refresh sessions disabled", "error", err)
		} else {
			defer client.Close()
			sessions = repository.NewSessionStore(client, cfg.RefreshExpiry)
		}
	}

	m := mailer.New(cfg.SendgridAPIKey, cfg.SenderEmail)
	if m == nil {
		slog.Info("SENDGRID_API_KEY not set — welcome emails disabled")
	}

	userRepo := repository.NewUserRepository(db)
	authService := service.NewAuthService(userRepo, sessions, m, cfg.JWTSecret, cfg.JWTExpiry, cfg.SessionWarning)
	authHandler := handler.NewAuthHandler(authService)

	taskRepo := repository.NewTaskRepository(db)
	taskService := service.NewTaskService(taskRepo)
	taskHandler := handler.NewTaskHandler(taskService)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(5, 10))
		r.Post("/api/v1/auth/register", authHandler.HandleRegister)
		r.Post("/api/v1/auth/login", authHandler.HandleLogin)
		r.Post("/api/v1/auth/refresh", authHandler.HandleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.JWTSecret))
		r.Get("/api/v1/auth/me", authHandler.HandleMe)
		r.Delete("/api/v1/auth/me", authHandler.HandleDeleteAccount)
		r.Get("/api/v1/auth/session", authHandler.HandleSession)
		r.Post("/api/v1/auth/logout", authHandler.HandleLogout)
	})

	r.Route("/api/{user_id}/tasks", func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.JWTSecret))
		r.Use(middleware.RequireOwner)
		r.Get("/", taskHandler.HandleList)
		r.Post("/", taskHandler.HandleCreate)
		r.Get("/{task_id}", taskHandler.HandleGet)
		r.Put("/{task_id}", taskHandler.HandleUpdate)
		r.Delete("/{task_id}", taskHandler.HandleDelete)
		r.Patch("/{task_id}/complete", taskHandler.HandleToggleComplete)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
