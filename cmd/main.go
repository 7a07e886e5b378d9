package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"WorkBridge/server/internal/appMiddleware"
	"WorkBridge/server/internal/auth"
	"WorkBridge/server/internal/config"
	"WorkBridge/server/internal/db"
	"WorkBridge/server/internal/files"
	"WorkBridge/server/internal/handlers"
	"WorkBridge/server/internal/services"
	"WorkBridge/server/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %s\n", err)
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to apply migrations: %s\n", err)
	}

	pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %s\n", err)
	}
	defer pool.Close()

	storage, err := files.NewDisk(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %s\n", err)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	pg := store.NewPostgres(pool)
	userService := services.NewUserService(pg, tokens)
	messagingService := services.NewMessagingService(pg, storage)
	jobService := services.NewJobService(pg, messagingService)

	h := handlers.New(userService, jobService, messagingService, cfg.MaxUploadBytes)

	r := chi.NewRouter()

	r.Use(appMiddleware.Cors(cfg.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.Auth(tokens))

			r.Get("/auth/me", h.Me)

			r.With(appMiddleware.RequireUserType("employer")).
				Get("/users/students", h.ListStudents)

			r.Route("/jobs", func(r chi.Router) {
				r.With(appMiddleware.RequireUserType("student")).
					Post("/applications", h.ApplyForJob)
				r.Get("/applications", h.ListApplications)
				r.With(appMiddleware.RequireUserType("employer")).
					Post("/applications/{applicationID}/accept", h.AcceptApplication)
				r.With(appMiddleware.RequireUserType("employer")).
					Post("/applications/{applicationID}/reject", h.RejectApplication)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Get("/conversations", h.ListConversations)
				r.Post("/conversations/start", h.StartConversation)
				r.Get("/conversations/{conversationID}/messages", h.ListMessages)
				r.Post("/conversations/{conversationID}/send", h.SendMessage)
				r.Post("/conversations/{conversationID}/mark-read", h.MarkRead)
				r.Get("/files/{storageKey}", h.DownloadFile)
			})
		})
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server started on %s\n", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %s\n", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	log.Println("Stopping the server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %s\n", err)
	}
	log.Println("Server has been successfully stopped")
}
