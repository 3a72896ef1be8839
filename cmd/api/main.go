// Command api starts the Scout HTTP API server.
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
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Saul-Punybz/scout/internal/ai"
	"github.com/Saul-Punybz/scout/internal/config"
	"github.com/Saul-Punybz/scout/internal/db"
	"github.com/Saul-Punybz/scout/internal/handlers"
	"github.com/Saul-Punybz/scout/internal/lookup"
	"github.com/Saul-Punybz/scout/internal/middleware"
	"github.com/Saul-Punybz/scout/internal/models"
	"github.com/Saul-Punybz/scout/internal/news"
	"github.com/Saul-Punybz/scout/internal/scraper"
	"github.com/Saul-Punybz/scout/internal/storage"
)

func main() {
	cfg := config.Load()

	// Structured logging.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Database connection.
	database, err := db.Open(ctx, cfg.DB)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer database.Close()

	// Data stores.
	userStore := models.NewUserStore(database)
	sessionStore := models.NewSessionStore(database)
	historyStore := models.NewHistoryStore(database)
	conversationStore := models.NewConversationStore(database)

	// Outbound clients.
	searcher := scraper.NewWebSearcher(cfg.Search)

	var primary news.Provider
	if cfg.News.GNewsAPIKey != "" {
		primary = news.NewGNewsClient(cfg.News)
	} else {
		slog.Warn("GNEWS_API_KEY not set, news comes from search fallback only")
	}
	aggregator := news.NewAggregator(primary, searcher)

	if cfg.Gemini.APIKey == "" {
		slog.Warn("GEMINI_API_KEY not set, summaries will carry an error placeholder")
	}
	summarizer := ai.NewSummarizer(ai.NewGeminiClient(cfg.Gemini))

	deps := lookup.Deps{
		Search:     searcher,
		News:       aggregator,
		Summarizer: summarizer,
		History:    historyStore,
	}

	// S3 storage client (evidence archive).
	storageClient, err := storage.NewClient(ctx, cfg.S3)
	if err != nil {
		slog.Warn("S3 storage not available, lookups will not be archived", "err", err)
	} else if storageClient.Configured() {
		deps.Archive = storageClient
	}
	lookupService := lookup.New(deps)

	// Handlers.
	lookupHandler := &handlers.LookupHandler{
		Lookup:  lookupService,
		History: historyStore,
	}
	authHandler := &handlers.AuthHandler{
		Users:    userStore,
		Sessions: sessionStore,
	}
	conversationHandler := &handlers.ConversationHandler{
		Conversations: conversationStore,
	}
	healthHandler := &handlers.HealthHandler{DB: database}

	// The request deadline covers every outbound step of a lookup plus rate
	// limiter waits; the server write deadline sits beyond it.
	requestTimeout := cfg.LookupBudget() + 20*time.Second

	// Router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.OptionalSession(sessionStore, userStore))

	// Public routes; guests are allowed and recorded with no user.
	r.Get("/", handlers.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/search_companies", lookupHandler.SearchCompanies)
	r.Get("/company_info", lookupHandler.CompanyInfo)
	r.Get("/history", lookupHandler.History)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Get("/conversations", conversationHandler.ListConversations)
		r.Post("/conversations", conversationHandler.CreateConversation)
		r.Get("/conversations/{id}", conversationHandler.GetConversation)
		r.Post("/conversations/{id}/messages", conversationHandler.AppendMessage)
	})

	// Start server.
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", addr, "db", database.Dialect, "model", summarizer.Model())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}

	slog.Info("server stopped")
}
