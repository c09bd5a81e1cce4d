// Package main is the entry point for the conversational commerce API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/garageconnect/conversational-commerce/internal/cache"
	"github.com/garageconnect/conversational-commerce/internal/cart"
	"github.com/garageconnect/conversational-commerce/internal/catalog"
	"github.com/garageconnect/conversational-commerce/internal/config"
	"github.com/garageconnect/conversational-commerce/internal/conversation"
	"github.com/garageconnect/conversational-commerce/internal/handler"
	"github.com/garageconnect/conversational-commerce/internal/llm"
	"github.com/garageconnect/conversational-commerce/internal/middleware"
	"github.com/garageconnect/conversational-commerce/internal/model"
	natsclient "github.com/garageconnect/conversational-commerce/internal/nats"
	"github.com/garageconnect/conversational-commerce/internal/order"
	"github.com/garageconnect/conversational-commerce/internal/session"
	"github.com/garageconnect/conversational-commerce/internal/store"
	"github.com/garageconnect/conversational-commerce/internal/tools"
	"github.com/garageconnect/conversational-commerce/internal/transport"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
	"github.com/garageconnect/conversational-commerce/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "conversational-commerce", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// NATS is best-effort: the agent answers customers even when the
	// event bus is down.
	var natsClient *natsclient.Client
	var publisher conversation.Publisher
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("NATS unavailable, events disabled", zap.Error(err))
		} else {
			defer natsClient.Close()
			streamManager := natsclient.NewStreamManager(natsClient)
			if err := streamManager.EnsureStream(ctx); err != nil {
				log.Warn("failed to ensure stream, events disabled", zap.Error(err))
			} else {
				publisher = streamManager
			}
		}
	}

	llmClient, err := buildLLMClient(cfg)
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}
	log.Info("LLM client ready",
		zap.String("provider", llmClient.Name()),
		zap.String("model_full", cfg.ModelFull),
		zap.String("model_fast", cfg.ModelFast))

	// Persistence and caches.
	mem := store.NewMemory()

	customerCache := cache.New[*model.Customer]("customer", cfg.CustomerCacheTTL, nil)
	cartCache := cache.New[*model.Cart]("cart", cfg.CartCacheTTL, nil)
	searchCache := cache.New[*catalog.Result]("search", cfg.SearchCacheTTL, nil)

	sweeper := cache.NewSweeper(cfg.CacheSweepEvery, log)
	sweeper.Add(customerCache.Sweep)
	sweeper.Add(cartCache.Sweep)
	sweeper.Add(searchCache.Sweep)
	go sweeper.Run(ctx)

	// Session store: Redis when configured, in-process otherwise.
	var sessions session.Store
	if cfg.RedisURL != "" {
		redisSessions, err := session.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			log.Error("failed to connect to Redis", zap.Error(err))
			os.Exit(1)
		}
		sessions = redisSessions
	} else {
		memSessions := session.NewMemoryStore(cfg.SessionTTL)
		go memSessions.Run(ctx, cfg.CacheSweepEvery)
		sessions = memSessions
	}

	// Services.
	carts := cart.NewService(mem, mem, cartCache, log)
	go carts.RunCleanup(ctx, time.Hour)

	catalogSvc := catalog.NewService(mem, searchCache, log)
	orders := order.NewService(mem, carts, order.NewLinkProvider(cfg.PaymentBaseURL), log)
	dispatcher := tools.NewDispatcher(catalogSvc, carts, orders, mem, customerCache, mem, log)

	engine := conversation.NewEngine(mem, customerCache, carts, orders, catalogSvc, dispatcher, llmClient, publisher, sessions, conversation.Options{
		ModelFull:     cfg.ModelFull,
		ModelFast:     cfg.ModelFast,
		HistoryWindow: cfg.HistoryWindow,
		TurnTimeout:   cfg.TurnTimeout,
		ToolCalling:   cfg.ToolCallingEnabled,
	}, log)

	// Handlers.
	healthHandler := handler.NewHealthHandler(natsClient)
	webhookHandler := handler.NewWebhookHandler(engine, func() bool { return cfg.MaintenanceMode }, log)
	conversationHandler := handler.NewConversationHandler(mem, engine, log)
	orderHandler := handler.NewOrderHandler(orders, mem, transport.NewLogSender(log), log)
	productHandler := handler.NewProductHandler(catalogSvc, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Gateway webhook: rate limited per phone, no JWT.
	r.Route("/webhook", func(r chi.Router) {
		r.Use(middleware.PhoneRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Get("/whatsapp", webhookHandler.Verify)
		r.Post("/whatsapp", webhookHandler.Receive)
	})

	// Back-office API.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RequireScope(middleware.ScopeAdmin))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Post("/close", conversationHandler.Close)
			})
		})

		r.Route("/orders/{number}", func(r chi.Router) {
			r.Get("/", orderHandler.Get)
			r.Patch("/status", orderHandler.UpdateStatus)
			r.Post("/paid", orderHandler.MarkPaid)
		})

		r.Get("/customers/{id}/orders", orderHandler.ListByCustomer)
		r.Get("/products/search", productHandler.Search)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// buildLLMClient picks the provider from configuration, preferring the
// explicitly selected default.
func buildLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.DefaultLLM {
	case "anthropic":
		if cfg.AnthropicAPIKey != "" {
			return llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
		}
	case "openai":
		if cfg.OpenAIAPIKey != "" {
			return llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey)
		}
	}
	if cfg.OpenAIAPIKey != "" {
		return llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey)
	}
	if cfg.AnthropicAPIKey != "" {
		return llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey)
	}
	return nil, fmt.Errorf("no LLM API key configured")
}
