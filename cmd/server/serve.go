package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/database"
	"github.com/AnshRaj112/skillswap-backend/internal/handlers"
	"github.com/AnshRaj112/skillswap-backend/internal/metrics"
	"github.com/AnshRaj112/skillswap-backend/internal/middleware"
	"github.com/AnshRaj112/skillswap-backend/internal/routes"
	"github.com/AnshRaj112/skillswap-backend/internal/services"
	"github.com/AnshRaj112/skillswap-backend/pkg/clientip"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	proxies, err := clientip.NewResolver(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	clientip.Use(proxies)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := database.Connect(ctx, cfg.MongoURI, logger)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer database.Disconnect(client)

	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI, logger)
	if err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	defer rdb.Close()

	userStore := services.NewUserStore(db)
	chatStore := services.NewChatStore(db)
	if err := ensureIndexes(ctx, userStore, chatStore); err != nil {
		logger.Warn("failed to ensure MongoDB indexes", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	sanitizer := services.NewSanitizer()
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, rdb)
	profiles := services.NewProfileCache(rdb, services.DefaultCacheTTL)
	authService := services.NewAuthService(userStore, tokens, profiles, sanitizer, rec, logger)
	userService := services.NewUserService(userStore, profiles, sanitizer, logger)

	hub := services.NewChatHub(rdb, logger)
	chatService := services.NewChatService(chatStore, hub, sanitizer, rec, logger)

	var uploader services.PhotoUploader
	if cfg.HasCloudinary() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			logger.Warn("failed to initialize Cloudinary, photo uploads disabled", zap.Error(err))
		} else {
			uploader = cld
			logger.Info("Cloudinary service initialized")
		}
	} else {
		logger.Warn("Cloudinary credentials not found, photo uploads disabled")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(rec))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		logger.Info("production security enabled")
	} else {
		r.Use(middleware.NewRateLimiter(rdb, logger).Middleware)
	}

	chatHandler := handlers.NewChatHandler(chatService, userService, hub, rec, cfg.AllowedOrigins, logger)
	routes.SetupRoutes(r, routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService, logger),
		Users:   handlers.NewUserHandler(userService, logger),
		Photos:  handlers.NewPhotoHandler(uploader, userService, logger),
		Chats:   chatHandler,
		Health:  healthHandler(client, rdb),
		Metrics: metrics.Handler(reg),
	}, authService)

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()
	select {
	case <-hub.Ready():
	case <-time.After(5 * time.Second):
		logger.Warn("chat subscriber not ready, live updates start once Redis answers")
	case <-ctx.Done():
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// hijacked websocket connections are not tracked by Shutdown
	srv.RegisterOnShutdown(chatHandler.Shutdown)
	return serve(ctx, srv, logger, hubDone)
}

// serve runs srv until ctx is cancelled, then drains it.
func serve(ctx context.Context, srv *http.Server, logger *zap.Logger, background ...<-chan struct{}) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("SkillSwap backend running", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	for _, done := range background {
		<-done
	}
	return err
}

func healthHandler(client *mongo.Client, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx, nil); err != nil {
			http.Error(w, "mongo unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("OK"))
	}
}

func runIndexes(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, db, err := database.Connect(cmd.Context(), cfg.MongoURI, logger)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer database.Disconnect(client)

	if err := ensureIndexes(cmd.Context(), services.NewUserStore(db), services.NewChatStore(db)); err != nil {
		return err
	}
	logger.Info("MongoDB indexes ensured")
	return nil
}

func ensureIndexes(ctx context.Context, users *services.UserStore, chats *services.ChatStore) error {
	if err := users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	if err := chats.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("chat indexes: %w", err)
	}
	return nil
}
