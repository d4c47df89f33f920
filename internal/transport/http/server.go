package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lumagram/internal/auth"
	"lumagram/internal/config"
	"lumagram/internal/database"
	"lumagram/internal/handler"
	"lumagram/internal/logger"
	"lumagram/internal/repository"
	"lumagram/internal/service"
)

// Run wires the application together and serves HTTP until interrupted.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	tokens := auth.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMaxAge)*time.Second)

	mediaService, err := service.NewMediaService(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create media service: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	userService := service.NewUserService(userRepo, followRepo)
	followService := service.NewFollowService(followRepo, userRepo)
	postService := service.NewPostService(postRepo, userRepo, followRepo, mediaService)
	commentService := service.NewCommentService(commentRepo, postRepo)

	router := NewRouter(RouterConfig{
		AuthHandler:    handler.NewAuthHandler(userService, tokens, cfg),
		UserHandler:    handler.NewUserHandler(userService, mediaService, cfg.DefaultAvatarKey),
		FollowHandler:  handler.NewFollowHandler(followService),
		PostHandler:    handler.NewPostHandler(postService, mediaService),
		CommentHandler: handler.NewCommentHandler(commentService),
		TokenVerifier:  tokens,
	})

	server := &stdhttp.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infow("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		logger.Log.Infow("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
