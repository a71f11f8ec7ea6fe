package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"algoarena/internal/api"
	"algoarena/internal/app/service"
	"algoarena/internal/common/security"
	"algoarena/internal/domain/repository"
	"algoarena/internal/judge"
	"algoarena/internal/platform/cache"
	"algoarena/internal/platform/config"
	"algoarena/internal/platform/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Logger
	logger := newLogger(cfg)
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("env", cfg.AppEnv))

	// 3. Sessions
	sessions := security.NewSessionManager(cfg.JWTKey)

	// 4. Database
	db, err := database.Connect(cfg.DBConnStr)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database connected")

	// 5. Redis read cache
	rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer rdb.Close()
	problemCache := cache.New(rdb, cfg.CacheTTL)
	logger.Info("redis connected")

	// 6. Judge client
	judgeClient := judge.NewHTTPClient(judge.Options{
		BaseURL:      cfg.JudgeURL,
		AuthToken:    cfg.JudgeAuthToken,
		MaxBatchSize: cfg.JudgeBatchSize,
		PollInterval: cfg.JudgePollInterval,
		PollTimeout:  cfg.JudgePollTimeout,
	}, logger.Named("judge"))

	// 7. Repositories
	userRepo := repository.NewPgUserRepository(db)
	problemRepo := repository.NewPgProblemRepository(db)
	submissionRepo := repository.NewPgSubmissionRepository(db)

	// 8. Services
	authService := service.NewAuthService(userRepo, sessions, logger.Named("auth"))
	problemService := service.NewProblemService(problemRepo, judgeClient, problemCache, logger.Named("problems"))
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, judgeClient, logger.Named("submissions"))

	// 9. Router & HTTP Server
	router := api.NewRouter(sessions, userRepo, authService, problemService, submissionService, !cfg.IsDevelopment())

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // validation runs wait on judge polling
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-stop // Wait for interrupt signal

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var logger *zap.Logger
	var err error
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
