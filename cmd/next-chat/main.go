package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/database"
	"github.com/ashwinyue/next-chat/internal/handler"
	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/metrics"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/router"
	"github.com/ashwinyue/next-chat/internal/service"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.New(cfg.Log)
	defer func() { _ = appLog.Sync() }()

	if err := run(cfg, appLog); err != nil {
		appLog.Error("main", "server exited with error", map[string]any{"error": err})
		_ = appLog.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLog *logger.Logger) error {
	gin.SetMode(cfg.Server.Mode)

	// 初始化数据库
	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	appLog.Info("main", "database connected", map[string]any{"dbname": cfg.Database.DBName})

	// 初始化 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 初始化各层
	repos := repository.NewRepositories(db.DB)
	services, err := service.NewServices(context.Background(), cfg, repos, redisClient, appLog, m)
	if err != nil {
		return err
	}
	handlers := handler.NewHandlers(services, appLog, map[string]handler.HealthCheck{
		"database": db.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	r := router.SetupRouter(handlers, router.Options{
		Logger:         appLog,
		Metrics:        m,
		Gatherer:       reg,
		Tokens:         services.Auth,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("main", "server starting", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	appLog.Info("main", "shutting down server", nil)

	// 优雅关闭，等待进行中的流式响应结束
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	appLog.Info("main", "server exited", nil)
	return nil
}
