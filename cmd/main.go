package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"metrics-query-service/internal/config"
	"metrics-query-service/internal/controller"
	"metrics-query-service/internal/db"
	httpserver "metrics-query-service/internal/http"
	"metrics-query-service/internal/logger"
	"metrics-query-service/internal/repository"
	"metrics-query-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg, err := logger.New(cfg.AppMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.NewConnection(ctx, cfg)
	if err != nil {
		logg.Fatalf("connect clickhouse: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn); err != nil {
		logg.Fatalf("migrate: %v", err)
	}

	executor := repository.NewClickHouseExecutor(conn, logg)
	queryService := service.NewQueryService(executor, logg)
	queryController := controller.NewQueryController(queryService)

	server := httpserver.NewServer(cfg, queryController)

	logg.Infof("starting server on %s", cfg.HTTPPort)
	if err := server.Listen(cfg.HTTPPort); err != nil {
		logg.Fatalf("server stopped: %v", err)
	}
}
