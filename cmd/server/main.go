package main

import (
	_ "time/tzdata"

	"stok-takip/internal/config"
	"stok-takip/internal/database"
	"stok-takip/internal/logger"
	"stok-takip/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	})
	defer logger.Sync()

	database.Init(cfg)

	app := server.NewApp(cfg)

	log.Info("server listening", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
