package main

import (
	"flag"
	"os"

	"github.com/keaz/qtable/internal/adminhttp"
	"github.com/keaz/qtable/internal/config"
	"github.com/keaz/qtable/internal/housekeeping"
	"github.com/keaz/qtable/internal/logging"
	"github.com/keaz/qtable/internal/registry"
	"github.com/keaz/qtable/internal/server"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config-path", config.DefaultPath, "path to the qtable TOML config file")
	flag.Parse()

	log, err := logging.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log = log.Named("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load configuration", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		log.Fatal("could not create data path", zap.String("data_path", cfg.DataPath), zap.Error(err))
	}

	reg, err := registry.LoadAll(cfg.DataPath, log)
	if err != nil {
		log.Fatal("could not load databases", zap.Error(err))
	}

	sweeper := housekeeping.New(reg, log)
	if err := sweeper.Start(); err != nil {
		log.Fatal("could not start housekeeping", zap.Error(err))
	}
	defer sweeper.Stop()

	go func() {
		router := adminhttp.NewRouter(reg, log)
		log.Info("admin HTTP surface listening", zap.String("addr", cfg.AdminAddr))
		if err := router.Run(cfg.AdminAddr); err != nil {
			log.Error("admin HTTP surface stopped", zap.Error(err))
		}
	}()

	srv, err := server.New(reg, cfg.Port, cfg.Workers, log)
	if err != nil {
		log.Fatal("could not build server", zap.Error(err))
	}

	log.Info("starting qtable", zap.String("data_path", cfg.DataPath), zap.Int("port", cfg.Port), zap.Int("workers", cfg.Workers))
	if err := srv.Run(); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
