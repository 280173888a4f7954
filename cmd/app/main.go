package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"BitLearn/internal/di"
	"BitLearn/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	checkOnly := flag.Bool("check", false, "validate the config and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *checkOnly {
		fmt.Printf("config ok: env=%s cloud=%s collect=%s train=%s sync=%s\n",
			cfg.Environment, cfg.Cloud.Backend, cfg.Engine.DataCollectionInterval,
			cfg.Engine.TrainingInterval, cfg.Engine.CloudSyncInterval)
		return
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Blocks until SIGINT/SIGTERM; the engine pushes its state on the way out.
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
