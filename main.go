package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"palaver/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.palaver/config.json)")
	flag.Parse()

	var loader *config.Loader
	if *configPath != "" {
		loader = config.NewLoaderAt(*configPath)
	} else {
		var err error
		loader, err = config.NewLoader()
		if err != nil {
			log.Fatalf("config loader: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := NewApp()
	if err := app.startup(ctx, loader); err != nil {
		log.Fatalf("startup: %v", err)
	}

	<-ctx.Done()
	log.Println("[app] shutting down")
	app.shutdown()
}
