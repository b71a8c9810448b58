package main

import (
	"context"
	"log"

	"github.com/dealerdesk/dealerdesk/internal/server"
	"github.com/dealerdesk/dealerdesk/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("app init error: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("app error: %v", err)
	}
}
