// Command agora-devapi serves a sqlite-backed copy of the feed API with
// generated content, for running the client without a real backend.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agora/internal/apitest"
	"agora/internal/config"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	prom := fiberprometheus.New("agora-devapi")
	srv, err := apitest.NewServer(apitest.Config{
		Secret:     cfg.DevAPISecret,
		Middleware: []fiber.Handler{prom.Middleware},
		Database:   cfg.DevAPIDatabase,
	})
	if err != nil {
		log.Fatalf("Failed to open dev API database: %v", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Printf("Failed to close dev API database: %v", err)
		}
	}()

	if err := srv.AddStaff("admin", "admin"); err != nil {
		log.Fatalf("Failed to create staff account: %v", err)
	}
	// a file database keeps its content across restarts
	if n, err := srv.PostCount(); err != nil {
		log.Fatalf("Failed to count posts: %v", err)
	} else if n == 0 {
		if err := srv.Seed(apitest.SeedOptions{Posts: cfg.DevAPISeedPosts}); err != nil {
			log.Fatalf("Failed to seed posts: %v", err)
		}
	}

	app := srv.App()
	prom.RegisterAt(app, "/metrics")

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down dev API...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Dev API shutdown error: %v", err)
		}
	}()

	log.Printf("Dev API listening on :%s (staff login admin/admin)", cfg.DevAPIPort)
	if err := app.Listen(":" + cfg.DevAPIPort); err != nil {
		log.Fatal(err)
	}
}
