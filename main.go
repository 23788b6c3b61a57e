package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/podscribe/backend/internal/api"
	"github.com/podscribe/backend/internal/auth"
	"github.com/podscribe/backend/internal/config"
	"github.com/podscribe/backend/internal/db"
	"github.com/podscribe/backend/internal/metadata"
	"github.com/podscribe/backend/internal/youtube"
)

func main() {
	cfg := config.Load()

	// Ensure data directory exists
	os.MkdirAll(cfg.DataPath, 0755)

	// Initialize database
	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Ensure admin user exists
	if err := database.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Admin user ensured: %s", cfg.AdminUsername)

	// Initialize JWT service
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// The Data API key can come from settings (editable at runtime) or the
	// environment; the settings value wins when present.
	apiKey := func() string {
		return database.GetSetting("youtube_api_key", cfg.YouTubeAPIKey)
	}

	ytClient := youtube.NewClient(youtube.WithAPIKeyResolver(apiKey))
	metaService := metadata.NewService(database, apiKey)

	// Create router
	router := api.NewRouter(database, jwtService, cfg, ytClient, metaService)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
