package main

import (
	"context"
	"log"
	"os"

	"github.com/david/keyword-scout/internal/api"
	"github.com/david/keyword-scout/internal/db"
	"github.com/david/keyword-scout/internal/research"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	registry, err := research.LoadRegistry("internal/research/config/profiles.yaml")
	if err != nil {
		log.Fatalf("Failed to load research profiles: %v", err)
	}

	srv := api.NewServer(pool, registry)
	log.Printf("Server starting on port %s...", port)
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}
