package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/OnpreeyaMi/project-sa-sub000/internal/config"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/database"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/router"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, database.New(pool), pool, hub)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
