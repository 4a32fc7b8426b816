// Command setup creates the database schema. It is idempotent and safe to
// re-run on deploy.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"restaurant-loyalty/internal/config"
	pg "restaurant-loyalty/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	for _, stmt := range pg.Schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Fatalf("setup: %v", err)
		}
	}
	log.Println("schema ready")
}
