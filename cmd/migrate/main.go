package main

import (
	"flag"
	"log"

	"github.com/humanbelnik/soundbyte/internal/config"
	"github.com/humanbelnik/soundbyte/internal/infra/postgres/migrations"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying")
	cfg := config.Load()

	if *down > 0 {
		if err := migrations.Down(cfg.Postgres.URL(), *down); err != nil {
			log.Fatalf("database rollback failed: %v", err)
		}
		log.Printf("rolled back %d migrations", *down)
		return
	}

	if err := migrations.Up(cfg.Postgres.URL()); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Println("database migrations applied")
}
