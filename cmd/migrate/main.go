package main

import (
	"context" // Seeding context
	"flag"    // Command line flags

	"ajosave/internal/config" // Custom import path (Config)
	"ajosave/internal/db"     // Custom import path (Database)
	"ajosave/internal/store"  // Persistence

	"github.com/sirupsen/logrus" // Logging
)

// Main entry point for migration
func main() {
	seed := flag.Bool("seed", true, "upsert the plan catalog after migrating")
	flag.Parse()

	cfg := config.LoadConfig() // Load configuration
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	gdb, err := db.Open(cfg.DSN(), false)
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatal(err)
	}
	if !*seed {
		return
	}
	cat, err := db.LoadCatalog(cfg.PlanCatalogPath)
	if err != nil {
		logrus.Fatalf("failed to load plan catalog: %v", err)
	}
	if err := cat.Seed(context.Background(), store.New(gdb)); err != nil {
		logrus.Fatal(err)
	}
	logrus.WithField("plan_types", len(cat.PlanTypes)).Info("Plan catalog seeded.")
}
