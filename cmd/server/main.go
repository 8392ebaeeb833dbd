package main

import (
	"log"
	"time"

	"github.com/jengzang/timeline-core/internal/api"
	"github.com/jengzang/timeline-core/internal/changebus"
	"github.com/jengzang/timeline-core/internal/config"
	"github.com/jengzang/timeline-core/internal/database"
	"github.com/jengzang/timeline-core/internal/handler"
	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/observer"
	"github.com/jengzang/timeline-core/internal/repository"
	"github.com/jengzang/timeline-core/internal/service"
	"github.com/jengzang/timeline-core/internal/timeline"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	migrator := database.NewMigrationManager(db, cfg.MigrationsPath)
	if err := migrator.RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	repo := repository.NewTimelineRepository(db.Conn())
	bus := changebus.New(32)
	processor := timeline.NewProcessor(db, repo, bus)

	registry := observer.NewRegistry()
	defer registry.CloseAll()
	now := time.Now()
	registry.Open(models.DateInterval{Start: now.Add(-48 * time.Hour), End: now.Add(time.Hour)}, true, observer.Deps{
		Repo:           repo,
		Bus:            bus,
		Processor:      processor,
		Foreground:     observer.AlwaysForeground{},
		DebounceWindow: cfg.DebounceWindow,
	})

	timelineService := service.NewTimelineService(repo, processor)
	timelineHandler := handler.NewTimelineHandler(timelineService)

	router := api.SetupRouter(cfg, timelineHandler)

	log.Printf("[main] change bus ready, processor wired, rolling segment watching, server starting on %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
