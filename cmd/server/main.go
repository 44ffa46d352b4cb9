package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/stagehand/showcall/internal/broadcast"
	"github.com/stagehand/showcall/internal/config"
	"github.com/stagehand/showcall/internal/coordinator"
	"github.com/stagehand/showcall/internal/database"
	"github.com/stagehand/showcall/internal/handler"
	"github.com/stagehand/showcall/internal/middleware"
	"github.com/stagehand/showcall/internal/queue"
	"github.com/stagehand/showcall/internal/repository"
	"github.com/stagehand/showcall/internal/router"
	queue_publisher "github.com/stagehand/showcall/internal/service"
)

func main() {
	_ = godotenv.Load() // load .env when present; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	runsheetRepo := repository.NewRunsheetRepo(db)
	cueRepo := repository.NewCueRepo(db)
	logRepo := repository.NewShowCallLogRepo(db)
	store := repository.NewStore(db, runsheetRepo, cueRepo, logRepo)

	hub := broadcast.NewHub()
	coord := coordinator.New(store, hub)

	// Redis is optional: without it schedule reads are simply uncached.
	cacheCfg := config.LoadCacheConfig()
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; schedule caching disabled")
	} else {
		coord.Invalidate = func(runsheetID uint64) {
			middleware.InvalidateRunsheet(rdb, cacheCfg.Prefix, runsheetID)
		}
	}

	// Mirror committed calls to the broker for external consumers.
	// Publishing is best-effort by design; the database has already
	// committed and stays authoritative.
	coord.Mirror = func(ctx context.Context, res coordinator.CallResult) {
		ev := queue.ShowCallCommittedEvent{
			RunsheetID: res.Entry.RunsheetID,
			Action:     res.Entry.Action,
			ActorID:    res.Entry.ActorID,
			ActorName:  res.Entry.ActorName,
			CalledAt:   res.Entry.CreatedAt.UTC().Format(time.RFC3339),
		}
		if res.Runsheet != nil {
			ev.RunsheetName = res.Runsheet.Name
			ev.Status = res.Runsheet.Status
		}
		if res.Cue != nil {
			ev.CueID = &res.Cue.ID
			ev.CueTitle = res.Cue.Title
			ev.Status = res.Cue.Status
		}
		if res.Entry.Notes != nil {
			ev.Notes = *res.Entry.Notes
		}
		_ = queue_publisher.PublishShowCallCommitted(ctx, ev)
	}

	// Background consumer feeding the external audit trail file.
	go func() {
		if err := queue.StartShowCallConsumer(); err != nil {
			log.Printf("showcall-consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	rh := handler.NewRunsheetHandler(runsheetRepo, cueRepo, logRepo, coord, cfg.LogLimit)
	sh := handler.NewStreamHandler(runsheetRepo, hub)
	router.RegisterRunsheets(e, rh, sh, cfg.JWTSecret, middleware.NewRunsheetCache(cacheCfg, rdb))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
