package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/skywatch/drone-investigations/internal/config"
	"github.com/skywatch/drone-investigations/internal/database"
	"github.com/skywatch/drone-investigations/internal/handler"
	"github.com/skywatch/drone-investigations/internal/queue"
	"github.com/skywatch/drone-investigations/internal/repository"
	"github.com/skywatch/drone-investigations/internal/router"
	"github.com/skywatch/drone-investigations/internal/upload"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	accounts := repository.NewAccountRepo(db)
	invs := repository.NewInvestigationRepo(db)
	reports := repository.NewReportRepo(db)
	feed := repository.NewFeedRepo(db)

	// Upload files are written before the DB row referencing them is
	// committed, so a failed commit can strand a file. Sweep those at
	// startup.
	reapOrphans(cfg.UploadDir, accounts, invs)

	// Redis backs the feed cache and the auth rate limiter; nil client
	// just disables both.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}

	// The feed consumer turns activity events into global feed items.
	if cfg.BrokerURL != "" {
		go func() {
			if err := queue.StartFeedConsumer(cfg.BrokerURL, feed); err != nil {
				log.Printf("feed consumer stopped: %v", err)
			}
		}()
	} else {
		log.Printf("RABBITMQ_URL not set; activity feed pipeline disabled")
	}

	e := echo.New()
	e.Static("/static/uploads", cfg.UploadDir)

	router.Register(e, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, accounts, invs, reports, feed),
		Profile:       handler.NewProfileHandler(cfg, accounts),
		Investigation: handler.NewInvestigationHandler(cfg, invs),
		Dashboard:     handler.NewDashboardHandler(invs, reports, feed),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// reapOrphans collects every picture reference still held by a row and
// removes unreferenced files from the upload dir.
func reapOrphans(dir string, accounts *repository.AccountRepo, invs *repository.InvestigationRepo) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	avatars, err := accounts.AvatarRefs(ctx)
	if err != nil {
		log.Printf("orphan sweep: list avatars: %v", err)
		return
	}
	photos, err := invs.PhotoRefs(ctx)
	if err != nil {
		log.Printf("orphan sweep: list photos: %v", err)
		return
	}
	removed, err := upload.ReapOrphans(dir, append(avatars, photos...))
	if err != nil {
		log.Printf("orphan sweep: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("orphan sweep: removed %d stale upload(s)", removed)
	}
}
