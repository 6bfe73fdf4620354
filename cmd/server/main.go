package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pressly/goose/v3"

	"github.com/amodallal/fishing-backend/internal/cache"
	"github.com/amodallal/fishing-backend/internal/config"
	"github.com/amodallal/fishing-backend/internal/database"
	"github.com/amodallal/fishing-backend/internal/email"
	"github.com/amodallal/fishing-backend/internal/handler"
	"github.com/amodallal/fishing-backend/internal/queue"
	"github.com/amodallal/fishing-backend/internal/repository"
	"github.com/amodallal/fishing-backend/internal/router"
	"github.com/amodallal/fishing-backend/internal/service"
	"github.com/amodallal/fishing-backend/migrations"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("mysql"); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	if err := goose.Up(db, "."); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	// nil when Redis is unreachable; cache and limiter degrade gracefully
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, trip cache and rate limiter disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	boats := repository.NewBoatRepo(db)
	trips := repository.NewTripRepo(db)
	reservations := repository.NewReservationRepo(db)

	publisher := queue.NewPublisher(cfg.AMQPURL)
	engine := service.NewAdmissionEngine(trips, publisher, cfg.MaxBookingSeats)

	cacheCfg := config.LoadCacheConfig()
	var tripCache *cache.TripCache
	if cacheCfg.Enabled {
		tripCache = cache.NewTripCache(rdb, cacheCfg.TTL)
	}

	mailer := email.NewMailer(cfg.SMTP)
	go queue.StartNotificationConsumer(cfg.AMQPURL, mailer)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, users, tokens),
		Boats:        handler.NewBoatHandler(boats),
		Trips:        handler.NewTripHandler(trips, boats, reservations, engine, tripCache),
		Reservations: handler.NewReservationHandler(engine, reservations, tripCache),
	}, cfg.JWTSecret, rdb, config.LoadRateLimitConfig())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
