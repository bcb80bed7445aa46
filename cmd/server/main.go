package main

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/config"
	"github.com/tulgax/studio-booking/internal/database"
	"github.com/tulgax/studio-booking/internal/handler"
	appmw "github.com/tulgax/studio-booking/internal/middleware"
	"github.com/tulgax/studio-booking/internal/queue"
	"github.com/tulgax/studio-booking/internal/repository"
	"github.com/tulgax/studio-booking/internal/router"
	"github.com/tulgax/studio-booking/internal/service"
)

// requestValidator adapts go-playground/validator to Echo's Validator
// interface so handlers can call c.Validate on bound DTOs.
type requestValidator struct {
	validate *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.validate.Struct(i)
}

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	studios := repository.NewStudioRepo(db)
	classes := repository.NewClassRepo(db)
	rules := repository.NewRuleRepo(db)
	instances := repository.NewInstanceRepo(db)
	bookings := repository.NewBookingRepo(db)
	plans := repository.NewPlanRepo(db)
	memberships := repository.NewMembershipRepo(db)
	checkins := repository.NewCheckInRepo(db)

	// Services
	scheduling := service.NewSchedulingService(classes, studios, rules, instances, nil)
	booking := service.NewBookingService(bookings, instances, nil)
	membership := service.NewMembershipService(plans, memberships, checkins, studios, nil)

	// Handlers
	authH := handler.NewAuthHandler(cfg, users, tokens)
	operatorH := handler.NewOperatorHandler(studios, classes, rules, instances, bookings, plans, memberships, checkins, scheduling, membership)
	studentH := handler.NewStudentHandler(booking, membership, bookings, instances, classes, studios, memberships)
	publicH := handler.NewPublicHandler(studios, classes, instances, plans)

	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Redis backs the rate limiter and the public response cache; a
	// nil client disables both and the API keeps working.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}
	e.Use(appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, studentH, appmw.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterOperator(e, operatorH, cfg.JWTSecret)
	router.RegisterStudent(e, studentH, cfg.JWTSecret)

	// Event consumers append audit lines under logs/.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartCheckInConsumer(); err != nil {
			log.Printf("checkin consumer stopped: %v", err)
		}
	}()

	// Periodic stale-membership sweep. Also exposed as an operator
	// endpoint for on-demand runs.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := membership.ExpireStale(ctx)
			cancel()
			if err != nil {
				log.Printf("membership sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("membership sweep expired %d memberships", n)
			}
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
