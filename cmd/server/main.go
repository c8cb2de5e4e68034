package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/movie-ticket-shop/internal/auth"
	"github.com/iliyamo/movie-ticket-shop/internal/config"
	"github.com/iliyamo/movie-ticket-shop/internal/database"
	"github.com/iliyamo/movie-ticket-shop/internal/handler"
	"github.com/iliyamo/movie-ticket-shop/internal/middleware"
	"github.com/iliyamo/movie-ticket-shop/internal/queue"
	"github.com/iliyamo/movie-ticket-shop/internal/repository"
	"github.com/iliyamo/movie-ticket-shop/internal/router"
	"github.com/iliyamo/movie-ticket-shop/internal/service"
	"github.com/iliyamo/movie-ticket-shop/internal/token"
	"github.com/iliyamo/movie-ticket-shop/internal/view"
)

func main() {
	_ = godotenv.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ticket-shop",
	})

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database connection failed", "err", err)
	}
	defer db.Close()

	movieRepo := repository.NewMovieRepo(db)
	ticketRepo := repository.NewTicketRepo(db)

	codec := token.NewCodec(cfg.TokenSecret)
	provider := auth.New(cfg, logger)
	guard := auth.NewAPIGuard(cfg, logger)
	shop := service.NewTicketService(ticketRepo, movieRepo, cfg.BaseURL, logger)

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, response cache and rate limiting disabled")
	}
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	purchaseLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	renderer, err := view.NewRenderer()
	if err != nil {
		logger.Fatal("template parsing failed", "err", err)
	}

	pages := handler.NewPageHandler(movieRepo, ticketRepo, shop, codec, cfg.BaseURL, cfg.Env == "prod", logger)
	api := handler.NewAPIHandler(movieRepo, shop, logger)

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Use(echomw.Recover())
	e.Use(middleware.ResolveIdentity(provider, codec))

	router.RegisterRoutes(e)
	router.RegisterPages(e, pages, provider, purchaseLimit)
	router.RegisterAPI(e, api, guard, cacheMW, purchaseLimit)

	go queue.StartTicketConsumer(logger)

	logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
}
