package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gongmoju-info/gongmoju-backend/config"
	"github.com/gongmoju-info/gongmoju-backend/database"
	"github.com/gongmoju-info/gongmoju-backend/handlers"
	"github.com/gongmoju-info/gongmoju-backend/jobs"
	"github.com/gongmoju-info/gongmoju-backend/services"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	if err := database.Connect(cfg.DatabaseURL); err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate("database/schema.sql"); err != nil {
		logrus.Warnf("Migration warning: %v", err)
	}

	// Services
	crawlerConfig := services.NewDefaultCrawlerConfiguration()
	crawlerConfig.BaseURL = cfg.CrawlBaseURL
	crawlerConfig.ListURL = cfg.CrawlListURL
	crawlerConfig.PolitenessDelay = cfg.PolitenessDelay
	crawlerConfig.MaxRetryAttempts = cfg.CrawlMaxRetries

	ipoService := services.NewIPOService(database.DB)
	crawlerService := services.NewCrawlerService(crawlerConfig, ipoService)
	mailService := services.NewMailService(services.SMTPConfig{
		Server:       cfg.SMTPServer,
		Port:         cfg.SMTPPort,
		EmailAddress: cfg.SMTPEmail,
		Password:     cfg.SMTPPassword,
	})
	subscriberService := services.NewSubscriberService(database.DB, mailService)

	// Jobs
	crawlJob := jobs.NewDailyCrawlJob(crawlerService)
	reportJob := jobs.NewWeeklyReportJob(ipoService, subscriberService, mailService, cfg.AppBaseURL)

	go func() {
		// One crawl on startup so a fresh deployment has data.
		go crawlJob.Run()

		dailyTicker := time.NewTicker(24 * time.Hour)
		weeklyTicker := time.NewTicker(7 * 24 * time.Hour)

		for {
			select {
			case <-dailyTicker.C:
				crawlJob.Run()
			case <-weeklyTicker.C:
				reportJob.Run()
			}
		}
	}()

	// Handlers
	ipoHandler := handlers.NewIPOHandler(ipoService)
	crawlerHandler := handlers.NewCrawlerHandler(crawlJob)
	subscriberHandler := handlers.NewSubscriberHandler(subscriberService)

	app := fiber.New()
	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := database.HealthCheck(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	api := app.Group("/api/v1")

	api.Get("/ipos", ipoHandler.GetIPOs)
	api.Get("/ipos/:name", ipoHandler.GetIPOByName)

	api.Post("/crawler/run", crawlerHandler.TriggerCrawl)

	// Mail-sending endpoints are throttled per client.
	mailLimiter := limiter.New(limiter.Config{
		Max:        3,
		Expiration: 1 * time.Minute,
	})
	api.Post("/subscribers", mailLimiter, subscriberHandler.RequestVerification)
	api.Post("/subscribers/verify", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
	}), subscriberHandler.VerifyCode)
	api.Get("/subscribers/unsubscribe", subscriberHandler.Unsubscribe)

	logrus.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logrus.Fatalf("Server failed to start: %v", err)
	}
}
