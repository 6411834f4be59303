package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"tripchat/chat"
	"tripchat/config"
	"tripchat/middleware"
	"tripchat/routes"
	"tripchat/store/gormstore"
	"tripchat/store/memstore"
	"tripchat/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "SERVER: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if dsn := config.AppConfig.SentryDSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Pick the store: seeded in-memory fixtures in demo mode, Postgres
	// otherwise.
	var store chat.Store
	if config.AppConfig.DemoMode {
		mem := memstore.New()
		if _, err := memstore.Seed(mem); err != nil {
			logger.Fatalf("Failed to seed demo data: %v", err)
		}
		store = mem
		logger.Println("Demo mode: serving seeded in-memory data")
	} else {
		if err := config.ConnectDB(); err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		store = gormstore.New(config.DB)
	}

	// Wire the registries and the fan-out hub together. The hub checks
	// access through the channel registry, and the registries notify the
	// hub after commits that can revoke access.
	admins := chat.NewAdminRegistry(store, log.New(os.Stdout, "ADMIN: ", log.LstdFlags))
	channels := chat.NewChannelRegistry(store, admins, log.New(os.Stdout, "CHANNEL: ", log.LstdFlags))
	roles := chat.NewRoleRegistry(store, admins, log.New(os.Stdout, "ROLE: ", log.LstdFlags))
	hub := chat.NewHub(channels, config.AppConfig.SubscriberBuffer, log.New(os.Stdout, "HUB: ", log.LstdFlags))
	channels.SetNotifier(hub)
	roles.SetNotifier(hub)
	messages := chat.NewMessageService(store, channels, hub, log.New(os.Stdout, "MESSAGE: ", log.LstdFlags))
	unread := chat.NewReadTracker(store, channels, log.New(os.Stdout, "UNREAD: ", log.LstdFlags))

	var stream chat.StreamSource = hub
	if config.AppConfig.StreamTransport == "poll" {
		interval := time.Duration(config.AppConfig.PollIntervalSeconds) * time.Second
		stream = chat.NewPoller(store, channels, interval, log.New(os.Stdout, "POLL: ", log.LstdFlags))
		logger.Println("Stream transport: store polling")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic access sweep backs up the commit-time notifications.
	go hub.Run(ctx, 30*time.Second)

	if config.AppConfig.MessageRetentionDays > 0 {
		retentionWorker := worker.NewRetentionWorker(store, config.AppConfig.MessageRetentionDays,
			log.New(os.Stdout, "RETENTION: ", log.LstdFlags))
		go retentionWorker.Start(ctx)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(app, &routes.Services{
		Roles:    roles,
		Admins:   admins,
		Channels: channels,
		Messages: messages,
		Unread:   unread,
		Stream:   stream,
	})

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
