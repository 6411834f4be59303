package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	"tripchat/chat"
	controller "tripchat/controllers"
	"tripchat/middleware"
)

// Services bundles everything the HTTP layer needs. main builds it once after
// wiring the store, registries and hub together.
type Services struct {
	Roles    *chat.RoleRegistry
	Admins   *chat.AdminRegistry
	Channels *chat.ChannelRegistry
	Messages *chat.MessageService
	Unread   *chat.ReadTracker
	Stream   chat.StreamSource
}

func SetupAPIRoutes(app *fiber.App, svc *Services) {
	roleController := controller.NewRoleController(svc.Roles, log.New(os.Stdout, "ROLE: ", log.LstdFlags))
	adminController := controller.NewAdminController(svc.Admins, log.New(os.Stdout, "ADMIN: ", log.LstdFlags))
	channelController := controller.NewChannelController(svc.Channels, log.New(os.Stdout, "CHANNEL: ", log.LstdFlags))
	messageController := controller.NewMessageController(svc.Messages, log.New(os.Stdout, "MESSAGE: ", log.LstdFlags))
	unreadController := controller.NewUnreadController(svc.Unread, log.New(os.Stdout, "UNREAD: ", log.LstdFlags))
	wsController := controller.NewMessageWSController(svc.Stream, log.New(os.Stdout, "WS: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Role routes
	trip := api.Group("/trips/:tripID")
	trip.Post("/roles", roleController.CreateRole)
	trip.Get("/roles", roleController.ListRoles)
	trip.Delete("/roles/:roleID", roleController.DeleteRole)
	trip.Post("/assignments", roleController.AssignRole)
	trip.Get("/assignments", roleController.ListAssignments)
	trip.Delete("/assignments/:userID/:roleID", roleController.RevokeRole)
	trip.Get("/my-role", roleController.GetMyRole)

	// Admin grant routes
	trip.Post("/admins", adminController.GrantAdmin)
	trip.Get("/admins", adminController.ListAdmins)
	trip.Delete("/admins/:userID", adminController.RevokeAdmin)
	trip.Get("/my-permissions", adminController.GetMyPermissions)

	// Channel routes
	trip.Post("/channels", channelController.CreateChannel)
	trip.Get("/channels", channelController.ListAccessible)
	trip.Get("/channels/all", channelController.ListAll)
	trip.Get("/unread", unreadController.GetTripUnread)

	channel := api.Group("/channels/:channelID")
	channel.Get("/", channelController.GetChannel)
	channel.Put("/", channelController.UpdateChannel)
	channel.Post("/archive", channelController.ArchiveChannel)

	// Message routes, send is rate limited per user+channel
	channel.Post("/messages", middleware.SendRateLimiter(), messageController.SendMessage)
	channel.Get("/messages", messageController.GetHistory)
	channel.Put("/messages/:messageID", messageController.EditMessage)
	channel.Delete("/messages/:messageID", messageController.DeleteMessage)

	// Read watermark routes
	channel.Post("/read", unreadController.MarkRead)
	channel.Get("/unread", unreadController.GetChannelUnread)

	// WebSocket route for live channel streams. The upgrade check rejects
	// plain HTTP requests before they reach the websocket handler.
	app.Use("/api/v1/channels/:channelID/stream", middleware.Protected(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/api/v1/channels/:channelID/stream", websocket.New(wsController.HandleChannelStream))

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, svc *Services) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAPIRoutes(app, svc)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
