package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	controller "libra/controllers"
	"libra/middleware"
	"libra/utils"
	"libra/worker"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Get("/me", controller.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, hub *worker.TeamHub) {
	notifier := utils.NewNotifier(nil)

	taskController := controller.NewTaskController(db, log.New(os.Stdout, "TASK: ", log.LstdFlags), notifier, hub)
	teamController := controller.NewTeamController(db, log.New(os.Stdout, "TEAM: ", log.LstdFlags), hub)
	messageController := controller.NewMessageController(db, log.New(os.Stdout, "MESSAGE: ", log.LstdFlags), notifier, hub)
	commentController := controller.NewCommentController(db, log.New(os.Stdout, "COMMENT: ", log.LstdFlags))
	userController := controller.NewUserController(db, log.New(os.Stdout, "USER: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Task routes
	task := api.Group("/tasks")
	task.Post("/", taskController.CreateTask)
	task.Get("/", taskController.ListTasks)
	task.Get("/:id", taskController.GetTask)
	task.Put("/:id", taskController.UpdateTask)
	task.Patch("/:id/weight", taskController.UpdateTaskWeight)
	task.Delete("/:id", taskController.DeleteTask)
	task.Get("/:id/children", taskController.ListChildTasks)

	// Comment routes (hang off tasks for list/create)
	task.Get("/:taskId/comments", commentController.ListTaskComments)
	task.Post("/:taskId/comments", commentController.CreateComment)
	api.Put("/comments/:id", commentController.UpdateComment)
	api.Delete("/comments/:id", commentController.DeleteComment)

	// Team routes
	team := api.Group("/teams")
	team.Post("/", teamController.CreateTeam)
	team.Get("/", teamController.ListTeams)
	team.Get("/:id", teamController.GetTeam)
	team.Put("/:id", teamController.UpdateTeam)
	team.Delete("/:id", teamController.DeleteTeam)
	team.Post("/:id/owner", teamController.ChangeOwner)
	team.Delete("/:id/members/:memberId", teamController.CancelMembership)
	team.Post("/:id/invitations", middleware.ChatRateLimiter(), teamController.SendInvitation)

	// Team-scoped task and message views
	team.Get("/:teamId/tasks", taskController.ListTeamTasks)
	team.Get("/:teamId/messages", messageController.ListTeamMessages)
	team.Post("/:teamId/messages", middleware.ChatRateLimiter(), messageController.CreateMessage)
	api.Put("/messages/:id", messageController.UpdateMessage)
	api.Delete("/messages/:id", messageController.DeleteMessage)

	// Invitation routes
	api.Get("/invitations", teamController.ListInvitations)
	api.Get("/invitations/count", teamController.CountInvitations)
	api.Post("/invitations/:id/respond", teamController.RespondToInvitation)

	// User routes
	api.Post("/users/lookup", userController.LookupByEmail)

	// WebSocket route for team events (replaces the old poll loops)
	api.Get("/teams/:teamId/events", websocket.New(controller.HandleTeamEventsWS(db, hub)))

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, hub *worker.TeamHub) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db)

	// Setup API routes
	SetupAPIRoutes(app, db, hub)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
