package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"libra/config"
	"libra/models"
	"libra/utils"
	"libra/worker"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := config.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return &user
}

func newTestHub(t *testing.T) *worker.TeamHub {
	t.Helper()

	hubLogger := logrus.New()
	hubLogger.SetOutput(io.Discard)
	hub := worker.NewTeamHub(hubLogger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Start(ctx)
	t.Cleanup(cancel)
	return hub
}

// actor lets a test switch the authenticated user between requests.
type actor struct {
	user *models.User
}

func (a *actor) become(user *models.User) {
	a.user = user
}

// newTestApp wires every controller into a fiber app with a stubbed auth
// middleware, mirroring the route layout in routes.SetupAPIRoutes.
func newTestApp(t *testing.T, db *gorm.DB) (*fiber.App, *actor) {
	t.Helper()

	hub := newTestHub(t)

	notifierLogger := logrus.New()
	notifierLogger.SetOutput(io.Discard)
	notifier := utils.NewNotifier(notifierLogger)

	discard := log.New(io.Discard, "", 0)
	taskController := NewTaskController(db, discard, notifier, hub)
	teamController := NewTeamController(db, discard, hub)
	messageController := NewMessageController(db, discard, notifier, hub)
	commentController := NewCommentController(db, discard)
	userController := NewUserController(db, discard)

	a := &actor{}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if a.user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authorization required"})
		}
		c.Locals("user", a.user)
		c.Locals("userID", a.user.ID)
		return c.Next()
	})

	api := app.Group("/api/v1")

	task := api.Group("/tasks")
	task.Post("/", taskController.CreateTask)
	task.Get("/", taskController.ListTasks)
	task.Get("/:id", taskController.GetTask)
	task.Put("/:id", taskController.UpdateTask)
	task.Patch("/:id/weight", taskController.UpdateTaskWeight)
	task.Delete("/:id", taskController.DeleteTask)
	task.Get("/:id/children", taskController.ListChildTasks)
	task.Get("/:taskId/comments", commentController.ListTaskComments)
	task.Post("/:taskId/comments", commentController.CreateComment)
	api.Put("/comments/:id", commentController.UpdateComment)
	api.Delete("/comments/:id", commentController.DeleteComment)

	team := api.Group("/teams")
	team.Post("/", teamController.CreateTeam)
	team.Get("/", teamController.ListTeams)
	team.Get("/:id", teamController.GetTeam)
	team.Put("/:id", teamController.UpdateTeam)
	team.Delete("/:id", teamController.DeleteTeam)
	team.Post("/:id/owner", teamController.ChangeOwner)
	team.Delete("/:id/members/:memberId", teamController.CancelMembership)
	team.Post("/:id/invitations", teamController.SendInvitation)
	team.Get("/:teamId/tasks", taskController.ListTeamTasks)
	team.Get("/:teamId/messages", messageController.ListTeamMessages)
	team.Post("/:teamId/messages", messageController.CreateMessage)
	api.Put("/messages/:id", messageController.UpdateMessage)
	api.Delete("/messages/:id", messageController.DeleteMessage)

	api.Get("/invitations", teamController.ListInvitations)
	api.Get("/invitations/count", teamController.CountInvitations)
	api.Post("/invitations/:id/respond", teamController.RespondToInvitation)
	api.Post("/users/lookup", userController.LookupByEmail)

	return app, a
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeData(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("failed to decode response data: %v", err)
		}
	}
}

func countSystemMessages(t *testing.T, db *gorm.DB, teamID string) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&models.Message{}).
		Where("team_id = ? AND creator_id = ?", teamID, models.SystemCreatorID).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count system messages: %v", err)
	}
	return count
}

// createTestTeam creates a team the short way, with the creator's accepted
// bootstrap membership.
func createTestTeam(t *testing.T, db *gorm.DB, creator *models.User, title string) *models.Team {
	t.Helper()

	team := models.Team{Title: title, CreatorID: creator.ID}
	if err := db.Create(&team).Error; err != nil {
		t.Fatalf("failed to create test team: %v", err)
	}
	membership := models.Membership{
		MemberID:  creator.ID,
		TeamID:    team.ID,
		InviterID: creator.ID,
		Status:    models.MembershipAccepted,
	}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("failed to create creator membership: %v", err)
	}
	return &team
}
