package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"libra/models"
	"libra/utils"
	"libra/worker"
)

type MessageController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Notifier *utils.Notifier
	Hub      *worker.TeamHub
}

func NewMessageController(db *gorm.DB, logger *log.Logger, notifier *utils.Notifier, hub *worker.TeamHub) *MessageController {
	return &MessageController{
		DB:       db,
		Logger:   logger,
		Notifier: notifier,
		Hub:      hub,
	}
}

// ListTeamMessages returns a team's message log, newest first. System rows
// carry a translation key and props instead of literal text.
func (mc *MessageController) ListTeamMessages(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("teamId")

	if !isMember(mc.DB, user.ID, teamID) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	var messages []models.Message
	err := mc.DB.
		Preload("User").
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Find(&messages).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch messages", err)
	}

	return c.JSON(utils.SuccessResponse(messages))
}

// CreateMessage appends a chat message to the team's log.
func (mc *MessageController) CreateMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("teamId")

	var input struct {
		Content string `json:"content" validate:"required,max=2000"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if !isAcceptedMember(mc.DB, user.ID, teamID) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	message := models.Message{
		TeamID:    teamID,
		CreatorID: user.ID,
		Content:   input.Content,
	}
	if err := mc.DB.Create(&message).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create message", err)
	}
	message.User = user

	mc.Hub.Publish(worker.Event{
		Type:    worker.EventMessagePosted,
		TeamID:  teamID,
		ActorID: user.ID,
		Payload: message,
	})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(message))
}

// UpdateMessage edits the caller's own chat message.
func (mc *MessageController) UpdateMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	messageID := c.Params("id")

	var input struct {
		Content string `json:"content" validate:"required,max=2000"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	result := mc.DB.Model(&models.Message{}).
		Where("id = ? AND creator_id = ?", messageID, user.ID).
		Update("content", input.Content)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update message", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Message not found", nil)
	}

	return c.JSON(fiber.Map{"success": true})
}

// DeleteMessage removes the caller's own chat message.
func (mc *MessageController) DeleteMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	messageID := c.Params("id")

	result := mc.DB.
		Where("id = ? AND creator_id = ?", messageID, user.ID).
		Delete(&models.Message{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete message", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Message not found", nil)
	}

	return c.JSON(fiber.Map{"success": true})
}
