package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"libra/models"
	"libra/utils"
)

type CommentController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewCommentController(db *gorm.DB, logger *log.Logger) *CommentController {
	return &CommentController{
		DB:     db,
		Logger: logger,
	}
}

// ListTaskComments returns a task's comments.
func (cc *CommentController) ListTaskComments(c *fiber.Ctx) error {
	taskID := c.Params("taskId")

	var comments []models.Comment
	if err := cc.DB.Where("task_id = ?", taskID).Find(&comments).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch comments", err)
	}

	return c.JSON(utils.SuccessResponse(comments))
}

// CreateComment attaches a comment to a task.
func (cc *CommentController) CreateComment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := c.Params("taskId")

	var input struct {
		Content string `json:"content" validate:"required,max=2000"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var task models.Task
	if err := cc.DB.First(&task, "id = ?", taskID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	comment := models.Comment{
		TaskID:    taskID,
		CreatorID: user.ID,
		Content:   input.Content,
	}
	if err := cc.DB.Create(&comment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create comment", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(comment))
}

// UpdateComment edits the caller's own comment.
func (cc *CommentController) UpdateComment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	commentID := c.Params("id")

	var input struct {
		Content string `json:"content" validate:"required,max=2000"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	result := cc.DB.Model(&models.Comment{}).
		Where("id = ? AND creator_id = ?", commentID, user.ID).
		Update("content", input.Content)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update comment", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Comment not found", nil)
	}

	return c.JSON(fiber.Map{"success": true})
}

// DeleteComment removes the caller's own comment.
func (cc *CommentController) DeleteComment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	commentID := c.Params("id")

	result := cc.DB.
		Where("id = ? AND creator_id = ?", commentID, user.ID).
		Delete(&models.Comment{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete comment", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Comment not found", nil)
	}

	return c.JSON(fiber.Map{"success": true})
}
