package controller

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"libra/models"
	"libra/utils"
	"libra/worker"
)

type TaskController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Notifier *utils.Notifier
	Hub      *worker.TeamHub
}

func NewTaskController(db *gorm.DB, logger *log.Logger, notifier *utils.Notifier, hub *worker.TeamHub) *TaskController {
	return &TaskController{
		DB:       db,
		Logger:   logger,
		Notifier: notifier,
		Hub:      hub,
	}
}

// CreateTask creates a weighted task, optionally team-scoped and/or as a
// child of an existing task. Team-scoped creates write the audit message in
// the same transaction.
func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Title    string  `json:"title" validate:"required,max=200"`
		Content  string  `json:"content"`
		Weight   int     `json:"weight" validate:"min=0,max=100"`
		TeamID   *string `json:"team_id"`
		ParentID *string `json:"parent_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	// Content is required for root tasks; child tasks may omit it.
	if input.Content == "" && input.ParentID == nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "content is required", nil)
	}

	if input.TeamID != nil {
		if !isAcceptedMember(tc.DB, user.ID, *input.TeamID) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
	}

	// A parent must exist in the same owner/team scope.
	if input.ParentID != nil {
		var parent models.Task
		query := tc.DB.Where("id = ? AND user_id = ?", *input.ParentID, user.ID)
		if input.TeamID != nil {
			query = tc.DB.Where("id = ? AND team_id = ?", *input.ParentID, *input.TeamID)
		}
		if err := query.First(&parent).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Parent task not found", nil)
		}
	}

	task := models.Task{
		UserID:   user.ID,
		TeamID:   input.TeamID,
		ParentID: input.ParentID,
		Title:    input.Title,
		Content:  input.Content,
		Weight:   input.Weight,
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		if task.TeamID != nil {
			return tc.Notifier.System(tx, *task.TeamID, utils.MsgTaskAdded,
				user.Name, task.Title, user.ID, task.ID)
		}
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create task", err)
	}

	if task.TeamID != nil {
		tc.Hub.Publish(worker.Event{
			Type:    worker.EventTaskCreated,
			TeamID:  *task.TeamID,
			ActorID: user.ID,
			Payload: task,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(task))
}

// GetTask returns one of the caller's tasks with comments, owner and team.
func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := c.Params("id")

	var task models.Task
	err := tc.DB.
		Preload("Comments").
		Preload("User").
		Preload("Team").
		Where("id = ? AND user_id = ?", id, user.ID).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch task", err)
	}

	return c.JSON(utils.SuccessResponse(task))
}

// UpdateTask rewrites title, content and weight. For team tasks the audit
// message carries the pre-update title.
func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := c.Params("id")

	var input struct {
		Title   string `json:"title" validate:"required,max=200"`
		Content string `json:"content"`
		Weight  int    `json:"weight" validate:"min=0,max=100"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var task models.Task
	if err := tc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&task).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	oldTitle := task.Title
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if task.TeamID != nil {
			if err := tc.Notifier.System(tx, *task.TeamID, utils.MsgTaskUpdated,
				user.Name, oldTitle, user.ID, task.ID); err != nil {
				return err
			}
		}
		return tx.Model(&task).
			Where("user_id = ?", user.ID).
			Updates(map[string]interface{}{
				"title":   input.Title,
				"content": input.Content,
				"weight":  input.Weight,
			}).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update task", err)
	}

	if task.TeamID != nil {
		tc.Hub.Publish(worker.Event{
			Type:    worker.EventTaskUpdated,
			TeamID:  *task.TeamID,
			ActorID: user.ID,
			Payload: task,
		})
	}

	return c.JSON(utils.SuccessResponse(task))
}

// UpdateTaskWeight is the slider's fast-path commit: a single-column update
// plus a "weight changed" audit message carrying the old title.
func (tc *TaskController) UpdateTaskWeight(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := c.Params("id")

	var input struct {
		Weight int `json:"weight" validate:"min=0,max=100"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var task models.Task
	if err := tc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&task).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if task.TeamID != nil {
			if err := tc.Notifier.System(tx, *task.TeamID, utils.MsgWeightChanged,
				user.Name, task.Title, strconv.Itoa(input.Weight), user.ID, task.ID); err != nil {
				return err
			}
		}
		return tx.Model(&task).Where("user_id = ?", user.ID).Update("weight", input.Weight).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update weight", err)
	}

	if task.TeamID != nil {
		tc.Hub.Publish(worker.Event{
			Type:    worker.EventTaskWeightChanged,
			TeamID:  *task.TeamID,
			ActorID: user.ID,
			Payload: fiber.Map{"id": task.ID, "weight": input.Weight},
		})
	}

	return c.JSON(utils.SuccessResponse(task))
}

// DeleteTask removes a task and its direct children. Deletion is one level
// deep: grandchildren are left in place with a dangling parent reference.
func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := c.Params("id")

	var task models.Task
	if err := tc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&task).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if task.TeamID != nil {
			if err := tc.Notifier.System(tx, *task.TeamID, utils.MsgTaskDeleted,
				user.Name, task.Title, user.ID, task.ID); err != nil {
				return err
			}
		}
		return tx.
			Where("user_id = ? AND (id = ? OR parent_id = ?)", user.ID, task.ID, task.ID).
			Delete(&models.Task{}).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete task", err)
	}

	if task.TeamID != nil {
		tc.Hub.Publish(worker.Event{
			Type:    worker.EventTaskDeleted,
			TeamID:  *task.TeamID,
			ActorID: user.ID,
			Payload: fiber.Map{"id": task.ID},
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// ListTasks returns the caller's personal (non-team) tasks, newest first.
// The client groups rows by parent_id to rebuild the tree.
func (tc *TaskController) ListTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var tasks []models.Task
	err := tc.DB.
		Preload("Comments").
		Where("user_id = ? AND team_id IS NULL", user.ID).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch tasks", err)
	}

	return c.JSON(utils.SuccessResponse(tasks))
}

// ListTeamTasks returns every member's tasks in a team, newest first.
func (tc *TaskController) ListTeamTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("teamId")

	if !isMember(tc.DB, user.ID, teamID) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	var tasks []models.Task
	err := tc.DB.
		Preload("Comments").
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch tasks", err)
	}

	return c.JSON(utils.SuccessResponse(tasks))
}

// ListChildTasks returns the caller's direct children of a task.
func (tc *TaskController) ListChildTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	parentID := c.Params("id")

	var tasks []models.Task
	err := tc.DB.
		Where("user_id = ? AND parent_id = ?", user.ID, parentID).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch child tasks", err)
	}

	return c.JSON(utils.SuccessResponse(tasks))
}
