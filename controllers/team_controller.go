package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"libra/models"
	"libra/utils"
	"libra/worker"
)

type TeamController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Hub    *worker.TeamHub
}

func NewTeamController(db *gorm.DB, logger *log.Logger, hub *worker.TeamHub) *TeamController {
	return &TeamController{
		DB:     db,
		Logger: logger,
		Hub:    hub,
	}
}

// isMember reports whether the user has an invited or accepted membership.
// Used to scope reads.
func isMember(db *gorm.DB, userID, teamID string) bool {
	var count int64
	db.Model(&models.Membership{}).
		Where("member_id = ? AND team_id = ? AND status IN ?",
			userID, teamID,
			[]string{models.MembershipInvited, models.MembershipAccepted}).
		Count(&count)
	return count > 0
}

// isAcceptedMember reports whether the user is an accepted member. Used to
// scope writes (tasks, chat, invitations).
func isAcceptedMember(db *gorm.DB, userID, teamID string) bool {
	var count int64
	db.Model(&models.Membership{}).
		Where("member_id = ? AND team_id = ? AND status = ?",
			userID, teamID, models.MembershipAccepted).
		Count(&count)
	return count > 0
}

// CreateTeam creates a team with the caller as creator and first accepted
// member; remaining emails become "invited" memberships.
func (tcc *TeamController) CreateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Title        string   `json:"title" validate:"required,max=200"`
		Description  string   `json:"description"`
		MemberEmails []string `json:"member_emails"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	for _, email := range input.MemberEmails {
		if err := utils.ValidateEmailFormat(email); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
		}
	}

	// The caller's own address is always first in the submitted list;
	// drop every occurrence so the creator is never re-invited.
	inviteEmails := make([]string, 0, len(input.MemberEmails))
	for _, email := range input.MemberEmails {
		if email != user.Email {
			inviteEmails = append(inviteEmails, email)
		}
	}

	team := models.Team{
		Title:       input.Title,
		Description: input.Description,
		CreatorID:   user.ID,
	}

	err := tcc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}

		// Creator bootstrap membership, the only row created as accepted.
		creatorMembership := models.Membership{
			MemberID:  user.ID,
			TeamID:    team.ID,
			InviterID: user.ID,
			Status:    models.MembershipAccepted,
		}
		if err := tx.Create(&creatorMembership).Error; err != nil {
			return err
		}

		if len(inviteEmails) == 0 {
			return nil
		}

		var receivers []models.User
		if err := tx.Where("email IN ?", inviteEmails).Find(&receivers).Error; err != nil {
			return err
		}

		seen := map[string]struct{}{user.ID: {}}
		for _, receiver := range receivers {
			if _, ok := seen[receiver.ID]; ok {
				continue
			}
			seen[receiver.ID] = struct{}{}

			membership := models.Membership{
				MemberID:  receiver.ID,
				TeamID:    team.ID,
				InviterID: user.ID,
				Status:    models.MembershipInvited,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create team", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(team))
}

// ListTeams returns teams where the caller holds an invited or accepted
// membership, newest first.
func (tcc *TeamController) ListTeams(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var teams []models.Team
	err := tcc.DB.
		Joins("JOIN memberships ON memberships.team_id = teams.id").
		Where("memberships.member_id = ? AND memberships.status IN ?",
			user.ID, []string{models.MembershipInvited, models.MembershipAccepted}).
		Order("teams.created_at DESC").
		Find(&teams).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch teams", err)
	}

	return c.JSON(utils.SuccessResponse(teams))
}

// GetTeam returns a team with its memberships, scoped to the caller's own
// membership.
func (tcc *TeamController) GetTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")

	if !isMember(tcc.DB, user.ID, teamID) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	var team models.Team
	err := tcc.DB.
		Preload("Memberships.User").
		First(&team, "id = ?", teamID).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	return c.JSON(utils.SuccessResponse(team))
}

// UpdateTeam rewrites title/description and reconciles the membership set
// against the submitted email list: dropped emails lose their membership,
// new emails are invited (existing rows are reset to "invited" with the
// caller as inviter).
func (tcc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")

	var input struct {
		Title        string   `json:"title" validate:"required,max=200"`
		Description  string   `json:"description"`
		MemberEmails []string `json:"member_emails"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	for _, email := range input.MemberEmails {
		if err := utils.ValidateEmailFormat(email); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
		}
	}

	var team models.Team
	err := tcc.DB.
		Preload("Memberships.User").
		Where("id = ? AND creator_id = ?", teamID, user.ID).
		First(&team).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	submitted := make(map[string]struct{}, len(input.MemberEmails))
	for _, email := range input.MemberEmails {
		submitted[email] = struct{}{}
	}

	err = tcc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&team).Updates(map[string]interface{}{
			"title":       input.Title,
			"description": input.Description,
		}).Error; err != nil {
			return err
		}

		// Memberships whose email is no longer submitted are removed.
		// Declined rows are left out of "current" so a re-added email
		// falls through to the invite loop and gets reactivated.
		current := make(map[string]struct{}, len(team.Memberships))
		for _, membership := range team.Memberships {
			email := membership.User.Email
			if _, keep := submitted[email]; !keep {
				if err := tx.
					Where("member_id = ? AND team_id = ?", membership.MemberID, teamID).
					Delete(&models.Membership{}).Error; err != nil {
					return err
				}
				continue
			}
			if membership.Status != models.MembershipDeclined {
				current[email] = struct{}{}
			}
		}

		// Newly submitted emails are invited, reactivating any prior row.
		for _, email := range input.MemberEmails {
			if _, known := current[email]; known {
				continue
			}

			var receiver models.User
			if err := tx.Where("email = ?", email).First(&receiver).Error; err != nil {
				// The UI checks address existence before submit; silently
				// skip unresolvable ones here.
				continue
			}

			var membership models.Membership
			err := tx.
				Where("member_id = ? AND team_id = ?", receiver.ID, teamID).
				First(&membership).Error
			if err == nil {
				if err := tx.Model(&membership).Updates(map[string]interface{}{
					"status":     models.MembershipInvited,
					"inviter_id": user.ID,
				}).Error; err != nil {
					return err
				}
				continue
			}

			membership = models.Membership{
				MemberID:  receiver.ID,
				TeamID:    teamID,
				InviterID: user.ID,
				Status:    models.MembershipInvited,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update team", err)
	}

	tcc.Hub.Publish(worker.Event{
		Type:    worker.EventMembershipChanged,
		TeamID:  teamID,
		ActorID: user.ID,
	})

	return c.JSON(utils.SuccessResponse(team))
}

// DeleteTeam removes the team, its memberships and its message log, and
// detaches team tasks back to their owners' personal scope.
func (tcc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")

	var team models.Team
	if err := tcc.DB.Where("id = ? AND creator_id = ?", teamID, user.ID).First(&team).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	err := tcc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", teamID).Delete(&models.Membership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id = ?", teamID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Task{}).
			Where("team_id = ?", teamID).
			Update("team_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&team).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team", err)
	}

	tcc.Hub.Publish(worker.Event{
		Type:    worker.EventMembershipChanged,
		TeamID:  teamID,
		ActorID: user.ID,
		Payload: fiber.Map{"team_deleted": true},
	})

	return c.JSON(fiber.Map{"success": true})
}

// ChangeOwner reassigns the team's creator. Creator-only.
func (tcc *TeamController) ChangeOwner(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")

	var input struct {
		MemberID string `json:"member_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if !isAcceptedMember(tcc.DB, input.MemberID, teamID) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "New owner must be an accepted member", nil)
	}

	result := tcc.DB.Model(&models.Team{}).
		Where("id = ? AND creator_id = ?", teamID, user.ID).
		Update("creator_id", input.MemberID)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to change owner", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	tcc.Hub.Publish(worker.Event{
		Type:    worker.EventMembershipChanged,
		TeamID:  teamID,
		ActorID: user.ID,
		Payload: fiber.Map{"new_owner": input.MemberID},
	})

	return c.JSON(fiber.Map{"success": true})
}

// CancelMembership removes a membership outright. Used both for "leave
// team" (caller removes their own) and "remove member" (creator removes
// another's).
func (tcc *TeamController) CancelMembership(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")
	memberID := c.Params("memberId")

	if memberID != user.ID {
		var team models.Team
		if err := tcc.DB.Where("id = ? AND creator_id = ?", teamID, user.ID).First(&team).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
	}

	result := tcc.DB.
		Where("member_id = ? AND team_id = ?", memberID, teamID).
		Delete(&models.Membership{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to cancel membership", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Membership not found", nil)
	}

	tcc.Hub.Publish(worker.Event{
		Type:    worker.EventMembershipChanged,
		TeamID:  teamID,
		ActorID: user.ID,
		Payload: fiber.Map{"member_removed": memberID},
	})

	return c.JSON(fiber.Map{"success": true})
}

// SendInvitation invites a user by email. An unknown address returns a
// not-found sentinel and creates nothing; a known one gets an idempotent
// upsert back to "invited".
func (tcc *TeamController) SendInvitation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")

	var input struct {
		ReceiverEmail string `json:"receiver_email" validate:"required,email"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if !isAcceptedMember(tcc.DB, user.ID, teamID) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	var receiver models.User
	if err := tcc.DB.Where("email = ?", input.ReceiverEmail).First(&receiver).Error; err != nil {
		// Lookup miss is a sentinel, not a server error.
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}

	var membership models.Membership
	err := tcc.DB.
		Where("member_id = ? AND team_id = ?", receiver.ID, teamID).
		First(&membership).Error
	if err == nil {
		if err := tcc.DB.Model(&membership).Updates(map[string]interface{}{
			"status":     models.MembershipInvited,
			"inviter_id": user.ID,
		}).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send invitation", err)
		}
	} else {
		membership = models.Membership{
			MemberID:  receiver.ID,
			TeamID:    teamID,
			InviterID: user.ID,
			Status:    models.MembershipInvited,
		}
		if err := tcc.DB.Create(&membership).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send invitation", err)
		}
	}

	tcc.Hub.Publish(worker.Event{
		Type:    worker.EventMembershipChanged,
		TeamID:  teamID,
		ActorID: user.ID,
		Payload: fiber.Map{"invited": receiver.ID},
	})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(membership))
}

// RespondToInvitation moves the caller's own membership from "invited" to
// "accepted" or "declined". Terminal states reject another transition.
func (tcc *TeamController) RespondToInvitation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	membershipID := c.Params("id")

	var input struct {
		Status string `json:"status" validate:"required,oneof=accepted declined"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var membership models.Membership
	err := tcc.DB.
		Where("id = ? AND member_id = ?", membershipID, user.ID).
		First(&membership).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invitation not found", nil)
	}

	if membership.Status != models.MembershipInvited {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Invitation already responded to", nil)
	}

	if err := tcc.DB.Model(&membership).Update("status", input.Status).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to respond to invitation", err)
	}

	tcc.Hub.Publish(worker.Event{
		Type:    worker.EventMembershipChanged,
		TeamID:  membership.TeamID,
		ActorID: user.ID,
		Payload: fiber.Map{"member": user.ID, "status": input.Status},
	})

	return c.JSON(utils.SuccessResponse(membership))
}

// ListInvitations returns the caller's pending invitations, newest first.
func (tcc *TeamController) ListInvitations(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var invitations []models.Membership
	err := tcc.DB.
		Preload("Team").
		Where("member_id = ? AND status = ?", user.ID, models.MembershipInvited).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch invitations", err)
	}

	return c.JSON(utils.SuccessResponse(invitations))
}

// CountInvitations returns the number of pending invitations for the
// caller's badge counter.
func (tcc *TeamController) CountInvitations(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var count int64
	err := tcc.DB.Model(&models.Membership{}).
		Where("member_id = ? AND status = ?", user.ID, models.MembershipInvited).
		Count(&count).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count invitations", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"count": count}))
}
