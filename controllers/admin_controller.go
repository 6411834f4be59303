package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"tripchat/chat"
	"tripchat/models"
	"tripchat/utils"
)

type AdminController struct {
	admins *chat.AdminRegistry
	logger *log.Logger
}

func NewAdminController(admins *chat.AdminRegistry, logger *log.Logger) *AdminController {
	return &AdminController{admins: admins, logger: logger}
}

func (ac *AdminController) GrantAdmin(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	tripID := utils.ParseUint(c.Params("tripID"))

	var input struct {
		UserID      uint             `json:"user_id" validate:"required"`
		Permissions chat.Permissions `json:"permissions"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	grant, err := ac.admins.GrantAdmin(c.Context(), tripID, input.UserID, input.Permissions, userID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(grant))
}

func (ac *AdminController) RevokeAdmin(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	tripID := utils.ParseUint(c.Params("tripID"))
	targetID := utils.ParseUint(c.Params("userID"))

	if err := ac.admins.RevokeAdmin(c.Context(), tripID, targetID, userID); err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"revoked": true}))
}

func (ac *AdminController) ListAdmins(c *fiber.Ctx) error {
	tripID := utils.ParseUint(c.Params("tripID"))

	grants, err := ac.admins.ListGrants(c.Context(), tripID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(grants))
}

// GetMyPermissions lets a client decide which admin affordances to render.
func (ac *AdminController) GetMyPermissions(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	tripID := utils.ParseUint(c.Params("tripID"))

	var perms chat.Permissions
	var err error
	if perms.ManageRoles, err = ac.admins.HasPermission(c.Context(), tripID, userID, models.PermManageRoles); err != nil {
		return utils.AppErrorResponse(c, err)
	}
	if perms.ManageChannels, err = ac.admins.HasPermission(c.Context(), tripID, userID, models.PermManageChannels); err != nil {
		return utils.AppErrorResponse(c, err)
	}
	if perms.DesignateAdmins, err = ac.admins.HasPermission(c.Context(), tripID, userID, models.PermDesignateAdmins); err != nil {
		return utils.AppErrorResponse(c, err)
	}

	isAdmin, err := ac.admins.IsAdmin(c.Context(), tripID, userID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"is_admin":    isAdmin,
		"permissions": perms,
	}))
}
