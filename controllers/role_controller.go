package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"tripchat/chat"
	"tripchat/utils"
)

type RoleController struct {
	roles  *chat.RoleRegistry
	logger *log.Logger
}

func NewRoleController(roles *chat.RoleRegistry, logger *log.Logger) *RoleController {
	return &RoleController{roles: roles, logger: logger}
}

func (rc *RoleController) CreateRole(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	tripID := utils.ParseUint(c.Params("tripID"))

	var input chat.CreateRoleInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	role, err := rc.roles.CreateRole(c.Context(), tripID, input, userID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(role))
}

func (rc *RoleController) DeleteRole(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	roleID := utils.ParseUint(c.Params("roleID"))

	if err := rc.roles.DeleteRole(c.Context(), roleID, userID); err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}

func (rc *RoleController) ListRoles(c *fiber.Ctx) error {
	tripID := utils.ParseUint(c.Params("tripID"))

	roles, err := rc.roles.ListRoles(c.Context(), tripID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(roles))
}

func (rc *RoleController) AssignRole(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	tripID := utils.ParseUint(c.Params("tripID"))

	var input struct {
		UserID uint `json:"user_id" validate:"required"`
		RoleID uint `json:"role_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	assignment, err := rc.roles.AssignRole(c.Context(), tripID, input.UserID, input.RoleID, userID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(assignment))
}

func (rc *RoleController) RevokeRole(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	tripID := utils.ParseUint(c.Params("tripID"))
	targetID := utils.ParseUint(c.Params("userID"))
	roleID := utils.ParseUint(c.Params("roleID"))

	if err := rc.roles.RevokeRole(c.Context(), tripID, targetID, roleID, userID); err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"revoked": true}))
}

func (rc *RoleController) ListAssignments(c *fiber.Ctx) error {
	tripID := utils.ParseUint(c.Params("tripID"))

	assignments, err := rc.roles.ListAssignments(c.Context(), tripID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(assignments))
}

func (rc *RoleController) GetMyRole(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	tripID := utils.ParseUint(c.Params("tripID"))

	role, err := rc.roles.GetUserRole(c.Context(), tripID, userID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(role))
}
