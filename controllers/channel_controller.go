package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"tripchat/chat"
	"tripchat/utils"
)

type ChannelController struct {
	channels *chat.ChannelRegistry
	logger   *log.Logger
}

func NewChannelController(channels *chat.ChannelRegistry, logger *log.Logger) *ChannelController {
	return &ChannelController{channels: channels, logger: logger}
}

func (cc *ChannelController) CreateChannel(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	tripID := utils.ParseUint(c.Params("tripID"))

	var input chat.CreateChannelInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	ch, err := cc.channels.CreateChannel(c.Context(), tripID, input, userID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(ch))
}

func (cc *ChannelController) UpdateChannel(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	channelID := utils.ParseUint(c.Params("channelID"))

	var input chat.UpdateChannelInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	ch, err := cc.channels.UpdateChannel(c.Context(), channelID, input, userID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(ch))
}

func (cc *ChannelController) ArchiveChannel(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	channelID := utils.ParseUint(c.Params("channelID"))

	if err := cc.channels.ArchiveChannel(c.Context(), channelID, userID); err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"archived": true}))
}

// ListAccessible returns the channels the caller can open right now.
func (cc *ChannelController) ListAccessible(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	tripID := utils.ParseUint(c.Params("tripID"))

	channels, err := cc.channels.AccessibleChannels(c.Context(), tripID, userID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(channels))
}

// ListAll returns every channel including archived ones, for admin screens.
func (cc *ChannelController) ListAll(c *fiber.Ctx) error {
	tripID := utils.ParseUint(c.Params("tripID"))

	channels, err := cc.channels.ListChannels(c.Context(), tripID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(channels))
}

func (cc *ChannelController) GetChannel(c *fiber.Ctx) error {
	channelID := utils.ParseUint(c.Params("channelID"))

	ch, err := cc.channels.GetChannel(c.Context(), channelID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	roleIDs, err := cc.channels.RequiredRoleIDs(c.Context(), channelID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"channel":           ch,
		"required_role_ids": roleIDs,
	}))
}
