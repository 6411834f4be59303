package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"tripchat/chat"
	"tripchat/utils"
)

type UnreadController struct {
	tracker *chat.ReadTracker
	logger  *log.Logger
}

func NewUnreadController(tracker *chat.ReadTracker, logger *log.Logger) *UnreadController {
	return &UnreadController{tracker: tracker, logger: logger}
}

// MarkRead advances the caller's watermark up to the given message.
func (uc *UnreadController) MarkRead(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	channelID := utils.ParseUint(c.Params("channelID"))

	var input struct {
		UptoMessageID uint `json:"upto_message_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if err := uc.tracker.MarkRead(c.Context(), channelID, userID, input.UptoMessageID); err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"marked": true}))
}

func (uc *UnreadController) GetChannelUnread(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	channelID := utils.ParseUint(c.Params("channelID"))

	n, err := uc.tracker.UnreadCount(c.Context(), channelID, userID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"unread": n}))
}

// GetTripUnread returns the aggregate plus a per-channel breakdown in one
// response for badge rendering.
func (uc *UnreadController) GetTripUnread(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	tripID := utils.ParseUint(c.Params("tripID"))

	total, breakdown, err := uc.tracker.AggregateUnread(c.Context(), tripID, userID)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"total":    total,
		"channels": breakdown,
	}))
}
