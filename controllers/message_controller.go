package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"tripchat/chat"
	"tripchat/utils"
)

type MessageController struct {
	messages *chat.MessageService
	logger   *log.Logger
}

func NewMessageController(messages *chat.MessageService, logger *log.Logger) *MessageController {
	return &MessageController{messages: messages, logger: logger}
}

func (mc *MessageController) SendMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	userName, _ := c.Locals("userName").(string)
	channelID := utils.ParseUint(c.Params("channelID"))

	var input struct {
		Content string `json:"content" validate:"required"`
		Type    string `json:"type" validate:"omitempty,oneof=text file system"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	msg, err := mc.messages.Send(c.Context(), channelID, userID, userName, input.Content, input.Type)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(msg))
}

// GetHistory pages backward through the channel log. Pass before=<seq> to
// fetch older pages; messages come newest first.
func (mc *MessageController) GetHistory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	channelID := utils.ParseUint(c.Params("channelID"))
	beforeSeq := int64(utils.ParseUint(c.Query("before")))
	limit := c.QueryInt("limit", chat.DefaultHistoryLimit)

	messages, err := mc.messages.History(c.Context(), channelID, userID, beforeSeq, limit)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(messages))
}

func (mc *MessageController) EditMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	messageID := utils.ParseUint(c.Params("messageID"))

	var input struct {
		Content string `json:"content" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	msg, err := mc.messages.Edit(c.Context(), messageID, userID, input.Content)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(msg))
}

func (mc *MessageController) DeleteMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	messageID := utils.ParseUint(c.Params("messageID"))

	if err := mc.messages.Delete(c.Context(), messageID, userID); err != nil {
		return utils.AppErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}
