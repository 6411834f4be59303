package controller

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"tripchat/chat"
	"tripchat/utils"
)

type MessageWSController struct {
	stream chat.StreamSource
	logger *log.Logger
}

func NewMessageWSController(stream chat.StreamSource, logger *log.Logger) *MessageWSController {
	return &MessageWSController{stream: stream, logger: logger}
}

// HandleChannelStream streams channel events to the client as JSON frames.
// The stream ends when the hub closes the subscription (access revoked or
// slow consumer) or when the client disconnects.
func (mc *MessageWSController) HandleChannelStream(c *websocket.Conn) {
	defer c.Close()

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		mc.writeError(c, "Unauthorized")
		return
	}
	channelID := utils.ParseUint(c.Params("channelID"))

	sub, err := mc.stream.Subscribe(context.Background(), channelID, userID)
	if err != nil {
		mc.writeError(c, err.Error())
		return
	}
	defer sub.Cancel()

	// Drain the read side so we notice the client going away. Incoming
	// frames carry no meaning on this endpoint.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			if err := c.WriteJSON(ev); err != nil {
				mc.logger.Printf("write to subscriber %s failed: %v", sub.ID, err)
				return
			}
			if ev.Type != chat.EventMessage {
				return
			}
		case <-clientGone:
			return
		}
	}
}

func (mc *MessageWSController) writeError(c *websocket.Conn, msg string) {
	if err := c.WriteJSON(fiber.Map{"error": msg}); err != nil {
		mc.logger.Printf("error write on websocket failed: %v", err)
	}
}
