package controller

import (
	"bufio"
	"encoding/json"
	"fmt"

	"deepresearch-be/internal/dto"
	"deepresearch-be/internal/pkg/serverutils"
	"deepresearch-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// Stream granularity for chat replies.
const chatChunkRunes = 48

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatbotService service.IChatbotService
}

func NewChatbotController(chatbotService service.IChatbotService) IChatbotController {
	return &chatbotController{
		chatbotService: chatbotService,
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Chat)
}

// Chat answers one message and streams the reply back as newline-
// delimited JSON frames: chunk frames followed by an end frame.
func (c *chatbotController) Chat(ctx *fiber.Ctx) error {
	userId := userIdFromLocals(ctx)

	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.SendChat(ctx.Context(), userId, &req)

	ctx.Set("Content-Type", "text/plain; charset=utf-8")
	ctx.Set("Cache-Control", "no-cache")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		if err != nil {
			writeChatFrame(w, map[string]string{
				"type":    "error",
				"error":   "internal server error",
				"message": "sorry, something went wrong handling your request",
			})
			return
		}

		reply := []rune(res.Reply)
		for start := 0; start < len(reply); start += chatChunkRunes {
			end := start + chatChunkRunes
			if end > len(reply) {
				end = len(reply)
			}
			if !writeChatFrame(w, map[string]string{
				"type":    "chunk",
				"content": string(reply[start:end]),
			}) {
				return
			}
		}

		writeChatFrame(w, map[string]string{
			"type":       "end",
			"status":     "success",
			"session_id": res.SessionId,
		})
	}))

	return nil
}

func writeChatFrame(w *bufio.Writer, frame map[string]string) bool {
	payload, err := json.Marshal(frame)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "%s\n", payload); err != nil {
		return false
	}
	return w.Flush() == nil
}
