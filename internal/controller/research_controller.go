package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"deepresearch-be/internal/dto"
	"deepresearch-be/internal/pkg/serverutils"
	"deepresearch-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IResearchController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type researchController struct {
	researchService service.IResearchService
}

func NewResearchController(researchService service.IResearchService) IResearchController {
	return &researchController{
		researchService: researchService,
	}
}

func (c *researchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/research/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("start", c.Start)
	h.Get("stream/:sessionId", c.Stream)
	h.Get("status/:sessionId", c.Status)
	h.Get("history", c.History)
	h.Post("cancel/:sessionId", c.Cancel)
	h.Delete(":sessionId", c.Delete)
}

func (c *researchController) Start(ctx *fiber.Ctx) error {
	userId := userIdFromLocals(ctx)

	var req dto.StartResearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.researchService.Start(ctx.Context(), userId, &req)
	if err != nil {
		return mapServiceError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Research session created", res))
}

// Stream replays the session's progress as server-sent events until a
// terminal frame arrives or the client disconnects.
func (c *researchController) Stream(ctx *fiber.Ctx) error {
	userId := userIdFromLocals(ctx)
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	eventCh, session, err := c.researchService.Stream(streamCtx, userId, sessionId)
	if err != nil {
		cancel()
		return mapServiceError(err)
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")

	opening := dto.StreamEvent{
		Type:      "session_started",
		SessionId: sessionId.String(),
		Question:  session.Question,
		Status:    session.Status,
		Progress:  session.Progress,
	}

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		if err := writeSSE(w, opening); err != nil {
			return
		}

		for event := range eventCh {
			if err := writeSSE(w, event); err != nil {
				return
			}
		}
	}))

	return nil
}

func writeSSE(w *bufio.Writer, event dto.StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func (c *researchController) Status(ctx *fiber.Ctx) error {
	userId := userIdFromLocals(ctx)
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.researchService.Status(ctx.Context(), userId, sessionId)
	if err != nil {
		return mapServiceError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session status", res))
}

func (c *researchController) History(ctx *fiber.Ctx) error {
	userId := userIdFromLocals(ctx)

	res, err := c.researchService.History(ctx.Context(), userId)
	if err != nil {
		return mapServiceError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get research history", res))
}

func (c *researchController) Cancel(ctx *fiber.Ctx) error {
	userId := userIdFromLocals(ctx)
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.researchService.Cancel(ctx.Context(), userId, sessionId)
	if err != nil {
		return mapServiceError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Research cancelled", res))
}

func (c *researchController) Delete(ctx *fiber.Ctx) error {
	userId := userIdFromLocals(ctx)
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	if err := c.researchService.Delete(ctx.Context(), userId, sessionId); err != nil {
		return mapServiceError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Research session deleted", nil))
}

func userIdFromLocals(ctx *fiber.Ctx) uuid.UUID {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	return userId
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionNotOwned):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSessionFinished):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return err
	}
}
