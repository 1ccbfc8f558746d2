package controller

import (
	"errors"
	"path"
	"strings"

	"deepresearch-be/internal/pkg/serverutils"
	"deepresearch-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IFileController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Read(ctx *fiber.Ctx) error
}

type fileController struct {
	researchService service.IResearchService
}

func NewFileController(researchService service.IResearchService) IFileController {
	return &fileController{
		researchService: researchService,
	}
}

func (c *fileController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/research/v1/files")
	h.Use(serverutils.JwtMiddleware)
	h.Get(":sessionId", c.List)
	h.Get(":sessionId/*", c.Read)
}

func (c *fileController) List(ctx *fiber.Ctx) error {
	userId := userIdFromLocals(ctx)
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.researchService.Files(ctx.Context(), userId, sessionId)
	if err != nil {
		return mapServiceError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list session files", res))
}

func (c *fileController) Read(ctx *fiber.Ctx) error {
	userId := userIdFromLocals(ctx)
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	relativePath := strings.TrimPrefix(ctx.Params("*"), "/")
	if relativePath == "" || strings.Contains(relativePath, "..") {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file path")
	}

	content, err := c.researchService.ReadFile(ctx.Context(), userId, sessionId, relativePath)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return mapServiceError(err)
	}

	ctx.Set("Content-Type", contentTypeFor(relativePath))
	ctx.Set("Cache-Control", "public, max-age=3600")
	return ctx.Send(content)
}

func contentTypeFor(relativePath string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(relativePath), ".")) {
	case "html":
		return "text/html"
	case "css":
		return "text/css"
	case "js":
		return "application/javascript"
	case "json":
		return "application/json"
	case "md":
		return "text/markdown"
	default:
		return "text/plain"
	}
}
