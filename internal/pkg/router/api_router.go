package router

import (
	"github.com/searchlens/searchlens/app/repository"
	apiv1 "github.com/searchlens/searchlens/internal/api/v1"
	"github.com/searchlens/searchlens/internal/pkg/credentials"
	"github.com/searchlens/searchlens/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	manager *credentials.Manager
	repo    repository.CredentialRepository
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes, service-key protected
	v1 := api.Group("/v1", middleware.ServiceKeyMiddleware())
	apiServer := apiv1.NewAPIServer(h.manager, h.repo)
	apiv1.RegisterHandlers(v1, apiServer)
}

func NewApiRouter(manager *credentials.Manager, repo repository.CredentialRepository) *ApiRouter {
	return &ApiRouter{manager: manager, repo: repo}
}
