package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/searchlens/searchlens/app/repository"
	"github.com/searchlens/searchlens/internal/pkg/credentials"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, manager *credentials.Manager, repo repository.CredentialRepository) {
	setup(app, NewApiRouter(manager, repo))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
