package main

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/searchlens/searchlens/app/repository"
	"github.com/searchlens/searchlens/internal/pkg/cache"
	"github.com/searchlens/searchlens/internal/pkg/credentials"
	"github.com/searchlens/searchlens/internal/pkg/database"
	"github.com/searchlens/searchlens/internal/pkg/env"
	"github.com/searchlens/searchlens/internal/pkg/oauth"
	"github.com/searchlens/searchlens/internal/pkg/router"
	"github.com/searchlens/searchlens/internal/pkg/secretbox"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4100")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	codec, err := secretbox.NewCodecFromEnv()
	if err != nil {
		log.Fatalf("secret codec setup failed: %v", err)
	}

	registry, err := oauth.Setup()
	if err != nil {
		log.Fatalf("oauth setup failed: %v", err)
	}

	repo := repository.GetGlobalFactory().GetCredentialRepository()
	manager := credentials.NewManager(credentials.Config{
		Repo:  repo,
		Codec: codec,
		Clients: func(provider string) (credentials.TokenClient, bool) {
			client, ok := registry.Client(provider)
			return client, ok
		},
		Status: credentials.NewRedisStatusCache(),
	})

	app := fiber.New(fiber.Config{
		AppName: "searchlens-connections",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, manager, repo)

	return app
}
