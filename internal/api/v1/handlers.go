package apiv1

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/searchlens/searchlens/app/repository"
	"github.com/searchlens/searchlens/internal/pkg/credentials"
	"github.com/searchlens/searchlens/internal/pkg/oauth"
)

// APIServer implements the connections API consumed by the feature services
type APIServer struct {
	manager *credentials.Manager
	repo    repository.CredentialRepository
}

// NewAPIServer creates a new API server instance
func NewAPIServer(manager *credentials.Manager, repo repository.CredentialRepository) *APIServer {
	return &APIServer{manager: manager, repo: repo}
}

// RegisterHandlers wires the v1 routes
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)
	router.Get("/users/:userID/connections", s.ListConnections)
	router.Get("/users/:userID/connections/:provider", s.GetConnectionStatus)
	router.Post("/users/:userID/connections/:provider/token", s.IssueToken)
	router.Delete("/users/:userID/connections/:provider", s.DeleteConnection)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// ListConnections returns all provider connections of a user without any
// token material.
func (s *APIServer) ListConnections(c *fiber.Ctx) error {
	userID, ok := parseUserID(c)
	if !ok {
		return badUserID(c)
	}

	creds, err := s.repo.ListByUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Listing connections failed"})
	}

	out := make([]fiber.Map, 0, len(creds))
	for _, cred := range creds {
		out = append(out, fiber.Map{
			"provider":    cred.Provider,
			"expires_at":  cred.ExpiresAt,
			"refreshable": cred.HasRefreshSecret(),
		})
	}
	return c.JSON(fiber.Map{"connections": out})
}

// GetConnectionStatus reports whether the user ever connected the provider.
// Feature services use this to gate their own UI without materializing a
// token.
func (s *APIServer) GetConnectionStatus(c *fiber.Ctx) error {
	userID, ok := parseUserID(c)
	if !ok {
		return badUserID(c)
	}
	provider := c.Params("provider")

	connected := s.manager.HasCredential(userID, provider)
	return c.JSON(fiber.Map{"provider": provider, "connected": connected})
}

// IssueToken returns a currently valid access token, refreshing it first if
// needed. NotConnected and NeedsReconnect both carry the "please (re)connect"
// guidance; transient provider failures map to 502 so callers can retry.
func (s *APIServer) IssueToken(c *fiber.Ctx) error {
	userID, ok := parseUserID(c)
	if !ok {
		return badUserID(c)
	}
	provider := c.Params("provider")

	token, err := s.manager.GetFreshToken(c.UserContext(), userID, provider)
	if err != nil {
		switch {
		case errors.Is(err, credentials.ErrNotConnected):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_connected", "message": "Please connect your account"})
		case errors.Is(err, credentials.ErrNeedsReconnect):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "needs_reconnect", "message": "Please reconnect your account"})
		case errors.Is(err, oauth.ErrRefreshUnreachable):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_unreachable", "message": "Provider is unreachable, try again later"})
		case errors.Is(err, credentials.ErrRefreshFailed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "needs_reconnect", "message": "Please reconnect your account"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Token request failed"})
		}
	}

	return c.JSON(fiber.Map{"access_token": token})
}

// DeleteConnection revokes the provider connection. Always succeeds locally,
// including for connections that are already gone.
func (s *APIServer) DeleteConnection(c *fiber.Ctx) error {
	userID, ok := parseUserID(c)
	if !ok {
		return badUserID(c)
	}
	provider := c.Params("provider")

	if err := s.manager.Revoke(c.UserContext(), userID, provider); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Disconnect failed"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseUserID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("userID")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func badUserID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid user id"})
}
