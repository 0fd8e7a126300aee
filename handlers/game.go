package handlers

import (
	"github.com/gofiber/fiber/v2"

	"rps-arena/middleware"
	"rps-arena/services"
)

// ArchiveStats reports how many replays reached the archive and how many failed.
type ArchiveStats interface {
	Stats() (archived, failed int64)
}

type GameHandler struct {
	games   *services.GameService
	lobby   *services.LobbyService
	hub     *services.Hub
	archive ArchiveStats
}

func SetupGameRoutes(r fiber.Router, games *services.GameService, lobby *services.LobbyService, hub *services.Hub, archive ArchiveStats, tokens *middleware.ConnectionTokens) {
	h := &GameHandler{games: games, lobby: lobby, hub: hub, archive: archive}
	r.Get("/healthz", h.Health)
	r.Get("/games/:id", h.Get)
	r.Get("/games/:id/stats", h.Stats)
	r.Get("/ai/thinking", middleware.ConnectionContext(tokens), h.Thinking)
}

func (h *GameHandler) Health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":  "ok",
		"stats":   h.lobby.Stats(),
		"streams": h.hub.Stats(),
	}
	if h.archive != nil {
		archived, failed := h.archive.Stats()
		body["archive"] = fiber.Map{"archived": archived, "failed": failed}
	}
	return c.JSON(body)
}

// Get returns a live session. Pending moves are never serialized.
func (h *GameHandler) Get(c *fiber.Ctx) error {
	g, err := h.games.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(g)
}

func (h *GameHandler) Stats(c *fiber.Ctx) error {
	s, err := h.games.Stats(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s)
}

// Thinking shows what the AI currently predicts for the caller.
func (h *GameHandler) Thinking(c *fiber.Ctx) error {
	return c.JSON(h.lobby.Thinking(middleware.ConnectionID(c)))
}
