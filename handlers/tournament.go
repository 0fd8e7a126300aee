package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"rps-arena/services"
)

type TournamentHandler struct {
	tournaments *services.TournamentService
	replays     *services.ReplayService
	archive     ArchiveReader
	log         *slog.Logger
}

func SetupTournamentRoutes(r fiber.Router, tournaments *services.TournamentService, replays *services.ReplayService, archive ArchiveReader, log *slog.Logger) {
	h := &TournamentHandler{tournaments: tournaments, replays: replays, archive: archive, log: log}
	r.Get("/tournaments/:id", h.Get)
	r.Get("/tournaments/:id/replays", h.Replays)
}

// Get returns the tournament snapshot: settings, players, bracket and chat.
func (h *TournamentHandler) Get(c *fiber.Ctx) error {
	t, err := h.tournaments.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t)
}

// Replays lists the tournament's cached replays, newest first. With
// ?archived=true it reads the archive instead.
func (h *TournamentHandler) Replays(c *fiber.Ctx) error {
	id := c.Params("id")
	if c.QueryBool("archived") && h.archive != nil {
		list, err := h.archive.ListByTournament(c.UserContext(), id)
		if err != nil {
			h.log.Error("archive_list_failed", "tournament_id", id, "err", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "replay archive unavailable"})
		}
		return c.JSON(list)
	}
	return c.JSON(h.replays.GetTournamentReplays(id))
}
