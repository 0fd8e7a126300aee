package handlers

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"rps-arena/models"
	"rps-arena/services"
)

// ArchiveReader looks up replays that may have left the in-memory cache.
type ArchiveReader interface {
	Get(ctx context.Context, id string) (models.Replay, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]models.Replay, error)
}

type ReplayHandler struct {
	replays *services.ReplayService
	archive ArchiveReader // nil when archiving is off
	log     *slog.Logger
}

func SetupReplayRoutes(r fiber.Router, replays *services.ReplayService, archive ArchiveReader, log *slog.Logger) {
	h := &ReplayHandler{replays: replays, archive: archive, log: log}
	r.Get("/replays/recent", h.Recent)
	r.Get("/replays/:id", h.Get)
	r.Get("/replays/:id/playback", h.Playback)
	r.Get("/replays/:id/stats", h.Stats)
}

// Recent lists the newest cached replays, ?limit= defaults to 10.
func (h *ReplayHandler) Recent(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit > 100 {
		limit = 100
	}
	return c.JSON(h.replays.GetRecentReplays(limit))
}

// Get serves a cached replay, falling back to the archive.
func (h *ReplayHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	r, err := h.replays.GetReplay(id)
	if err == nil {
		return c.JSON(r)
	}
	if h.archive == nil || !services.IsNotFound(err) {
		return respondError(c, err)
	}
	archived, aerr := h.archive.Get(c.UserContext(), id)
	if aerr != nil {
		if !services.IsNotFound(aerr) {
			h.log.Error("archive_lookup_failed", "replay_id", id, "err", aerr)
		}
		return respondError(c, err)
	}
	return c.JSON(archived)
}

func (h *ReplayHandler) Playback(c *fiber.Ctx) error {
	p, err := h.replays.GetPlaybackData(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

func (h *ReplayHandler) Stats(c *fiber.Ctx) error {
	s, err := h.replays.GetReplayStats(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s)
}
