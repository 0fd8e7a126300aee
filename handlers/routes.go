package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"rps-arena/middleware"
	"rps-arena/services"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Hub         *services.Hub
	Lobby       *services.LobbyService
	Games       *services.GameService
	Tournaments *services.TournamentService
	Replays     *services.ReplayService
	Dispatcher  *Dispatcher
	Tokens      *middleware.ConnectionTokens // random key when nil
	Archive     ArchiveReader // optional
	ArchiveRuns ArchiveStats  // optional
	Log         *slog.Logger
}

func SetupRoutes(app *fiber.App, d Deps) {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Tokens == nil {
		d.Tokens = middleware.NewConnectionTokens("")
	}

	// Event stream; the first event carries the connection ID and its token.
	app.Get("/events", middleware.StreamConnection(d.Tokens), StreamEvents(d.Hub, d.Lobby, d.Log))

	// Inbound actions for a connection.
	actions := app.Group("/actions", middleware.ConnectionContext(d.Tokens))
	actions.Post("/:type", d.Dispatcher.HandleAction)

	// Reads.
	SetupGameRoutes(app, d.Games, d.Lobby, d.Hub, d.ArchiveRuns, d.Tokens)
	SetupReplayRoutes(app, d.Replays, d.Archive, d.Log)
	SetupTournamentRoutes(app, d.Tournaments, d.Replays, d.Archive, d.Log)
}
