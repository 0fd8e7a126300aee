package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"rps-arena/middleware"
	"rps-arena/models"
	"rps-arena/services"
)

// Inbound action names, shared by the HTTP and WebSocket transports.
const (
	ActionJoinGame         = "join_game"
	ActionMakeMove         = "make_move"
	ActionCreateTournament = "create_tournament"
	ActionJoinTournament   = "join_tournament"
	ActionUpdateSettings   = "update_tournament_settings"
	ActionStartTournament  = "start_tournament"
	ActionChatMessage      = "chat_message"
	ActionReaction         = "reaction"
	ActionSpectate         = "spectate"
	ActionRequestReplay    = "request_replay"
)

var (
	errUnknownAction = errors.New("unknown action")
	errBadPayload    = errors.New("malformed payload")
)

type joinGameRequest struct {
	Mode       models.GameMode `json:"mode"`
	PlayerName string          `json:"playerName"`
}

type makeMoveRequest struct {
	Move string `json:"move"`
}

type createTournamentRequest struct {
	PlayerName string `json:"playerName"`
}

type joinTournamentRequest struct {
	TournamentID string `json:"tournamentId"`
	PlayerName   string `json:"playerName"`
}

type updateSettingsRequest struct {
	Settings json.RawMessage `json:"settings"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

type spectateRequest struct {
	TournamentID string `json:"tournamentId"`
}

type replayRequest struct {
	ReplayID string `json:"replayId"`
}

// Dispatcher decodes inbound actions and routes them to the lobby. Every
// rejection is also pushed to the caller as an error event.
type Dispatcher struct {
	lobby  *services.LobbyService
	notify services.Notifier
	log    *slog.Logger
}

func NewDispatcher(lobby *services.LobbyService, notify services.Notifier, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{lobby: lobby, notify: notify, log: log}
}

func (d *Dispatcher) Dispatch(connID, action string, data []byte) (any, error) {
	result, err := d.run(connID, action, data)
	if err != nil {
		d.notify.Send(connID, services.Event{Type: services.EventError, Data: services.ErrorPayload{Message: err.Error()}})
		d.log.Debug("action_rejected", "conn_id", connID, "action", action, "err", err)
	}
	return result, err
}

func (d *Dispatcher) run(connID, action string, data []byte) (any, error) {
	switch action {
	case ActionJoinGame:
		var req joinGameRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return nil, d.lobby.JoinGame(connID, req.Mode, req.PlayerName)

	case ActionMakeMove:
		var req makeMoveRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return nil, d.lobby.MakeMove(connID, req.Move)

	case ActionCreateTournament:
		var req createTournamentRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return d.lobby.CreateTournament(connID, req.PlayerName)

	case ActionJoinTournament:
		var req joinTournamentRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return nil, d.lobby.JoinTournament(connID, req.TournamentID, req.PlayerName)

	case ActionUpdateSettings:
		var req updateSettingsRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		var patch models.SettingsPatch
		if err := decodeStrict(req.Settings, &patch); err != nil {
			return nil, err
		}
		return nil, d.lobby.UpdateTournamentSettings(connID, patch)

	case ActionStartTournament:
		return nil, d.lobby.StartTournament(connID)

	case ActionChatMessage:
		var req chatRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return nil, d.lobby.SendChatMessage(connID, req.Message)

	case ActionReaction:
		var req reactionRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return nil, d.lobby.SendReaction(connID, req.Emoji)

	case ActionSpectate:
		var req spectateRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return nil, d.lobby.Spectate(connID, req.TournamentID)

	case ActionRequestReplay:
		var req replayRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return nil, d.lobby.RequestReplay(connID, req.ReplayID)
	}
	return nil, fmt.Errorf("%w: %q", errUnknownAction, action)
}

// HandleAction serves POST /actions/:type.
func (d *Dispatcher) HandleAction(c *fiber.Ctx) error {
	result, err := d.Dispatch(middleware.ConnectionID(c), c.Params("type"), c.Body())
	if err != nil {
		return respondError(c, err)
	}
	if result == nil {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true})
	}
	return c.JSON(result)
}

func decode(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

// decodeStrict rejects fields the target does not declare.
func decodeStrict(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}
