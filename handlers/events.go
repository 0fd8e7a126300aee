package handlers

import (
	"bufio"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"rps-arena/middleware"
	"rps-arena/services"
)

const keepAliveInterval = 15 * time.Second

// StreamEvents serves GET /events. The first event carries the connection ID
// and the token the client must send back in X-Connection-ID; every event
// queued for the connection follows until the client goes away.
func StreamEvents(hub *services.Hub, lobby *services.LobbyService, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		connID, token := middleware.ConnectionID(c), middleware.ConnectionToken(c)

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		conn := hub.Register(connID)
		lobby.Connect(connID)
		done := c.Context().Done()

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer func() {
				if hub.Release(conn) {
					lobby.Disconnect(connID)
				}
			}()

			if err := writeSSE(w, services.Event{
				Type: services.EventConnected,
				Data: services.ConnectedPayload{ConnectionID: connID, Token: token},
			}); err != nil {
				return
			}

			ticker := time.NewTicker(keepAliveInterval)
			defer ticker.Stop()

			for {
				select {
				case ev, ok := <-conn.Events():
					if !ok {
						return
					}
					if err := writeSSE(w, ev); err != nil {
						log.Debug("sse_client_gone", "conn_id", connID, "err", err)
						return
					}
				case <-ticker.C:
					w.WriteString(":\n\n")
					if err := w.Flush(); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		})
		return nil
	}
}

func writeSSE(w *bufio.Writer, ev services.Event) error {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
		return err
	}
	return w.Flush()
}
