// middleware/connection.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	ConnectionHeader = "X-Connection-ID"
	connIDLocal      = "conn_id"
	connTokenLocal   = "conn_token"
)

// ConnectionContext requires the X-Connection-ID header to carry the token
// issued when the caller opened its event stream, and stores the connection
// ID it names for handlers.
func ConnectionContext(tokens *ConnectionTokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Get(ConnectionHeader))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing " + ConnectionHeader + "; open /events first",
			})
		}
		connID, err := tokens.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": ConnectionHeader + " is not a token issued by this server",
			})
		}
		c.Locals(connIDLocal, connID)
		return c.Next()
	}
}

// StreamConnection assigns the connection for a new event stream. A client
// may pass ?conn=<token> to resume the connection it was issued before.
func StreamConnection(tokens *ConnectionTokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		connID := uuid.NewString()
		if resume := strings.TrimSpace(c.Query("conn")); resume != "" {
			id, err := tokens.Verify(resume)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "conn must be a connection token issued by this server",
				})
			}
			connID = id
		}
		token, err := tokens.Issue(connID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not issue connection token"})
		}
		c.Locals(connIDLocal, connID)
		c.Locals(connTokenLocal, token)
		return c.Next()
	}
}

// ConnectionID returns the ID stored by ConnectionContext or StreamConnection.
func ConnectionID(c *fiber.Ctx) string {
	id, _ := c.Locals(connIDLocal).(string)
	return id
}

// ConnectionToken returns the token StreamConnection issued for this stream.
func ConnectionToken(c *fiber.Ctx) string {
	token, _ := c.Locals(connTokenLocal).(string)
	return token
}
