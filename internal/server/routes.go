package server

import (
	"crypto/subtle"

	"webshot/internal/core/render"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Render *render.Handler
	Token  string
}

// RegisterRoutes wires the capture protocol onto the app. Every route sits
// behind the shared-token check, status included.
func RegisterRoutes(app *fiber.App, d Dependencies) {
	app.Use(tokenAuth(d.Token))

	app.Post("/status", d.Render.HandleStatus)
	app.Post("/capture", d.Render.HandleCapture)
	app.Post("/shutdown", d.Render.HandleShutdown)
}

// tokenAuth rejects any request whose token header does not match the value
// the daemon was started with. The comparison is constant time.
func tokenAuth(token string) fiber.Handler {
	want := []byte(token)
	return func(c *fiber.Ctx) error {
		got := []byte(c.Get("token"))
		if len(want) == 0 || subtle.ConstantTimeCompare(want, got) != 1 {
			return c.Status(fiber.StatusBadRequest).SendString("bad request")
		}
		return c.Next()
	}
}
