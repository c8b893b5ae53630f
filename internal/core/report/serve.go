package report

import (
	"github.com/gofiber/fiber/v2"

	"webshot/internal/logger"
)

// Serve exposes a generated report directory over HTTP. Blocks until the
// listener fails or the process exits.
func Serve(dir, addr string) error {
	log := logger.New("Report")
	app := fiber.New(fiber.Config{
		AppName:               "webshot report",
		DisableStartupMessage: true,
	})
	app.Static("/", dir, fiber.Static{Index: "index.html"})
	log.LogInfof("Serving %s on http://%s/", dir, addr)
	return app.Listen(addr)
}
