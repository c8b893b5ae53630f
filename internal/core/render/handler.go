package render

import (
	"time"

	"webshot/internal/core/capture"
	"webshot/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// Handler handles HTTP requests for the render service.
type Handler struct {
	service  *Service
	log      *logger.Logger
	shutdown chan struct{}
}

// NewHandler creates a new render handler. Closing the returned shutdown
// channel is how the capture protocol's shutdown call reaches the daemon's
// main loop.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		log:      logger.New("RenderHandler"),
		shutdown: make(chan struct{}),
	}
}

// Shutdown is closed once a client has requested service shutdown.
func (h *Handler) Shutdown() <-chan struct{} { return h.shutdown }

// HandleStatus reports the capture configuration so clients can verify the
// service is up and learn what it will render with.
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	uaDesktop, uaMobile := h.service.UserAgents()
	vpDesktop, vpMobile := h.service.Viewports()
	return c.JSON(fiber.Map{
		"userAgent":       uaDesktop,
		"userAgentMobile": uaMobile,
		"viewPort":        fiber.Map{"width": vpDesktop[0], "height": vpDesktop[1]},
		"viewPortMobile":  fiber.Map{"width": vpMobile[0], "height": vpMobile[1]},
	})
}

// HandleCapture renders one page and returns its screenshot and metadata.
func (h *Handler) HandleCapture(c *fiber.Ctx) error {
	var req capture.Request
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fiber.StatusBadRequest, "BadRequest", "invalid request body", 0)
	}
	if req.URL == "" {
		return h.fail(c, fiber.StatusBadRequest, "BadRequest", "url is required", 0)
	}
	if req.TimeoutMs <= 0 {
		req.TimeoutMs = capture.DefaultPageLoadTimeoutMs
	}

	start := time.Now()
	h.log.LogInfof("Capturing %s", req.URL)
	resp, err := h.service.Capture(req)
	elapsed := time.Since(start)
	if err != nil {
		h.log.LogError("Capture failed for "+req.URL, err)
		return h.fail(c, fiber.StatusInternalServerError, "CaptureError", err.Error(), elapsed)
	}
	h.log.LogDebugf("Captured %s in %s", req.URL, elapsed)
	return c.JSON(resp)
}

// HandleShutdown acknowledges the request and signals the daemon to exit.
func (h *Handler) HandleShutdown(c *fiber.Ctx) error {
	h.log.LogInfo("Shutdown requested")
	select {
	case <-h.shutdown:
	default:
		close(h.shutdown)
	}
	return c.JSON(fiber.Map{"status": "shutting down"})
}

func (h *Handler) fail(c *fiber.Ctx, status int, name, message string, elapsed time.Duration) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"name":    name,
			"message": message,
			"elapsed": elapsed.Milliseconds(),
		},
	})
}
