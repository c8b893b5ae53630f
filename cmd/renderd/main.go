package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"webshot/internal/config"
	"webshot/internal/core/render"
	"webshot/internal/logger"
	"webshot/internal/server"
)

func main() {
	cfg := config.Load()
	if cfg.RenderToken == "" {
		log.Fatalf("%s must be set", config.EnvRenderToken)
	}
	logr := logger.New("main")

	renderSvc, err := render.New(cfg)
	if err != nil {
		log.Fatalf("render service init: %v", err)
	}
	defer renderSvc.Stop()

	renderHandler := render.NewHandler(renderSvc)

	app := fiber.New(fiber.Config{
		AppName:               "webshot renderd",
		DisableStartupMessage: true,
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	server.RegisterRoutes(app, server.Dependencies{
		Render: renderHandler,
		Token:  cfg.RenderToken,
	})

	// Graceful shutdown on signal or on a client shutdown call.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-shutdown:
			logr.LogInfo("Shutting down on signal...")
		case <-renderHandler.Shutdown():
			logr.LogInfo("Shutting down on client request...")
		}
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.RenderPort)
	logr.LogInfof("Listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
