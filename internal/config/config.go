package config

import (
	"os"
	"strconv"
)

// Config carries the environment-driven settings for the render service
// daemon. The operator CLI passes these through the launch environment of
// the process it supervises; renderd reads them back here.
type Config struct {
	// Loopback port the render service listens on.
	RenderPort int
	// Shared secret every request must carry in the "token" header.
	RenderToken string
	// Per-run scratch directory for browser profile and downloads.
	RenderDataDir string
	// Optional upstream proxy for the browser, e.g. "socks5://127.0.0.1:1080".
	RenderProxy string
	// Run the browser with a visible window for debugging.
	RenderHeadful bool

	CaptureWidth  int
	CaptureHeight int
}

const (
	EnvRenderPort    = "WEBSHOT_RENDER_PORT"
	EnvRenderToken   = "WEBSHOT_RENDER_TOKEN"
	EnvRenderDataDir = "WEBSHOT_RENDER_DATA"
	EnvRenderProxy   = "WEBSHOT_RENDER_PROXY"
	EnvRenderHeadful = "WEBSHOT_RENDER_HEADFUL"
)

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func Load() Config {
	return Config{
		RenderPort:    getenvInt(EnvRenderPort, 3000),
		RenderToken:   os.Getenv(EnvRenderToken),
		RenderDataDir: getenv(EnvRenderDataDir, "./data"),
		RenderProxy:   os.Getenv(EnvRenderProxy),
		RenderHeadful: getenvBool(EnvRenderHeadful, false),

		CaptureWidth:  getenvInt("WEBSHOT_CAPTURE_WIDTH", 1600),
		CaptureHeight: getenvInt("WEBSHOT_CAPTURE_HEIGHT", 900),
	}
}
