package capture

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"webshot/internal/config"
)

// newTestService builds a supervisor with short warm-up settings so a
// failing service is detected quickly.
func newTestService(t *testing.T, cfg ServiceConfig) *Service {
	t.Helper()
	s, err := NewService(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	s.warmupAttempts = 2
	s.warmupInterval = 10 * time.Millisecond
	s.gracePeriod = 100 * time.Millisecond
	return s
}

func TestStartFailsWhenServiceNeverComesUp(t *testing.T) {
	// /bin/true exits immediately, so the port never starts answering
	s := newTestService(t, ServiceConfig{BinaryPath: "/bin/true"})

	_, err := s.Start(context.Background())
	if !errors.Is(err, ErrStartup) {
		t.Fatalf("expected ErrStartup, got %v", err)
	}
	if s.scratchDir != "" || s.scriptPath != "" {
		t.Error("startup failure must tear down scratch state")
	}
}

func TestStartRespectsContextCancellation(t *testing.T) {
	s := newTestService(t, ServiceConfig{BinaryPath: "/bin/true"})
	s.warmupAttempts = 100

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	_, err := s.Start(ctx)
	if err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancelled start should return promptly")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	s := newTestService(t, ServiceConfig{BinaryPath: "/bin/true"})
	s.Shutdown()
	s.Shutdown()

	if _, err := s.Start(context.Background()); !errors.Is(err, ErrStartup) {
		t.Fatalf("expected ErrStartup, got %v", err)
	}
	s.Shutdown()
	s.Shutdown()
}

func TestTokenAndPortArePerInstance(t *testing.T) {
	a := newTestService(t, ServiceConfig{BinaryPath: "/bin/true"})
	b := newTestService(t, ServiceConfig{BinaryPath: "/bin/true"})
	if a.token == b.token {
		t.Error("two supervisors must not share a token")
	}
	if len(a.token) != 32 {
		t.Errorf("expected a 16-byte hex token, got %q", a.token)
	}
}

func TestWriteLaunchScript(t *testing.T) {
	s := newTestService(t, ServiceConfig{
		BinaryPath:  "/usr/local/bin/renderd",
		Proxy:       "socks5://127.0.0.1:1080",
		ShowBrowser: true,
	})
	scratch := t.TempDir()
	path, err := s.writeLaunchScript(scratch)
	if err != nil {
		t.Fatalf("write script: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat script: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("script must not be world readable, got %v", info.Mode().Perm())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	script := string(raw)
	for _, want := range []string{
		config.EnvRenderPort,
		config.EnvRenderToken + "=" + s.token,
		config.EnvRenderDataDir,
		config.EnvRenderProxy,
		config.EnvRenderHeadful,
		"/usr/local/bin/renderd",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
}
