package capture

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"webshot/internal/config"
	"webshot/internal/logger"

	"github.com/google/uuid"
)

// ErrStartup means the render service never became reachable. It is the one
// fatal condition of a run: no capture can succeed without a renderer.
var ErrStartup = errors.New("failed to start capture service")

// ServiceConfig configures the supervised render service process.
type ServiceConfig struct {
	// Path to the renderd binary.
	BinaryPath string
	// Optional proxy for the browser, e.g. "socks5://127.0.0.1:1080".
	Proxy string
	// Show the browser window instead of running headless.
	ShowBrowser bool
	// Loopback port for the service. 0 picks a free port.
	Port int
}

// Service owns the lifecycle of exactly one render service process per run.
// It generates the shared-secret token, materializes a launch script, spawns
// the process with a private scratch directory, health-checks it until it is
// ready, and tears everything down afterwards. Callers pair Start with a
// deferred Shutdown so teardown runs on every exit path.
type Service struct {
	cfg    ServiceConfig
	token  string
	port   int
	client *Client
	log    *logger.Logger

	scratchDir string
	scriptPath string
	cmd        *exec.Cmd
	exited     chan error

	warmupAttempts int
	warmupInterval time.Duration
	gracePeriod    time.Duration
}

// NewService creates a supervisor. The token and port are owned by this
// instance and handed to the client explicitly; nothing is process-global.
func NewService(cfg ServiceConfig) (*Service, error) {
	port := cfg.Port
	if port == 0 {
		p, err := freeLoopbackPort()
		if err != nil {
			return nil, fmt.Errorf("pick service port: %w", err)
		}
		port = p
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate service token: %w", err)
	}
	token := hex.EncodeToString(buf)

	return &Service{
		cfg:            cfg,
		token:          token,
		port:           port,
		client:         NewClient(token, fmt.Sprintf("http://127.0.0.1:%d", port)),
		log:            logger.New("CaptureService"),
		warmupAttempts: 10,
		warmupInterval: time.Second,
		gracePeriod:    3 * time.Second,
	}, nil
}

// Start launches the render service and waits for it to become ready. On
// failure everything that was started is torn down and ErrStartup returned.
func (s *Service) Start(ctx context.Context) (*Client, error) {
	if s.cmd != nil {
		return s.client, nil
	}

	scratch := filepath.Join(os.TempDir(), "webshot-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	s.scratchDir = scratch

	script, err := s.writeLaunchScript(scratch)
	if err != nil {
		s.Shutdown()
		return nil, err
	}
	s.scriptPath = script

	cmd := exec.Command("/bin/sh", script)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		s.Shutdown()
		return nil, fmt.Errorf("spawn render service: %w", err)
	}
	s.cmd = cmd
	s.exited = make(chan error, 1)
	go func() { s.exited <- cmd.Wait() }()

	s.log.LogInfo("Warming up the headless browser...")
	for attempt := 0; attempt < s.warmupAttempts; attempt++ {
		if _, err := s.client.Status(); err == nil {
			return s.client, nil
		} else if !strings.Contains(strings.ToLower(err.Error()), "connection refused") {
			// the listener is up but still initializing; counts as a
			// failed attempt, not an abort
			s.log.LogError("Failed to check status of capture service", err)
		}
		select {
		case <-ctx.Done():
			s.Shutdown()
			return nil, ctx.Err()
		case <-time.After(s.warmupInterval):
		}
	}
	s.Shutdown()
	return nil, ErrStartup
}

// Shutdown tears down whatever Start managed to create. Safe to call on a
// supervisor that never started, and safe to call twice.
func (s *Service) Shutdown() {
	if s.cmd != nil {
		s.client.Shutdown()
		select {
		case <-s.exited:
		case <-time.After(s.gracePeriod):
			s.log.LogDebug("Forcibly terminating the capture service")
			if err := s.cmd.Process.Kill(); err != nil {
				s.log.LogError("Failed to kill capture service", err)
			}
			<-s.exited
		}
		s.cmd = nil
	}
	if s.scriptPath != "" {
		if err := os.Remove(s.scriptPath); err != nil && !os.IsNotExist(err) {
			s.log.LogError("Failed to remove launch script", err)
		}
		s.scriptPath = ""
	}
	if s.scratchDir != "" {
		if err := os.RemoveAll(s.scratchDir); err != nil {
			s.log.LogError("Failed to remove scratch directory", err)
		}
		s.scratchDir = ""
	}
}

// Client returns the authenticated client for the supervised service.
func (s *Service) Client() *Client { return s.client }

// writeLaunchScript materializes the script that execs renderd with the
// per-run token, port, and scratch directory in its environment. The
// browser profile lives under the scratch directory so state is isolated
// per run.
func (s *Service) writeLaunchScript(scratch string) (string, error) {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "export %s=%d\n", config.EnvRenderPort, s.port)
	fmt.Fprintf(&b, "export %s=%s\n", config.EnvRenderToken, s.token)
	fmt.Fprintf(&b, "export %s=%q\n", config.EnvRenderDataDir, scratch)
	if s.cfg.Proxy != "" {
		fmt.Fprintf(&b, "export %s=%q\n", config.EnvRenderProxy, s.cfg.Proxy)
	}
	if s.cfg.ShowBrowser {
		fmt.Fprintf(&b, "export %s=1\n", config.EnvRenderHeadful)
	}
	fmt.Fprintf(&b, "exec %q\n", s.cfg.BinaryPath)

	path := filepath.Join(scratch, "launch.sh")
	if err := os.WriteFile(path, []byte(b.String()), 0o700); err != nil {
		return "", fmt.Errorf("write launch script: %w", err)
	}
	return path, nil
}

func freeLoopbackPort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
