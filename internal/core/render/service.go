package render

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"webshot/internal/config"
	"webshot/internal/core/capture"
	"webshot/internal/logger"

	"github.com/playwright-community/playwright-go"
)

// Service drives the headless browser behind the capture protocol. One
// browser instance lives for the whole service lifetime; every capture gets
// its own fresh browser context so page state never bleeds between URLs.
type Service struct {
	log     *logger.Logger
	cfg     config.Config
	desktop Profile
	mobile  Profile
	pw      *playwright.Playwright
	browser playwright.Browser
}

func New(cfg config.Config) (*Service, error) {
	s := &Service{
		log:     logger.New("RenderService"),
		cfg:     cfg,
		desktop: desktopProfile,
		mobile:  mobileProfile,
	}
	if cfg.CaptureWidth > 0 {
		s.desktop.Width = cfg.CaptureWidth
	}
	if cfg.CaptureHeight > 0 {
		s.desktop.Height = cfg.CaptureHeight
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright initialization failed: %w", err)
	}
	s.pw = pw

	args := []string{
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu",
		fmt.Sprintf("--disk-cache-dir=%s", cfg.RenderDataDir),
	}
	opts := playwright.BrowserTypeLaunchOptions{
		Headless:      playwright.Bool(!cfg.RenderHeadful),
		Args:          args,
		DownloadsPath: playwright.String(cfg.RenderDataDir),
	}
	if cfg.RenderProxy != "" {
		opts.Proxy = &playwright.Proxy{Server: cfg.RenderProxy}
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("browser launch failed: %w", err)
	}
	s.browser = browser
	return s, nil
}

// UserAgents returns the desktop and mobile user agents captures use,
// reported by the status endpoint so clients can mirror them.
func (s *Service) UserAgents() (desktop, mobile string) {
	return s.desktop.UserAgent, s.mobile.UserAgent
}

// Viewports returns the desktop and mobile capture dimensions.
func (s *Service) Viewports() (desktop, mobile [2]int) {
	return [2]int{s.desktop.Width, s.desktop.Height},
		[2]int{s.mobile.Width, s.mobile.Height}
}

// Capture loads the requested URL, waits out the render delay, and returns
// the page metadata plus a base64 PNG of the viewport.
func (s *Service) Capture(req capture.Request) (*capture.Response, error) {
	if err := checkURL(req.URL); err != nil {
		return nil, err
	}
	profile := s.desktop
	if req.Mobile {
		profile = s.mobile
	}

	ctx, err := s.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(profile.UserAgent),
		Viewport:          &playwright.Size{Width: profile.Width, Height: profile.Height},
		IsMobile:          playwright.Bool(profile.IsMobile),
		HasTouch:          playwright.Bool(profile.HasTouch),
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("browser context creation failed: %w", err)
	}
	defer ctx.Close()

	page, err := ctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("page creation failed: %w", err)
	}
	if len(req.Headers) > 0 {
		if err := page.SetExtraHTTPHeaders(req.Headers); err != nil {
			return nil, fmt.Errorf("set headers failed: %w", err)
		}
	}

	resp, err := page.Goto(req.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(req.TimeoutMs)),
	})
	if err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	if req.RenderWaitMs > 0 {
		page.WaitForTimeout(float64(req.RenderWaitMs))
	}

	buf, err := page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: playwright.Float(float64(req.TimeoutMs)),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("screenshot capture resulted in empty image")
	}

	title, err := page.Title()
	if err != nil {
		s.log.LogWarnf("Failed to read title for %s: %v", req.URL, err)
	}

	out := &capture.Response{
		URLFinal: page.URL(),
		Title:    title,
		Status:   -1,
		Headers:  map[string]string{},
		Image:    base64.StdEncoding.EncodeToString(buf),
		Security: map[string]any{},
	}
	if resp != nil {
		out.Status = resp.Status()
		if headers, err := resp.AllHeaders(); err == nil {
			out.Headers = headers
		}
		if sec, err := resp.SecurityDetails(); err == nil && sec != nil {
			out.Security = securityMap(sec)
		}
	}
	return out, nil
}

// Stop closes the browser and the playwright driver.
func (s *Service) Stop() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.log.LogError("Failed to close browser", err)
		}
		s.browser = nil
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			s.log.LogError("Failed to stop playwright", err)
		}
		s.pw = nil
	}
}

func checkURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https") {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || restrictedPorts[port] {
			return fmt.Errorf("restricted port: %s", p)
		}
	}
	return nil
}

func securityMap(sec *playwright.ResponseSecurityDetailsResult) map[string]any {
	out := map[string]any{}
	if sec.Protocol != nil {
		out["protocol"] = *sec.Protocol
	}
	if sec.Issuer != nil {
		out["issuer"] = *sec.Issuer
	}
	if sec.SubjectName != nil {
		out["subjectName"] = *sec.SubjectName
	}
	if sec.ValidFrom != nil {
		out["validFrom"] = *sec.ValidFrom
	}
	if sec.ValidTo != nil {
		out["validTo"] = *sec.ValidTo
	}
	return out
}
