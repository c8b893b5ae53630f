package shoot

import (
	"context"
	"encoding/base64"
	"sort"
	"strings"

	"webshot/internal/core/capture"
	"webshot/internal/core/session"
	"webshot/internal/logger"
	"webshot/internal/worker"
)

// Service drives a bounded-concurrency sweep of queued URLs through the
// render client, recording every outcome in the session.
type Service struct {
	session *session.Service
	client  *capture.Client
	// directory screenshots are written to
	outputDir string
	log       *logger.Logger
}

func New(sess *session.Service, client *capture.Client, outputDir string) *Service {
	return &Service{
		session:   sess,
		client:    client,
		outputDir: outputDir,
		log:       logger.New("Shoot"),
	}
}

// CaptureAll captures every URL, at most threads at a time. URLs are
// processed independently with no ordering guarantees; a single URL's
// failure never aborts sibling work. Cancelling ctx stops dispatching new
// work while in-flight captures run to completion.
func (s *Service) CaptureAll(ctx context.Context, urls []string, threads int) {
	if len(urls) == 0 {
		return
	}
	// a pool larger than the work available is wasteful
	if threads > len(urls) {
		threads = len(urls)
	}
	s.log.LogDebugf("Scanning with %d worker(s)", threads)

	tasks := make([]func(), 0, len(urls))
	for _, u := range urls {
		u := u
		tasks = append(tasks, func() { s.shootOne(u) })
	}
	worker.NewPool(threads).Run(ctx, tasks)
}

// shootOne is the per-URL task boundary: any failure, expected or not, ends
// in exactly one terminal status for this URL.
func (s *Service) shootOne(url string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.LogErrorf("Failed on %s: %v", url, r)
			s.setStatus(url, session.StatusError)
		}
	}()

	// An earlier-dispatched URL's redirect chain may already have landed
	// here. URLs are deduped before dispatch, so this only catches that.
	if s.alreadyCaptured(url) {
		s.log.LogInfof("Already got a screenshot of %s", url)
		s.setStatus(url, session.StatusDuplicate)
		return
	}

	s.log.LogInfof("Taking screenshot: %s", url)
	page, err := s.client.Capture(url, nil)
	if err != nil {
		s.log.LogErrorf("Failed to take screenshot for %s: %v", url, err)
		s.setStatus(url, session.StatusError)
		return
	}

	if !strings.EqualFold(url, page.URLFinal) {
		s.log.LogDebugf("Redirected: %s -> %s", url, page.URLFinal)
	}
	// Convergent redirects are only discoverable after rendering; the
	// rendered image is discarded for duplicates.
	if s.alreadyCaptured(page.URLFinal) {
		s.log.LogInfof("Already got a screenshot of %s", page.URLFinal)
		s.setStatus(url, session.StatusDuplicate)
		return
	}

	img, err := base64.StdEncoding.DecodeString(page.Image)
	if err != nil {
		s.log.LogErrorf("Failed to decode screenshot for %s: %v", url, err)
		s.setStatus(url, session.StatusError)
		return
	}
	name, err := writeImage(s.outputDir, url, img)
	if err != nil {
		s.log.LogErrorf("Failed to save screenshot: %v", err)
		s.setStatus(url, session.StatusError)
		return
	}

	screen := session.Screen{
		URL:      url,
		URLFinal: page.URLFinal,
		Title:    page.Title,
		Server:   headerValue(page.Headers, "server"),
		Status:   page.Status,
		Image:    name,
		Headers:  sortedHeaders(page.Headers),
	}
	s.log.LogDebugf("[%d] GET %s : title=%q, server=%q", screen.Status, screen.URLFinal, screen.Title, screen.Server)

	if err := s.session.AddScreen(screen); err != nil {
		// leave the URL un-finished so a later retry pass picks it up
		s.log.LogErrorf("Failed to add screenshot: %v", err)
	}
}

func (s *Service) alreadyCaptured(urlFinal string) bool {
	exists, err := s.session.ScreenExists(urlFinal)
	if err != nil {
		s.log.LogErrorf("Failed duplicate check for %s: %v", urlFinal, err)
		return false
	}
	return exists
}

func (s *Service) setStatus(url string, st session.Status) {
	if err := s.session.UpdateURL(url, st); err != nil {
		s.log.LogErrorf("Failed to set %s status for %s: %v", st, url, err)
	}
}

// sortedHeaders converts response headers to pairs sorted alphabetically by
// name, so stored headers serialize deterministically.
func sortedHeaders(headers map[string]string) []session.Header {
	out := make([]session.Header, 0, len(headers))
	for k, v := range headers {
		out = append(out, session.Header{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
