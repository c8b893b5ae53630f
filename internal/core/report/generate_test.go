package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"webshot/internal/core/session"
)

func newReportSession(t *testing.T, dir string, count int) *session.Service {
	t.Helper()
	sess, err := session.New(filepath.Join(dir, "report.db"), nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })

	for i := 0; i < count; i++ {
		url := fmt.Sprintf("http://site-%02d.test/", i)
		image := fmt.Sprintf("http-site-%02d.test-80.x.png", i)
		if err := os.WriteFile(filepath.Join(dir, image), []byte("png"), 0o644); err != nil {
			t.Fatalf("write image: %v", err)
		}
		screen := session.Screen{
			URL:      url,
			URLFinal: url,
			Title:    fmt.Sprintf("Site %02d", i),
			Server:   "nginx",
			Status:   200,
			Image:    image,
		}
		if err := sess.AddScreen(screen); err != nil {
			t.Fatalf("add screen: %v", err)
		}
	}
	return sess
}

func TestGeneratePaginates(t *testing.T) {
	dir := t.TempDir()
	sess := newReportSession(t, dir, 10)

	index, err := Generate(sess, Options{PageSize: 4, Dir: dir})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if index != filepath.Join(dir, "index.html") {
		t.Errorf("unexpected index path %q", index)
	}

	// 10 results at 4 per page is 3 pages
	for i := 0; i < 3; i++ {
		if _, err := os.Stat(filepath.Join(dir, fmt.Sprintf("page.%d.html", i))); err != nil {
			t.Errorf("missing page %d: %v", i, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "page.3.html")); err == nil {
		t.Error("unexpected fourth page")
	}

	raw, err := os.ReadFile(filepath.Join(dir, "page.0.html"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	page := string(raw)
	for _, want := range []string{
		"Site 00", "Site 03",
		`id="result-id-0"`,
		// page 0 wraps back to the last page
		"page.2.html",
		"page.1.html",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page.0.html missing %q", want)
		}
	}
	if strings.Contains(page, "Site 04") {
		t.Error("page.0.html holds a result belonging to page 1")
	}

	rawIndex, err := os.ReadFile(index)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	// every title after the first gets an anchor into its page
	if !strings.Contains(string(rawIndex), "page.1.html#result-id-4") {
		t.Errorf("index missing anchor for the second page:\n%s", rawIndex)
	}
}

func TestGenerateEmptySession(t *testing.T) {
	dir := t.TempDir()
	sess := newReportSession(t, dir, 0)

	index, err := Generate(sess, Options{Dir: dir})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if index != "" {
		t.Errorf("expected no report for an empty session, got %q", index)
	}
}

func TestGenerateEmbedsImages(t *testing.T) {
	dir := t.TempDir()
	sess := newReportSession(t, dir, 1)

	if _, err := Generate(sess, Options{Dir: dir, EmbedImages: true}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "page.0.html"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !strings.Contains(string(raw), "data:image/png;base64,") {
		t.Error("expected inlined image data")
	}
}

func TestSortKeyFallsBackToServer(t *testing.T) {
	withTitle := session.Screen{Title: "ZTitle", Server: "apache"}
	untitled := session.Screen{Server: "Nginx"}
	if got := sortKey(withTitle); got != "ztitle" {
		t.Errorf("sortKey = %q", got)
	}
	if got := sortKey(untitled); got != "nginx" {
		t.Errorf("sortKey = %q", got)
	}
}
