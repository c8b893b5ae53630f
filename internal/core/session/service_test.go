package session

import (
	"path/filepath"
	"testing"
)

// newTestSession creates a session backed by a file in a temp directory.
func newTestSession(t *testing.T, urls []string) *Service {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"), urls)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func screenFor(url string) Screen {
	return Screen{
		URL:      url,
		URLFinal: url,
		Title:    "Example",
		Server:   "nginx",
		Headers:  []Header{{Name: "Server", Value: "nginx"}},
		Status:   200,
		Image:    "http-example-80.12345.png",
	}
}

func TestEnqueueIdempotent(t *testing.T) {
	// re-opening with the same URLs must not reset statuses
	path := filepath.Join(t.TempDir(), "re.db")
	s2, err := New(path, []string{"http://a.test/"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s2.UpdateURL("http://a.test/", StatusFinished); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s2.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s3, err := New(path, []string{"http://a.test/", "http://b.test/"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s3.Close()

	queued, err := s3.QueuedURLs()
	if err != nil {
		t.Fatalf("queued: %v", err)
	}
	if len(queued) != 1 || queued[0] != "http://b.test/" {
		t.Errorf("expected only the new URL queued, got %v", queued)
	}
}

func TestUpdateUnknownURLIsNoop(t *testing.T) {
	s := newTestSession(t, []string{"http://a.test/"})
	if err := s.UpdateURL("http://never-enqueued.test/", StatusError); err != nil {
		t.Errorf("expected silent no-op, got %v", err)
	}
	failed, err := s.FailedURLs()
	if err != nil {
		t.Fatalf("failed urls: %v", err)
	}
	if len(failed) != 0 {
		t.Errorf("expected no failed URLs, got %v", failed)
	}
}

func TestAddScreenMarksURLFinished(t *testing.T) {
	s := newTestSession(t, []string{"http://a.test/", "http://b.test/"})

	if err := s.AddScreen(screenFor("http://a.test/")); err != nil {
		t.Fatalf("add screen: %v", err)
	}

	queued, err := s.QueuedURLs()
	if err != nil {
		t.Fatalf("queued: %v", err)
	}
	if len(queued) != 1 || queued[0] != "http://b.test/" {
		t.Errorf("expected a.test finished, queued=%v", queued)
	}

	// a second result for the same URL is silently ignored
	dup := screenFor("http://a.test/")
	dup.Title = "Changed"
	if err := s.AddScreen(dup); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	results, err := s.Results(false, false)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if results[0].Title != "Example" {
		t.Errorf("duplicate insert overwrote the original row: %+v", results[0])
	}
	if len(results[0].Headers) != 1 || results[0].Headers[0].Name != "Server" {
		t.Errorf("headers did not round-trip: %+v", results[0].Headers)
	}
}

func TestScreenExistsIsCaseInsensitive(t *testing.T) {
	s := newTestSession(t, []string{"http://a.test/"})
	screen := screenFor("http://a.test/")
	screen.URLFinal = "http://a.test/Login"
	if err := s.AddScreen(screen); err != nil {
		t.Fatalf("add screen: %v", err)
	}

	for _, probe := range []string{"http://a.test/Login", "http://a.test/login", "HTTP://A.TEST/LOGIN"} {
		exists, err := s.ScreenExists(probe)
		if err != nil {
			t.Fatalf("exists(%s): %v", probe, err)
		}
		if !exists {
			t.Errorf("expected %s to match stored final URL", probe)
		}
	}

	exists, err := s.ScreenExists("http://other.test/")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("unexpected match for unrelated URL")
	}
}

func TestResultsFilterAndOrder(t *testing.T) {
	s := newTestSession(t, nil)

	add := func(url, title, server string, status int) {
		t.Helper()
		screen := screenFor(url)
		screen.Title = title
		screen.Server = server
		screen.Status = status
		if err := s.AddScreen(screen); err != nil {
			t.Fatalf("add %s: %v", url, err)
		}
	}
	add("http://c.test/", "Charlie", "nginx", 200)
	add("http://a.test/", "Alpha", "nginx", 404)
	add("http://b.test/", "Bravo", "apache", 301)

	all, err := s.Results(false, false)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 results, got %d", len(all))
	}
	if all[0].Title != "Alpha" || all[1].Title != "Bravo" || all[2].Title != "Charlie" {
		t.Errorf("unexpected order: %v %v %v", all[0].Title, all[1].Title, all[2].Title)
	}

	ok, err := s.Results(true, false)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(ok) != 2 {
		t.Fatalf("expected the 404 dropped, got %d results", len(ok))
	}
	for _, r := range ok {
		if r.Status < 200 || r.Status >= 400 {
			t.Errorf("status %d should have been filtered", r.Status)
		}
	}
}

func TestResultsUniqueCollapsesNormalizedFinalURLs(t *testing.T) {
	s := newTestSession(t, nil)

	add := func(url, urlFinal string) {
		t.Helper()
		screen := screenFor(url)
		screen.URLFinal = urlFinal
		if err := s.AddScreen(screen); err != nil {
			t.Fatalf("add %s: %v", url, err)
		}
	}
	// same page behind default-port and trailing-slash variations
	add("http://a.test/", "http://a.test/")
	add("http://a.test:80/", "http://A.TEST:80")
	add("https://b.test/", "https://b.test/")
	// blank finals never collapse with each other
	add("http://m1.test/", "about:blank")
	add("http://m2.test/", "about:blank")

	results, err := s.Results(false, true)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 4 {
		for _, r := range results {
			t.Logf("result: %s -> %s", r.URL, r.URLFinal)
		}
		t.Fatalf("expected 4 unique results, got %d", len(results))
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"http://a.test/", "http://a.test:80", true},
		{"http://a.test/path/", "HTTP://A.TEST/path", true},
		{"https://a.test/", "https://a.test:443/", true},
		{"http://a.test/?q=1", "http://a.test/?q=2", false},
		{"http://a.test/", "https://a.test/", false},
	}
	for _, tt := range tests {
		got := normalizeURL(tt.a) == normalizeURL(tt.b)
		if got != tt.same {
			t.Errorf("normalize(%q) vs normalize(%q): same=%v, want %v", tt.a, tt.b, got, tt.same)
		}
	}
}
