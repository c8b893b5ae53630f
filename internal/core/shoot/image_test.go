package shoot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestImagePrefix(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://a.test/", "http-a.test-80"},
		{"https://a.test/", "https-a.test-443"},
		{"http://a.test:8080/admin", "http-a.test-8080"},
		{"https://a.test:8443/?q=1", "https-a.test-8443"},
	}
	for _, tt := range tests {
		if got := imagePrefix(tt.url); got != tt.want {
			t.Errorf("imagePrefix(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestWriteImage(t *testing.T) {
	dir := t.TempDir()
	img := []byte("fake-png-bytes")

	name, err := writeImage(dir, "http://a.test:8080/", img)
	if err != nil {
		t.Fatalf("write image: %v", err)
	}
	if !strings.HasPrefix(name, "http-a.test-8080.") || !strings.HasSuffix(name, ".png") {
		t.Errorf("unexpected image name %q", name)
	}
	if filepath.Base(name) != name {
		t.Errorf("expected a base name, got %q", name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if string(raw) != string(img) {
		t.Error("image bytes did not round-trip")
	}

	// a second write for the same origin must not clobber the first
	other, err := writeImage(dir, "http://a.test:8080/", []byte("second"))
	if err != nil {
		t.Fatalf("write image: %v", err)
	}
	if other == name {
		t.Error("expected a distinct file name for the second capture")
	}
}
