package shoot

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// imagePrefix derives a file-name prefix from the URL's scheme, host, and
// port so images from unrelated URLs never collide on name.
func imagePrefix(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "screen"
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if strings.EqualFold(u.Scheme, "http") {
			port = "80"
		} else {
			port = "443"
		}
	}
	name := fmt.Sprintf("%s-%s-%s", u.Scheme, host, port)
	return strings.NewReplacer("/", "", "\\", "").Replace(name)
}

// writeImage saves the PNG bytes under dir with a unique name and returns
// the file's base name. Equivalent origins get a random suffix so retries
// and collisions never overwrite an earlier capture.
func writeImage(dir, rawURL string, img []byte) (string, error) {
	f, err := os.CreateTemp(dir, imagePrefix(rawURL)+".*.png")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(img); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return filepath.Base(f.Name()), nil
}
