package targets

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"webshot/internal/logger"
)

var log = logger.New("Targets")

// ProcessURLs makes sure every URL has a valid scheme, dropping any that
// cannot be made valid. A URL without a scheme expands to both its http and
// https forms since either may be live.
func ProcessURLs(raw []string) []string {
	urls := make(map[string]bool)
	for _, u := range raw {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		// "host:port" parses as a scheme in Go, so schemeless detection
		// goes by the separator, not by url.Parse
		if !strings.Contains(u, "://") {
			q, err := url.Parse("https://" + u)
			if err != nil || q.Host == "" {
				log.LogErrorf("invalid URL host: %s", u)
				continue
			}
			if q.Path == "" {
				u += "/"
			}
			urls["http://"+u] = true
			urls["https://"+u] = true
			continue
		}
		p, err := url.Parse(u)
		if err != nil {
			log.LogErrorf("invalid URL: %s", u)
			continue
		}
		switch {
		case p.Host == "":
			log.LogErrorf("invalid URL host: %s", u)
		case p.Scheme != "http" && p.Scheme != "https":
			log.LogErrorf("invalid URL scheme: %s", u)
		default:
			if p.Path == "" {
				u += "/"
			}
			urls[u] = true
		}
	}
	return sorted(urls)
}

// FromFile reads URLs from a file, one per line.
func FromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var raw []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		raw = append(raw, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ProcessURLs(raw), nil
}

func sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// urlForPort builds the URL for a discovered open port, omitting the port
// when it is the scheme default.
func urlForPort(host string, port int, httpPorts, httpsPorts map[int]bool, urls map[string]bool) {
	if httpPorts[port] {
		if port == 80 {
			urls["http://"+host+"/"] = true
		} else {
			urls[fmt.Sprintf("http://%s:%d/", host, port)] = true
		}
	}
	if httpsPorts[port] {
		if port == 443 {
			urls["https://"+host+"/"] = true
		} else {
			urls[fmt.Sprintf("https://%s:%d/", host, port)] = true
		}
	}
}
