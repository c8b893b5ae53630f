package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"webshot/internal/logger"
	"webshot/internal/platform/sqlite"
)

// Service is the durable, resumable record of which URLs were asked for and
// what happened to each. It backs pause/resume/retry: re-running with the
// same session file picks up where the previous run stopped.
type Service struct {
	db  *sqlite.Service
	log *logger.Logger
}

// New opens the session file at path and enqueues urls that are not already
// present. Enqueueing is idempotent: a URL that already has a row keeps its
// current status.
func New(path string, urls []string) (*Service, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	s := &Service{db: db, log: logger.New("Session")}
	if err := s.init(urls); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) init(urls []string) error {
	return s.db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS urls
			(id INTEGER PRIMARY KEY, url TEXT, status INTEGER, UNIQUE(url))`); err != nil {
			return err
		}
		if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS screens
			(id INTEGER PRIMARY KEY, url TEXT, url_final TEXT, title TEXT, server TEXT, headers TEXT,
			status INTEGER, image TEXT, UNIQUE(url))`); err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO urls (url, status) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, u := range urls {
			if _, err := stmt.Exec(u, StatusQueued); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) Close() error { return s.db.Close() }

// UpdateURL sets the terminal status for a URL. Updating a URL that was
// never enqueued is a silent no-op.
func (s *Service) UpdateURL(url string, st Status) error {
	_, err := s.db.DB().Exec(`UPDATE urls SET status=? WHERE url=?`, st, url)
	if err != nil {
		return fmt.Errorf("update url status: %w", err)
	}
	return nil
}

// AddScreen stores a capture result and marks the URL finished in one
// transaction, so a crash can never leave a result without a FINISHED
// status or the reverse. A result already present for the URL is ignored.
func (s *Service) AddScreen(screen Screen) error {
	headers, err := json.Marshal(screen.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}
	return s.db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO screens
			(url, url_final, title, server, headers, status, image)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			screen.URL, screen.URLFinal, screen.Title, screen.Server,
			string(headers), screen.Status, screen.Image); err != nil {
			return err
		}
		_, err := tx.Exec(`UPDATE urls SET status=? WHERE url=?`, StatusFinished, screen.URL)
		return err
	})
}

// ScreenExists reports whether a result is already stored whose final URL
// matches urlFinal, compared case-insensitively. Concurrent workers may both
// see false for the same final URL before either writes; the unique
// constraint on insert makes that race harmless.
func (s *Service) ScreenExists(urlFinal string) (bool, error) {
	var u string
	err := s.db.DB().QueryRow(
		`SELECT url FROM screens WHERE url_final = ? COLLATE NOCASE`, urlFinal).Scan(&u)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query screens: %w", err)
	}
	return true, nil
}

// QueuedURLs returns the URLs still waiting for an attempt.
func (s *Service) QueuedURLs() ([]string, error) {
	return s.urlsWithStatus(StatusQueued)
}

// FailedURLs returns the URLs whose last attempt ended in an error. A retry
// pass re-admits exactly these.
func (s *Service) FailedURLs() ([]string, error) {
	return s.urlsWithStatus(StatusError)
}

func (s *Service) urlsWithStatus(st Status) ([]string, error) {
	rows, err := s.db.DB().Query(`SELECT url FROM urls WHERE status = ?`, st)
	if err != nil {
		return nil, fmt.Errorf("query urls: %w", err)
	}
	defer rows.Close()
	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// Results returns stored captures ordered by (title, server) so report
// pagination is deterministic. With ignoreErrors set, only HTTP statuses in
// [200,400) are returned. With unique set, rows sharing a normalized final
// URL collapse to one representative.
func (s *Service) Results(ignoreErrors, unique bool) ([]Screen, error) {
	q := `SELECT url, url_final, title, server, headers, status, image FROM screens`
	if ignoreErrors {
		q += ` WHERE status >= 200 AND status < 400`
	}
	q += ` ORDER BY title, server ASC`

	rows, err := s.db.DB().Query(q)
	if err != nil {
		return nil, fmt.Errorf("query screens: %w", err)
	}
	defer rows.Close()

	var results []Screen
	for rows.Next() {
		var screen Screen
		var headers string
		if err := rows.Scan(&screen.URL, &screen.URLFinal, &screen.Title, &screen.Server,
			&headers, &screen.Status, &screen.Image); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(headers), &screen.Headers); err != nil {
			s.log.LogWarnf("bad headers for %s: %v", screen.URL, err)
			screen.Headers = nil
		}
		results = append(results, screen)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if unique {
		seen := make(map[string]bool, len(results))
		uniq := results[:0]
		for _, r := range results {
			// mobile emulation can leave a final URL of about:blank; those
			// rows never collapse with each other
			if r.URLFinal == "" || strings.EqualFold(r.URLFinal, "about:blank") {
				uniq = append(uniq, r)
				continue
			}
			key := normalizeURL(r.URLFinal)
			if seen[key] {
				continue
			}
			seen[key] = true
			uniq = append(uniq, r)
		}
		results = uniq
	}
	return results, nil
}

// normalizeURL produces the canonical form used only for duplicate
// comparison: scheme://host:port/path-with-trailing-slash-stripped?query.
func normalizeURL(raw string) string {
	p, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	port := p.Port()
	if port == "" {
		switch strings.ToLower(p.Scheme) {
		case "http":
			port = "80"
		case "https":
			port = "443"
		}
	}
	return fmt.Sprintf("%s://%s:%s/%s?%s",
		strings.ToLower(p.Scheme), strings.ToLower(p.Hostname()), port,
		strings.Trim(p.Path, "/"), p.RawQuery)
}
