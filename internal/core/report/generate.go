package report

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"webshot/internal/core/session"
	"webshot/internal/logger"
)

const DefaultPageSize = 8

// Options controls report generation.
type Options struct {
	// Results per page. Zero means DefaultPageSize.
	PageSize int
	// Drop results whose HTTP status is outside [200,400).
	IgnoreErrors bool
	// One result per row instead of the tiled layout.
	SingleColumn bool
	// Inline screenshots as data URIs instead of referencing image files.
	EmbedImages bool
	// Directory holding the captured images; pages are written here too.
	Dir string
}

// Generate writes paginated result pages plus an index into opts.Dir and
// returns the path of the index file. A session with no results generates
// nothing and returns an empty path.
func Generate(sess *session.Service, opts Options) (string, error) {
	log := logger.New("Report")
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}

	results, err := sess.Results(opts.IgnoreErrors, true)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		log.LogWarn("No results to report on")
		return "", nil
	}
	log.LogDebugf("Generating report: %d screenshot(s)", len(results))

	sort.SliceStable(results, func(i, j int) bool {
		return sortKey(results[i]) < sortKey(results[j])
	})

	pageCount := (len(results) + opts.PageSize - 1) / opts.PageSize
	pages := make([]pageLink, pageCount)
	for i := range pages {
		pages[i] = pageLink{Href: fmt.Sprintf("page.%d.html", i), Number: i}
	}

	tmpl := pageTiles
	if opts.SingleColumn {
		tmpl = pageSingleColumn
	}

	// The index maps each title/server value to its first occurrence. The
	// very first value is reachable from page 0 directly and gets no entry.
	lastKey := sortKey(results[0])
	var index []indexEntry

	for pageno := 0; pageno < pageCount; pageno++ {
		lo := pageno * opts.PageSize
		hi := lo + opts.PageSize
		if hi > len(results) {
			hi = len(results)
		}

		rows := make([]resultRow, 0, hi-lo)
		for j, r := range results[lo:hi] {
			key := sortKey(r)
			if key != lastKey {
				lastKey = key
				index = append(index, indexEntry{
					Label:  key,
					Href:   fmt.Sprintf("%s#result-id-%d", pages[pageno].Href, lo+j),
					PageNo: pageno,
				})
			}
			rows = append(rows, resultRow{
				Screen:   r,
				ID:       fmt.Sprintf("result-id-%d", lo+j),
				ImageSrc: imageSrc(opts, r.Image),
			})
		}

		data := pageData{
			Title:    fmt.Sprintf("Page %d", pageno),
			Screens:  rows,
			Count:    len(results),
			Pages:    pages,
			PageNo:   pageno,
			PagePrev: (pageno + pageCount - 1) % pageCount,
			PageNext: (pageno + 1) % pageCount,
		}
		log.LogDebugf("Generating %s", pages[pageno].Href)
		if err := writePage(filepath.Join(opts.Dir, pages[pageno].Href), tmpl, data); err != nil {
			return "", err
		}
	}

	indexPath := filepath.Join(opts.Dir, "index.html")
	if err := writePage(indexPath, pageIndex, indexData{Index: index}); err != nil {
		return "", err
	}
	return indexPath, nil
}

// sortKey orders results by page title, falling back to the server header
// for untitled pages.
func sortKey(s session.Screen) string {
	if s.Title != "" {
		return strings.ToLower(s.Title)
	}
	return strings.ToLower(s.Server)
}

func imageSrc(opts Options, image string) string {
	if !opts.EmbedImages {
		return image
	}
	raw, err := os.ReadFile(filepath.Join(opts.Dir, image))
	if err != nil {
		return image
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
}
