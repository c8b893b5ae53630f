package report

import (
	"embed"
	"html/template"
	"os"

	"webshot/internal/core/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	pageTiles        = template.Must(template.ParseFS(templateFS, "templates/tiles.html"))
	pageSingleColumn = template.Must(template.ParseFS(templateFS, "templates/single.html"))
	pageIndex        = template.Must(template.ParseFS(templateFS, "templates/index.html"))
)

type pageLink struct {
	Href   string
	Number int
}

type indexEntry struct {
	Label  string
	Href   string
	PageNo int
}

type resultRow struct {
	session.Screen
	ID       string
	ImageSrc string
}

type pageData struct {
	Title    string
	Screens  []resultRow
	Count    int
	Pages    []pageLink
	PageNo   int
	PagePrev int
	PageNext int
}

type indexData struct {
	Index []indexEntry
}

func writePage(path string, tmpl *template.Template, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
