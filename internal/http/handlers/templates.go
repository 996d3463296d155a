package handlers

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const indexTemplate = "index.html"

// Templates parses the HTML pages served by the handlers.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}
