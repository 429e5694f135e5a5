package page

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/TIANLI0/AttackLens/config"
	"github.com/TIANLI0/AttackLens/model"
)

// TemplateName is the name of the page template in Templates.
const TemplateName = "index.html"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New(TemplateName).Funcs(funcMap).ParseFS(templateFS, "templates/*.html"),
)

var funcMap = template.FuncMap{
	"epsilonLabel": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"epsilonValue": model.FormatEpsilon,
	// payloads are validated base64 before they reach a State
	"imageSrc": func(payload string) template.URL {
		return template.URL("data:image/png;base64," + payload)
	},
}

// Meta is the document metadata and form target of a rendered page.
type Meta struct {
	Title       string
	Description string
	Action      string
}

func MetaFromConfig(cfg *config.SiteConfig) Meta {
	return Meta{
		Title:       cfg.Title,
		Description: cfg.Description,
		Action:      cfg.FormAction,
	}
}

// View is the template data for one render.
type View struct {
	Meta  Meta
	State State
}

// Templates returns the parsed page templates, for gin's HTML renderer.
func Templates() *template.Template {
	return templates
}

// Render writes the page for st.
func Render(w io.Writer, meta Meta, st State) error {
	return templates.ExecuteTemplate(w, TemplateName, View{Meta: meta, State: st})
}

// Export prerenders the idle page to dir/index.html for static hosting.
func Export(dir string, meta Meta) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, "index.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := Render(f, meta, NewState()); err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}
	return path, f.Close()
}
