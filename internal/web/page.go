package web

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"application-tracker/internal/tracker/progress"
	"application-tracker/internal/tracker/session"
)

const (
	brandName = "NM Heinze Attorneys"
	pageTitle = "Immigration Application Tracker"

	pageTemplate = "index.html"
)

//go:embed templates/index.html
var templateFS embed.FS

type templateRenderer struct {
	templates *template.Template
}

func newTemplateRenderer() *templateRenderer {
	return &templateRenderer{
		templates: template.Must(template.ParseFS(templateFS, "templates/"+pageTemplate)),
	}
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type recordView struct {
	FileNumber string
	Surname    string
	Status     string
}

// pageData is everything the tracker page renders.
type pageData struct {
	Brand string
	Title string
	Year  int

	FileNumber string
	Surname    string
	Searching  bool
	Validation string

	Record     *recordView
	Stages     []progress.Stage
	NotFound   bool
	FetchError bool
}

// newPageData derives the page from a view state. The form keeps the values
// of the last submission.
func newPageData(state session.State, now time.Time) pageData {
	data := pageData{
		Brand:      brandName,
		Title:      pageTitle,
		Year:       now.Year(),
		FileNumber: state.Query.FileNumber,
		Surname:    state.Query.Surname,
		Searching:  state.Searching(),
		NotFound:   state.Advisory(),
		FetchError: state.Phase == session.PhaseError,
	}

	if state.Phase == session.PhaseFound && state.Result != nil {
		record := state.Result.Record
		data.Record = &recordView{
			FileNumber: record.FileNumber(),
			Surname:    record.Surname(),
			Status:     record.Status(),
		}
		data.Stages = state.Result.Tracker().Stages
	}
	return data
}
