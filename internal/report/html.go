package report

import (
	"bytes"
	"embed"
	"html/template"

	"a11y-checker/internal/models"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.tmpl"))

func renderResultHTML(result models.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "individual.tmpl", result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderConsolidatedHTML(report models.ConsolidatedReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "consolidated.tmpl", report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
