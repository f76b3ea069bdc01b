// Package filetype classifies submitted resources as pdf or html. The
// classification is pure and runs exactly once at submission; nothing
// downstream re-derives the type.
package filetype

import (
	"fmt"
	"strings"

	"a11y-checker/internal/models"
)

// Classify resolves the file type from the declared tag, falling back to the
// mime hint and then the filename extension. A declared tag outside
// {pdf, html} is rejected outright rather than sniffed around.
func Classify(declared, mimeHint, filename string) (string, error) {
	switch declared {
	case models.FileTypePDF, models.FileTypeHTML:
		return declared, nil
	case "":
		// fall through to hints
	default:
		return "", &models.ValidationError{Msg: fmt.Sprintf("unsupported file type %q", declared)}
	}

	if t := fromMime(mimeHint); t != "" {
		return t, nil
	}
	if t := fromExtension(filename); t != "" {
		return t, nil
	}
	return "", &models.ValidationError{Msg: "file type missing and could not be inferred"}
}

func fromMime(mimeHint string) string {
	m := strings.ToLower(strings.TrimSpace(mimeHint))
	if i := strings.Index(m, ";"); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	switch m {
	case "application/pdf":
		return models.FileTypePDF
	case "text/html", "application/xhtml+xml":
		return models.FileTypeHTML
	}
	return ""
}

func fromExtension(filename string) string {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".pdf"):
		return models.FileTypePDF
	case strings.HasSuffix(name, ".html"), strings.HasSuffix(name, ".htm"):
		return models.FileTypeHTML
	}
	return ""
}
