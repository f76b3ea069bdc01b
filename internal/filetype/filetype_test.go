package filetype

import (
	"testing"

	"a11y-checker/internal/models"
)

func TestClassifyDeclaredTag(t *testing.T) {
	got, err := Classify("pdf", "", "")
	if err != nil || got != models.FileTypePDF {
		t.Fatalf("expected pdf, got %q err=%v", got, err)
	}
	got, err = Classify("html", "application/pdf", "report.pdf")
	if err != nil || got != models.FileTypeHTML {
		t.Fatalf("declared tag must win over hints, got %q err=%v", got, err)
	}
}

func TestClassifyRejectsUnknownTag(t *testing.T) {
	if _, err := Classify("docx", "", "file.docx"); !models.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClassifyFallsBackToHints(t *testing.T) {
	got, err := Classify("", "text/html; charset=utf-8", "")
	if err != nil || got != models.FileTypeHTML {
		t.Fatalf("mime hint: got %q err=%v", got, err)
	}
	got, err = Classify("", "", "Sample.HTM")
	if err != nil || got != models.FileTypeHTML {
		t.Fatalf("extension hint: got %q err=%v", got, err)
	}
	got, err = Classify("", "application/octet-stream", "scan.pdf")
	if err != nil || got != models.FileTypePDF {
		t.Fatalf("extension after useless mime: got %q err=%v", got, err)
	}
	if _, err := Classify("", "application/octet-stream", "blob.bin"); !models.IsValidation(err) {
		t.Fatalf("expected validation error for unclassifiable input, got %v", err)
	}
}
