package compose

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRenderWritesPDF(t *testing.T) {
	dir := t.TempDir()
	renderer := NewRenderer(dir)
	renderer.now = func() time.Time { return time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC) }

	path, err := renderer.Render(Request{
		UserID:      "12345",
		Name:        "Ada Lovelace",
		Email:       "ada@example.com",
		Phone:       "+44 1",
		Resume:      "ADA LOVELACE\nEXPERIENCE\n- Analytical engine — notes\nPlain line with “quotes”",
		CoverLetter: "Dear team,\n" + strings.Repeat("a", 200),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if filepath.Base(path) != "JobApplication_12345_20260504_093000.pdf" {
		t.Fatalf("unexpected file name %q", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Fatal("expected pdf header")
	}
}

func TestRenderRequiresBothDocuments(t *testing.T) {
	renderer := NewRenderer(t.TempDir())
	if _, err := renderer.Render(Request{UserID: "1", Resume: "only resume"}); err == nil {
		t.Fatal("expected error without cover letter")
	}
}

func TestCandidateName(t *testing.T) {
	if got := CandidateName("JANE DOE\nEngineer", "Fallback"); got != "JANE DOE" {
		t.Fatalf("expected heading name, got %q", got)
	}
	if got := CandidateName("Jane Doe\nEngineer", "Fallback"); got != "Fallback" {
		t.Fatalf("expected fallback for mixed case, got %q", got)
	}
	if got := CandidateName("A VERY LONG HEADING THAT IS NOT A NAME AT ALL", "Fallback"); got != "Fallback" {
		t.Fatalf("expected fallback for long line, got %q", got)
	}
}

func TestWrapLongWords(t *testing.T) {
	got := wrapLongWords(strings.Repeat("x", 170), 80)
	if strings.Count(got, " ") != 2 {
		t.Fatalf("expected three chunks, got %q", got)
	}
}
