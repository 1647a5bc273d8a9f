// Package compose renders the customized résumé and cover letter into one
// application PDF.
package compose

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"
)

type Request struct {
	UserID      string
	Name        string
	Email       string
	Phone       string
	Location    string
	Resume      string
	CoverLetter string
	JobTitle    string
	Company     string
}

type Renderer struct {
	outputDir string
	now       func() time.Time
}

var (
	headerColor = [3]int{0, 51, 102}
	mutedColor  = [3]int{80, 80, 80}
	ruleColor   = [3]int{200, 200, 200}
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

var textReplacer = strings.NewReplacer(
	"–", "-",
	"—", "-",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"•", "*",
	"·", "*",
	"⋅", "*",
	"∙", "*",
	"…", "...",
)

func NewRenderer(outputDir string) *Renderer {
	return &Renderer{outputDir: outputDir, now: time.Now}
}

// Render writes the PDF and returns its path.
func (r *Renderer) Render(request Request) (string, error) {
	if strings.TrimSpace(request.Resume) == "" || strings.TrimSpace(request.CoverLetter) == "" {
		return "", errors.New("resume and cover letter are required")
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	userPart := unsafeNameChars.ReplaceAllString(request.UserID, "_")
	if userPart == "" {
		userPart = "user"
	}
	now := r.now()
	path := filepath.Join(r.outputDir, fmt.Sprintf("JobApplication_%s_%s.pdf", userPart, now.Format("20060102_150405")))

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	clean := func(text string) string {
		return tr(wrapLongWords(textReplacer.Replace(text), 80))
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	name := strings.ToUpper(strings.TrimSpace(request.Name))
	contact := joinNonEmpty(" | ", request.Email, request.Phone)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	setText(pdf, headerColor)
	pdf.CellFormat(0, 10, clean(name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	setText(pdf, mutedColor)
	pdf.CellFormat(0, 5, clean(contact), "", 1, "L", false, 0, "")
	pdf.Ln(5)
	rule(pdf, ruleColor, 0)
	pdf.Ln(10)

	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 5, now.Format("January 02, 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(10)
	sectionHeader(pdf, "COVER LETTER")
	pdf.Ln(8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, clean(request.CoverLetter), "", "L", false)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	setText(pdf, headerColor)
	pdf.CellFormat(0, 12, clean(name), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 5, clean(joinNonEmpty(" | ", request.Location, request.Phone, request.Email)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	for _, raw := range strings.Split(request.Resume, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			pdf.Ln(2)
		case isUpper(line) && len([]rune(line)) > 3:
			pdf.Ln(4)
			sectionHeader(pdf, clean(line))
			pdf.Ln(3)
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(0, 0, 0)
		case strings.HasPrefix(line, "*") || strings.HasPrefix(line, "-"):
			pdf.MultiCell(0, 5, clean("  - "+strings.TrimSpace(line[1:])), "", "L", false)
		default:
			pdf.MultiCell(0, 5, clean(line), "", "L", false)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

// CandidateName uses the résumé's first line when it looks like a name
// heading, otherwise fallback.
func CandidateName(resume, fallback string) string {
	first := strings.TrimSpace(strings.SplitN(strings.TrimSpace(resume), "\n", 2)[0])
	if first != "" && len([]rune(first)) < 30 && isUpper(first) {
		return first
	}
	return fallback
}

func sectionHeader(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	setText(pdf, headerColor)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetLineWidth(0.3)
	rule(pdf, headerColor, 1)
}

func rule(pdf *fpdf.Fpdf, color [3]int, offset float64) {
	pdf.SetDrawColor(color[0], color[1], color[2])
	y := pdf.GetY() + offset
	pdf.Line(10, y, 200, y)
}

func setText(pdf *fpdf.Fpdf, color [3]int) {
	pdf.SetTextColor(color[0], color[1], color[2])
}

func isUpper(text string) bool {
	cased := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func wrapLongWords(text string, limit int) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		words := strings.Split(line, " ")
		for j, word := range words {
			runes := []rune(word)
			if len(runes) <= limit {
				continue
			}
			parts := make([]string, 0, len(runes)/limit+1)
			for start := 0; start < len(runes); start += limit {
				end := start + limit
				if end > len(runes) {
					end = len(runes)
				}
				parts = append(parts, string(runes[start:end]))
			}
			words[j] = strings.Join(parts, " ")
		}
		lines[i] = strings.Join(words, " ")
	}
	return strings.Join(lines, "\n")
}

func joinNonEmpty(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, sep)
}
