// Package jobs holds the job posting record shared by every search source,
// plus the recency window and link de-duplication used when merging results.
package jobs

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type Job struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Salary   string `json:"salary"`
	Link     string `json:"link"`
	Source   string `json:"source"`
	Snippet  string `json:"snippet"`
	Updated  string `json:"updated,omitempty"`
}

// SearchResult is what a primary source returns for one query.
type SearchResult struct {
	Jobs       []Job
	TotalCount int
}

const snippetPreviewRunes = 150

var postedLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParsePosted reads the timestamp formats job boards emit. Fractional seconds
// without a zone are dropped before parsing.
func ParsePosted(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, true
	}
	trimmed := strings.TrimSuffix(value, "Z")
	if dot := strings.Index(trimmed, "."); dot > 0 && strings.Contains(trimmed, "T") {
		trimmed = trimmed[:dot]
	}
	for _, layout := range postedLayouts {
		if parsed, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Recent reports whether a posting falls inside the window. Postings without
// a readable date are kept.
func Recent(updated string, now time.Time, window time.Duration) bool {
	posted, ok := ParsePosted(updated)
	if !ok {
		return true
	}
	return now.Sub(posted) <= window
}

func FilterRecent(items []Job, now time.Time, window time.Duration) []Job {
	out := make([]Job, 0, len(items))
	for _, item := range items {
		if Recent(item.Updated, now, window) {
			out = append(out, item)
		}
	}
	return out
}

// LinkSet tracks links already present so merged lists never repeat a posting.
type LinkSet map[string]struct{}

func NewLinkSet(existing []Job) LinkSet {
	set := LinkSet{}
	for _, item := range existing {
		set.Add(item.Link)
	}
	return set
}

func (s LinkSet) Has(link string) bool {
	_, ok := s[normalizeLink(link)]
	return ok
}

func (s LinkSet) Add(link string) {
	s[normalizeLink(link)] = struct{}{}
}

func normalizeLink(link string) string {
	return strings.TrimSpace(link)
}

// DaysToWindow converts a day count setting into a duration.
func DaysToWindow(days int) time.Duration {
	if days <= 0 {
		days = 3
	}
	return time.Duration(days) * 24 * time.Hour
}

// Format renders one numbered posting the way search replies list them.
func Format(index int, job Job) string {
	return fmt.Sprintf("%d. %s\n🏢 %s\n📍 %s\n💰 %s\n📝 %s...\n🔗 %s\n",
		index,
		orDefault(job.Title, "Unknown Title"),
		orDefault(job.Company, "Unknown Company"),
		orDefault(job.Location, "Unknown Location"),
		orDefault(job.Salary, "Not specified"),
		Truncate(job.Snippet, snippetPreviewRunes),
		job.Link,
	)
}

// FormatBrief is the shorter listing used for postings from secondary sources.
func FormatBrief(index int, job Job) string {
	return fmt.Sprintf("%d. %s\n🏢 %s (via %s)\n💰 %s\n🔗 %s\n",
		index,
		orDefault(job.Title, "Unknown Title"),
		orDefault(job.Company, "Unknown Company"),
		orDefault(job.Source, "Other"),
		orDefault(job.Salary, "Not specified"),
		job.Link,
	)
}

// Description is the job text handed to document generation.
func Description(job Job) string {
	return fmt.Sprintf("Title: %s\nCompany: %s\nLocation: %s\nDescription: %s\n",
		job.Title, job.Company, job.Location, job.Snippet)
}

// Truncate cuts text to at most limit runes.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
