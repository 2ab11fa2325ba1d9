package archive

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

// Validation thresholds.
const (
	MicroblogMaxChars = 280
	LargeFileBytes    = 500 * 1024
	VeryLargeBytes    = 1024 * 1024
	LongLineChars     = 10000
)

// isoDatePattern accepts YYYY-MM-DD[T ]HH:MM:SS±HH:MM. Only the date prefix
// is required; bare dates are tolerated.
var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// Report is the validation result for one archive file.
type Report struct {
	File     string
	Errors   []string
	Warnings []string
}

// OK reports whether the file has no errors. Warnings do not fail a file.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks one file for front matter and size problems.
func Validate(name string, data []byte) Report {
	r := Report{File: name}
	content := string(data)

	front, body, err := split(content)
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
		return r
	}
	raw, err := decodeFrontMatter(front)
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
		return r
	}
	if raw == nil {
		r.Errors = append(r.Errors, ErrEmptyFrontMatter.Error())
		return r
	}

	for _, field := range []string{"title", "date"} {
		if empty(raw[field]) {
			r.errorf("Missing or empty required field: %s", field)
		}
	}
	if !empty(raw["date"]) {
		date := scalar(raw["date"])
		if !isoDatePattern.MatchString(date) {
			r.errorf("Invalid date format: %s (should be ISO 8601: YYYY-MM-DD[T ]HH:MM:SS±HH:MM)", date)
		}
	}
	for _, field := range []string{"author", "categories"} {
		if empty(raw[field]) {
			r.warnf("Missing recommended field: %s", field)
		}
	}

	if title := scalar(raw["title"]); strings.ContainsAny(title, `"'`) {
		quotedBlock := strings.Contains(front, `"""`) || strings.Contains(front, "'''")
		balanced := strings.Contains(front, `: "`) && strings.Count(title, `"`)%2 == 0
		if !quotedBlock && !balanced {
			r.warnf("Title contains quotes - ensure they are properly escaped in YAML")
		}
	}

	if raw["microblog"] == true && len(strings.TrimSpace(body)) > MicroblogMaxChars {
		r.warnf("microblog: true but content is longer than %d characters", MicroblogMaxChars)
	}

	if c, ok := raw["categories"]; ok && !empty(c) {
		switch c.(type) {
		case string, []any:
		default:
			r.errorf("categories should be a list or string, got: %T", c)
		}
	}

	if strings.ContainsRune(content, 0) {
		r.errorf("File contains null bytes")
	}

	size := len(data)
	switch {
	case size > VeryLargeBytes:
		r.warnf("File is very large: %.1fKB (may cause import issues)", float64(size)/1024)
	case size > LargeFileBytes:
		r.warnf("File is large: %.1fKB", float64(size)/1024)
	}

	for i, line := range strings.Split(content, "\n") {
		if len(line) > LongLineChars {
			r.warnf("Line %d is very long (%d characters)", i+1, len(line))
			break
		}
	}
	return r
}

// ValidateAll validates every *.md file at the root of fsys, in name order.
func ValidateAll(fsys fs.FS) ([]Report, error) {
	names, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	reports := make([]Report, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			reports = append(reports, Report{File: name, Errors: []string{fmt.Sprintf("Failed to read file: %v", err)}})
			continue
		}
		reports = append(reports, Validate(name, data))
	}
	return reports, nil
}
