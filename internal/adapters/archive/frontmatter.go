package archive

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Front matter errors.
var (
	ErrNoOpeningDelimiter = errors.New("Missing opening front matter delimiter (---)")
	ErrNoClosingDelimiter = errors.New("Missing closing front matter delimiter (---)")
	ErrEmptyFrontMatter   = errors.New("Front matter is empty")
)

const delimiter = "---"

// split separates a file into its front matter and body.
// PRE: content starts with the delimiter
func split(content string) (front, body string, err error) {
	if !strings.HasPrefix(content, delimiter) {
		return "", "", ErrNoOpeningDelimiter
	}
	parts := strings.SplitN(content, delimiter, 3)
	if len(parts) < 3 {
		return "", "", ErrNoClosingDelimiter
	}
	return parts[1], parts[2], nil
}

// decodeFrontMatter parses the YAML block into a generic map. A nil map with
// no error means the block was empty.
func decodeFrontMatter(front string) (map[string]any, error) {
	var data map[string]any
	if err := yaml.Unmarshal([]byte(front), &data); err != nil {
		return nil, fmt.Errorf("YAML parsing error: %w", err)
	}
	return data, nil
}

// FrontMatter is the typed view of an archive file's header.
type FrontMatter struct {
	Title      string
	Date       string
	Author     string
	Categories []string
	Type       string
	Visibility string
	VideoURL   string
	Microblog  bool
}

func typedFrontMatter(data map[string]any) FrontMatter {
	return FrontMatter{
		Title:      scalar(data["title"]),
		Date:       scalar(data["date"]),
		Author:     scalar(data["author"]),
		Categories: categories(data["categories"]),
		Type:       scalar(data["type"]),
		Visibility: scalar(data["visibility"]),
		VideoURL:   scalar(data["video_url"]),
		Microblog:  data["microblog"] == true,
	}
}

// scalar renders a YAML scalar as text. Explicit timestamps come back as
// time.Time and are formatted as RFC 3339.
func scalar(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// categories accepts a YAML list or a comma-separated string.
func categories(v any) []string {
	var out []string
	switch v := v.(type) {
	case string:
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
	case []any:
		for _, c := range v {
			if s := scalar(c); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// empty reports whether a front matter value counts as missing.
func empty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return !v
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}
