// Package notes converts meeting artifacts (notes, transcripts and chat logs)
// into display form. The markdown converter is line-oriented and best effort:
// nested lists, fenced code and tables are not supported.
package notes

import (
	"html"
	"regexp"
	"strings"
)

var (
	frontMatterPattern = regexp.MustCompile(`(?s)^---\n.*?\n---\n`)
	commentPattern     = regexp.MustCompile(`(?s)<!--.*?-->`)
	h3Pattern          = regexp.MustCompile(`(?m)^### (.+)$`)
	h2Pattern          = regexp.MustCompile(`(?m)^## (.+)$`)
	h1Pattern          = regexp.MustCompile(`(?m)^# (.+)$`)
	boldPattern        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern      = regexp.MustCompile(`\*(.+?)\*`)
	uncheckedPattern   = regexp.MustCompile(`(?m)- \[ \] (.+)$`)
	checkedPattern     = regexp.MustCompile(`(?m)- \[x\] (.+)$`)
	listItemPattern    = regexp.MustCompile(`(?m)^- ([^\[\n].*)$`)
	listRunPattern     = regexp.MustCompile(`(<li>.*?</li>\n?)+`)
	quotePattern       = regexp.MustCompile(`(?m)^&gt; (.+)$`)
	codePattern        = regexp.MustCompile("`([^`]+)`")
	paragraphPattern   = regexp.MustCompile(`\n\n+`)
)

// NormalizeNewlines converts CRLF and CR line endings to LF.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// StripFrontMatter removes a leading --- delimited block.
func StripFrontMatter(s string) string {
	return frontMatterPattern.ReplaceAllString(s, "")
}

// RenderMarkdown converts meeting notes to HTML. Input is escaped before any
// markup is produced, so the result is safe to embed.
// POST: no raw HTML from md survives
func RenderMarkdown(md string) string {
	s := NormalizeNewlines(md)
	s = StripFrontMatter(s)
	s = commentPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = html.EscapeString(s)

	s = h3Pattern.ReplaceAllString(s, `<h3>$1</h3>`)
	s = h2Pattern.ReplaceAllString(s, `<h2>$1</h2>`)
	s = h1Pattern.ReplaceAllString(s, `<h1>$1</h1>`)

	s = boldPattern.ReplaceAllString(s, `<strong>$1</strong>`)
	s = italicPattern.ReplaceAllString(s, `<em>$1</em>`)

	s = uncheckedPattern.ReplaceAllString(s, `<div class="md-task"><input type="checkbox" disabled> <span>$1</span></div>`)
	s = checkedPattern.ReplaceAllString(s, `<div class="md-task done"><input type="checkbox" checked disabled> <span>$1</span></div>`)

	s = listItemPattern.ReplaceAllString(s, `<li>$1</li>`)
	s = listRunPattern.ReplaceAllStringFunc(s, func(run string) string {
		trailing := ""
		if strings.HasSuffix(run, "\n") {
			trailing = "\n"
		}
		return "<ul>" + strings.ReplaceAll(run, "\n", "") + "</ul>" + trailing
	})

	s = quotePattern.ReplaceAllString(s, `<blockquote>$1</blockquote>`)
	s = codePattern.ReplaceAllString(s, `<code>$1</code>`)

	s = paragraphPattern.ReplaceAllString(s, "</p><p>")
	s = strings.ReplaceAll(s, "\n", "<br>")

	if !strings.HasPrefix(s, "<h") && !strings.HasPrefix(s, "<ul") && !strings.HasPrefix(s, "<div") {
		s = "<p>" + s + "</p>"
	}
	return `<div class="markdown-body">` + s + `</div>`
}
