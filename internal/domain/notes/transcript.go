package notes

import (
	"html"
	"regexp"
	"strings"
)

var (
	speakerPattern = regexp.MustCompile(`\*\*\[(\d{2}:\d{2}:\d{2})\] ([^:]+):\*\*`)
	chatPattern    = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2})\t([^:]+):\t(.+)$`)
)

// RenderTranscript converts a transcript to HTML. Speaker lines of the form
// **[HH:MM:SS] Name:** become headers and newlines become breaks.
func RenderTranscript(text string) string {
	s := html.EscapeString(NormalizeNewlines(text))
	s = speakerPattern.ReplaceAllString(s, `<div class="transcript-speaker"><span class="timestamp">$1</span><strong>$2</strong></div>`)
	s = strings.ReplaceAll(s, "\n", "<br>")
	return `<div class="transcript-body">` + s + `</div>`
}

// ChatMessage is one line of a meeting chat log.
type ChatMessage struct {
	Timestamp string
	User      string
	Text      string
	Reaction  bool
}

// ParseChat reads a tab-separated chat export. Lines that do not match
// "HH:MM:SS<TAB>Name:<TAB>Message" are dropped.
func ParseChat(text string) []ChatMessage {
	var out []ChatMessage
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := chatPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, ChatMessage{
			Timestamp: m[1],
			User:      m[2],
			Text:      m[3],
			Reaction:  strings.HasPrefix(m[3], "Reacted to"),
		})
	}
	return out
}
