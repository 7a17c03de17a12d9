package text

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdownLinkRE = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRE          = regexp.MustCompile(`https?://[^\s<>"']+`)
	linkLineRE     = regexp.MustCompile(`(?i)link:.*`)
	emptyParensRE  = regexp.MustCompile(`\(\s*\)`)
	multiSpaceRE   = regexp.MustCompile(`\s{2,}`)

	// Emoticons, pictographs, transport symbols, flags, dingbats.
	emojiRE = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2702}-\x{27B0}\x{1F900}-\x{1F9FF}\x{2600}-\x{26FF}]+`)

	md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, // includes Linkify, so bare URLs become anchors too
		),
	)
)

// MarkdownToHTML renders an LLM reply's markdown (links, emphasis, lists)
// to HTML for the chat frontend. On render failure the raw text is
// returned unchanged; display degrades, it never errors out the turn.
func MarkdownToHTML(text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return text
	}
	return strings.TrimSpace(buf.String())
}

// ExtractFirstMarkdownURL returns the URL of the first markdown link, or
// empty when none is present.
func ExtractFirstMarkdownURL(text string) string {
	m := markdownLinkRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[2]
}

// RemoveEmojis strips emoji and pictograph characters. TTS engines read
// them out loud otherwise.
func RemoveEmojis(text string) string {
	return emojiRE.ReplaceAllString(text, "")
}

// RemoveEmptyParentheses drops "()" leftovers from annotation removal.
func RemoveEmptyParentheses(text string) string {
	return emptyParensRE.ReplaceAllString(text, "")
}

// StripForTTS prepares a reply for speech synthesis: link lines, raw
// URLs, markdown link syntax (keeping the label), emojis and empty
// parentheses are removed.
func StripForTTS(text string) string {
	out := markdownLinkRE.ReplaceAllString(text, "$1")
	out = linkLineRE.ReplaceAllString(out, "")
	out = urlRE.ReplaceAllString(out, "")
	out = RemoveEmojis(out)
	out = RemoveEmptyParentheses(out)
	out = multiSpaceRE.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// AppendLink appends a recommended-content anchor when the link is not
// already part of the HTML reply.
func AppendLink(html, url, label string) string {
	if url == "" || strings.Contains(html, url) {
		return html
	}
	return html + fmt.Sprintf(`<br><a href="%s" target="_blank">▶️ %s</a>`, url, label)
}

// Topic hint keywords. Intentionally tiny; the hint only colors the
// suggestion reason line.
var topicKeywords = map[string][]string{
	"work/study": {"study", "homework", "assignment", "report", "task", "coding", "debug", "deadline"},
	"stress":     {"anxious", "anxiety", "stress", "stressed", "overwhelmed", "nervous"},
	"health":     {"exercise", "stretch", "walk", "workout", "sleep"},
}

// TopicHint extracts a lightweight topic tag from a user utterance, or
// empty when nothing matches.
func TopicHint(text string) string {
	t := strings.ToLower(text)
	for _, topic := range []string{"work/study", "stress", "health"} {
		for _, kw := range topicKeywords[topic] {
			if strings.Contains(t, kw) {
				return topic
			}
		}
	}
	return ""
}
