package text

import (
	"strings"
	"testing"
)

func TestMarkdownToHTML(t *testing.T) {
	got := MarkdownToHTML("Try [this track](https://example.com/song) tonight.")
	if !strings.Contains(got, `<a href="https://example.com/song"`) {
		t.Errorf("Expected an anchor in output, got %q", got)
	}
	if !strings.Contains(got, "this track") {
		t.Errorf("Expected link label preserved, got %q", got)
	}
}

func TestMarkdownToHTML_LinkifiesBareURLs(t *testing.T) {
	got := MarkdownToHTML("Listen here: https://example.com/lofi")
	if !strings.Contains(got, `<a href="https://example.com/lofi"`) {
		t.Errorf("Expected bare URL to become an anchor, got %q", got)
	}
}

func TestExtractFirstMarkdownURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"markdown link", "see [song](https://a.example/x) and [b](https://b.example/y)", "https://a.example/x"},
		{"no link", "nothing to see here", ""},
		{"bare url ignored", "go to https://a.example/x now", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFirstMarkdownURL(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRemoveEmojis(t *testing.T) {
	got := RemoveEmojis("That sounds hard 😢 but you've got this 💪!")
	if strings.ContainsRune(got, '😢') || strings.ContainsRune(got, '💪') {
		t.Errorf("Expected emojis removed, got %q", got)
	}
	if !strings.Contains(got, "you've got this") {
		t.Errorf("Expected text preserved, got %q", got)
	}
}

func TestStripForTTS(t *testing.T) {
	in := "Take a break 🎵 and try [lofi beats](https://example.com/lofi).\nLink: https://example.com/extra"
	got := StripForTTS(in)

	if strings.Contains(got, "http") {
		t.Errorf("Expected URLs stripped, got %q", got)
	}
	if !strings.Contains(got, "lofi beats") {
		t.Errorf("Expected link label kept, got %q", got)
	}
	if strings.Contains(got, "🎵") {
		t.Errorf("Expected emoji stripped, got %q", got)
	}
	if strings.Contains(got, "Link:") {
		t.Errorf("Expected link line stripped, got %q", got)
	}
}

func TestRemoveEmptyParentheses(t *testing.T) {
	if got := RemoveEmptyParentheses("calm ( ) down ()"); strings.Contains(got, "(") {
		t.Errorf("Expected empty parens removed, got %q", got)
	}
}

func TestAppendLink(t *testing.T) {
	got := AppendLink("<p>hi</p>", "https://example.com/x", "Listen")
	if !strings.Contains(got, `href="https://example.com/x"`) {
		t.Errorf("Expected appended anchor, got %q", got)
	}

	// Already-present URLs are not duplicated.
	again := AppendLink(got, "https://example.com/x", "Listen")
	if strings.Count(again, "https://example.com/x") != 1 {
		t.Errorf("Expected no duplicate link, got %q", again)
	}

	// Empty URL is a no-op.
	if got := AppendLink("<p>hi</p>", "", "Listen"); got != "<p>hi</p>" {
		t.Errorf("Expected unchanged HTML for empty URL, got %q", got)
	}
}

func TestTopicHint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"I can't focus on my homework", "work/study"},
		{"I'm so stressed about everything", "stress"},
		{"I barely get any sleep lately", "health"},
		{"the weather is nice", ""},
	}
	for _, tt := range tests {
		if got := TopicHint(tt.in); got != tt.want {
			t.Errorf("TopicHint(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
