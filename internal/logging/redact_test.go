package logging

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"email", "reach me at jane.doe+x@example.co.uk please", "reach me at [email] please"},
		{"phone", "call 090-1234-5678 tomorrow", "call [phone] tomorrow"},
		{"both", "a@b.com or 03-1234-5678", "[email] or [phone]"},
		{"clean", "nothing sensitive here", "nothing sensitive here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactPII(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRedactPII_NoLeakInLongText(t *testing.T) {
	in := "I emailed support@company.io and my number is 080-9876-5432, still no answer."
	got := RedactPII(in)
	if strings.Contains(got, "@") || strings.Contains(got, "9876") {
		t.Errorf("Expected all PII masked, got %q", got)
	}
}
