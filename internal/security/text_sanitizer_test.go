package security

import (
	"testing"
)

// TestNewTextSanitizer はTextSanitizerの生成をテストする。
func TestNewTextSanitizer(t *testing.T) {
	s := NewTextSanitizer()
	if s == nil {
		t.Fatal("NewTextSanitizer() returned nil")
	}
}

// TestSanitize_PlainTextUnchanged はプレーンテキストがそのまま返ることをテストする。
func TestSanitize_PlainTextUnchanged(t *testing.T) {
	s := NewTextSanitizer()

	inputs := []string{
		"Chess Club",
		"Mondays and Fridays, 3:15 PM - 4:45 PM",
		"Learn strategies and compete in chess tournaments",
	}

	for _, in := range inputs {
		if got := s.Sanitize(in); got != in {
			t.Errorf("Sanitize(%q) = %q, want unchanged", in, got)
		}
	}
}

// TestSanitize_StripsTags はHTMLタグが除去されることをテストする。
func TestSanitize_StripsTags(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		input string
		want  string
	}{
		{"<b>Chess</b> Club", "Chess Club"},
		{"<script>alert('xss')</script>Practice", "Practice"},
		{"<img src=x onerror=alert(1)>Gym", "Gym"},
		{"Tuesdays<br>3:30 PM", "Tuesdays3:30 PM"},
	}

	for _, tt := range tests {
		if got := s.Sanitize(tt.input); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// TestSanitize_EmptyString は空文字列の入力に空文字列が返ることをテストする。
func TestSanitize_EmptyString(t *testing.T) {
	s := NewTextSanitizer()
	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty", got)
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力が返ることをテストする。
func TestSanitize_Idempotent(t *testing.T) {
	s := NewTextSanitizer()

	input := "<p>Weekly <em>programming</em> sessions</p>"
	first := s.Sanitize(input)
	second := s.Sanitize(first)
	if first != second {
		t.Errorf("Sanitize is not idempotent: %q -> %q", first, second)
	}
}

// TestTextSanitizerInterface はtextSanitizerがインターフェースを正しく実装していることをテストする。
func TestTextSanitizerInterface(t *testing.T) {
	var _ TextSanitizerService = NewTextSanitizer()
}
