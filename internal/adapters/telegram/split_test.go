package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessagePrefersNewline(t *testing.T) {
	text := strings.Repeat("а", 3000) + "\n\n" + strings.Repeat("б", 2000) + "\n" + strings.Repeat("в", 500)

	parts := SplitMessage(text)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0] != strings.Repeat("а", 3000) {
		t.Fatalf("first part must end before the blank line")
	}
	if !strings.HasPrefix(parts[1], "б") || !strings.HasSuffix(parts[1], strings.Repeat("в", 500)) {
		t.Fatalf("unexpected second part: %q...", parts[1][:16])
	}
}

func TestSplitMessageLongBroadcastBody(t *testing.T) {
	var b strings.Builder
	for b.Len() < 3*messageLimit*2 {
		b.WriteString("Программа дня: регистрация, доклады и нетворкинг. ")
	}
	text := strings.TrimSpace(b.String())

	parts := SplitMessage(text)
	if len(parts) < 2 {
		t.Fatalf("expected several parts, got %d", len(parts))
	}
	for i, part := range parts {
		if n := utf8.RuneCountInString(part); n > messageLimit {
			t.Fatalf("part %d exceeds limit: %d", i, n)
		}
		if strings.HasPrefix(part, " ") || strings.HasSuffix(part, " ") {
			t.Fatalf("part %d must be cut on a word boundary", i)
		}
	}
	if strings.Join(parts, " ") != text {
		t.Fatal("parts must add up to the original text")
	}
}

func TestSplitMessageCyrillicAtRuneBoundary(t *testing.T) {
	exact := strings.Repeat("ж", messageLimit)
	if parts := SplitMessage(exact); len(parts) != 1 || parts[0] != exact {
		t.Fatalf("text of exactly %d runes must stay whole, got %d parts", messageLimit, len(parts))
	}

	parts := SplitMessage(exact + "ы")
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0] != exact || parts[1] != "ы" {
		t.Fatalf("unexpected cut: %d + %q", utf8.RuneCountInString(parts[0]), parts[1])
	}
	if !utf8.ValidString(parts[0]) {
		t.Fatal("cut must not split a multibyte rune")
	}
}

func TestSplitMessageShortAndEmpty(t *testing.T) {
	if parts := SplitMessage("  Добро пожаловать!\n"); len(parts) != 1 || parts[0] != "Добро пожаловать!" {
		t.Fatalf("unexpected parts: %q", parts)
	}
	if parts := SplitMessage("   \n  "); len(parts) != 0 {
		t.Fatalf("expected no parts for blank input, got %d", len(parts))
	}
}
