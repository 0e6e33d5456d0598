package conversation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tokens распознаёт ответы «да» и «нет» без учёта регистра.
type Tokens struct {
	lang    language.Tag
	confirm []string
	skip    []string
}

// NewTokens создаёт распознаватель для языка бота.
func NewTokens(lang string, confirm, skip []string) Tokens {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Russian
	}
	t := Tokens{lang: tag}
	t.confirm = t.normalizeAll(confirm)
	t.skip = t.normalizeAll(skip)
	return t
}

// IsConfirm — ответ совпадает с одним из подтверждений.
func (t Tokens) IsConfirm(s string) bool {
	return t.match(s, t.confirm)
}

// IsSkip — ответ означает «без подписи».
func (t Tokens) IsSkip(s string) bool {
	return t.match(s, t.skip)
}

func (t Tokens) match(s string, list []string) bool {
	s = t.normalize(s)
	if s == "" {
		return false
	}
	for _, candidate := range list {
		if s == candidate {
			return true
		}
	}
	return false
}

func (t Tokens) normalizeAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = t.normalize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Caser хранит состояние, поэтому создаётся на каждый вызов.
func (t Tokens) normalize(s string) string {
	return cases.Lower(t.lang).String(strings.TrimSpace(s))
}
