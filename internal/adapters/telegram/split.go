package telegram

import (
	"strings"
	"unicode"
)

// messageLimit — предел длины одного текстового сообщения Bot API в символах.
const messageLimit = 4096

// SplitMessage режет текст на части не длиннее messageLimit символов.
// Каждая часть уходит отдельным сообщением, поэтому len(результата) равно числу
// идентификаторов, которые вернёт Telegram. Разрез ищется на последнем переводе
// строки в окне, затем на последнем пробеле, иначе по границе символа.
func SplitMessage(text string) []string {
	rest := []rune(strings.TrimSpace(text))
	var parts []string
	for len(rest) > messageLimit {
		cut := cutIndex(rest)
		parts = append(parts, strings.TrimRightFunc(string(rest[:cut]), unicode.IsSpace))
		rest = trimLeadingSpace(rest[cut:])
	}
	if len(rest) > 0 {
		parts = append(parts, string(rest))
	}
	return parts
}

func cutIndex(runes []rune) int {
	for _, sep := range []rune{'\n', ' '} {
		for i := messageLimit; i > 0; i-- {
			if runes[i] == sep {
				return i
			}
		}
	}
	return messageLimit
}

func trimLeadingSpace(runes []rune) []rune {
	for len(runes) > 0 && unicode.IsSpace(runes[0]) {
		runes = runes[1:]
	}
	return runes
}
