package conversation

import "testing"

func TestTokensMatchIgnoringCase(t *testing.T) {
	tok := NewTokens("ru", []string{"Да", "yes"}, []string{"нет", "no"})
	for _, s := range []string{"да", "ДА", " Да ", "YES", "Yes"} {
		if !tok.IsConfirm(s) {
			t.Fatalf("%q must confirm", s)
		}
	}
	for _, s := range []string{"", "дан", "ok", "нет"} {
		if tok.IsConfirm(s) {
			t.Fatalf("%q must not confirm", s)
		}
	}
	if !tok.IsSkip("НЕТ") || !tok.IsSkip("No") || tok.IsSkip("да") {
		t.Fatal("skip tokens mismatch")
	}
}

func TestTokensUnknownLanguageFallsBack(t *testing.T) {
	tok := NewTokens("not a tag!", []string{"да"}, nil)
	if !tok.IsConfirm("ДА") {
		t.Fatal("fallback language must still match")
	}
}
