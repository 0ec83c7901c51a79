package text

import (
	"strings"
	"testing"
)

func TestSafeSentence(t *testing.T) {
	if got := SafeSentence("  ship   the   draft  ", "fallback."); got != "ship the draft." {
		t.Errorf("expected collapsed sentence, got %q", got)
	}
	if got := SafeSentence("", "fallback."); got != "fallback." {
		t.Errorf("expected fallback for empty input, got %q", got)
	}
	if got := SafeSentence("   ", "fallback."); got != "fallback." {
		t.Errorf("expected fallback for whitespace input, got %q", got)
	}
	if got := SafeSentence("Done!", "fallback."); got != "Done!" {
		t.Errorf("expected terminal punctuation kept, got %q", got)
	}
	if got := SafeSentence("Really?", "fallback."); got != "Really?" {
		t.Errorf("expected question mark kept, got %q", got)
	}
}

func TestSafeSentenceCapsLength(t *testing.T) {
	long := strings.Repeat("x", MaxSentenceLen+50)
	got := SafeSentence(long, "fallback.")
	if len([]rune(got)) != MaxSentenceLen+1 {
		t.Errorf("expected %d runes (cap plus period), got %d", MaxSentenceLen+1, len([]rune(got)))
	}
	if !strings.HasSuffix(got, ".") {
		t.Error("expected trailing period after cap")
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("First thing. Second thing! Third?")
	want := []string{"First thing.", "Second thing!", "Third?"}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitSentencesKeepsDecimals(t *testing.T) {
	got := SplitSentences("Version 1.5 shipped today")
	if len(got) != 1 {
		t.Errorf("expected decimal not to split, got %v", got)
	}
}

func TestSplitSentencesEmpty(t *testing.T) {
	if got := SplitSentences("   "); got != nil {
		t.Errorf("expected nil for blank input, got %v", got)
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Ship the v2 CLI, then rest!", 3)
	want := []string{"ship", "the", "cli", "then", "rest"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestStripCodeFences(t *testing.T) {
	fenced := "```json\n{\"kind\":\"focus\"}\n```"
	if got := StripCodeFences(fenced); got != `{"kind":"focus"}` {
		t.Errorf("expected fence stripped, got %q", got)
	}
	if got := StripCodeFences(`{"kind":"focus"}`); got != `{"kind":"focus"}` {
		t.Errorf("expected unfenced input unchanged, got %q", got)
	}
	if got := StripCodeFences("```"); got != "" {
		t.Errorf("expected empty for bare fence, got %q", got)
	}
	// Without a closing fence the last line is treated as the boundary
	if got := StripCodeFences("```json\n{\"a\":1}\ntrailing"); got != `{"a":1}` {
		t.Errorf("expected content without closing fence, got %q", got)
	}
}

func TestDiversity(t *testing.T) {
	if got := Diversity(nil); got != 0 {
		t.Errorf("expected 0 for empty tokens, got %v", got)
	}
	if got := Diversity([]string{"a", "a", "a", "a"}); got != 0.25 {
		t.Errorf("expected 0.25, got %v", got)
	}
	if got := Diversity([]string{"a", "b", "c", "d"}); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
}
