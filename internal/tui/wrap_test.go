package tui

import (
	"strings"
	"testing"
)

func plainView(target string, cursor int) textView {
	return textView{target: []rune(target), cursor: cursor}
}

func TestBuildStyledRunesCursor(t *testing.T) {
	runes := buildStyledRunes(plainView("ab", 1))
	if len(runes) != 2 {
		t.Fatalf("expected 2 runes, got %d", len(runes))
	}
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for first rune")
	}
	if runes[1].s != currentWordStyle.Underline(true).Render("b") {
		t.Fatalf("expected underlined cursor on second rune")
	}
}

func TestBuildStyledRunesNoCursorWhenComplete(t *testing.T) {
	runes := buildStyledRunes(plainView("a", -1))
	if len(runes) != 1 {
		t.Fatalf("expected 1 rune, got %d", len(runes))
	}
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for completed rune")
	}
}

func TestBuildStyledRunesMissAtCursor(t *testing.T) {
	v := plainView("ab", 1)
	v.missed = true
	runes := buildStyledRunes(v)
	if runes[1].s != incorrectStyle.Underline(true).Render("b") {
		t.Fatalf("expected incorrect style at the missed cursor")
	}
}

func TestBuildStyledRunesMarksCorrectedPositions(t *testing.T) {
	v := plainView("abc", 2)
	v.hasError = func(i int) bool { return i == 1 }
	runes := buildStyledRunes(v)
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected clean position to use correct style")
	}
	if runes[1].s != correctedStyle.Render("b") {
		t.Fatalf("expected corrected style for a position typed after a miss")
	}
}

func TestBuildStyledRunesWordHighlighting(t *testing.T) {
	runes := buildStyledRunes(plainView("one two", 1))
	if runes[0].s != correctStyle.Render("o") {
		t.Fatalf("expected correct style for typed rune")
	}
	if runes[2].s != currentWordStyle.Render("e") {
		t.Fatalf("expected current word style for untyped in current word")
	}
	if runes[4].s != pendingStyle.Render("t") {
		t.Fatalf("expected pending style for next word")
	}
}

func TestBuildStyledRunesWrongSpaceDot(t *testing.T) {
	v := plainView("a b", 1)
	v.missed = true
	runes := buildStyledRunes(v)
	if runes[1].s != incorrectStyle.Underline(true).Render("•") {
		t.Fatalf("expected a dot for a missed space")
	}
}

func TestWrapStyledRunesBreaksAtSpaces(t *testing.T) {
	runes := make([]styledRune, 0)
	for _, r := range "aaa bbb ccc" {
		runes = append(runes, styledRune{s: string(r), width: 1, isSpace: r == ' '})
	}
	got := wrapStyledRunes(runes, 7)
	if got != "aaa bbb \nccc" {
		t.Fatalf("unexpected wrap: %q", got)
	}
	got = wrapStyledRunes(runes[:3], 2)
	if strings.Count(got, "\n") != 1 {
		t.Fatalf("expected a hard break inside a long word, got %q", got)
	}
}
