package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// textView is what the typing screen needs to know about a session.
type textView struct {
	target []rune
	// cursor is the next position to type, or -1 once the text is done.
	cursor int
	// missed reports a wrong keystroke at the cursor that has not been
	// followed by the correct one yet.
	missed   bool
	hasError func(int) bool
}

func buildStyledRunes(v textView) []styledRune {
	words := findWords(v.target)
	currentWord := wordForCursor(words, v.cursor)
	typedUpTo := v.cursor
	if typedUpTo < 0 {
		typedUpTo = len(v.target)
	}

	out := make([]styledRune, 0, len(v.target))
	for i, target := range v.target {
		displayed := target
		var style lipgloss.Style
		switch {
		case i < typedUpTo:
			style = correctStyle
			if v.hasError != nil && v.hasError(i) {
				style = correctedStyle
			}
		case i == v.cursor && v.missed:
			style = incorrectStyle
			if target == ' ' {
				displayed = '•'
			}
		case target != ' ' && currentWord != nil && i >= currentWord.start && i < currentWord.end:
			style = currentWordStyle
		default:
			style = pendingStyle
		}
		if i == v.cursor {
			style = style.Underline(true)
		}
		out = append(out, styledRune{
			s:       style.Render(string(displayed)),
			width:   runewidth.RuneWidth(displayed),
			isSpace: target == ' ',
		})
	}
	return out
}

type wordRange struct {
	start int
	end   int
}

func findWords(target []rune) []wordRange {
	words := []wordRange{}
	start := -1
	for i, r := range target {
		if r == ' ' {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(target)})
	}
	return words
}

func wordForCursor(words []wordRange, cursor int) *wordRange {
	if len(words) == 0 || cursor < 0 {
		return nil
	}
	for i, w := range words {
		if cursor < w.end {
			return &words[i]
		}
	}
	return nil
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks lines at the last space that fits, or mid-word
// when a word is wider than the line.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var lines []string
	line := make([]styledRune, 0, width)
	lineWidth := 0
	lastSpace := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if item.isSpace {
				// The space stays at the end of the line so the cursor on it is visible.
				line = append(line, item)
				lines = append(lines, renderStyledRunes(line))
				line = line[:0]
				lineWidth, lastSpace = 0, -1
				i++
				continue
			}
			if lastSpace >= 0 {
				lines = append(lines, renderStyledRunes(line[:lastSpace+1]))
				line = append([]styledRune{}, line[lastSpace+1:]...)
			} else {
				lines = append(lines, renderStyledRunes(line))
				line = line[:0]
			}
			lineWidth, lastSpace = measure(line)
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpace = len(line) - 1
		}
		i++
	}
	lines = append(lines, renderStyledRunes(line))
	return strings.Join(lines, "\n")
}

func measure(line []styledRune) (width, lastSpace int) {
	lastSpace = -1
	for i, item := range line {
		width += item.width
		if item.isSpace {
			lastSpace = i
		}
	}
	return width, lastSpace
}
