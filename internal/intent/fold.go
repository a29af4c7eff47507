package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// newAccentStripper returns a fresh transformer; transform.Chain keeps
// internal buffers and must not be shared across goroutines.
func newAccentStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Fold strips diacritics and lower-cases s.
func Fold(s string) string {
	out, _, err := transform.String(newAccentStripper(), s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// foldedText is a folded copy of an original string that remembers, for every
// folded byte, which original rune produced it. Regexes run against the
// folded text; matched spans are cut from the original so the user's casing
// and accents survive.
type foldedText struct {
	original string
	folded   string
	start    []int
	end      []int
}

func newFoldedText(s string) *foldedText {
	ft := &foldedText{original: s}
	var b strings.Builder
	t := newAccentStripper()

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		t.Reset()
		piece, _, err := transform.String(t, string(r))
		if err != nil {
			piece = string(r)
		}
		piece = strings.ToLower(piece)
		for range len(piece) {
			ft.start = append(ft.start, i)
			ft.end = append(ft.end, i+size)
		}
		b.WriteString(piece)
		i += size
	}

	ft.folded = b.String()
	return ft
}

// originalSpan maps a [from, to) byte span of the folded text back to the
// original string.
func (ft *foldedText) originalSpan(from, to int) (int, int) {
	if from >= to || from >= len(ft.start) {
		return len(ft.original), len(ft.original)
	}
	return ft.start[from], ft.end[to-1]
}
