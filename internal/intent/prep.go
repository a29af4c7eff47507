package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"
)

// Folding merges "às" (at, before an hour) with the article "as". A number
// after the preposition is only a time when the user wrote the accent or the
// words that follow read like a time of day.
var (
	prepNumber = regexp.MustCompile(`\b(as|ao|das|pelas)\s+(\d{1,2}|` + numberWordPattern + `)(?:\s+e\s+(\d{1,2}|` + numberWordPattern + `))?\b`)

	clockContext  = regexp.MustCompile(`^(?:\s*$|\s*[,.;:!?…]|\s*(?:h|hrs?|horas?)\b|\s+e\s+meia\b|\s+(?:da|de|do|pra|para|hoje|amanha|depois|em\s+ponto)\b)`)
	hourTailAhead = regexp.MustCompile(`^(?::\d{2}|\s*(?:h|hrs?|horas?)\b|\s+e\s+meia\b|\s+(?:da|de)\s+(?:manha|tarde|noite|madrugada)\b)`)
)

// clockPrep reports whether the prepNumber match m in ft.folded is a time.
func (ft *foldedText) clockPrep(m []int) bool {
	from, _ := ft.originalSpan(m[2], m[3])
	if r, _ := utf8.DecodeRuneInString(ft.original[from:]); r == 'à' || r == 'À' || r == 'á' || r == 'Á' {
		return true
	}
	return clockContext.MatchString(ft.folded[m[1]:])
}

// rewriteClockPreps turns "as dez" or "as 9 e 22" into canonical digits when
// they read as a time and leaves "as duas passagens" alone. A following
// "h", "da tarde" or "e meia" keeps the hour bare for the later rules.
func rewriteClockPreps(ft *foldedText) string {
	return rewriteAll(ft.folded, prepNumber, func(s string, m []int) (string, bool) {
		if !ft.clockPrep(m) {
			return "", false
		}
		h, ok := numberValue(group(s, m, 2))
		if !ok || h > 23 {
			return "", false
		}
		prep := group(s, m, 1)

		if mw := group(s, m, 3); mw != "" {
			mm, ok := numberValue(mw)
			if !ok || durationUnitAhead.MatchString(s[m[1]:]) {
				return "", false
			}
			c, ok := clock(h, mm)
			if !ok {
				return "", false
			}
			return prep + " " + c, true
		}

		if hourTailAhead.MatchString(s[m[1]:]) {
			if _, err := strconv.Atoi(group(s, m, 2)); err == nil {
				return "", false
			}
			return fmt.Sprintf("%s %d", prep, h), true
		}
		c, _ := clock(h, 0)
		return prep + " " + c, true
	})
}

// numberValue reads digits or a spelled number.
func numberValue(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	return wordValue(s)
}

// clockPrepAt reports whether a folded span holding a preposition and a
// number is a time. Spans without a bare preposition and number, such as
// "as 14h", always are.
func (ft *foldedText) clockPrepAt(from, to int) bool {
	m := prepNumber.FindStringSubmatchIndex(ft.folded[from:to])
	if m == nil || m[0] != 0 {
		return true
	}
	for i := range m {
		if m[i] >= 0 {
			m[i] += from
		}
	}
	return ft.clockPrep(m)
}
