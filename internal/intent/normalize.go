package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	punctuationRun = regexp.MustCompile(`[,.;!?…"“”()]+`)

	noonIdiom     = regexp.MustCompile(`\bmeio[\s-]+dia\b`)
	midnightIdiom = regexp.MustCompile(`\bmeia[\s-]+noite\b`)
	halfHourIdiom = regexp.MustCompile(`\bmeia\s+hora\b`)

	digitsHourMinute = regexp.MustCompile(`\b(\d{1,2})\s+e\s+(\d{1,2})\b`)
	wordsHourMinute  = regexp.MustCompile(`\b(` + numberWordPattern + `)\s+e\s+(` + numberWordPattern + `)\b`)
	wordsWithUnit    = regexp.MustCompile(`\b(` + numberWordPattern + `)\s+(minutos?|mins?|horas?|hrs?|h|dias?|semanas?)\b`)

	halfPastHour   = regexp.MustCompile(`\b(\d{1,2})(?::00)?(?:\s*(?:h|horas?))?\s+e\s+meia\b`)
	periodOfDay    = regexp.MustCompile(`\b(\d{1,2})(?:(?::|h)(\d{2}))?(?:\s*(?:h|horas?))?\s+(?:da|de)\s+(manha|tarde|noite|madrugada)\b`)
	hourAndMinutes = regexp.MustCompile(`\b(\d{1,2})\s*(?:h|horas?)\s*(?:e\s+)?(\d{2})(?:\s*min(?:utos?)?)?\b`)
	hourSuffix     = regexp.MustCompile(`\b(\d{1,2})\s*(?:h|hrs?)\b`)
	hourWord       = regexp.MustCompile(`\b(\d{1,2})\s+horas?\b`)

	durationUnitAhead = regexp.MustCompile(`^\s*(?:minutos?|mins?|horas?|hrs?|h)\b`)
	relativeBehind    = regexp.MustCompile(`(?:^|\s)(?:em|daqui a|daqui|dentro de|por|ha|durante)\s*$`)
)

// Normalize canonicalizes free text so the resolver sees one spelling per
// time expression. Rules run in a fixed order; each one only touches text
// the previous rules left in word or digit form.
func Normalize(text string) string {
	s := rewriteClockPreps(newFoldedText(text))

	s = punctuationRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))

	s = noonIdiom.ReplaceAllString(s, "12:00")
	s = midnightIdiom.ReplaceAllString(s, "00:00")
	s = halfHourIdiom.ReplaceAllString(s, "30 minutos")

	s = rewriteAll(s, digitsHourMinute, func(s string, m []int) (string, bool) {
		if durationUnitAhead.MatchString(s[m[1]:]) {
			return "", false
		}
		h, _ := strconv.Atoi(group(s, m, 1))
		mm, _ := strconv.Atoi(group(s, m, 2))
		return clock(h, mm)
	})

	s = rewriteAll(s, wordsHourMinute, func(s string, m []int) (string, bool) {
		if durationUnitAhead.MatchString(s[m[1]:]) {
			return "", false
		}
		hw, mw := group(s, m, 1), group(s, m, 2)
		h, ok1 := wordValue(hw)
		mm, ok2 := wordValue(mw)
		if !ok1 || !ok2 {
			return "", false
		}
		// "vinte e uma" reads as 21, not 20:01
		if _, tens := tensWords[hw]; tens && mm < 10 {
			return "", false
		}
		return clock(h, mm)
	})

	s = rewriteAll(s, wordsWithUnit, func(s string, m []int) (string, bool) {
		v, ok := wordValue(group(s, m, 1))
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%d %s", v, group(s, m, 2)), true
	})

	s = rewriteAll(s, halfPastHour, func(s string, m []int) (string, bool) {
		if afterClock(s, m) || relativeBehind.MatchString(s[:m[0]]) {
			return "", false
		}
		h, _ := strconv.Atoi(group(s, m, 1))
		return clock(h, 30)
	})

	s = rewriteAll(s, periodOfDay, func(s string, m []int) (string, bool) {
		if afterClock(s, m) || relativeBehind.MatchString(s[:m[0]]) {
			return "", false
		}
		h, _ := strconv.Atoi(group(s, m, 1))
		mm := 0
		if g := group(s, m, 2); g != "" {
			mm, _ = strconv.Atoi(g)
		}
		switch group(s, m, 3) {
		case "tarde", "noite":
			if h < 12 {
				h += 12
			}
		default:
			if h == 12 {
				h = 0
			}
		}
		return clock(h, mm)
	})

	s = rewriteAll(s, hourAndMinutes, func(s string, m []int) (string, bool) {
		if afterClock(s, m) || relativeBehind.MatchString(s[:m[0]]) {
			return "", false
		}
		h, _ := strconv.Atoi(group(s, m, 1))
		mm, _ := strconv.Atoi(group(s, m, 2))
		return clock(h, mm)
	})

	for _, re := range []*regexp.Regexp{hourSuffix, hourWord} {
		s = rewriteAll(s, re, func(s string, m []int) (string, bool) {
			if afterClock(s, m) || relativeBehind.MatchString(s[:m[0]]) {
				return "", false
			}
			h, _ := strconv.Atoi(group(s, m, 1))
			return clock(h, 0)
		})
	}

	return s
}

// rewriteAll is ReplaceAllStringFunc with submatch indexes and the option to
// leave a match untouched.
func rewriteAll(s string, re *regexp.Regexp, fn func(s string, m []int) (string, bool)) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		repl, ok := fn(s, m)
		if !ok {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(repl)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func group(s string, m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return s[m[2*i]:m[2*i+1]]
}

// afterClock reports whether the match starts inside an existing HH:MM token.
func afterClock(s string, m []int) bool {
	return m[0] > 0 && s[m[0]-1] == ':'
}

func clock(h, m int) (string, bool) {
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}
