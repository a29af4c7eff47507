package intent

import (
	"regexp"
	"sort"
	"strings"
)

var (
	numberToken = `(?:\d{1,2}|` + numberWordPattern + `\b)`
	periodWords = `(?:\s+(?:da|de)\s+(?:manha|tarde|noite|madrugada))?`

	dayWords = regexp.MustCompile(`\b(?:(?:para|pra)\s+)?(?:depois\s+de\s+amanha|amanha|hoje)\b`)

	timeExpressions = []*regexp.Regexp{
		// em 10 minutos, daqui a uma hora e meia, em 2h30, dentro de 3 semanas
		regexp.MustCompile(`\b(?:em|daqui a|daqui|dentro de)\s+(?:` + numberToken + `|\d+|meia)\s*` +
			`(?:(?:minutos?|mins?|horas?|hrs?|h)(?:\d{2}(?:\s*min(?:utos?)?)?\b|\b)|(?:dias?|semanas?|mes|meses)\b)` +
			`(?:\s+e\s+(?:meia|(?:\d+|` + numberWordPattern + `)\s*(?:minutos?|mins?)\b))?`),
		// dia 5 de setembro de 2025
		regexp.MustCompile(`\b(?:(?:no|em)\s+)?(?:dia\s+)?\d{1,2}\s+de\s+` + monthPattern + `\b(?:\s+de\s+\d{4}\b)?`),
		// 05/09, 05/09/2025
		regexp.MustCompile(`\b(?:(?:no|em)\s+)?(?:dia\s+)?\d{1,2}/\d{1,2}(?:/\d{2,4})?\b`),
		// 14:30, 14h30, 14h, 3 horas da tarde without a preposition
		regexp.MustCompile(`\b\d{1,2}(?::\d{2}|h\d{2}(?:min)?\b|\s*h\b|\s*hrs?\b|\s+horas?\b)(?:\s+e\s+meia\b)?` + periodWords),
		// ao meio-dia, à meia-noite
		regexp.MustCompile(`\b(?:(?:ao|a)\s+)?(?:meio[\s-]+dia|meia[\s-]+noite)(?:\s+e\s+meia)?\b`),
	}

	// às 14h, as 9 e 22, pelas três da tarde
	prepTimeExpression = regexp.MustCompile(`\b(?:por\s+volta\s+d[ao]s|la\s+pelas|as|ao|das|pelas)\s+` +
		`(?:` + numberToken +
		`(?:(?::|h)\d{2}|\s*h\b|\s*hrs?\b|\s+horas?\b)?(?:\s+e\s+(?:meia|` + numberToken + `)\b)?(?:\s*horas?\b)?)` + periodWords)

	leadingConnective = regexp.MustCompile(`^(?:de|do|da|que|pra|para|pro|sobre)\s+`)
	leadingJunk       = regexp.MustCompile(`^[\s,;:.!?\-–—]+`)
	trailingJunk      = regexp.MustCompile(`[\s,;:\-–—]+$`)
)

type span struct{ from, to int }

// ExtractPayload isolates what the user wants to be reminded about. It cuts
// the first trigger phrase, day words, weekdays and time expressions from the
// original text, so the result keeps the user's casing and accents. "as duas
// passagens" stays: a preposition and number are only cut when they read as
// a time.
func ExtractPayload(text string) (string, error) {
	ft := newFoldedText(text)

	var cuts []span
	if loc := firstTrigger(ft.folded); loc != nil {
		cuts = append(cuts, span{loc[0], loc[1]})
	}
	for _, loc := range dayWords.FindAllStringIndex(ft.folded, -1) {
		cuts = append(cuts, span{loc[0], loc[1]})
	}
	for _, w := range findWeekdays(ft.folded) {
		cuts = append(cuts, span{w.from, w.to})
	}
	for _, re := range timeExpressions {
		for _, loc := range re.FindAllStringIndex(ft.folded, -1) {
			cuts = append(cuts, span{loc[0], loc[1]})
		}
	}
	for _, loc := range prepTimeExpression.FindAllStringIndex(ft.folded, -1) {
		if ft.clockPrepAt(loc[0], loc[1]) {
			cuts = append(cuts, span{loc[0], loc[1]})
		}
	}

	payload := tidyPayload(cutSpans(ft, cuts))
	if payload == "" {
		return "", newParseError(ErrEmptyPayload)
	}
	return payload, nil
}

// firstTrigger returns the earliest trigger occurrence in folded text.
func firstTrigger(folded string) []int {
	return triggerPattern.FindStringIndex(folded)
}

// cutSpans removes the folded spans from the original text. Overlapping
// spans are merged first.
func cutSpans(ft *foldedText, cuts []span) string {
	if len(cuts) == 0 {
		return ft.original
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i].from < cuts[j].from })

	merged := []span{cuts[0]}
	for _, c := range cuts[1:] {
		last := &merged[len(merged)-1]
		if c.from <= last.to {
			if c.to > last.to {
				last.to = c.to
			}
			continue
		}
		merged = append(merged, c)
	}

	var b strings.Builder
	prev := 0
	for _, c := range merged {
		from, to := ft.originalSpan(c.from, c.to)
		if from < prev {
			from = prev
		}
		b.WriteString(ft.original[prev:from])
		b.WriteString(" ")
		prev = to
	}
	b.WriteString(ft.original[prev:])
	return b.String()
}

func tidyPayload(s string) string {
	s = strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
	s = strings.ReplaceAll(s, " ,", ",")
	for {
		before := s
		s = leadingJunk.ReplaceAllString(s, "")
		if loc := leadingConnective.FindStringIndex(Fold(s)); loc != nil {
			s = cutFoldedPrefix(s, loc[1])
		}
		if s == before {
			break
		}
	}
	s = trailingJunk.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "." || s == "!" || s == "?" {
		return ""
	}
	return s
}

// cutFoldedPrefix drops the original-text prefix that folds to n bytes.
func cutFoldedPrefix(s string, n int) string {
	ft := newFoldedText(s)
	_, to := ft.originalSpan(0, n)
	return s[to:]
}
