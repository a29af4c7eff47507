package intent

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// strategy turns normalized text into a due time. ok=false means the
// strategy does not apply and the next one is tried; a non-nil error stops
// the chain.
type strategy struct {
	name    string
	resolve func(text string, now time.Time) (t time.Time, ok bool, err error)
}

var months = map[string]time.Month{
	"janeiro": time.January, "jan": time.January,
	"fevereiro": time.February, "fev": time.February,
	"marco": time.March, "mar": time.March,
	"abril": time.April, "abr": time.April,
	"maio": time.May, "mai": time.May,
	"junho": time.June, "jun": time.June,
	"julho": time.July, "jul": time.July,
	"agosto": time.August, "ago": time.August,
	"setembro": time.September, "set": time.September,
	"outubro": time.October, "out": time.October,
	"novembro": time.November, "nov": time.November,
	"dezembro": time.December, "dez": time.December,
}

var monthPattern = buildMonthPattern()

func buildMonthPattern() string {
	names := make([]string, 0, len(months))
	for n := range months {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return "(?:" + strings.Join(names, "|") + ")"
}

const relativePrefix = `\b(?:em|daqui a|daqui|dentro de)\s+`

var (
	relativeMinutes = regexp.MustCompile(relativePrefix + `(\d+)\s*(?:minutos?|mins?)\b`)
	relativeHours   = regexp.MustCompile(relativePrefix + `(\d+)\s*(?:horas?|hrs?|h)(?:(\d{2})(?:\s*min(?:utos?)?)?\b|\b(?:\s+e\s+(?:(meia)\b|(\d+)\s*(?:minutos?|mins?)\b))?)`)
	calendarDate    = regexp.MustCompile(`\b(?:dia\s+)?(\d{1,2})\s+de\s+(` + monthPattern + `)\b(?:\s+de\s+(\d{4})\b)?`)
	numericDate     = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b(?:\s+(?:as|a|ao|pelas)\s+(\d{1,2})(?::(\d{2}))?\b)?`)
	clockToken      = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	weekdayPhrase   = regexp.MustCompile(`\b(?:(na|no|nesta|neste|nessa|nesse|esta|este|essa|esse|proxima|proximo)\s+)?(segunda|terca|quarta|quinta|sexta|sabado|domingo)((?:-|\s+)feira)?(\s+que\s+vem)?\b`)
	longRange       = regexp.MustCompile(`\b(?:(?:\d+|uma?)\s+(?:semanas?|mes|meses|anos?)|proxim[ao]\s+(?:semana|mes|ano)|(?:semana|mes|ano)\s+que\s+vem)\b`)
	todayWord       = regexp.MustCompile(`\bhoje\b`)
	tomorrowWord    = regexp.MustCompile(`\bamanha\b`)
	dayAfterWord    = regexp.MustCompile(`\bdepois\s+de\s+amanha\b`)
)

func resolveRelativeMinutes(text string, now time.Time) (time.Time, bool, error) {
	m := relativeMinutes.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false, nil
	}
	return now.Add(time.Duration(n) * time.Minute), true, nil
}

func resolveRelativeHours(text string, now time.Time) (time.Time, bool, error) {
	m := relativeHours.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false, nil
	}
	h, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false, nil
	}
	d := time.Duration(h) * time.Hour
	switch {
	case m[3] != "":
		d += 30 * time.Minute
	case m[2] != "" || m[4] != "":
		mins, _ := strconv.Atoi(m[2] + m[4])
		d += time.Duration(mins) * time.Minute
	}
	return now.Add(d), true, nil
}

func resolveCalendarDate(text string, now time.Time) (time.Time, bool, error) {
	m := calendarDate.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false, nil
	}

	day, _ := strconv.Atoi(m[1])
	month := months[m[2]]
	year := now.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}

	h, mm, _ := findClock(text)
	t, ok := calendarTime(year, month, day, h, mm, now.Location())
	if !ok {
		return time.Time{}, false, ErrInvalidDate
	}
	return t, true, nil
}

func resolveNumericDate(text string, now time.Time) (time.Time, bool, error) {
	m := numericDate.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false, nil
	}

	day, _ := strconv.Atoi(m[1])
	mon, _ := strconv.Atoi(m[2])
	if mon < 1 || mon > 12 {
		return time.Time{}, false, ErrInvalidDate
	}

	year := now.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
	}

	h, mm := 0, 0
	if m[4] != "" {
		h, _ = strconv.Atoi(m[4])
		if m[5] != "" {
			mm, _ = strconv.Atoi(m[5])
		}
		if h > 23 || mm > 59 {
			return time.Time{}, false, ErrInvalidDate
		}
	}

	t, ok := calendarTime(year, time.Month(mon), day, h, mm, now.Location())
	if !ok {
		return time.Time{}, false, ErrInvalidDate
	}
	return t, true, nil
}

var weekdays = map[string]time.Weekday{
	"domingo": time.Sunday, "segunda": time.Monday, "terca": time.Tuesday,
	"quarta": time.Wednesday, "quinta": time.Thursday, "sexta": time.Friday,
	"sabado": time.Saturday,
}

type weekdayMention struct {
	from, to int
	day      time.Weekday
	// next is set by "que vem" or "proxima", which skip today.
	next bool
}

// findWeekdays returns weekday phrases in folded text. "segunda" or "sexta"
// alone are ordinals as often as days, so all but sabado and domingo need a
// preposition, "feira" or "que vem" around them.
func findWeekdays(text string) []weekdayMention {
	var out []weekdayMention
	for _, m := range weekdayPhrase.FindAllStringSubmatchIndex(text, -1) {
		prep, name := group(text, m, 1), group(text, m, 2)
		qualified := prep != "" || group(text, m, 3) != "" || group(text, m, 4) != ""
		if !qualified && name != "sabado" && name != "domingo" {
			continue
		}
		out = append(out, weekdayMention{
			from: m[0],
			to:   m[1],
			day:  weekdays[name],
			next: group(text, m, 4) != "" || strings.HasPrefix(prep, "proxim"),
		})
	}
	return out
}

// resolveWeekday picks the next occurrence of a named weekday at the clock
// found in the text, or midnight. Today only counts when its time is still
// ahead and nothing asked for the next one.
func resolveWeekday(text string, now time.Time) (time.Time, bool, error) {
	mentions := findWeekdays(text)
	if len(mentions) == 0 {
		return time.Time{}, false, nil
	}
	w := mentions[0]

	h, mm, _ := findClock(text)
	days := (int(w.day) - int(now.Weekday()) + 7) % 7
	t := time.Date(now.Year(), now.Month(), now.Day()+days, h, mm, 0, 0, now.Location())
	if days == 0 && (w.next || !t.After(now)) {
		t = t.AddDate(0, 0, 7)
	}
	return t, true, nil
}

// resolveClockToday handles a bare time of day. Without "hoje" a time that
// already passed today moves to tomorrow. Text that talks about weeks or
// months is left to the natural-language fallback.
func resolveClockToday(text string, now time.Time) (time.Time, bool, error) {
	if longRange.MatchString(text) {
		return time.Time{}, false, nil
	}
	h, mm, ok := findClock(text)
	if !ok {
		return time.Time{}, false, nil
	}
	t := time.Date(now.Year(), now.Month(), now.Day(), h, mm, 0, 0, now.Location())
	if !t.After(now) && !todayWord.MatchString(text) {
		t = t.AddDate(0, 0, 1)
	}
	return t, true, nil
}

// findClock returns the first valid HH:MM token. Normalize has already
// rewritten every spoken time into that form.
func findClock(text string) (h, m int, ok bool) {
	for _, c := range clockToken.FindAllStringSubmatch(text, -1) {
		h, _ = strconv.Atoi(c[1])
		m, _ = strconv.Atoi(c[2])
		if h <= 23 && m <= 59 {
			return h, m, true
		}
	}
	return 0, 0, false
}

// calendarTime builds a time and rejects dates time.Date would silently
// roll over, such as 31/02.
func calendarTime(year int, month time.Month, day, h, m int, loc *time.Location) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, h, m, 0, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// dayOffset is 2 for "depois de amanha", 1 for "amanha", else 0.
func dayOffset(text string) int {
	switch {
	case dayAfterWord.MatchString(text):
		return 2
	case tomorrowWord.MatchString(text):
		return 1
	default:
		return 0
	}
}
