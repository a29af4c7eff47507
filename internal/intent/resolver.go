package intent

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/br"
	"github.com/olebedev/when/rules/common"
)

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	DueAt      time.Time
	Normalized string
	// Strategy names the rule that produced the time, e.g. "relative_minutes".
	Strategy string
}

// Resolver turns free text into a due time by running a fixed chain of
// strategies, most specific first. The zero value is not usable; call
// NewResolver.
type Resolver struct {
	loc        *time.Location
	now        func() time.Time
	nl         *when.Parser
	strategies []strategy
}

func NewResolver(loc *time.Location, now func() time.Time) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}

	nl := when.New(nil)
	nl.Add(br.All...)
	nl.Add(common.All...)

	r := &Resolver{loc: loc, now: now, nl: nl}
	r.strategies = []strategy{
		{name: "relative_minutes", resolve: resolveRelativeMinutes},
		{name: "relative_hours", resolve: resolveRelativeHours},
		{name: "calendar_date", resolve: resolveCalendarDate},
		{name: "numeric_date", resolve: resolveNumericDate},
		{name: "weekday", resolve: resolveWeekday},
		{name: "clock", resolve: resolveClockToday},
		{name: "natural_language", resolve: r.resolveNaturalLanguage},
	}
	return r
}

// Resolve normalizes text and returns the first strategy's result. A
// "amanha" or "depois de amanha" anywhere in the text then forces the date,
// keeping the time of day found by the strategy (midnight if none matched).
func (r *Resolver) Resolve(text string) (Resolution, error) {
	normalized := Normalize(text)
	now := r.now().In(r.loc)

	var (
		due     time.Time
		matched string
	)
	for _, s := range r.strategies {
		t, ok, err := s.resolve(normalized, now)
		if err != nil {
			return Resolution{}, newParseError(err)
		}
		if ok {
			due, matched = t, s.name
			break
		}
	}

	if days := dayOffset(normalized); days > 0 {
		h, m := 0, 0
		if matched != "" {
			h, m = due.Hour(), due.Minute()
		}
		due = time.Date(now.Year(), now.Month(), now.Day()+days, h, m, 0, 0, r.loc)
		if matched == "" {
			matched = "day_word"
		}
	}

	if matched == "" {
		return Resolution{}, newParseError(ErrNoTime)
	}

	return Resolution{DueAt: due, Normalized: normalized, Strategy: matched}, nil
}

// resolveNaturalLanguage hands what is left to a general date parser. Day
// words are stripped first since the override above owns them, and an
// explicit HH:MM in the text wins over the parser's time of day.
func (r *Resolver) resolveNaturalLanguage(text string, now time.Time) (time.Time, bool, error) {
	stripped := dayAfterWord.ReplaceAllString(text, " ")
	stripped = tomorrowWord.ReplaceAllString(stripped, " ")
	stripped = strings.TrimSpace(spaceRun.ReplaceAllString(stripped, " "))
	if stripped == "" {
		return time.Time{}, false, nil
	}

	res, err := r.nl.Parse(stripped, now)
	if err != nil || res == nil {
		return time.Time{}, false, nil
	}

	t := res.Time.In(r.loc)
	if h, m, ok := findClock(text); ok {
		t = time.Date(t.Year(), t.Month(), t.Day(), h, m, 0, 0, r.loc)
	}
	// prefer the next occurrence for expressions that landed earlier today
	if t.Before(now.Add(-time.Minute)) && now.Sub(t) < 24*time.Hour {
		t = t.AddDate(0, 0, 1)
	}
	return t, true, nil
}
