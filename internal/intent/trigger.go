package intent

import (
	"regexp"
	"sort"
	"strings"
)

// Triggers are the folded phrases that mark a message as a reminder request.
var Triggers = []string{
	"me lembre",
	"me lembra",
	"me lembrar",
	"lembre-me",
	"lembra-me",
	"nao me deixe esquecer",
	"nao me deixa esquecer",
	"me avise",
	"me avisa",
	"me recorde",
	"me faca lembrar",
	"me cobre",
	"me cobra",
	"me alerta",
	"me alerte",
	"nao esqueca de",
}

var triggerPattern = buildTriggerPattern()

func buildTriggerPattern() *regexp.Regexp {
	phrases := append([]string(nil), Triggers...)
	sort.Slice(phrases, func(i, j int) bool { return len(phrases[i]) > len(phrases[j]) })
	for i, p := range phrases {
		phrases[i] = strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
	}
	return regexp.MustCompile(strings.Join(phrases, "|"))
}

// IsReminderRequest reports whether text contains a trigger phrase, ignoring
// case and accents. It is a gate: false positives are caught later by the
// parser.
func IsReminderRequest(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return triggerPattern.MatchString(Fold(text))
}
