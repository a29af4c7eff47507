package intent

import (
	"regexp"
	"sort"
	"strings"
)

var unitWords = map[string]int{
	"zero": 0, "um": 1, "uma": 1, "dois": 2, "duas": 2, "tres": 3,
	"quatro": 4, "cinco": 5, "seis": 6, "sete": 7, "oito": 8, "nove": 9,
	"dez": 10, "onze": 11, "doze": 12, "treze": 13, "catorze": 14,
	"quatorze": 14, "quinze": 15, "dezesseis": 16, "dezessete": 17,
	"dezoito": 18, "dezenove": 19,
}

var tensWords = map[string]int{
	"vinte": 20, "trinta": 30, "quarenta": 40, "cinquenta": 50,
}

// numberWords maps every folded spelling of 0..59 to its value,
// including compounds such as "vinte e tres".
var numberWords = buildNumberWords()

// numberWordPattern is an alternation of numberWords, longest first so that
// "vinte e tres" wins over "vinte".
var numberWordPattern = buildNumberWordPattern()

func buildNumberWords() map[string]int {
	words := make(map[string]int, 120)
	for w, v := range unitWords {
		words[w] = v
	}
	for tens, tv := range tensWords {
		words[tens] = tv
		for unit, uv := range unitWords {
			if uv >= 1 && uv <= 9 {
				words[tens+" e "+unit] = tv + uv
			}
		}
	}
	return words
}

func buildNumberWordPattern() string {
	keys := make([]string, 0, len(numberWords))
	for w := range numberWords {
		keys = append(keys, w)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for i, k := range keys {
		keys[i] = strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`)
	}
	return "(?:" + strings.Join(keys, "|") + ")"
}

var spaceRun = regexp.MustCompile(`\s+`)

// wordValue resolves a spelled number, tolerating extra inner whitespace.
func wordValue(w string) (int, bool) {
	v, ok := numberWords[spaceRun.ReplaceAllString(strings.TrimSpace(w), " ")]
	return v, ok
}
