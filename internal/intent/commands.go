package intent

import (
	"regexp"
	"strings"
)

type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandList
	CommandCancel
	CommandClear
)

func (k CommandKind) String() string {
	switch k {
	case CommandList:
		return "list"
	case CommandCancel:
		return "cancel"
	case CommandClear:
		return "clear"
	default:
		return "none"
	}
}

// Command is a reminder management request recognized in a message.
type Command struct {
	Kind CommandKind
	// Query is the text after "cancelar lembrete", in the user's own spelling.
	Query string
}

var (
	clearPhrases  = regexp.MustCompile(`\b(?:apagar|cancelar|excluir|remover)\s+todos\s+(?:os\s+)?(?:meus\s+)?lembretes\b|\blimpar\s+(?:os\s+)?(?:meus\s+)?lembretes\b`)
	listPhrases   = regexp.MustCompile(`\bmeus\s+lembretes\b|\blistar\s+(?:os\s+)?lembretes\b`)
	cancelPhrases = regexp.MustCompile(`\b(?:cancelar|cancela|cancele|apagar|apague)\s+(?:o\s+)?lembrete\b`)
)

// ParseCommand recognizes list, cancel and clear-all requests by substring,
// ignoring case and accents. Clear-all is checked first because its phrases
// contain the others.
func ParseCommand(text string) Command {
	ft := newFoldedText(text)

	switch {
	case clearPhrases.MatchString(ft.folded):
		return Command{Kind: CommandClear}
	case listPhrases.MatchString(ft.folded):
		return Command{Kind: CommandList}
	}

	if loc := cancelPhrases.FindStringIndex(ft.folded); loc != nil {
		_, to := ft.originalSpan(loc[0], loc[1])
		query := strings.TrimSpace(text[to:])
		query = strings.TrimSpace(leadingJunk.ReplaceAllString(query, ""))
		if l := leadingConnective.FindStringIndex(Fold(query)); l != nil {
			query = strings.TrimSpace(cutFoldedPrefix(query, l[1]))
		}
		return Command{Kind: CommandCancel, Query: query}
	}

	return Command{Kind: CommandNone}
}
