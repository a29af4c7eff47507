package intent

import "time"

// Intent is a fully parsed reminder request.
type Intent struct {
	DueAt      time.Time
	Payload    string
	Normalized string
	Strategy   string
}

// Parser runs the resolver and the payload extractor over one message.
type Parser struct {
	resolver *Resolver
}

func NewParser(resolver *Resolver) *Parser {
	return &Parser{resolver: resolver}
}

// Parse resolves the due time first, then the payload. Failures are
// *ParseError values carrying a user-facing message.
func (p *Parser) Parse(text string) (Intent, error) {
	res, err := p.resolver.Resolve(text)
	if err != nil {
		return Intent{}, err
	}

	payload, err := ExtractPayload(text)
	if err != nil {
		return Intent{}, err
	}

	return Intent{
		DueAt:      res.DueAt,
		Payload:    payload,
		Normalized: res.Normalized,
		Strategy:   res.Strategy,
	}, nil
}
