package intent

import "errors"

var (
	ErrNoTime       = errors.New("no date or time found")
	ErrInvalidDate  = errors.New("date does not exist")
	ErrEmptyPayload = errors.New("nothing to remind about")
)

const (
	MsgNoTime       = "🤔 Não consegui entender a data/hora. Ex: 'amanhã às 14h' ou '05/09/2025 às 11h'."
	MsgInvalidDate  = "🤔 Essa data não existe no calendário. Confira o dia e o mês."
	MsgEmptyPayload = "⚠️ Você precisa dizer o que lembrar. Ex: 'Me avise amanhã às 10h de pagar a conta'."
)

// ParseError is returned when a message cannot be turned into a reminder.
// Message is safe to send back to the user as-is.
type ParseError struct {
	Kind    error
	Message string
}

func (e *ParseError) Error() string {
	return e.Kind.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

func newParseError(kind error) *ParseError {
	msg := MsgNoTime
	switch kind {
	case ErrInvalidDate:
		msg = MsgInvalidDate
	case ErrEmptyPayload:
		msg = MsgEmptyPayload
	}
	return &ParseError{Kind: kind, Message: msg}
}
