package application

import (
	"errors"
	"strings"

	"github.com/example/managerapp/internal/backend"
)

// UnexpectedErrorMessage is shown when the backend gives no usable message.
const UnexpectedErrorMessage = "Erro inesperado"

type translation struct {
	match string
	text  string
}

// Translator maps backend messages to user-facing text by substring match.
// The first matching entry wins; unmatched messages are returned verbatim.
type Translator struct {
	entries []translation
}

// NewTranslator builds a translator from ordered (match, text) pairs.
func NewTranslator(pairs ...[2]string) *Translator {
	t := &Translator{}
	for _, pair := range pairs {
		t.entries = append(t.entries, translation{match: pair[0], text: pair[1]})
	}
	return t
}

// DefaultTranslator returns the pt-BR table for known backend messages.
func DefaultTranslator() *Translator {
	return NewTranslator(
		[2]string{"Appointment not found", "Agendamento não encontrado"},
		[2]string{"Only scheduled appointments can be canceled", "Somente agendamentos em andamento podem ser cancelados"},
		[2]string{"Appointments can only be canceled", "Agendamentos só podem ser cancelados com antecedência mínima"},
		[2]string{"Title is required!", "Título é obrigatório!"},
		[2]string{"Title must be between 3 and 70 characters long", "Título deve ter entre 3 e 70 caracteres"},
		[2]string{"Description is required!", "Descrição é obrigatória!"},
		[2]string{"Description must be between 3 and 150 characters long", "Descrição deve ter entre 3 e 150 caracteres"},
		[2]string{"Date and time is required!", "Data e hora são obrigatórias!"},
		[2]string{"Date must be in the future", "A data deve ser no futuro"},
		[2]string{"ClientId is required!", "Cliente é obrigatório!"},
		[2]string{"Client Id not found", "Cliente não encontrado"},
		[2]string{"This time slot is already booked.", "Horário indisponível"},
		[2]string{"Access denied", "Acesso negado"},
	)
}

// Translate returns the user-facing text for msg.
func (t *Translator) Translate(msg string) string {
	if t == nil {
		return msg
	}
	for _, entry := range t.entries {
		if strings.Contains(msg, entry.match) {
			return entry.text
		}
	}
	return msg
}

// Classify turns a backend failure into the typed error callers branch on:
// SessionExpiredError for 401, ValidationError when field errors are present
// and OperationError otherwise. Already classified errors pass through.
func (t *Translator) Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		authErr    *AuthError
		expiredErr *SessionExpiredError
		vErr       *ValidationError
		opErr      *OperationError
	)
	if errors.As(err, &authErr) || errors.As(err, &expiredErr) || errors.As(err, &vErr) || errors.As(err, &opErr) {
		return err
	}

	if errors.Is(err, backend.ErrUnauthenticated) {
		return &SessionExpiredError{Err: err}
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if len(apiErr.FieldErrors) > 0 {
			validation := &ValidationError{}
			for _, fe := range apiErr.FieldErrors {
				validation.add(fe.FieldName, t.Translate(fe.Message))
			}
			return validation
		}
		raw := apiErr.Message
		if raw == "" {
			raw = UnexpectedErrorMessage
		}
		return &OperationError{Op: op, Status: apiErr.Status, RawMessage: raw, Message: t.Translate(raw), Err: err}
	}

	return &OperationError{Op: op, RawMessage: UnexpectedErrorMessage, Message: UnexpectedErrorMessage, Err: err}
}
