package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrCustomerHasTickets = errors.New("customer still has tickets")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrLastUser           = errors.New("the last user cannot be deleted")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserLocked         = errors.New("user is locked")
	ErrSessionNotFound    = errors.New("session not found")

	// ErrExtractionFailed — внешний сервис извлечения недоступен или вернул неразбираемый ответ.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrExtractionUnavailable — извлечение не настроено (нет API-ключа).
	ErrExtractionUnavailable = errors.New("extraction service not configured")
	// ErrManualAssignmentRequired — отправитель не распознан и резервный клиент не настроен.
	ErrManualAssignmentRequired = errors.New("sender not recognised, manual assignment required")
)

// ValidationError — отсутствующие или некорректные поля запроса. Запись не выполнялась.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = "invalid"
	}
	if len(e.Fields) == 0 {
		return msg
	}
	return fmt.Sprintf("%s: %s", strings.Join(e.Fields, ", "), msg)
}

func NewValidation(reason string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Reason: reason}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
