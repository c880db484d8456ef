package validation

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidName is returned when a contact name is outside the allowed alphabet or length.
	ErrInvalidName = errors.New("validation: invalid name")

	// ErrRequired is returned when a field is empty or incomplete.
	ErrRequired = errors.New("validation: field is required")

	// ErrInvalidPhone is returned when a phone number has the wrong shape.
	ErrInvalidPhone = errors.New("validation: invalid phone number")

	// ErrInvalidData is returned for empty, non-numeric or non-positive numeric input.
	ErrInvalidData = errors.New("validation: invalid data")

	// ErrAreaTooLarge is returned when the area exceeds MaxArea.
	ErrAreaTooLarge = errors.New("validation: area out of range")

	// ErrRoomsRequired is returned when the rooms/bathrooms pair is incomplete.
	ErrRoomsRequired = errors.New("validation: rooms and bathrooms are required")

	// ErrRoomsRange is returned when a room count is outside [MinRooms, MaxRooms].
	ErrRoomsRange = errors.New("validation: room count out of range")

	// ErrSpecify is returned when a free-text "other" label is empty.
	ErrSpecify = errors.New("validation: please specify")

	// ErrInvalidChoice is returned when a value is not one of the enumerated options.
	ErrInvalidChoice = errors.New("validation: invalid choice")

	// ErrConsentRequired is returned when the personal data consent box is unchecked.
	ErrConsentRequired = errors.New("validation: consent required")

	// ErrInvalidDate is returned when a desired date cannot be parsed or lies in the past.
	ErrInvalidDate = errors.New("validation: invalid date")
)

// Field names used in FieldError.Field and in API payloads.
const (
	FieldService      = "service"
	FieldServiceOther = "service_other"
	FieldArea         = "area"
	FieldRooms        = "rooms"
	FieldBathrooms    = "bathrooms"
	FieldExtras       = "extras"
	FieldExtrasOther  = "extras_other"
	FieldUrgency      = "urgency"
	FieldDesiredAt    = "desired_at"
	FieldName         = "name"
	FieldPhone        = "phone"
	FieldConsent      = "consent"
)

type copyEntry struct {
	code    string
	message string
}

var microcopy = map[error]copyEntry{
	ErrInvalidName:     {"invalid_name", "Введите корректное имя"},
	ErrRequired:        {"required", "Заполните это поле"},
	ErrInvalidPhone:    {"invalid_phone", "Некорректный номер телефона"},
	ErrInvalidData:     {"invalid_data", "Некорректные данные"},
	ErrAreaTooLarge:    {"area_too_large", "Площадь не может превышать 100 000 м²"},
	ErrRoomsRequired:   {"rooms_required", "Укажите количество комнат и санузлов"},
	ErrRoomsRange:      {"rooms_range", "Допустимое значение от 1 до 30"},
	ErrSpecify:         {"specify", "Пожалуйста, уточните"},
	ErrInvalidChoice:   {"invalid_choice", "Выберите один из вариантов"},
	ErrConsentRequired: {"consent_required", "Необходимо согласие на обработку персональных данных"},
	ErrInvalidDate:     {"invalid_date", "Укажите корректную дату"},
}

// FieldError is a step-local validation failure bound to one input field.
type FieldError struct {
	Field string
	Err   error
}

func newFieldError(field string, err error) *FieldError {
	return &FieldError{Field: field, Err: err}
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Code is a stable machine-readable identifier for the failure.
func (e *FieldError) Code() string {
	if entry, ok := microcopy[e.Err]; ok {
		return entry.code
	}
	return "invalid"
}

// Message is the copy rendered inline next to the field.
func (e *FieldError) Message() string {
	if entry, ok := microcopy[e.Err]; ok {
		return entry.message
	}
	return microcopy[ErrInvalidData].message
}

// FieldErrors collects the failures of one step.
type FieldErrors []*FieldError

// Add appends err when it is non-nil.
func (fe *FieldErrors) Add(err *FieldError) {
	if err != nil {
		*fe = append(*fe, err)
	}
}

// Has reports whether field failed validation.
func (fe FieldErrors) Has(field string) bool {
	return fe.For(field) != nil
}

// For returns the first error bound to field.
func (fe FieldErrors) For(field string) *FieldError {
	for _, err := range fe {
		if err.Field == field {
			return err
		}
	}
	return nil
}

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, err := range fe {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}
