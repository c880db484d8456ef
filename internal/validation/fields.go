// Package validation holds the pure field validators used by the estimate quiz
// and the callback form. Every validator returns the normalized value together
// with a *FieldError that is nil when the input is accepted.
package validation

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	MinNameLength = 2
	MaxNameLength = 30

	MaxArea    = 100000
	MaxWindows = 1000

	MinRooms = 1
	MaxRooms = 30

	MaxLabelLength = 60

	PhoneDigits  = 11
	CountryDigit = '7'
)

func isNameRune(r rune) bool {
	return unicode.Is(unicode.Cyrillic, r) && unicode.IsLetter(r)
}

// restrict keeps letters of the name alphabet plus the given separators and
// collapses runs of whitespace.
func restrict(raw string, separators string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range raw {
		switch {
		case isNameRune(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case strings.ContainsRune(separators, r):
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// Name restricts raw to Cyrillic letters, spaces and hyphens and checks the length.
func Name(raw string) (string, *FieldError) {
	name := restrict(raw, "-")
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return name, newFieldError(FieldName, ErrInvalidName)
	}
	return name, nil
}

// Phone normalizes any digit input to +7XXXXXXXXXX.
func Phone(raw string) (string, *FieldError) {
	digits := make([]byte, 0, PhoneDigits)
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) == 0 {
		return "", newFieldError(FieldPhone, ErrRequired)
	}
	switch digits[0] {
	case '8':
		digits[0] = CountryDigit
	case '9':
		digits = append([]byte{CountryDigit}, digits...)
	}
	if digits[0] != CountryDigit || len(digits) > PhoneDigits {
		return "", newFieldError(FieldPhone, ErrInvalidPhone)
	}
	if len(digits) < PhoneDigits {
		return "", newFieldError(FieldPhone, ErrRequired)
	}
	return "+" + string(digits), nil
}

// FormatPhone renders a normalized phone as +7 (XXX) XXX-XX-XX. Anything that
// is not a normalized number is returned unchanged.
func FormatPhone(phone string) string {
	d := strings.TrimPrefix(phone, "+")
	if len(d) != PhoneDigits {
		return phone
	}
	return "+" + d[:1] + " (" + d[1:4] + ") " + d[4:7] + "-" + d[7:9] + "-" + d[9:]
}

// Area parses the square meters field. Only plain decimals are accepted, with
// at most one "." or "," separator. Fractions round up so a quote is never
// computed for less area than the customer entered.
func Area(raw string) (int, *FieldError) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if !isPlainDecimal(s) {
		return 0, newFieldError(FieldArea, ErrInvalidData)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 1 {
		return 0, newFieldError(FieldArea, ErrInvalidData)
	}
	if v > MaxArea {
		return 0, newFieldError(FieldArea, ErrAreaTooLarge)
	}
	return int(math.Ceil(v)), nil
}

func isPlainDecimal(s string) bool {
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// RoomsPair validates the rooms and bathrooms fields together; the step
// cannot advance with only one of them filled.
func RoomsPair(rooms, bathrooms string) (int, int, FieldErrors) {
	var errs FieldErrors
	r, rErr := strconv.Atoi(strings.TrimSpace(rooms))
	b, bErr := strconv.Atoi(strings.TrimSpace(bathrooms))
	if rErr != nil || bErr != nil {
		if rErr != nil {
			errs.Add(newFieldError(FieldRooms, ErrRoomsRequired))
		}
		if bErr != nil {
			errs.Add(newFieldError(FieldBathrooms, ErrRoomsRequired))
		}
		return 0, 0, errs
	}
	if r < MinRooms || r > MaxRooms {
		errs.Add(newFieldError(FieldRooms, ErrRoomsRange))
	}
	if b < MinRooms || b > MaxRooms {
		errs.Add(newFieldError(FieldBathrooms, ErrRoomsRange))
	}
	if len(errs) > 0 {
		return 0, 0, errs
	}
	return r, b, nil
}

// OtherLabel validates a free-text "other" answer bound to field.
func OtherLabel(field, raw string) (string, *FieldError) {
	label := restrict(raw, "-,")
	label = strings.Trim(label, " ,")
	if label == "" {
		return "", newFieldError(field, ErrSpecify)
	}
	if utf8.RuneCountInString(label) > MaxLabelLength {
		label = strings.TrimSpace(string([]rune(label)[:MaxLabelLength]))
	}
	return label, nil
}

// Choice checks that raw is one of allowed.
func Choice(field, raw string, allowed []string) (string, *FieldError) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", newFieldError(field, ErrRequired)
	}
	if !slices.Contains(allowed, v) {
		return "", newFieldError(field, ErrInvalidChoice)
	}
	return v, nil
}

// Consent requires the consent checkbox to be ticked.
func Consent(given bool) *FieldError {
	if !given {
		return newFieldError(FieldConsent, ErrConsentRequired)
	}
	return nil
}

var dateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// DesiredDate parses an optional visit date. Empty input is accepted as "not
// specified" and yields the zero time. Dates before today (in now's location)
// are rejected.
func DesiredDate(raw string, now time.Time) (time.Time, *FieldError) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, now.Location())
		if err != nil {
			continue
		}
		y, m, d := now.Date()
		today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		if t.Before(today) {
			return time.Time{}, newFieldError(FieldDesiredAt, ErrInvalidDate)
		}
		return t, nil
	}
	return time.Time{}, newFieldError(FieldDesiredAt, ErrInvalidDate)
}
