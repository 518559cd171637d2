// Package validation implements the declarative field rules the API requests
// are checked against. Each field kind validates one raw JSON value; schemas
// compose fields and aggregate per-field errors.
package validation

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrRequired    = errors.New("field is required")
	ErrNotNullable = errors.New("field can't be nullable")
)

const dateLayout = "02.01.2006"

// seventyYears bounds birthday fields, measured in plain 365-day years.
const seventyYears = 70 * 365 * 24 * time.Hour

// Field is a single typed validation rule. Validate receives the raw decoded
// JSON value (nil when the key was absent or null) and returns the resolved
// value, or the reason it was rejected.
type Field interface {
	Validate(value interface{}) (interface{}, error)
	Required() bool
}

// base carries the required/nullable flags shared by every field kind.
type base struct {
	required bool
	nullable bool
}

func (b base) Required() bool { return b.required }

// checkBase runs the contract common to all kinds: required fields must be
// present, non-nullable fields must not hold an empty sentinel. An explicitly
// supplied empty value ("" / {} / []) is a nullability violation, not absence.
func (b base) checkBase(value interface{}) error {
	if b.required && value == nil {
		return ErrRequired
	}
	if !b.nullable && isEmpty(value) {
		return ErrNotNullable
	}
	return nil
}

// isEmpty reports whether value is one of the empty sentinels. Zero numbers
// are not sentinels: gender 0 is a legitimate value.
func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case map[string]interface{}:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	case []int:
		return len(v) == 0
	}
	return false
}

// isFalsy matches values that short-circuit phone/date validation.
func isFalsy(value interface{}) bool {
	if isEmpty(value) {
		return true
	}
	switch v := value.(type) {
	case int:
		return v == 0
	case float64:
		return v == 0
	}
	return false
}

// asInt converts a decoded JSON value to an integer. JSON numbers decode as
// float64, so only whole floats qualify.
func asInt(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

// CharField validates text strings.
type CharField struct {
	base
}

func NewChar(required, nullable bool) *CharField {
	return &CharField{base{required: required, nullable: nullable}}
}

func (f *CharField) Validate(value interface{}) (interface{}, error) {
	if err := f.checkBase(value); err != nil {
		return nil, err
	}
	if _, ok := value.(string); !ok {
		return nil, errors.New("value must be a string")
	}
	return value, nil
}

// ArgumentsField validates key/value mappings (the inner request payload).
type ArgumentsField struct {
	base
}

func NewArguments(required, nullable bool) *ArgumentsField {
	return &ArgumentsField{base{required: required, nullable: nullable}}
}

func (f *ArgumentsField) Validate(value interface{}) (interface{}, error) {
	if err := f.checkBase(value); err != nil {
		return nil, err
	}
	if _, ok := value.(map[string]interface{}); !ok {
		return nil, errors.New("value must be an object")
	}
	return value, nil
}

// EmailField is a CharField that must contain an '@'.
type EmailField struct {
	CharField
}

func NewEmail(required, nullable bool) *EmailField {
	return &EmailField{CharField{base{required: required, nullable: nullable}}}
}

func (f *EmailField) Validate(value interface{}) (interface{}, error) {
	if _, err := f.CharField.Validate(value); err != nil {
		return nil, err
	}
	s := value.(string)
	if !containsAt(s) {
		return nil, errors.New("value must contain '@' character")
	}
	return value, nil
}

func containsAt(s string) bool {
	for _, r := range s {
		if r == '@' {
			return true
		}
	}
	return false
}

// PhoneField accepts an integer or a numeric string; the decimal text form
// must be exactly 11 digits. A falsy value (when it passed the base checks)
// is valid with no value.
type PhoneField struct {
	base
}

func NewPhone(required, nullable bool) *PhoneField {
	return &PhoneField{base{required: required, nullable: nullable}}
}

func (f *PhoneField) Validate(value interface{}) (interface{}, error) {
	if err := f.checkBase(value); err != nil {
		return nil, err
	}
	if isFalsy(value) {
		return value, nil
	}

	var text string
	switch v := value.(type) {
	case string:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return nil, errors.New("value must contain numbers only")
		}
		text = v
	default:
		n, ok := asInt(value)
		if !ok {
			return nil, errors.New("value must be an integer or a numeric string")
		}
		text = strconv.FormatInt(n, 10)
	}

	if len(text) != 11 {
		return nil, errors.New("value length must be 11")
	}
	return value, nil
}

// DateField is a CharField holding a DD.MM.YYYY date. An empty string is
// valid with no value.
type DateField struct {
	CharField
}

func NewDate(required, nullable bool) *DateField {
	return &DateField{CharField{base{required: required, nullable: nullable}}}
}

func (f *DateField) Validate(value interface{}) (interface{}, error) {
	if _, err := f.parse(value); err != nil {
		return nil, err
	}
	return value, nil
}

func (f *DateField) parse(value interface{}) (time.Time, error) {
	if _, err := f.CharField.Validate(value); err != nil {
		return time.Time{}, err
	}
	s := value.(string)
	if s == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errors.New("value must be in 'DD.MM.YYYY' format")
	}
	return parsed, nil
}

// BirthdayField is a DateField whose date must be within 70 years of today.
type BirthdayField struct {
	DateField

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

func NewBirthday(required, nullable bool) *BirthdayField {
	return &BirthdayField{
		DateField: DateField{CharField{base{required: required, nullable: nullable}}},
		now:       time.Now,
	}
}

func (f *BirthdayField) Validate(value interface{}) (interface{}, error) {
	parsed, err := f.parse(value)
	if err != nil {
		return nil, err
	}
	// Compared on whole dates: a birthday exactly 70 years back is valid
	// regardless of the time of day.
	now := f.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !parsed.IsZero() && today.Sub(parsed) > seventyYears {
		return nil, errors.New("date must be at most 70 years from now")
	}
	return value, nil
}

// GenderField validates an integer from the fixed gender enumeration.
type GenderField struct {
	base
}

// Genders maps the accepted gender codes to their names.
var Genders = map[int64]string{
	0: "unknown",
	1: "male",
	2: "female",
}

func NewGender(required, nullable bool) *GenderField {
	return &GenderField{base{required: required, nullable: nullable}}
}

func (f *GenderField) Validate(value interface{}) (interface{}, error) {
	if err := f.checkBase(value); err != nil {
		return nil, err
	}
	n, ok := asInt(value)
	if !ok {
		return nil, errors.New("value must be an integer")
	}
	if _, known := Genders[n]; !known {
		return nil, fmt.Errorf("value must be in [0,1,2]")
	}
	return value, nil
}

// ClientIDsField validates a non-heterogeneous list of integers.
type ClientIDsField struct {
	base
}

func NewClientIDs(required, nullable bool) *ClientIDsField {
	return &ClientIDsField{base{required: required, nullable: nullable}}
}

func (f *ClientIDsField) Validate(value interface{}) (interface{}, error) {
	if err := f.checkBase(value); err != nil {
		return nil, err
	}
	switch v := value.(type) {
	case []int:
		return value, nil
	case []interface{}:
		for _, item := range v {
			if _, ok := asInt(item); !ok {
				return nil, errors.New("list must contain integer values only")
			}
		}
		return value, nil
	}
	return nil, errors.New("value must be a list")
}
