package validation

import (
	"fmt"
)

// Schema is an ordered mapping of field name to validation rule, declared
// once per request type and reused for every incoming call.
type Schema struct {
	names  []string
	fields map[string]Field
}

func NewSchema() *Schema {
	return &Schema{fields: make(map[string]Field)}
}

// Add registers a field under name. Field names are unique within a schema;
// a duplicate is a programming error caught at startup.
func (s *Schema) Add(name string, field Field) *Schema {
	if _, exists := s.fields[name]; exists {
		panic(fmt.Sprintf("validation: duplicate field %q in schema", name))
	}
	s.names = append(s.names, name)
	s.fields[name] = field
	return s
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	return s.names
}

// Result holds the outcome of validating one raw input mapping. A field's
// resolved value is set iff no error was recorded for it; a field absent from
// the input and not required has neither.
type Result struct {
	Values map[string]interface{}
	Errors map[string]string
}

// Validate checks body against the schema, aggregating per-field errors as
// data rather than aborting on the first failure.
func (s *Schema) Validate(body map[string]interface{}) *Result {
	res := &Result{
		Values: make(map[string]interface{}),
		Errors: make(map[string]string),
	}

	for _, name := range s.names {
		field := s.fields[name]
		raw, present := body[name]
		if !present && !field.Required() {
			continue
		}

		value, err := field.Validate(raw)
		if err != nil {
			res.Errors[name] = err.Error()
			continue
		}
		res.Values[name] = value
	}

	return res
}

func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Has reports whether the named field resolved to a non-empty value.
func (r *Result) Has(name string) bool {
	value, ok := r.Values[name]
	return ok && !isEmpty(value)
}

// String returns the named field as a string, or "" when absent.
func (r *Result) String(name string) string {
	if s, ok := r.Values[name].(string); ok {
		return s
	}
	return ""
}

// Map returns the named field as an object, or nil when absent.
func (r *Result) Map(name string) map[string]interface{} {
	if m, ok := r.Values[name].(map[string]interface{}); ok {
		return m
	}
	return nil
}
