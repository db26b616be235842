package form

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MsgCodeRequired        = "code is required"
	MsgCodeNotNumber       = "code must be a number"
	MsgNameRequired        = "name is required"
	MsgDescriptionRequired = "description is required"
	MsgQuantityRequired    = "quantity is required"
	MsgQuantityMin         = "must be at least 1"
)

// NameRule validates the product name and returns a message, or "" when
// the name is acceptable. The name input is shared with other screens, so
// its rule is injected rather than owned here.
type NameRule func(name string) string

// RequireName is the shared name rule: the name must be present.
func RequireName(name string) string {
	if name == "" {
		return MsgNameRequired
	}
	return ""
}

// Rules evaluates the per-field constraints of the product form.
type Rules struct {
	validate *validator.Validate
	name     NameRule
}

// NewRules builds the rule set. A nil name rule falls back to RequireName.
func NewRules(name NameRule) *Rules {
	if name == nil {
		name = RequireName
	}
	return &Rules{
		validate: validator.New(),
		name:     name,
	}
}

// Check returns the message for field f given the current values, or "".
func (r *Rules) Check(f Field, v Values) string {
	switch f {
	case FieldCode:
		if r.validate.Var(v.Code, "required") != nil {
			return MsgCodeRequired
		}
		if _, err := parseNumber(v.Code); err != nil {
			return MsgCodeNotNumber
		}
	case FieldName:
		return r.name(v.Name)
	case FieldDescription:
		if r.validate.Var(v.Description, "required") != nil {
			return MsgDescriptionRequired
		}
	case FieldQuantity:
		if r.validate.Var(v.Quantity, "required") != nil {
			return MsgQuantityRequired
		}
		n, err := parseNumber(v.Quantity)
		if err != nil {
			return MsgQuantityRequired
		}
		if r.validate.Var(n, "min=1") != nil {
			return MsgQuantityMin
		}
	}
	return ""
}

// All runs every rule and returns the failing fields.
func (r *Rules) All(v Values) Errors {
	errs := Errors{}
	for _, f := range Fields {
		if msg := r.Check(f, v); msg != "" {
			errs[f] = msg
		}
	}
	return errs
}

// parseNumber reads a whole number as typed into a numeric input. A
// trailing ".0" is accepted, other fractions are not.
func parseNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	return strconv.Atoi(s)
}
