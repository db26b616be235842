package form

import (
	"fmt"

	"github.com/spf13/cast"
)

// State is the field state of one product record being created or edited:
// current values, the error per field, and which fields the user has left.
//
// A field is checked when the user leaves it (Blur) and on every later
// change; untouched fields are only checked at submit time.
type State struct {
	rules   *Rules
	values  Values
	errors  Errors
	touched map[Field]bool
}

func NewState(rules *Rules) *State {
	if rules == nil {
		rules = NewRules(nil)
	}
	return &State{
		rules:   rules,
		errors:  Errors{},
		touched: map[Field]bool{},
	}
}

// Reset restores the empty create-mode form.
func (s *State) Reset() {
	s.values = Values{}
	s.errors = Errors{}
	s.touched = map[Field]bool{}
}

// Set stores a value for field f. Text fields take any scalar; the image
// field takes an Image, a *LocalFile, a remote locator string or nil.
func (s *State) Set(f Field, value any) error {
	if err := s.store(f, value); err != nil {
		return err
	}
	if s.touched[f] {
		s.check(f)
	}
	return nil
}

// SetAndValidate stores the value, marks the field touched and checks it.
func (s *State) SetAndValidate(f Field, value any) error {
	if err := s.store(f, value); err != nil {
		return err
	}
	s.touched[f] = true
	s.check(f)
	return nil
}

// Blur marks f as left by the user and checks it.
func (s *State) Blur(f Field) error {
	if _, err := ParseField(string(f)); err != nil {
		return err
	}
	s.touched[f] = true
	s.check(f)
	return nil
}

func (s *State) Touched(f Field) bool {
	return s.touched[f]
}

// Values returns a copy of the current values.
func (s *State) Values() Values {
	return s.values
}

// Value returns the current value of a single field.
func (s *State) Value(f Field) any {
	switch f {
	case FieldCode:
		return s.values.Code
	case FieldName:
		return s.values.Name
	case FieldDescription:
		return s.values.Description
	case FieldImage:
		return s.values.Image
	case FieldQuantity:
		return s.values.Quantity
	}
	return nil
}

// Errors returns a copy of the current error map.
func (s *State) Errors() Errors {
	return s.errors.clone()
}

// Validate runs every rule. On success it returns the typed form and an
// empty error map; otherwise the error map lists each failing field.
func (s *State) Validate() (ProductForm, Errors) {
	s.errors = s.rules.All(s.values)
	if len(s.errors) > 0 {
		return ProductForm{}, s.errors.clone()
	}
	code, _ := parseNumber(s.values.Code)
	qty, _ := parseNumber(s.values.Quantity)
	return ProductForm{
		Code:        code,
		Name:        s.values.Name,
		Description: s.values.Description,
		Image:       s.values.Image,
		Quantity:    qty,
	}, Errors{}
}

func (s *State) check(f Field) {
	if msg := s.rules.Check(f, s.values); msg != "" {
		s.errors[f] = msg
		return
	}
	delete(s.errors, f)
}

func (s *State) store(f Field, value any) error {
	if f == FieldImage {
		img, err := imageFrom(value)
		if err != nil {
			return err
		}
		s.values.Image = img
		return nil
	}

	text := ""
	if value != nil {
		var err error
		if text, err = cast.ToStringE(value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, f, err)
		}
	}

	switch f {
	case FieldCode:
		s.values.Code = text
	case FieldName:
		s.values.Name = text
	case FieldDescription:
		s.values.Description = text
	case FieldQuantity:
		s.values.Quantity = text
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return nil
}
