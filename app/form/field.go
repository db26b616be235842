// Package form holds the product form used by the create and edit dialogs:
// field values and their validation, the image preview lifecycle, seeding
// from an existing product, and the dialog state machine around them.
//
// Nothing in this package talks to the network. Mutations are handed to a
// Submitter and come back through success and error continuations.
package form

import (
	"errors"
	"fmt"
)

// Field names one of the five editable product fields.
type Field string

const (
	FieldCode        Field = "code"
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldImage       Field = "image"
	FieldQuantity    Field = "quantity"
)

// Fields lists every field in display order.
var Fields = []Field{FieldCode, FieldName, FieldDescription, FieldImage, FieldQuantity}

var (
	ErrUnknownField     = errors.New("unknown form field")
	ErrInvalidValue     = errors.New("invalid field value")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrUnreadableImage  = errors.New("unreadable image file")
)

// ParseField maps a wire name to a Field.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Errors maps a failing field to its message. Empty means submittable.
type Errors map[Field]string

func (e Errors) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

func (e Errors) clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Values is the raw snapshot of the form while it is being edited. Numeric
// fields keep the text as entered so a bad entry can be reported.
type Values struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       Image  `json:"image"`
	Quantity    string `json:"quantity"`
}

// ProductForm is a validated form, ready to be handed to a mutation.
type ProductForm struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       Image  `json:"image"`
	Quantity    int    `json:"quantity"`
}
