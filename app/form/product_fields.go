package form

import (
	"context"
	"fmt"
	"strings"
)

// Initial is a partial product used to pre-populate an edit form. Nil
// pointers are left alone when seeding.
//
// Key identifies the record version the values came from, for example
// "product:7@1715000000". Seeding runs once per key; when Key is empty the
// content itself is used as the key.
type Initial struct {
	Key         string
	Code        *int
	Name        *string
	Description *string
	Image       *Image
	Quantity    *int
}

func (iv Initial) marker() string {
	if iv.Key != "" {
		return iv.Key
	}
	var b strings.Builder
	if iv.Code != nil {
		fmt.Fprintf(&b, "code=%d;", *iv.Code)
	}
	if iv.Name != nil {
		fmt.Fprintf(&b, "name=%q;", *iv.Name)
	}
	if iv.Description != nil {
		fmt.Fprintf(&b, "description=%q;", *iv.Description)
	}
	if iv.Image != nil {
		img := *iv.Image
		if img.IsLocal() {
			fmt.Fprintf(&b, "image=%p;", img.File())
		} else {
			fmt.Fprintf(&b, "image=%s:%q;", img.Kind(), img.Ref())
		}
	}
	if iv.Quantity != nil {
		fmt.Fprintf(&b, "quantity=%d;", *iv.Quantity)
	}
	return b.String()
}

// ProductFields is the editable field set of the product dialog: the field
// state, the image preview, and seeding from an existing record.
type ProductFields struct {
	state   *State
	preview *Preview

	seeded    string
	hasSeeded bool
	// storedRef is the remote locator the form was seeded with, the only
	// one user input may set the image back to.
	storedRef string
}

func NewProductFields(rules *Rules, store PreviewStore, prompt Prompter) *ProductFields {
	return &ProductFields{
		state:   NewState(rules),
		preview: NewPreview(store, prompt),
	}
}

// Seed writes every defined value of iv into the form, overwriting what is
// there. It runs once per key and reports whether it wrote anything. No
// validation is triggered. A failed seed leaves the form as it was.
func (pf *ProductFields) Seed(iv Initial) (bool, error) {
	marker := iv.marker()
	if pf.hasSeeded && marker == pf.seeded {
		return false, nil
	}

	values, errs := pf.state.values, pf.state.errors.clone()
	if err := pf.seedValues(iv); err != nil {
		pf.state.values, pf.state.errors = values, errs
		return false, err
	}
	if iv.Image != nil {
		if err := pf.preview.ProvideExternal(*iv.Image); err != nil {
			pf.state.values, pf.state.errors = values, errs
			return false, err
		}
	}

	if iv.Image != nil {
		pf.storedRef = ""
		if iv.Image.Kind() == ImageRemote {
			pf.storedRef = iv.Image.Ref()
		}
	}
	pf.seeded = marker
	pf.hasSeeded = true
	return true, nil
}

func (pf *ProductFields) seedValues(iv Initial) error {
	if iv.Code != nil {
		if err := pf.state.Set(FieldCode, *iv.Code); err != nil {
			return err
		}
	}
	if iv.Name != nil {
		if err := pf.state.Set(FieldName, *iv.Name); err != nil {
			return err
		}
	}
	if iv.Description != nil {
		if err := pf.state.Set(FieldDescription, *iv.Description); err != nil {
			return err
		}
	}
	if iv.Quantity != nil {
		if err := pf.state.Set(FieldQuantity, *iv.Quantity); err != nil {
			return err
		}
	}
	if iv.Image != nil {
		return pf.state.Set(FieldImage, *iv.Image)
	}
	return nil
}

// Set updates a field from user input. Image changes made this way bypass
// the file picker checks, so they may only clear the image or restore the
// locator the form was seeded with.
func (pf *ProductFields) Set(f Field, value any) error {
	if f == FieldImage {
		img, err := imageFrom(value)
		if err != nil {
			return err
		}
		switch {
		case img.IsLocal():
			return fmt.Errorf("%w: pick local files through the image selector", ErrInvalidValue)
		case img.Kind() == ImageRemote && img.Ref() != pf.storedRef:
			return fmt.Errorf("%w: image may only be cleared or restored", ErrInvalidValue)
		}
		if err := pf.state.SetAndValidate(FieldImage, img); err != nil {
			return err
		}
		return pf.preview.ProvideExternal(img)
	}
	return pf.state.Set(f, value)
}

func (pf *ProductFields) Blur(f Field) error {
	return pf.state.Blur(f)
}

// SelectImage handles the file picker. See Preview.Select.
func (pf *ProductFields) SelectImage(ctx context.Context, files []*LocalFile) error {
	return pf.preview.Select(ctx, files, pf.state)
}

func (pf *ProductFields) Values() Values {
	return pf.state.Values()
}

func (pf *ProductFields) Errors() Errors {
	return pf.state.Errors()
}

func (pf *ProductFields) PreviewSource() string {
	return pf.preview.Source()
}

func (pf *ProductFields) Validate() (ProductForm, Errors) {
	return pf.state.Validate()
}

// Discard releases the preview. The fields must not be used afterwards.
func (pf *ProductFields) Discard() {
	pf.preview.Release()
}
