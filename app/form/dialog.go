package form

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Phase is the lifecycle state of a product dialog.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseOpenEmpty
	PhaseOpenSeeded
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseOpenEmpty:
		return "open_empty"
	case PhaseOpenSeeded:
		return "open_seeded"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "closed"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Mode tells whether a dialog creates a product or edits an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

var (
	ErrDialogClosed   = errors.New("dialog is closed")
	ErrDialogOpen     = errors.New("dialog is already open")
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	ErrInvalidForm    = errors.New("form has validation errors")
)

// Submission is the validated payload handed to a Submitter.
type Submission struct {
	Mode      Mode
	ProductID uint
	Form      ProductForm
}

// Submitter starts the create or edit mutation for a submission. Exactly
// one of onSuccess or onError must eventually be called, from any
// goroutine.
type Submitter interface {
	Submit(ctx context.Context, s Submission, onSuccess func(), onError func(error))
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, s Submission, onSuccess func(), onError func(error))

func (f SubmitterFunc) Submit(ctx context.Context, s Submission, onSuccess func(), onError func(error)) {
	f(ctx, s, onSuccess, onError)
}

// FieldsFactory builds a fresh field set each time the dialog opens.
type FieldsFactory func() *ProductFields

// Dialog hosts ProductFields for one create or edit session:
//
//	Closed -> OpenEmpty (create) | OpenSeeded (edit)
//	Open*  -> Submitting           when the form validates
//	Submitting -> Closed           on mutation success
//	Submitting -> Open*            on mutation error, form kept, message set
//
// It is safe for concurrent use.
type Dialog struct {
	mu        sync.Mutex
	newFields FieldsFactory
	logger    *zap.Logger

	phase      Phase
	openPhase  Phase
	mode       Mode
	productID  uint
	fields     *ProductFields
	errMessage string
	generation uint64
}

func NewDialog(newFields FieldsFactory) *Dialog {
	return &Dialog{
		newFields: newFields,
		logger:    zap.L().Named("dialog"),
	}
}

// OpenCreate opens an empty form.
func (d *Dialog) OpenCreate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != PhaseClosed {
		return ErrDialogOpen
	}
	d.open(PhaseOpenEmpty, ModeCreate, 0)
	return nil
}

// OpenEdit opens a form seeded from an existing product.
func (d *Dialog) OpenEdit(productID uint, iv Initial) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != PhaseClosed {
		return ErrDialogOpen
	}
	d.open(PhaseOpenSeeded, ModeEdit, productID)
	if _, err := d.fields.Seed(iv); err != nil {
		d.close()
		return err
	}
	return nil
}

// Reseed applies new initial values to an open edit form. It is a no-op
// when iv carries the key that was already seeded.
func (d *Dialog) Reseed(iv Initial) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != PhaseOpenSeeded {
		return false, ErrDialogClosed
	}
	return d.fields.Seed(iv)
}

func (d *Dialog) open(phase Phase, mode Mode, productID uint) {
	d.generation++
	d.fields = d.newFields()
	d.phase = phase
	d.openPhase = phase
	d.mode = mode
	d.productID = productID
	d.errMessage = ""
	d.logger.Debug("dialog opened",
		zap.String("mode", string(mode)),
		zap.Uint("productID", productID))
}

// Close discards the form and releases its preview. A mutation still in
// flight is left to finish; its continuation no longer affects the dialog.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.close()
}

func (d *Dialog) close() {
	if d.phase == PhaseClosed {
		return
	}
	if d.phase == PhaseSubmitting {
		d.logger.Info("dialog closed with a submission in flight", zap.Uint("productID", d.productID))
	}
	d.generation++
	if d.fields != nil {
		d.fields.Discard()
		d.fields = nil
	}
	d.phase = PhaseClosed
	d.errMessage = ""
}

// Edit runs fn against the open form. Edits are refused while submitting.
func (d *Dialog) Edit(fn func(*ProductFields) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.phase {
	case PhaseClosed:
		return ErrDialogClosed
	case PhaseSubmitting:
		return ErrSubmitInFlight
	}
	return fn(d.fields)
}

// Submit validates the form and, when it passes, hands it to s. Validation
// failures return ErrInvalidForm with the field errors and leave the dialog
// open. The continuations move the dialog to Closed or back to open.
func (d *Dialog) Submit(ctx context.Context, s Submitter) (Errors, error) {
	d.mu.Lock()
	switch d.phase {
	case PhaseClosed:
		d.mu.Unlock()
		return nil, ErrDialogClosed
	case PhaseSubmitting:
		d.mu.Unlock()
		return nil, ErrSubmitInFlight
	}

	payload, errs := d.fields.Validate()
	if len(errs) > 0 {
		d.mu.Unlock()
		return errs, ErrInvalidForm
	}

	d.phase = PhaseSubmitting
	d.errMessage = ""
	gen := d.generation
	sub := Submission{Mode: d.mode, ProductID: d.productID, Form: payload}
	d.mu.Unlock()

	d.logger.Debug("dialog submitting", zap.String("mode", string(sub.Mode)), zap.Uint("productID", sub.ProductID))
	s.Submit(ctx, sub, func() { d.succeed(gen) }, func(err error) { d.fail(gen, err) })
	return Errors{}, nil
}

func (d *Dialog) succeed(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation || d.phase != PhaseSubmitting {
		return
	}
	d.logger.Debug("dialog submission succeeded", zap.Uint("productID", d.productID))
	d.close()
}

func (d *Dialog) fail(gen uint64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation || d.phase != PhaseSubmitting {
		return
	}
	d.logger.Warn("dialog submission failed", zap.Uint("productID", d.productID), zap.Error(err))
	d.phase = d.openPhase
	d.errMessage = SubmitErrorMessage(d.mode, err)
}

// SubmitErrorMessage is the dialog-level message shown after a failed
// mutation.
func SubmitErrorMessage(mode Mode, err error) string {
	action := "create"
	if mode == ModeEdit {
		action = "update"
	}
	if err == nil {
		return "Could not " + action + " the product."
	}
	return "Could not " + action + " the product: " + err.Error()
}

// View is a point-in-time copy of the dialog for rendering.
type View struct {
	Phase         Phase  `json:"phase"`
	Mode          Mode   `json:"mode,omitempty"`
	ProductID     uint   `json:"productId,omitempty"`
	Values        Values `json:"values"`
	Errors        Errors `json:"errors"`
	PreviewSource string `json:"preview,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}

func (d *Dialog) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := View{Phase: d.phase, Errors: Errors{}}
	if d.phase == PhaseClosed {
		return v
	}
	v.Mode = d.mode
	v.ProductID = d.productID
	v.Values = d.fields.Values()
	v.Errors = d.fields.Errors()
	v.PreviewSource = d.fields.PreviewSource()
	v.ErrorMessage = d.errMessage
	return v
}

func (d *Dialog) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}
