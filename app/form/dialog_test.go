package form

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Submitter ---

type mockSubmitter struct {
	calls     []Submission
	onSuccess func()
	onError   func(error)
	// settle decides what happens right away; nil leaves the call pending.
	settle func(onSuccess func(), onError func(error))
}

func (m *mockSubmitter) Submit(_ context.Context, s Submission, onSuccess func(), onError func(error)) {
	m.calls = append(m.calls, s)
	m.onSuccess = onSuccess
	m.onError = onError
	if m.settle != nil {
		m.settle(onSuccess, onError)
	}
}

func succeedNow(onSuccess func(), _ func(error)) { onSuccess() }

func newTestDialog(store *fakePreviewStore) *Dialog {
	return NewDialog(func() *ProductFields {
		return NewProductFields(nil, store, nil)
	})
}

func fill(t *testing.T, d *Dialog, values map[Field]any) {
	t.Helper()
	require.NoError(t, d.Edit(func(pf *ProductFields) error {
		for f, v := range values {
			if err := pf.Set(f, v); err != nil {
				return err
			}
		}
		return nil
	}))
}

// --- Tests ---

func TestCreateDialogSubmitsOnce(t *testing.T) {
	d := newTestDialog(newFakePreviewStore())
	sub := &mockSubmitter{settle: succeedNow}
	require.NoError(t, d.OpenCreate())
	assert.Equal(t, PhaseOpenEmpty, d.Phase())
	fill(t, d, map[Field]any{FieldCode: 1, FieldName: "A", FieldDescription: "B", FieldQuantity: 2})

	errs, err := d.Submit(context.Background(), sub)

	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, sub.calls, 1)
	assert.Equal(t, Submission{
		Mode: ModeCreate,
		Form: ProductForm{Code: 1, Name: "A", Description: "B", Quantity: 2},
	}, sub.calls[0])
	assert.Equal(t, PhaseClosed, d.Phase())
}

func TestEditDialogSubmitsFullPayload(t *testing.T) {
	d := newTestDialog(newFakePreviewStore())
	sub := &mockSubmitter{settle: succeedNow}
	img := RemoteImage("http://x/img.png")
	require.NoError(t, d.OpenEdit(7, Initial{
		Key:         "product:7",
		Code:        ptr(1),
		Name:        ptr("Widget"),
		Description: ptr("d"),
		Image:       &img,
		Quantity:    ptr(3),
	}))
	assert.Equal(t, PhaseOpenSeeded, d.Phase())
	fill(t, d, map[Field]any{FieldQuantity: 5})

	_, err := d.Submit(context.Background(), sub)

	require.NoError(t, err)
	require.Len(t, sub.calls, 1)
	assert.Equal(t, Submission{
		Mode:      ModeEdit,
		ProductID: 7,
		Form:      ProductForm{Code: 1, Name: "Widget", Description: "d", Image: img, Quantity: 5},
	}, sub.calls[0])
}

func TestSubmitWithInvalidFormStaysOpen(t *testing.T) {
	d := newTestDialog(newFakePreviewStore())
	sub := &mockSubmitter{}
	require.NoError(t, d.OpenCreate())
	fill(t, d, map[Field]any{FieldCode: 1, FieldName: "A"})

	errs, err := d.Submit(context.Background(), sub)

	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Equal(t, Errors{
		FieldDescription: "description is required",
		FieldQuantity:    "quantity is required",
	}, errs)
	assert.Empty(t, sub.calls)
	assert.Equal(t, PhaseOpenEmpty, d.Phase())
	assert.Equal(t, errs, d.View().Errors)
}

func TestSubmitGuardsAgainstDoubleSubmit(t *testing.T) {
	d := newTestDialog(newFakePreviewStore())
	sub := &mockSubmitter{}
	require.NoError(t, d.OpenCreate())
	fill(t, d, map[Field]any{FieldCode: 1, FieldName: "A", FieldDescription: "B", FieldQuantity: 2})

	_, err := d.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitting, d.Phase())

	_, err = d.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.ErrorIs(t, d.Edit(func(*ProductFields) error { return nil }), ErrSubmitInFlight)
	assert.Len(t, sub.calls, 1)

	sub.onSuccess()
	assert.Equal(t, PhaseClosed, d.Phase())
}

func TestSubmitFailureKeepsFormForRetry(t *testing.T) {
	store := newFakePreviewStore()
	d := newTestDialog(store)
	sub := &mockSubmitter{}
	require.NoError(t, d.OpenCreate())
	fill(t, d, map[Field]any{FieldCode: 1, FieldName: "A", FieldDescription: "B", FieldQuantity: 2})
	require.NoError(t, d.Edit(func(pf *ProductFields) error {
		return pf.SelectImage(context.Background(), []*LocalFile{pngFile("a.png")})
	}))

	_, err := d.Submit(context.Background(), sub)
	require.NoError(t, err)
	sub.onError(errors.New("backend unavailable"))

	view := d.View()
	assert.Equal(t, PhaseOpenEmpty, view.Phase)
	assert.Equal(t, "Could not create the product: backend unavailable", view.ErrorMessage)
	assert.Equal(t, "A", view.Values.Name)
	assert.NotEmpty(t, view.PreviewSource)
	assert.Len(t, store.live, 1)

	sub.settle = succeedNow
	_, err = d.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Len(t, sub.calls, 2)
	assert.Equal(t, PhaseClosed, d.Phase())
	assert.Empty(t, store.live, "closing releases the preview")
}

func TestCloseWhileSubmittingIgnoresLateContinuation(t *testing.T) {
	d := newTestDialog(newFakePreviewStore())
	sub := &mockSubmitter{}
	require.NoError(t, d.OpenCreate())
	fill(t, d, map[Field]any{FieldCode: 1, FieldName: "A", FieldDescription: "B", FieldQuantity: 2})
	_, err := d.Submit(context.Background(), sub)
	require.NoError(t, err)

	d.Close()
	require.NoError(t, d.OpenCreate())
	sub.onError(errors.New("late"))

	view := d.View()
	assert.Equal(t, PhaseOpenEmpty, view.Phase)
	assert.Empty(t, view.ErrorMessage)
	assert.Empty(t, view.Values.Name, "a fresh form must not inherit the old session")
}

func TestDialogTransitionsFromClosed(t *testing.T) {
	d := newTestDialog(newFakePreviewStore())

	_, err := d.Submit(context.Background(), &mockSubmitter{})
	assert.ErrorIs(t, err, ErrDialogClosed)
	assert.ErrorIs(t, d.Edit(func(*ProductFields) error { return nil }), ErrDialogClosed)
	_, err = d.Reseed(Initial{})
	assert.ErrorIs(t, err, ErrDialogClosed)
	assert.Equal(t, View{Phase: PhaseClosed, Errors: Errors{}}, d.View())

	require.NoError(t, d.OpenCreate())
	assert.ErrorIs(t, d.OpenCreate(), ErrDialogOpen)
	assert.ErrorIs(t, d.OpenEdit(1, Initial{}), ErrDialogOpen)
}

func TestOpenCreateStartsEmptyAfterEdit(t *testing.T) {
	store := newFakePreviewStore()
	d := newTestDialog(store)
	img := LocalImage(pngFile("a.png"))
	require.NoError(t, d.OpenEdit(3, Initial{Key: "product:3", Name: ptr("Widget"), Image: &img}))
	require.Len(t, store.live, 1)

	d.Close()
	require.NoError(t, d.OpenCreate())

	view := d.View()
	assert.Equal(t, Values{}, view.Values)
	assert.Empty(t, view.PreviewSource)
	assert.Empty(t, store.live)
}

func TestReseedOpenEditDialog(t *testing.T) {
	d := newTestDialog(newFakePreviewStore())
	require.NoError(t, d.OpenEdit(3, Initial{Key: "product:3@1", Name: ptr("Widget")}))
	fill(t, d, map[Field]any{FieldDescription: "typed"})

	seeded, err := d.Reseed(Initial{Key: "product:3@1", Name: ptr("Widget")})
	require.NoError(t, err)
	assert.False(t, seeded)

	seeded, err = d.Reseed(Initial{Key: "product:3@2", Name: ptr("Widget v2")})
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, "Widget v2", d.View().Values.Name)
	assert.Equal(t, "typed", d.View().Values.Description)
}

func TestSubmitErrorMessage(t *testing.T) {
	assert.Equal(t, "Could not update the product: boom", SubmitErrorMessage(ModeEdit, errors.New("boom")))
	assert.Equal(t, "Could not create the product.", SubmitErrorMessage(ModeCreate, nil))
}
