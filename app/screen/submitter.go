package screen

import (
	"context"

	"github.com/conteo/inventory-admin/app/form"
	"github.com/conteo/inventory-admin/app/products"
)

// HookSubmitter routes dialog submissions to the create or edit mutation.
type HookSubmitter struct {
	Hooks *products.Hooks
}

func (s HookSubmitter) Submit(ctx context.Context, sub form.Submission, onSuccess func(), onError func(error)) {
	opts := products.Options[products.Response]{
		OnSuccess: func(products.Response) { onSuccess() },
		OnError:   onError,
	}

	var err error
	if sub.Mode == form.ModeEdit {
		err = s.Hooks.EditProduct.Mutate(ctx, products.EditVars{ID: sub.ProductID, Form: sub.Form}, opts)
	} else {
		err = s.Hooks.CreateProduct.Mutate(ctx, sub.Form, opts)
	}
	if err != nil {
		onError(err)
	}
}
