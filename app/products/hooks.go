package products

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/conteo/inventory-admin/app/form"
	"github.com/panjf2000/ants/v2"
)

// TopicChanged is published on the bus after a write that should refresh
// the product list.
const TopicChanged = "products:changed"

// Hooks bundles the product mutations.
type Hooks struct {
	CreateProduct *Mutation[form.ProductForm, Response]
	EditProduct   *Mutation[EditVars, Response]
	DeleteProduct *Mutation[uint, uint]
}

// NewHooks binds the mutations to svc. Create and edit invalidate the list
// only when the response carries a product; delete always does.
func NewHooks(svc Service, pool *ants.Pool, bus EventBus.Bus, timeout time.Duration) *Hooks {
	changed := func() { bus.Publish(TopicChanged) }
	onProduct := func(r Response) {
		if r.Product != nil {
			changed()
		}
	}

	return &Hooks{
		CreateProduct: NewMutation("create product", pool, timeout,
			func(ctx context.Context, p form.ProductForm) (Response, error) {
				return svc.Create(ctx, p)
			}, onProduct),
		EditProduct: NewMutation("edit product", pool, timeout,
			func(ctx context.Context, v EditVars) (Response, error) {
				return svc.Edit(ctx, v.ID, v.Form)
			}, onProduct),
		DeleteProduct: NewMutation("delete product", pool, timeout,
			func(ctx context.Context, id uint) (uint, error) {
				return id, svc.Delete(ctx, id)
			}, func(uint) { changed() }),
	}
}
