// Package products talks to the catalog REST API and exposes the create,
// edit and delete mutations plus the cached product list the admin screen
// renders.
package products

import (
	"context"
	"fmt"
	"time"

	"github.com/conteo/inventory-admin/app/form"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by ListQuery.Find for ids missing from the list.
var ErrNotFound = errors.New("product not found")

// Product is an existing product as the catalog API returns it.
type Product struct {
	ID          uint      `json:"id"`
	Code        int       `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Initial builds the seed for an edit dialog. The key changes whenever the
// stored row changes, so a refreshed row reseeds an open form.
func (p Product) Initial() form.Initial {
	code, name, description, quantity := p.Code, p.Name, p.Description, p.Quantity
	image := form.RemoteImage(p.Image)
	return form.Initial{
		Key:         fmt.Sprintf("product:%d@%d", p.ID, p.UpdatedAt.UnixNano()),
		Code:        &code,
		Name:        &name,
		Description: &description,
		Image:       &image,
		Quantity:    &quantity,
	}
}

// Response is the body of a successful create or edit call.
type Response struct {
	Product *Product `json:"product"`
}

// EditVars identifies the product an edit applies to.
type EditVars struct {
	ID   uint
	Form form.ProductForm
}

// Service is the set of remote operations the screen depends on.
type Service interface {
	List(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, payload form.ProductForm) (Response, error)
	Edit(ctx context.Context, id uint, payload form.ProductForm) (Response, error)
	Delete(ctx context.Context, id uint) error
}

// APIError is a non-2xx answer from the catalog API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog responded with status %d", e.Status)
	}
	return e.Message
}
