package products

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/conteo/inventory-admin/app/form"
	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// listPageSize is the page size used to walk the full product list.
const listPageSize = 100

// Client implements Service against the catalog REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  zap.L().Named("products.client"),
	}
}

type listEnvelope struct {
	Total    int       `json:"total"`
	Products []Product `json:"products"`
	Error    string    `json:"error"`
}

type productEnvelope struct {
	Product *Product `json:"product"`
	Error   string   `json:"error"`
}

type deleteEnvelope struct {
	ID    uint   `json:"id"`
	Error string `json:"error"`
}

// List walks every page of the catalog in id order.
func (c *Client) List(ctx context.Context) ([]Product, error) {
	all := []Product{}
	for offset := 0; ; {
		var page listEnvelope
		code := 0
		err := gout.New(c.http).
			GET(c.baseURL+"/products").
			WithContext(ctx).
			SetQuery(gout.H{"offset": offset, "limit": listPageSize}).
			BindJSON(&page).
			Code(&code).
			Do()
		if err != nil {
			return nil, errors.Wrap(err, "list products")
		}
		if code != http.StatusOK {
			return nil, &APIError{Status: code, Message: page.Error}
		}

		all = append(all, page.Products...)
		offset += len(page.Products)
		if len(page.Products) == 0 || offset >= page.Total {
			break
		}
	}
	c.logger.Debug("products listed", zap.Int("count", len(all)))
	return all, nil
}

func (c *Client) Create(ctx context.Context, payload form.ProductForm) (Response, error) {
	var out productEnvelope
	code := 0
	err := gout.New(c.http).
		POST(c.baseURL+"/products").
		WithContext(ctx).
		SetForm(formBody(payload)).
		BindJSON(&out).
		Code(&code).
		Do()
	if err != nil {
		return Response{}, errors.Wrap(err, "create product")
	}
	if code != http.StatusCreated && code != http.StatusOK {
		return Response{}, &APIError{Status: code, Message: out.Error}
	}
	return Response{Product: out.Product}, nil
}

func (c *Client) Edit(ctx context.Context, id uint, payload form.ProductForm) (Response, error) {
	var out productEnvelope
	code := 0
	err := gout.New(c.http).
		PUT(c.productURL(id)).
		WithContext(ctx).
		SetForm(formBody(payload)).
		BindJSON(&out).
		Code(&code).
		Do()
	if err != nil {
		return Response{}, errors.Wrapf(err, "edit product %d", id)
	}
	if code != http.StatusOK {
		return Response{}, &APIError{Status: code, Message: out.Error}
	}
	return Response{Product: out.Product}, nil
}

func (c *Client) Delete(ctx context.Context, id uint) error {
	var out deleteEnvelope
	code := 0
	err := gout.New(c.http).
		DELETE(c.productURL(id)).
		WithContext(ctx).
		BindJSON(&out).
		Code(&code).
		Do()
	if err != nil {
		return errors.Wrapf(err, "delete product %d", id)
	}
	if code != http.StatusOK {
		return &APIError{Status: code, Message: out.Error}
	}
	return nil
}

func (c *Client) productURL(id uint) string {
	return fmt.Sprintf("%s/products/%d", c.baseURL, id)
}

// formBody encodes a validated form as multipart fields. A local file
// travels as the "image" part; a remote locator as "image_url".
func formBody(p form.ProductForm) gout.H {
	body := gout.H{
		"code":        strconv.Itoa(p.Code),
		"name":        p.Name,
		"description": p.Description,
		"quantity":    strconv.Itoa(p.Quantity),
	}
	switch p.Image.Kind() {
	case form.ImageRemote:
		body["image_url"] = p.Image.Ref()
	case form.ImageLocal:
		f := p.Image.File()
		body["image"] = gout.FormType{
			FileName:    f.Name,
			ContentType: f.ContentType,
			File:        gout.FormMem(f.Data),
		}
	}
	return body
}
