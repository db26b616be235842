package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/conteo/inventory-admin/app/api"
	"github.com/conteo/inventory-admin/models"
	"github.com/conteo/inventory-admin/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// MaxImageBytes bounds an uploaded product image.
const MaxImageBytes = 8 << 20

type Response struct {
	Total    int              `json:"total"`
	Products []models.Product `json:"products"`
}

// ProductResponse wraps a single product returned by a mutation.
type ProductResponse struct {
	Product *models.Product `json:"product"`
}

type ProductProvider interface {
	GetFilteredProducts(ctx context.Context, offset, limit int, filters models.ProductFilters) ([]models.Product, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
}

// ImageStore keeps uploaded product images.
type ImageStore interface {
	Save(contentType string, r io.Reader) (string, error)
	Delete(ref string) error
}

type CatalogHandler struct {
	repo     ProductProvider
	images   ImageStore
	validate *validator.Validate
	logger   *zap.Logger
}

func NewCatalogHandler(r ProductProvider, images ImageStore) *CatalogHandler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return &CatalogHandler{
		repo:     r,
		images:   images,
		validate: v,
		logger:   zap.L().Named("catalog"),
	}
}

// Register mounts the catalog routes on mux.
func (h *CatalogHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", h.HandleGet)
	mux.HandleFunc("GET /products/{id}", h.HandleGetProduct)
	mux.HandleFunc("POST /products", h.HandleCreate)
	mux.HandleFunc("PUT /products/{id}", h.HandleUpdate)
	mux.HandleFunc("DELETE /products/{id}", h.HandleDelete)
}

func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	// Parse pagination query params
	offset := 0
	limit := 10

	if oStr := r.URL.Query().Get("offset"); oStr != "" {
		if o, err := strconv.Atoi(oStr); err == nil && o >= 0 {
			offset = o
		}
	}

	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil {
			if l < 1 {
				limit = 1
			} else if l > 100 {
				limit = 100
			} else {
				limit = l
			}
		}
	}

	filters := models.ProductFilters{
		Query: r.URL.Query().Get("q"),
	}

	res, total, err := h.repo.GetFilteredProducts(r.Context(), offset, limit, filters)
	if err != nil {
		h.logger.Error("list products", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "Failed to list products")
		return
	}
	if res == nil {
		res = []models.Product{}
	}

	api.JSON(w, http.StatusOK, Response{
		Total:    int(total),
		Products: res,
	})
}

func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.productError(w, err, "Failed to retrieve product")
		return
	}
	api.JSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, file, err := h.readInput(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	product := &models.Product{}
	in.apply(product)
	if file != nil {
		ref, err := h.images.Save(file.contentType, bytes.NewReader(file.data))
		if err != nil {
			h.logger.Error("store image", zap.Error(err))
			api.Error(w, http.StatusInternalServerError, "Failed to store image")
			return
		}
		product.Image = ref
	}

	if err := h.repo.CreateProduct(r.Context(), product); err != nil {
		h.logger.Error("create product", zap.Error(err))
		if file != nil {
			h.dropImage(product.Image)
		}
		api.Error(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	h.logger.Info("product created", zap.Uint("id", product.ID), zap.Int("code", product.Code))
	api.JSON(w, http.StatusCreated, ProductResponse{Product: product})
}

func (h *CatalogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.productError(w, err, "Failed to retrieve product")
		return
	}

	in, file, err := h.readInput(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	previous := product.Image
	in.apply(product)
	if file != nil {
		ref, err := h.images.Save(file.contentType, bytes.NewReader(file.data))
		if err != nil {
			h.logger.Error("store image", zap.Error(err))
			api.Error(w, http.StatusInternalServerError, "Failed to store image")
			return
		}
		product.Image = ref
	}

	if err := h.repo.UpdateProduct(r.Context(), product); err != nil {
		if file != nil {
			h.dropImage(product.Image)
		}
		h.productError(w, err, "Failed to update product")
		return
	}
	if previous != "" && previous != product.Image {
		h.dropImage(previous)
	}

	h.logger.Info("product updated", zap.Uint("id", product.ID))
	api.JSON(w, http.StatusOK, ProductResponse{Product: product})
}

func (h *CatalogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.productError(w, err, "Failed to retrieve product")
		return
	}
	if err := h.repo.DeleteProduct(r.Context(), id); err != nil {
		h.productError(w, err, "Failed to delete product")
		return
	}
	if product.Image != "" {
		h.dropImage(product.Image)
	}

	h.logger.Info("product deleted", zap.Uint("id", id))
	api.JSON(w, http.StatusOK, map[string]uint{"id": id})
}

func (h *CatalogHandler) productError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, models.ErrProductNotFound) {
		api.Error(w, http.StatusNotFound, "Product not found")
		return
	}
	h.logger.Error(message, zap.Error(err))
	api.Error(w, http.StatusInternalServerError, message)
}

// dropImage removes an image the product no longer points at. Images that
// were not uploaded here are left alone.
func (h *CatalogHandler) dropImage(ref string) {
	if err := h.images.Delete(ref); err != nil && !errors.Is(err, storage.ErrNotStored) {
		h.logger.Warn("remove stale image", zap.String("ref", ref), zap.Error(err))
	}
}

func productID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		api.Error(w, http.StatusBadRequest, "Invalid product ID")
		return 0, false
	}
	return uint(id), true
}

// productInput is the body of a create or update request, sent either as
// multipart form data (with an optional "image" file part) or as JSON.
type productInput struct {
	Code        *int   `mapstructure:"code" json:"code" validate:"required"`
	Name        string `mapstructure:"name" json:"name" validate:"required,max=200"`
	Description string `mapstructure:"description" json:"description" validate:"required"`
	Quantity    *int   `mapstructure:"quantity" json:"quantity" validate:"required,min=1"`
	ImageURL    string `mapstructure:"image_url" json:"image_url" validate:"omitempty,max=1024"`
}

func (in productInput) apply(p *models.Product) {
	p.Code = *in.Code
	p.Name = in.Name
	p.Description = in.Description
	p.Quantity = *in.Quantity
	p.Image = in.ImageURL
}

// inputError is a client mistake; its text is sent back as is.
type inputError string

func (e inputError) Error() string { return string(e) }

type upload struct {
	contentType string
	data        []byte
}

func (h *CatalogHandler) readInput(r *http.Request) (productInput, *upload, error) {
	var in productInput
	fields := map[string]any{}
	var file *upload

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
			return in, nil, inputError("Invalid request body")
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
		if headers := r.MultipartForm.File["image"]; len(headers) > 0 {
			var err error
			if file, err = readImage(headers[0]); err != nil {
				return in, nil, err
			}
		}
	} else if err := api.Decode(r.Body, &fields); err != nil {
		return in, nil, inputError("Invalid request body")
	}

	for k, v := range fields {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			delete(fields, k)
		}
	}
	if err := mapstructure.WeakDecode(fields, &in); err != nil {
		return in, nil, inputError("Invalid product fields")
	}
	if err := h.validate.Struct(in); err != nil {
		return in, nil, validationError(err)
	}
	if file != nil {
		in.ImageURL = ""
	}
	return in, file, nil
}

func readImage(fh *multipart.FileHeader) (*upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, inputError("Unreadable image")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil || len(data) == 0 {
		return nil, inputError("Unreadable image")
	}
	if len(data) > MaxImageBytes {
		return nil, inputError("Image is too large")
	}
	ct := mimetype.Detect(data).String()
	if ct != "image/png" && ct != "image/jpeg" {
		return nil, inputError("Only PNG or JPG files are allowed")
	}
	return &upload{contentType: ct, data: data}, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return inputError("Invalid product fields")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return inputError(fmt.Sprintf("%s is required", fe.Field()))
	case "min":
		return inputError(fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
	case "max":
		return inputError(fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
	}
	return inputError(fmt.Sprintf("%s is invalid", fe.Field()))
}
