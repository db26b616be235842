// Package screen serves the product admin screen: the product table, row
// actions and the create/edit dialog.
package screen

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/conteo/inventory-admin/app/api"
	"github.com/conteo/inventory-admin/app/form"
	"github.com/conteo/inventory-admin/app/products"
	"go.uber.org/zap"
)

// MaxUploadBytes bounds one picked image. Reads stop one byte past it so
// an oversize file reaches the form as too large instead of truncated.
const MaxUploadBytes = form.MaxImageBytes

// ProductQuery is the list the screen renders.
type ProductQuery interface {
	Peek() ([]products.Product, bool)
	Fetch(ctx context.Context) ([]products.Product, error)
	Find(ctx context.Context, id uint) (products.Product, error)
}

type PageView struct {
	Feature  Feature            `json:"feature"`
	AddLabel string             `json:"addLabel"`
	Products []products.Product `json:"products"`
	Loading  bool               `json:"loading"`
}

// DialogResponse is a dialog view plus anything the request surfaced.
type DialogResponse struct {
	ID string `json:"id"`
	form.View
	Alerts []string `json:"alerts,omitempty"`
	Error  string   `json:"error,omitempty"`
}

type PromptResponse struct {
	Prompt form.Prompt `json:"prompt"`
}

type NoticeResponse struct {
	ID     uint   `json:"id"`
	Notice Notice `json:"notice"`
}

type Handler struct {
	sessions  *Sessions
	query     ProductQuery
	hooks     *products.Hooks
	submitter form.Submitter
	prompter  form.Prompter
	logger    *zap.Logger
}

func NewHandler(sessions *Sessions, query ProductQuery, hooks *products.Hooks) *Handler {
	return &Handler{
		sessions:  sessions,
		query:     query,
		hooks:     hooks,
		submitter: HookSubmitter{Hooks: hooks},
		prompter:  RequestPrompter{},
		logger:    zap.L().Named("screen"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/products", h.HandlePage)
	mux.HandleFunc("GET /admin/products/{id}", h.HandleDetail)
	mux.HandleFunc("DELETE /admin/products/{id}", h.HandleDelete)
	mux.HandleFunc("POST /admin/products/{id}/dialog", h.HandleOpenEdit)
	mux.HandleFunc("POST /admin/dialogs", h.HandleOpenCreate)
	mux.HandleFunc("GET /admin/dialogs/{dialog}", h.HandleDialog)
	mux.HandleFunc("PATCH /admin/dialogs/{dialog}/fields", h.HandleSetFields)
	mux.HandleFunc("POST /admin/dialogs/{dialog}/fields/{field}/blur", h.HandleBlur)
	mux.HandleFunc("POST /admin/dialogs/{dialog}/image", h.HandleImage)
	mux.HandleFunc("POST /admin/dialogs/{dialog}/submit", h.HandleSubmit)
	mux.HandleFunc("DELETE /admin/dialogs/{dialog}", h.HandleClose)
}

// HandlePage renders the table. Cached rows are served while a refresh
// runs; the first visit waits for the list.
func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	items, loading := h.query.Peek()
	if items == nil {
		var err error
		if items, err = h.query.Fetch(r.Context()); err != nil {
			h.logger.Error("load products", zap.Error(err))
			api.Error(w, http.StatusBadGateway, "Could not load products")
			return
		}
		loading = false
	}

	api.JSON(w, http.StatusOK, PageView{
		Feature:  productsFeature,
		AddLabel: addProductLabel,
		Products: items,
		Loading:  loading,
	})
}

func (h *Handler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	p, ok := h.findProduct(w, r)
	if !ok {
		return
	}
	api.JSON(w, http.StatusOK, p)
}

// HandleDelete asks for confirmation first: without confirm=true the
// prompt is returned with 409. A confirmed delete waits for the mutation.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p := &prompts{confirmed: r.URL.Query().Get("confirm") == "true"}
	ctx := withPrompts(r.Context(), p)
	if !h.prompter.Confirm(ctx, deletePrompt) {
		api.JSON(w, http.StatusConflict, PromptResponse{Prompt: *p.asked})
		return
	}

	done := make(chan error, 1)
	err := h.hooks.DeleteProduct.Mutate(ctx, id, products.Options[uint]{
		OnSuccess: func(uint) { done <- nil },
		OnError:   func(err error) { done <- err },
	})
	if err == nil {
		select {
		case err = <-done:
		case <-r.Context().Done():
			return
		}
	}
	if err != nil {
		api.Error(w, remoteStatus(err), "Could not delete the product: "+err.Error())
		return
	}

	api.JSON(w, http.StatusOK, NoticeResponse{ID: id, Notice: deletedNotice})
}

func (h *Handler) HandleOpenCreate(w http.ResponseWriter, r *http.Request) {
	sid, d := h.sessions.New()
	if err := d.OpenCreate(); err != nil {
		h.sessions.Close(sid)
		h.dialogError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, DialogResponse{ID: sid, View: d.View()})
}

func (h *Handler) HandleOpenEdit(w http.ResponseWriter, r *http.Request) {
	p, ok := h.findProduct(w, r)
	if !ok {
		return
	}

	sid, d := h.sessions.New()
	if err := d.OpenEdit(p.ID, p.Initial()); err != nil {
		h.sessions.Close(sid)
		h.dialogError(w, err)
		return
	}
	api.JSON(w, http.StatusCreated, DialogResponse{ID: sid, View: d.View()})
}

// HandleDialog returns the dialog view. With refresh=true an open edit
// dialog is reseeded from the current row; an unchanged row is a no-op.
func (h *Handler) HandleDialog(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.dialog(w, r)
	if !ok {
		return
	}
	if view := d.View(); view.Phase == form.PhaseOpenSeeded && r.URL.Query().Get("refresh") == "true" {
		if p, err := h.query.Find(r.Context(), view.ProductID); err == nil {
			if _, err := d.Reseed(p.Initial()); err != nil && !errors.Is(err, form.ErrDialogClosed) {
				h.logger.Warn("reseed dialog", zap.String("dialog", sid), zap.Error(err))
			}
		}
	}
	api.JSON(w, http.StatusOK, DialogResponse{ID: sid, View: d.View()})
}

// HandleSetFields applies a JSON object of field values.
func (h *Handler) HandleSetFields(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.dialog(w, r)
	if !ok {
		return
	}

	raw := map[string]any{}
	if err := api.Decode(r.Body, &raw); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	values := make(map[form.Field]any, len(raw))
	for name, v := range raw {
		f, err := form.ParseField(name)
		if err != nil {
			api.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		values[f] = v
	}

	err := d.Edit(func(pf *form.ProductFields) error {
		for _, f := range form.Fields {
			v, ok := values[f]
			if !ok {
				continue
			}
			if err := pf.Set(f, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.dialogError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, DialogResponse{ID: sid, View: d.View()})
}

func (h *Handler) HandleBlur(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.dialog(w, r)
	if !ok {
		return
	}
	f, err := form.ParseField(r.PathValue("field"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := d.Edit(func(pf *form.ProductFields) error { return pf.Blur(f) }); err != nil {
		h.dialogError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, DialogResponse{ID: sid, View: d.View()})
}

// HandleImage applies an image selection. A request without files clears
// the image; a rejected file leaves the form as it was and returns 422
// with the alert.
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.dialog(w, r)
	if !ok {
		return
	}

	files, err := readFiles(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid image upload")
		return
	}

	p := &prompts{}
	ctx := withPrompts(r.Context(), p)
	err = d.Edit(func(pf *form.ProductFields) error { return pf.SelectImage(ctx, files) })
	switch {
	case errors.Is(err, form.ErrUnsupportedImage), errors.Is(err, form.ErrUnreadableImage):
		api.JSON(w, http.StatusUnprocessableEntity, DialogResponse{
			ID:     sid,
			View:   d.View(),
			Alerts: p.Alerts(),
			Error:  form.MsgUnsupportedImage,
		})
		return
	case err != nil:
		h.dialogError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, DialogResponse{ID: sid, View: d.View()})
}

// HandleSubmit validates the dialog and waits for the mutation. The dialog
// closes on success and stays open with its message on failure. When the
// client goes away first, the mutation keeps running.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	sid, d, ok := h.dialog(w, r)
	if !ok {
		return
	}

	done := make(chan error, 1)
	waiting := form.SubmitterFunc(func(ctx context.Context, s form.Submission, onSuccess func(), onError func(error)) {
		h.submitter.Submit(ctx, s,
			func() { onSuccess(); done <- nil },
			func(err error) { onError(err); done <- err })
	})

	errs, err := d.Submit(r.Context(), waiting)
	if errors.Is(err, form.ErrInvalidForm) {
		view := d.View()
		view.Errors = errs
		api.JSON(w, http.StatusUnprocessableEntity, DialogResponse{ID: sid, View: view})
		return
	}
	if err != nil {
		h.dialogError(w, err)
		return
	}

	select {
	case err = <-done:
	case <-r.Context().Done():
		return
	}
	view := d.View()
	if err != nil {
		api.JSON(w, remoteStatus(err), DialogResponse{ID: sid, View: view, Error: view.ErrorMessage})
		return
	}
	h.logger.Info("dialog submitted", zap.String("dialog", sid))
	api.JSON(w, http.StatusOK, DialogResponse{ID: sid, View: view})
}

func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Close(r.PathValue("dialog")) {
		api.Error(w, http.StatusNotFound, "Dialog not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) dialog(w http.ResponseWriter, r *http.Request) (string, *form.Dialog, bool) {
	sid := r.PathValue("dialog")
	d, ok := h.sessions.Get(sid)
	if !ok {
		api.Error(w, http.StatusNotFound, "Dialog not found")
		return "", nil, false
	}
	return sid, d, true
}

func (h *Handler) dialogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, form.ErrDialogClosed):
		api.Error(w, http.StatusConflict, "Dialog is closed")
	case errors.Is(err, form.ErrSubmitInFlight):
		api.Error(w, http.StatusConflict, "A submission is already in flight")
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, form.ErrInvalidValue):
		api.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("dialog operation", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "Dialog operation failed")
	}
}

func (h *Handler) findProduct(w http.ResponseWriter, r *http.Request) (products.Product, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return products.Product{}, false
	}
	p, err := h.query.Find(r.Context(), id)
	if errors.Is(err, products.ErrNotFound) {
		api.Error(w, http.StatusNotFound, "Product not found")
		return products.Product{}, false
	}
	if err != nil {
		h.logger.Error("find product", zap.Uint("id", id), zap.Error(err))
		api.Error(w, http.StatusBadGateway, "Could not load products")
		return products.Product{}, false
	}
	return p, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		api.Error(w, http.StatusBadRequest, "Invalid product ID")
		return 0, false
	}
	return uint(id), true
}

// remoteStatus maps a failed mutation to the status relayed to the client.
func remoteStatus(err error) int {
	var apiErr *products.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func readFiles(r *http.Request) ([]*form.LocalFile, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, nil
	}
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return nil, err
	}

	var files []*form.LocalFile
	for _, fh := range r.MultipartForm.File["image"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, &form.LocalFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}
