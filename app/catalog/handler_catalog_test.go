package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/conteo/inventory-admin/models"
	"github.com/conteo/inventory-admin/storage"
	"github.com/stretchr/testify/assert"
)

// --- Mock Repo ---

type MockProductRepo struct {
	SourceProducts []models.Product
	Err            error
	SaveErr        error

	// Fields to capture call arguments
	lastCalledOffset  int
	lastCalledLimit   int
	lastCalledFilters models.ProductFilters
	lastCalledID      uint
	created           *models.Product
	updated           *models.Product
	deletedID         uint
}

func (m *MockProductRepo) GetFilteredProducts(_ context.Context, offset, limit int, filters models.ProductFilters) ([]models.Product, int64, error) {
	m.lastCalledOffset = offset
	m.lastCalledLimit = limit
	m.lastCalledFilters = filters

	if m.Err != nil {
		return nil, 0, m.Err
	}

	// Simulate filtering
	var filteredProducts []models.Product
	for _, p := range m.SourceProducts {
		if filters.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filters.Query)) {
			continue
		}
		filteredProducts = append(filteredProducts, p)
	}

	total := int64(len(filteredProducts))

	// Simulate pagination
	start := offset
	if start > len(filteredProducts) {
		start = len(filteredProducts)
	}
	end := offset + limit
	if end > len(filteredProducts) {
		end = len(filteredProducts)
	}

	return filteredProducts[start:end], total, nil
}

func (m *MockProductRepo) GetByID(_ context.Context, id uint) (*models.Product, error) {
	m.lastCalledID = id

	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.SourceProducts {
		if p.ID == id {
			product := p
			return &product, nil
		}
	}
	return nil, models.ErrProductNotFound
}

func (m *MockProductRepo) CreateProduct(_ context.Context, product *models.Product) error {
	m.created = product
	if m.SaveErr != nil {
		return m.SaveErr
	}
	product.ID = uint(len(m.SourceProducts) + 1)
	return nil
}

func (m *MockProductRepo) UpdateProduct(_ context.Context, product *models.Product) error {
	m.updated = product
	return m.SaveErr
}

func (m *MockProductRepo) DeleteProduct(_ context.Context, id uint) error {
	m.deletedID = id
	return m.SaveErr
}

// --- Mock Image Store ---

type MockImageStore struct {
	saved   []string
	deleted []string
	SaveErr error
}

func (m *MockImageStore) Save(contentType string, r io.Reader) (string, error) {
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	_, _ = io.ReadAll(r)
	ref := "http://localhost/uploads/new" + map[string]string{"image/png": ".png", "image/jpeg": ".jpg"}[contentType]
	m.saved = append(m.saved, ref)
	return ref, nil
}

func (m *MockImageStore) Delete(ref string) error {
	if !strings.HasPrefix(ref, "http://localhost/uploads/") {
		return storage.ErrNotStored
	}
	m.deleted = append(m.deleted, ref)
	return nil
}

// --- Tests ---

func TestHandleGet(t *testing.T) {
	allMockProducts := []models.Product{
		{ID: 1, Code: 100, Name: "Red Shirt", Description: "cotton", Quantity: 3},
		{ID: 2, Code: 101, Name: "Blue Shirt", Description: "linen", Quantity: 1},
		{ID: 3, Code: 102, Name: "Boots", Description: "leather", Quantity: 7, Image: "http://localhost/uploads/a.png"},
	}

	testCases := []struct {
		name               string
		query              string
		mockRepoSetup      func() *MockProductRepo
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
		checkRepoCall      func(t *testing.T, repo *MockProductRepo)
	}{
		{
			name:  "Default pagination",
			query: "",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: allMockProducts}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Response
				err := json.NewDecoder(rec.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, 3, resp.Total)
				assert.Len(t, resp.Products, 3)
				assert.Equal(t, "Red Shirt", resp.Products[0].Name)
				assert.Equal(t, "http://localhost/uploads/a.png", resp.Products[2].Image)
			},
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, 0, repo.lastCalledOffset)
				assert.Equal(t, 10, repo.lastCalledLimit)
			},
		},
		{
			name:  "Custom pagination",
			query: "?offset=1&limit=1",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: allMockProducts}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Response
				err := json.NewDecoder(rec.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, 3, resp.Total)
				assert.Len(t, resp.Products, 1)
				assert.Equal(t, 101, resp.Products[0].Code)
			},
		},
		{
			name:  "Limit is clamped",
			query: "?limit=1000&offset=-4",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: allMockProducts}
			},
			expectedStatusCode: http.StatusOK,
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, 0, repo.lastCalledOffset)
				assert.Equal(t, 100, repo.lastCalledLimit)
			},
		},
		{
			name:  "Zero limit becomes one",
			query: "?limit=0",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: allMockProducts}
			},
			expectedStatusCode: http.StatusOK,
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, 1, repo.lastCalledLimit)
			},
		},
		{
			name:  "Name query",
			query: "?q=shirt",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: allMockProducts}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Response
				err := json.NewDecoder(rec.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, 2, resp.Total)
			},
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, "shirt", repo.lastCalledFilters.Query)
			},
		},
		{
			name:  "Empty catalog renders an empty list",
			query: "",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"total":0,"products":[]}`, rec.Body.String())
			},
		},
		{
			name:  "Repository error",
			query: "",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{Err: errors.New("db down")}
			},
			expectedStatusCode: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var errResp map[string]string
				err := json.NewDecoder(rec.Body).Decode(&errResp)
				assert.NoError(t, err)
				assert.Equal(t, "Failed to list products", errResp["error"])
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			mockRepo := tc.mockRepoSetup()
			handler := NewCatalogHandler(mockRepo, &MockImageStore{})
			req := httptest.NewRequest("GET", "/products"+tc.query, nil)
			rec := httptest.NewRecorder()

			// Act
			handler.HandleGet(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)

			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}

			if tc.checkRepoCall != nil {
				tc.checkRepoCall(t, mockRepo)
			}
		})
	}
}
