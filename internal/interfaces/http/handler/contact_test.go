package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	contactapp "github.com/kontor/backend/internal/application/contact"
	"github.com/kontor/backend/internal/domain/contact"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/tests/testutil"
)

func setupContactRouter(repo *testutil.MockContactRepository, tenantID, userID uuid.UUID) *gin.Engine {
	h := NewContactHandler(contactapp.NewService(repo, nil))
	r := gin.New()
	api := r.Group("/api/v1", authenticated(tenantID, userID))
	h.RegisterRoutes(api)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestContactHandler_Create(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()

	t.Run("customer gets a number", func(t *testing.T) {
		repo := new(testutil.MockContactRepository)
		repo.On("NextCustomerSequence", mock.Anything, tenantID).Return(int64(7), nil)
		repo.On("Save", mock.Anything, mock.AnythingOfType("*contact.Contact")).Return(nil)
		r := setupContactRouter(repo, tenantID, userID)

		w := serve(r, http.MethodPost, "/api/v1/contacts",
			`{"type":"customer","name":"Bäckerei Schmidt","email":"info@schmidt.de","postal_code":"10115","city":"Berlin"}`)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "Bäckerei Schmidt", data["name"])
		assert.Equal(t, contact.FormatCustomerNumber(7), data["customer_number"])
		repo.AssertExpectations(t)
	})

	t.Run("validation failure lists fields", func(t *testing.T) {
		repo := new(testutil.MockContactRepository)
		r := setupContactRouter(repo, tenantID, userID)

		w := serve(r, http.MethodPost, "/api/v1/contacts", `{"type":"partner","email":"broken"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, "ERR_VALIDATION", resp.Error.Code)
		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"type", "name", "email"}, fields)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid postal code is a domain error", func(t *testing.T) {
		repo := new(testutil.MockContactRepository)
		r := setupContactRouter(repo, tenantID, userID)

		w := serve(r, http.MethodPost, "/api/v1/contacts",
			`{"type":"supplier","name":"Telekom","postal_code":"ABC"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "ERR_INVALID_ADDRESS", decodeResponse(t, w).Error.Code)
	})
}

func TestContactHandler_Get(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		repo := new(testutil.MockContactRepository)
		repo.On("FindByIDForTenant", mock.Anything, tenantID, id).Return(nil, shared.ErrNotFound)
		r := setupContactRouter(repo, tenantID, userID)

		w := serve(r, http.MethodGet, "/api/v1/contacts/"+id.String(), "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "ERR_NOT_FOUND", decodeResponse(t, w).Error.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		repo := new(testutil.MockContactRepository)
		r := setupContactRouter(repo, tenantID, userID)

		w := serve(r, http.MethodGet, "/api/v1/contacts/42", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		repo.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestContactHandler_List(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()
	c, err := contact.NewContact(tenantID, contact.Details{Type: contact.TypeSupplier, Name: "Stadtwerke"})
	require.NoError(t, err)

	repo := new(testutil.MockContactRepository)
	repo.On("FindAllForTenant", mock.Anything, tenantID, mock.MatchedBy(func(f contact.ContactFilter) bool {
		return f.Page == 2 && f.PageSize == 10 && f.Search == "stadt" && f.Archived != nil && !*f.Archived
	})).Return([]*contact.Contact{c}, int64(11), nil)
	r := setupContactRouter(repo, tenantID, userID)

	w := serve(r, http.MethodGet, "/api/v1/contacts?page=2&page_size=10&search=stadt", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(11), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	assert.Len(t, resp.Data.([]any), 1)
	repo.AssertExpectations(t)
}

func TestContactHandler_Delete(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()
	c, err := contact.NewContact(tenantID, contact.Details{Type: contact.TypeCustomer, Name: "Kunde"})
	require.NoError(t, err)

	t.Run("referenced contact conflicts", func(t *testing.T) {
		repo := new(testutil.MockContactRepository)
		repo.On("FindByIDForTenant", mock.Anything, tenantID, c.ID).Return(c, nil)
		repo.On("IsReferenced", mock.Anything, tenantID, c.ID).Return(true, nil)
		r := setupContactRouter(repo, tenantID, userID)

		w := serve(r, http.MethodDelete, "/api/v1/contacts/"+c.ID.String(), "")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "ERR_CONTACT_IN_USE", decodeResponse(t, w).Error.Code)
		repo.AssertNotCalled(t, "DeleteForTenant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unreferenced contact is removed", func(t *testing.T) {
		repo := new(testutil.MockContactRepository)
		repo.On("FindByIDForTenant", mock.Anything, tenantID, c.ID).Return(c, nil)
		repo.On("IsReferenced", mock.Anything, tenantID, c.ID).Return(false, nil)
		repo.On("DeleteForTenant", mock.Anything, tenantID, c.ID).Return(nil)
		r := setupContactRouter(repo, tenantID, userID)

		w := serve(r, http.MethodDelete, "/api/v1/contacts/"+c.ID.String(), "")

		assert.Equal(t, http.StatusNoContent, w.Code)
		repo.AssertExpectations(t)
	})
}

func TestContactHandler_RequiresTenant(t *testing.T) {
	repo := new(testutil.MockContactRepository)
	h := NewContactHandler(contactapp.NewService(repo, nil))
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))

	w := serve(r, http.MethodGet, "/api/v1/contacts", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	repo.AssertNotCalled(t, "FindAllForTenant", mock.Anything, mock.Anything, mock.Anything)
}

