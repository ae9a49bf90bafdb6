package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jacentio/storefront/commerce"
	"github.com/jacentio/storefront/commerce/mocks"
	"github.com/jacentio/storefront/httpapi"
	"github.com/jacentio/storefront/internal/metrics"
)

type testServer struct {
	repo  *mocks.MemRepository
	blobs *mocks.MemBlobs
	h     http.Handler
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	repo := mocks.NewMemRepository()
	blobs := mocks.NewMemBlobs()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := commerce.Options{BcryptCost: bcrypt.MinCost, Logger: logger}

	return &testServer{
		repo:  repo,
		blobs: blobs,
		h: httpapi.NewRouter(httpapi.Config{
			Tenants:        commerce.NewTenantService(repo, opts),
			Stores:         commerce.NewStoreService(repo, blobs, opts),
			Products:       commerce.NewProductService(repo, blobs, opts),
			Logger:         logger,
			Metrics:        metrics.New(prometheus.NewRegistry()),
			MaxUploadBytes: 1 << 20,
		}),
	}
}

type response struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Status  int             `json:"status"`
	Error   bool            `json:"error"`
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	var body response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func jsonRequest(method, path string, body any) *http.Request {
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type filePart struct {
	field, name, contentType string
	data                     []byte
}

func multipartRequest(t *testing.T, method, path string, payload any, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if payload != nil {
		doc, err := json.Marshal(payload)
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("payload", string(doc)))
	}
	for _, f := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		hdr.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (s *testServer) seedShop() {
	s.repo.PutTenant(commerce.Tenant{ID: "t-1", Username: "ada", Mail: "ada@example.com", Role: commerce.RoleTenant, StoreRef: commerce.StoreRef("s-1"), StoreID: "s-1"})
	s.repo.PutStore(commerce.Store{
		ID: "s-1", TenantID: "t-1", Name: "Corner", Subdomain: "corner" + commerce.DefaultSubdomainSuffix,
		LogoKey: "stores/s-1/logo/L", Theme: commerce.Theme{PrimaryColor: "#000", SecondaryColor: "#fff"},
		Mail: "shop@example.com", ProductIDs: []string{"p-1"},
	})
	s.repo.PutProduct(commerce.Product{ID: "p-1", StoreID: "s-1", ProductID: "SKU-1", Name: "Mug", Category: "kitchen", Images: []string{"stores/s-1/products/SKU-1/a"}})
	s.blobs.Seed("stores/s-1/logo/L", "stores/s-1/products/SKU-1/a")
}

func TestRoot(t *testing.T) {
	s := newServer(t)
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"connection successful","status":200,"error":false}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, body.Error)
	assert.Equal(t, http.StatusOK, body.Status)
	assert.Equal(t, "Successful", body.Message)
	assert.JSONEq(t, `{"status":"ok"}`, string(body.Data))
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, body.Error)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newServer(t)

	rec, body := s.do(t, jsonRequest(http.MethodPost, "/api/tenants/registerTenant", map[string]string{
		"username": "ada", "mail": "ada@example.com", "password": "pw",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Successful", body.Message)
	assert.Equal(t, http.StatusCreated, body.Status)
	assert.False(t, body.Error)

	var created struct {
		TenantID string `json:"tenantId"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.NotEmpty(t, created.TenantID)

	rec, body = s.do(t, jsonRequest(http.MethodPost, "/api/tenants/login", map[string]string{"username": "ada", "password": "pw"}))
	require.Equal(t, http.StatusOK, rec.Code)
	var session commerce.Session
	require.NoError(t, json.Unmarshal(body.Data, &session))
	assert.Equal(t, created.TenantID, session.TenantID)
	assert.False(t, session.HasStore)
}

func TestRegister_Duplicate(t *testing.T) {
	s := newServer(t)
	s.repo.PutTenant(commerce.Tenant{ID: "t-0", Username: "ada", Mail: "ada@example.com"})

	rec, body := s.do(t, jsonRequest(http.MethodPost, "/api/tenants/registerTenant", map[string]string{
		"username": "other", "mail": "ada@example.com", "password": "pw",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Tenant with mail ada@example.com already exists", body.Message)
	assert.True(t, body.Error)
	assert.Equal(t, http.StatusBadRequest, body.Status)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newServer(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	s.repo.PutTenant(commerce.Tenant{ID: "t-1", Username: "ada", PasswordHash: string(hash)})

	rec, body := s.do(t, jsonRequest(http.MethodPost, "/api/tenants/login", map[string]string{"username": "ada", "password": "nope"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid username or password", body.Message)
}

func TestLogout(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, httptest.NewRequest(http.MethodPost, "/api/tenants/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isLoggedOut":true}`, string(body.Data))
}

func TestMalformedJSON(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/tenants/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")

	rec, body := s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, body.Error)
}

func TestCreateStore_Multipart(t *testing.T) {
	s := newServer(t)
	s.repo.PutTenant(commerce.Tenant{ID: "t-1", Username: "ada"})

	req := multipartRequest(t, http.MethodPost, "/api/stores/t-1/store/add", map[string]any{
		"storeId":   "s-9",
		"name":      "Corner",
		"subdomain": "corner",
		"theme":     map[string]string{"primaryColor": "#000", "secondaryColor": "#fff"},
		"mail":      "shop@example.com",
	}, filePart{field: "file", name: "logo.png", contentType: "image/png", data: []byte("png-bytes")})

	rec, body := s.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)

	var view struct {
		StoreID   string `json:"storeId"`
		Subdomain string `json:"subdomain"`
		LogoKey   string `json:"logoKey"`
		LogoURL   string `json:"logoUrl"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &view))
	assert.Equal(t, "s-9", view.StoreID)
	assert.Equal(t, "corner--shophive.netlify.app", view.Subdomain)
	assert.True(t, strings.HasPrefix(view.LogoKey, "stores/s-9/logo/"))
	assert.Contains(t, view.LogoURL, view.LogoKey)
}

func TestGetStore_NotFound(t *testing.T) {
	s := newServer(t)
	s.seedShop()

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/stores/t-1/store/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Store not found", body.Message)
}

func TestUpdateStore_JSONPatch(t *testing.T) {
	s := newServer(t)
	s.seedShop()

	rec, body := s.do(t, jsonRequest(http.MethodPut, "/api/stores/t-1/store/s-1", map[string]any{"description": ""}))
	require.Equal(t, http.StatusOK, rec.Code, body.Message)

	var view struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &view))
	assert.Equal(t, "Corner", view.Name)
	assert.Equal(t, "", view.Description)
}

func TestDeleteStore(t *testing.T) {
	s := newServer(t)
	s.seedShop()

	rec, body := s.do(t, httptest.NewRequest(http.MethodDelete, "/api/stores/t-1/store/s-1", nil))
	require.Equal(t, http.StatusOK, rec.Code, body.Message)

	var del commerce.Deletion
	require.NoError(t, json.Unmarshal(body.Data, &del))
	assert.Equal(t, []string{"p-1"}, del.ProductIDs)
	assert.Equal(t, 0, s.blobs.Len())
}

func TestDeleteStore_DegradedReportsOrphans(t *testing.T) {
	s := newServer(t)
	s.seedShop()
	s.blobs.FailKeys["stores/s-1/logo/L"] = true

	rec, body := s.do(t, httptest.NewRequest(http.MethodDelete, "/api/stores/t-1/store/s-1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, body.Error)
	assert.Equal(t, "Store deleted but some images could not be removed", body.Message)

	var del commerce.Deletion
	require.NoError(t, json.Unmarshal(body.Data, &del))
	assert.Equal(t, []string{"stores/s-1/logo/L"}, del.Orphaned)
}

func TestAddProduct_MultipartImages(t *testing.T) {
	s := newServer(t)
	s.seedShop()

	req := multipartRequest(t, http.MethodPost, "/api/products/t-1/s-1/add", map[string]any{
		"productId":   "SKU-2",
		"name":        "Cup",
		"category":    "kitchen",
		"price":       4.5,
		"sizeOptions": "S,M",
	},
		filePart{field: "images[]", name: "a.jpg", contentType: "image/jpeg", data: []byte("a")},
		filePart{field: "images[]", name: "b.jpg", contentType: "image/jpeg", data: []byte("b")},
	)

	rec, body := s.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)

	var view struct {
		ID          string   `json:"id"`
		SizeOptions []string `json:"sizeOptions"`
		Images      []string `json:"images"`
		ImageURLs   []string `json:"imageUrls"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &view))
	assert.Equal(t, []string{"S", "M"}, view.SizeOptions)
	require.Len(t, view.ImageURLs, 2)
	for _, url := range view.ImageURLs {
		assert.Contains(t, url, "stores/s-1/products/SKU-2/")
	}

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/products/s-1/allProducts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "p-1", list[0].ID)
	assert.Equal(t, view.ID, list[1].ID)
}

func TestProductRoutes(t *testing.T) {
	s := newServer(t)
	s.seedShop()

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/products/s-1/p-1", nil))
	require.Equal(t, http.StatusOK, rec.Code, body.Message)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/products/s-other/p-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = s.do(t, jsonRequest(http.MethodPut, "/api/products/s-1/p-1", map[string]any{"price": 0}))
	require.Equal(t, http.StatusOK, rec.Code, body.Message)

	rec, body = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/products/p-1", nil))
	require.Equal(t, http.StatusOK, rec.Code, body.Message)
	assert.False(t, s.blobs.Has("stores/s-1/products/SKU-1/a"))

	rec, _ = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/products/p-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBodyTooLarge(t *testing.T) {
	s := newServer(t)
	s.seedShop()

	req := multipartRequest(t, http.MethodPost, "/api/products/t-1/s-1/add", map[string]any{
		"productId": "SKU-2", "name": "Cup", "category": "kitchen",
	}, filePart{field: "images[]", name: "big.jpg", contentType: "image/jpeg", data: bytes.Repeat([]byte("x"), 2<<20)})

	rec, body := s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, body.Error)
	assert.Empty(t, s.blobs.Puts)
}
