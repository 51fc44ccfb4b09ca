package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	shophttp "github.com/aq2208/gorder-shop/internal/adapter/http"
	"github.com/aq2208/gorder-shop/internal/adapter/http/middleware"
	"github.com/aq2208/gorder-shop/internal/adapter/repo"
	"github.com/aq2208/gorder-shop/internal/adapter/storage"
	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/security"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	engine *gin.Engine
	store  *repo.MemoryStore
	authz  *middleware.Authz
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repo.NewMemoryStore()
	images, err := storage.NewLocalImageStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	inv := usecase.NewInventory(store.Products(), nil, nil)
	authz := middleware.NewAuthz("test-secret", "gorder-shop", "shop-clients", time.Hour)
	h := shophttp.Handlers{
		Orders: shophttp.NewOrderHandler(
			usecase.NewPlaceOrder(store, store.Orders(), inv, nil, nil, nil),
			usecase.NewCancelOrder(store, store.Orders(), inv, nil, nil),
			usecase.NewSetOrderStatus(store.Orders(), nil),
			usecase.NewOrderQueries(store.Orders()),
		),
		Products: shophttp.NewProductHandler(usecase.NewCatalog(store, store.Products(), store.Orders(), images, nil)),
		Users:    shophttp.NewUserHandler(usecase.NewAccounts(store, store.Users(), store.Orders(), inv, nil)),
		Admin:    shophttp.NewAdminHandler(shophttp.AdminAccount{Email: "admin@shop.test", Password: "s3cret"}, authz),
	}
	return &testServer{
		engine: shophttp.NewRouter(h, authz, images.Dir(), 1<<20),
		store:  store,
		authz:  authz,
	}
}

func (s *testServer) token(t *testing.T, id string, role domain.Role) string {
	t.Helper()
	tok, err := s.authz.Issue(security.Identity{UserID: id, Role: role}, time.Now())
	require.NoError(t, err)
	return tok
}

func (s *testServer) seedProduct(t *testing.T, id, price string, stock int) {
	t.Helper()
	require.NoError(t, s.store.Products().Create(context.Background(), &domain.Product{
		ID: id, Title: "Product " + id, Price: decimal.RequireFromString(price),
		Category: "misc", Stock: stock, Image: id + ".png", CreatedAt: time.Now().UTC(),
	}))
}

func (s *testServer) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := s.store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func orderBody(productID string, qty int) gin.H {
	return gin.H{
		"items": []gin.H{{"productId": productID, "quantity": qty}},
		"customerDetails": gin.H{
			"name": "Ann", "email": "ann@example.com", "phone": "555", "address": "1 Main St",
		},
		"paymentMode": "cod",
	}
}

func TestPlaceOrder_Endpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedProduct(t, "p1", "10.00", 5)
	ann := s.token(t, "u1", domain.RoleCustomer)

	w := s.do(t, http.MethodPost, "/api/orders", ann, orderBody("p1", 2))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "pending", out["status"])
	assert.Equal(t, "u1", out["userId"])
	assert.Equal(t, "20", out["totalAmount"])
	assert.Equal(t, 3, s.stock(t, "p1"))

	w = s.do(t, http.MethodPost, "/api/orders", ann, orderBody("p1", 4))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Insufficient stock for Product p1", decode(t, w)["message"])
	assert.Equal(t, 3, s.stock(t, "p1"))

	w = s.do(t, http.MethodPost, "/api/orders", ann, orderBody("ghost", 1))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found: ghost", decode(t, w)["message"])
}

func TestAccessGate(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/orders/my-orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No token provided", decode(t, w)["message"])

	w = s.do(t, http.MethodGet, "/api/orders/my-orders", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	customer := s.token(t, "u1", domain.RoleCustomer)
	w = s.do(t, http.MethodGet, "/api/orders", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Admin access required", decode(t, w)["message"])

	other := middleware.NewAuthz("another-secret", "gorder-shop", "shop-clients", time.Hour)
	forged, err := other.Issue(security.Identity{UserID: "u1", Role: domain.RoleAdmin}, time.Now())
	require.NoError(t, err)
	w = s.do(t, http.MethodGet, "/api/orders", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCancelOrder_Endpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedProduct(t, "p1", "4.50", 3)
	ann := s.token(t, "u1", domain.RoleCustomer)
	bob := s.token(t, "u2", domain.RoleCustomer)

	w := s.do(t, http.MethodPost, "/api/orders", ann, orderBody("p1", 2))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = s.do(t, http.MethodGet, "/api/orders/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodPut, "/api/orders/"+id+"/cancel", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 1, s.stock(t, "p1"))

	w = s.do(t, http.MethodPut, "/api/orders/"+id+"/cancel", ann, gin.H{"reason": "changed my mind"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "cancelled", out["status"])
	c := out["cancellation"].(map[string]any)
	assert.Equal(t, "user", c["cancelledBy"])
	assert.Equal(t, "changed my mind", c["cancellationReason"])
	assert.Equal(t, 3, s.stock(t, "p1"))

	w = s.do(t, http.MethodPut, "/api/orders/"+id+"/cancel", ann, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 3, s.stock(t, "p1"), "second cancel must not restore again")
}

func TestAdminStatusAndListing(t *testing.T) {
	s := newTestServer(t)
	s.seedProduct(t, "p1", "1.00", 10)
	require.NoError(t, s.store.Users().Create(context.Background(), &domain.User{
		ID: "u1", Name: "Ann", Email: "ann@example.com", Role: domain.RoleCustomer, CreatedAt: time.Now().UTC(),
	}))
	ann := s.token(t, "u1", domain.RoleCustomer)
	admin := s.token(t, "admin", domain.RoleAdmin)

	w := s.do(t, http.MethodPost, "/api/orders", ann, orderBody("p1", 1))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = s.do(t, http.MethodPut, "/api/orders/"+id+"/status", admin, gin.H{"status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "delivered", decode(t, w)["status"])

	w = s.do(t, http.MethodPut, "/api/orders/"+id+"/cancel", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot cancel delivered order", decode(t, w)["message"])

	w = s.do(t, http.MethodGet, "/api/orders", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all, 1)
	assert.Equal(t, "Ann", all[0]["user"].(map[string]any)["name"])
}

func TestAdminLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/admin/login", "", gin.H{"email": "admin@shop.test", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/login", "", gin.H{"email": "admin@shop.test", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)
	tok := decode(t, w)["token"].(string)

	w = s.do(t, http.MethodGet, "/api/admin/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", decode(t, w)["role"])
}

func TestProductDeleteGuard_Endpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedProduct(t, "p1", "2.00", 5)
	ann := s.token(t, "u1", domain.RoleCustomer)
	admin := s.token(t, "admin", domain.RoleAdmin)

	w := s.do(t, http.MethodPost, "/api/orders", ann, orderBody("p1", 1))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = s.do(t, http.MethodDelete, "/api/products/p1", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t,
		"Cannot delete product. It has 1 pending order(s). Please wait until orders are delivered or cancel them first.",
		decode(t, w)["message"])

	w = s.do(t, http.MethodPut, "/api/orders/"+id+"/cancel", ann, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/api/products/p1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/orders/"+id, ann, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].(map[string]any)["product"], "deleted product shows as unavailable")
}

func multipartProduct(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.PNG")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreateProduct_Multipart(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin", domain.RoleAdmin)
	fields := map[string]string{
		"title": "Mug", "description": "Blue mug", "price": "7.25", "category": "kitchen", "stock": "12",
	}

	post := func(image []byte) *httptest.ResponseRecorder {
		body, ct := multipartProduct(t, fields, image)
		req := httptest.NewRequest(http.MethodPost, "/api/products", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", "Bearer "+admin)
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		return w
	}

	w := post(nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Image is required", decode(t, w)["message"])

	w = post([]byte("fake-png"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "Mug", out["title"])
	assert.Equal(t, "7.25", out["price"])
	assert.EqualValues(t, 12, out["stock"])
	assert.Contains(t, out["image"], ".png")

	w = s.do(t, http.MethodGet, "/uploads/"+out["image"].(string), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fake-png", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/products?category=kitchen", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestDeleteUser_Endpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedProduct(t, "p1", "3.00", 4)
	require.NoError(t, s.store.Users().Create(context.Background(), &domain.User{
		ID: "u1", Name: "Ann", Email: "ann@example.com", Role: domain.RoleCustomer, CreatedAt: time.Now().UTC(),
	}))
	ann := s.token(t, "u1", domain.RoleCustomer)
	admin := s.token(t, "admin", domain.RoleAdmin)

	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodPost, "/api/orders", ann, orderBody("p1", 1))
		require.Equal(t, http.StatusCreated, w.Code)
	}
	assert.Equal(t, 2, s.stock(t, "p1"))

	w := s.do(t, http.MethodDelete, "/api/users/u1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "User deleted successfully. 2 orders were cancelled and stock restored.", decode(t, w)["message"])
	assert.Equal(t, 4, s.stock(t, "p1"))

	w = s.do(t, http.MethodDelete, "/api/users/u1", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
