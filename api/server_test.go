package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/preluvia/storefront/pkg/cart"
	"github.com/preluvia/storefront/pkg/config"
	"github.com/preluvia/storefront/pkg/models"
	"github.com/preluvia/storefront/pkg/order"
	"github.com/preluvia/storefront/pkg/repository"
)

const testSecret = "test-secret"

// memStore backs both the handler-facing Store and the order service's store.
type memStore struct {
	mu        sync.Mutex
	products  map[string]*models.Product
	orders    map[string]*models.Order
	snapshots map[string][]models.OrderedProduct
	infos     map[string]*models.ClientInfo
	users     map[string]*models.User
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[string]*models.Product),
		orders:    make(map[string]*models.Order),
		snapshots: make(map[string][]models.OrderedProduct),
		infos:     make(map[string]*models.ClientInfo),
		users:     make(map[string]*models.User),
	}
}

func (m *memStore) Products(context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) Product(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memStore) SaveProduct(ctx context.Context, p *models.Product) error {
	return m.CreateProduct(ctx, p)
}

func (m *memStore) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memStore) SetProductHidden(_ context.Context, id string, hidden bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return models.ErrNotFound
	}
	p.Hidden = hidden
	return nil
}

func (m *memStore) OrderedProductsByOrder(_ context.Context, orderID string) ([]models.OrderedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[orderID], nil
}

func (m *memStore) ClientInfos(_ context.Context, userID string) ([]models.ClientInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ClientInfo
	for _, info := range m.infos {
		if info.UserID == userID {
			out = append(out, *info)
		}
	}
	return out, nil
}

func (m *memStore) ClientInfo(_ context.Context, id string) (*models.ClientInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.infos[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *info
	return &cp, nil
}

func (m *memStore) CreateClientInfo(_ context.Context, info *models.ClientInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *info
	m.infos[info.ID] = &cp
	return nil
}

func (m *memStore) SaveClientInfo(ctx context.Context, info *models.ClientInfo) error {
	return m.CreateClientInfo(ctx, info)
}

func (m *memStore) DeleteClientInfo(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.infos[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.infos, id)
	return nil
}

func (m *memStore) UpsertUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) User(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// order.Store methods

func (m *memStore) ProductsByID(_ context.Context, ids []string) (map[string]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (m *memStore) CreateOrder(_ context.Context, o *models.Order, snaps []models.OrderedProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	m.snapshots[o.ID] = snaps
	return nil
}

func (m *memStore) Order(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) OrdersByUser(_ context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) Orders(context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *memStore) TransitionOrder(_ context.Context, id string, from, to models.OrderStatus, decrements []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return models.ErrNotFound
	}
	if o.Status != from {
		return models.ErrConflict
	}
	o.Status = to
	for _, item := range decrements {
		if p, ok := m.products[item.ProductID]; ok {
			p.Stock -= item.Qty
			if p.Stock < 0 {
				p.Stock = 0
			}
		}
	}
	return nil
}

// memKV is an in-memory stand-in for the Redis cart storage.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *memKV) GetJSON(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	data, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(data, dest)
}

func (m *memKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// missCache never hits; detail reads always fall through to the store.
type missCache struct{}

func (missCache) GetProductCache(context.Context, string) (*models.Product, error) {
	return nil, redis.Nil
}
func (missCache) CacheProduct(context.Context, *models.Product, time.Duration) error { return nil }
func (missCache) InvalidateProduct(context.Context, string) error                    { return nil }

// recCache keeps cached products in memory and records invalidations.
type recCache struct {
	mu          sync.Mutex
	entries     map[string]*models.Product
	invalidated []string
}

func newRecCache() *recCache {
	return &recCache{entries: make(map[string]*models.Product)}
}

func (c *recCache) GetProductCache(_ context.Context, id string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[id]
	if !ok {
		return nil, redis.Nil
	}
	cp := *p
	return &cp, nil
}

func (c *recCache) CacheProduct(_ context.Context, p *models.Product, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *p
	c.entries[p.ID] = &cp
	return nil
}

func (c *recCache) InvalidateProduct(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type nopAudit struct{}

func (nopAudit) OrderEvent(context.Context, string, string, map[string]interface{})   {}
func (nopAudit) ProductEvent(context.Context, string, string, map[string]interface{}) {}
func (nopAudit) GetAuditLogs(context.Context, string, int64) ([]*repository.AuditLog, error) {
	return nil, nil
}

func newTestServer(t *testing.T, store *memStore) *Server {
	t.Helper()
	return newTestServerWithCache(t, store, missCache{})
}

func newTestServerWithCache(t *testing.T, store *memStore, cache ProductCache) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testSecret
	cfg.Catalog.Locale = "tr"

	logger := zap.NewNop()
	carts := cart.NewStore(newMemKV())
	orders := order.NewService(store, carts, nopAudit{}, logger)

	s := NewServer(cfg, logger, store, cache, carts, orders, nopAudit{})
	s.SetupRoutes()
	return s
}

func token(t *testing.T, uid, role string) string {
	t.Helper()
	claims := &Claims{
		UID:  uid,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, s *Server, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func seedProduct(store *memStore, id string, stock int, priceStr string, hidden bool) {
	store.products[id] = &models.Product{
		ID:       id,
		Name:     id,
		Stock:    stock,
		Price:    decimal.RequireFromString(priceStr),
		Currency: "TRY",
		Hidden:   hidden,
	}
}

func TestCatalogHidesHiddenFromAnonymous(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "visible", 5, "10.00", false)
	seedProduct(store, "secret", 5, "10.00", true)
	s := newTestServer(t, store)

	w := do(t, s, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = do(t, s, http.MethodGet, "/api/v1/products", token(t, "a1", models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["total"])
}

func TestHiddenProductDetailIs404ForCustomers(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "secret", 5, "10.00", true)
	s := newTestServer(t, store)

	w := do(t, s, http.MethodGet, "/api/v1/products/secret", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/products/secret", token(t, "a1", models.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalogSearch(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "P1", 5, "10.00", false)
	store.products["P1"].Name = "Zeytinyağı"
	store.products["P1"].Description = "Soğuk sıkım"
	seedProduct(store, "P2", 5, "3.00", false)
	store.products["P2"].Name = "Elma Sirkesi"
	seedProduct(store, "P3", 5, "8.00", true)
	store.products["P3"].Name = "Gizli Zeytin"
	s := newTestServer(t, store)

	w := do(t, s, http.MethodGet, "/api/v1/products?q=zeytin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	// The hidden product matches the query but never surfaces for customers.
	assert.EqualValues(t, 1, body["total"])

	w = do(t, s, http.MethodGet, "/api/v1/products?q=soğuk", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = do(t, s, http.MethodGet, "/api/v1/products?q=portakal", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["total"])
}

func TestProductDetailServedFromCache(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "P1", 5, "10.00", false)
	cache := newRecCache()
	s := newTestServerWithCache(t, store, cache)

	// First read misses and populates the cache.
	w := do(t, s, http.MethodGet, "/api/v1/products/P1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "P1", decode(t, w)["name"])

	// A direct store edit is invisible until the cache is invalidated.
	store.mu.Lock()
	store.products["P1"].Name = "renamed"
	store.mu.Unlock()

	w = do(t, s, http.MethodGet, "/api/v1/products/P1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "P1", decode(t, w)["name"])

	require.NoError(t, cache.InvalidateProduct(context.Background(), "P1"))
	w = do(t, s, http.MethodGet, "/api/v1/products/P1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "renamed", decode(t, w)["name"])
}

func TestProductWritesInvalidateCache(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "P1", 5, "10.00", false)
	cache := newRecCache()
	s := newTestServerWithCache(t, store, cache)
	admin := token(t, "a1", models.RoleAdmin)

	w := do(t, s, http.MethodPut, "/api/v1/products/P1", admin, map[string]interface{}{
		"name": "P1", "stock": 5, "price": "10.00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, http.MethodPut, "/api/v1/products/P1/visibility", admin,
		map[string]interface{}{"hidden": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodDelete, "/api/v1/products/P1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cache.mu.Lock()
	defer cache.mu.Unlock()
	assert.Equal(t, []string{"P1", "P1", "P1"}, cache.invalidated)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t, newMemStore())

	w := do(t, s, http.MethodGet, "/api/v1/admin/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/admin/orders", token(t, "u1", models.RoleClient), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/admin/orders", token(t, "a1", models.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRejectsNonHMACToken(t *testing.T) {
	s := newTestServer(t, newMemStore())

	claims := &Claims{
		UID:  "u1",
		Role: models.RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	w := do(t, s, http.MethodGet, "/api/v1/cart", unsigned, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartAndCheckoutFlow(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "P1", 5, "10.00", false)
	s := newTestServer(t, store)
	bearer := token(t, "u1", models.RoleClient)

	// Add twice: lines merge.
	w := do(t, s, http.MethodPost, "/api/v1/cart/items", bearer,
		map[string]interface{}{"product_id": "P1", "qty": 1})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, s, http.MethodPost, "/api/v1/cart/items", bearer,
		map[string]interface{}{"product_id": "P1", "qty": 1})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "20.00", body["subtotal"])

	// Checkout.
	w = do(t, s, http.MethodPost, "/api/v1/orders", bearer, map[string]interface{}{
		"customer_name": "Ayşe Yılmaz",
		"phone":         "+90 555 000 0000",
		"company_name":  "Yılmaz Gıda",
		"address":       "İstanbul",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "NEW", created["status"])

	// Cart cleared by checkout.
	w = do(t, s, http.MethodGet, "/api/v1/cart", bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", decode(t, w)["subtotal"])

	// Order listed for its owner.
	w = do(t, s, http.MethodGet, "/api/v1/orders", bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	// First checkout provisions the back-office account record.
	store.mu.Lock()
	u, ok := store.users["u1"]
	store.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "Ayşe Yılmaz", u.DisplayName)
}

func TestCheckoutInsufficientStockRejected(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "P1", 1, "10.00", false)
	s := newTestServer(t, store)
	bearer := token(t, "u1", models.RoleClient)

	w := do(t, s, http.MethodPost, "/api/v1/cart/items", bearer,
		map[string]interface{}{"product_id": "P1", "qty": 1})
	require.Equal(t, http.StatusOK, w.Code)

	// Stock drops out from underneath the cart.
	store.mu.Lock()
	store.products["P1"].Stock = 0
	store.mu.Unlock()

	w = do(t, s, http.MethodPost, "/api/v1/orders", bearer, map[string]interface{}{
		"customer_name": "Ayşe Yılmaz",
		"phone":         "+90 555 000 0000",
		"company_name":  "Yılmaz Gıda",
		"address":       "İstanbul",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "P1")
	assert.Empty(t, store.orders)

	// Cart survives a rejected checkout.
	w = do(t, s, http.MethodGet, "/api/v1/cart", bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)
}

func TestAdminConfirmDecrementsStockOnce(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "P2", 10, "4.00", false)
	o := &models.Order{ID: "o1", UserID: "u1", Status: models.OrderStatusNew}
	require.NoError(t, o.SetItems([]models.OrderItem{{ProductID: "P2", Qty: 3}}))
	store.orders["o1"] = o

	s := newTestServer(t, store)
	admin := token(t, "a1", models.RoleAdmin)

	w := do(t, s, http.MethodPost, "/api/v1/admin/orders/o1/confirm", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, store.products["P2"].Stock)

	// A repeat confirm bounces off the terminal state.
	w = do(t, s, http.MethodPost, "/api/v1/admin/orders/o1/confirm", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 7, store.products["P2"].Stock)
}

func TestCancelOnlyByOwner(t *testing.T) {
	store := newMemStore()
	o := &models.Order{ID: "o1", UserID: "u1", Status: models.OrderStatusNew}
	store.orders["o1"] = o
	s := newTestServer(t, store)

	w := do(t, s, http.MethodPost, "/api/v1/orders/o1/cancel", token(t, "u2", models.RoleClient), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/orders/o1/cancel", token(t, "u1", models.RoleClient), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CANCELLED", decode(t, w)["status"])
}

func TestClientInfoCRUD(t *testing.T) {
	store := newMemStore()
	s := newTestServer(t, store)
	bearer := token(t, "u1", models.RoleClient)

	w := do(t, s, http.MethodPost, "/api/v1/account/infos", bearer, map[string]interface{}{
		"company_name": "Yılmaz Gıda",
		"phone":        "+90 555 000 0000",
		"name":         "Ayşe Yılmaz",
		"address":      "İstanbul",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	// Another user cannot touch it.
	w = do(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/account/infos/%s", id), token(t, "u2", models.RoleClient), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/account/infos/%s", id), bearer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
