package usecase_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aq2208/gorder-shop/internal/adapter/repo"
	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/security"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var admin = security.Identity{UserID: "admin", Role: domain.RoleAdmin}

func customer(id string) security.Identity {
	return security.Identity{UserID: id, Role: domain.RoleCustomer}
}

type recordedEvent struct {
	key string
	msg usecase.OrderEventMsg
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, key string, msg usecase.OrderEventMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{key: key, msg: msg})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

type memIdempotency struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{locks: map[string]bool{}, values: map[string]string{}}
}

func (m *memIdempotency) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scope + ":" + key
	if m.locks[k] {
		return false, nil
	}
	m.locks[k] = true
	return true, nil
}

func (m *memIdempotency) Unlock(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+":"+key)
	return nil
}

func (m *memIdempotency) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+":"+key] = value
	return nil
}

func (m *memIdempotency) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[scope+":"+key]
	return v, ok, nil
}

type memImages struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memImages) Save(_ context.Context, name string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = b
	return nil
}

func (m *memImages) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

// shop bundles the use cases over one in-memory store.
type shop struct {
	store    *repo.MemoryStore
	events   *recordingPublisher
	idem     *memIdempotency
	images   *memImages
	place    *usecase.PlaceOrder
	cancel   *usecase.CancelOrder
	status   *usecase.SetOrderStatus
	queries  *usecase.OrderQueries
	catalog  *usecase.Catalog
	accounts *usecase.Accounts
}

func newShop(t *testing.T) *shop {
	t.Helper()
	s := &shop{
		store:  repo.NewMemoryStore(),
		events: &recordingPublisher{},
		idem:   newMemIdempotency(),
		images: &memImages{files: map[string][]byte{}},
	}
	inv := usecase.NewInventory(s.store.Products(), nil, nil)
	s.place = usecase.NewPlaceOrder(s.store, s.store.Orders(), inv, s.idem, s.events, nil)
	s.cancel = usecase.NewCancelOrder(s.store, s.store.Orders(), inv, s.events, nil)
	s.status = usecase.NewSetOrderStatus(s.store.Orders(), s.events)
	s.queries = usecase.NewOrderQueries(s.store.Orders())
	s.catalog = usecase.NewCatalog(s.store, s.store.Products(), s.store.Orders(), s.images, nil)
	s.accounts = usecase.NewAccounts(s.store, s.store.Users(), s.store.Orders(), inv, nil)
	return s
}

func (s *shop) seedProduct(t *testing.T, id, price string, stock int) {
	t.Helper()
	require.NoError(t, s.store.Products().Create(context.Background(), &domain.Product{
		ID: id, Title: "Product " + id, Price: decimal.RequireFromString(price),
		Category: "misc", Stock: stock, CreatedAt: time.Now().UTC(),
	}))
}

func (s *shop) seedUser(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, s.store.Users().Create(context.Background(), &domain.User{
		ID: id, Name: "User " + id, Email: id + "@example.com", Role: domain.RoleCustomer, CreatedAt: time.Now().UTC(),
	}))
}

func (s *shop) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := s.store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (s *shop) order(t *testing.T, userID string, items ...usecase.ReserveItem) *domain.Order {
	t.Helper()
	o, err := s.place.Execute(context.Background(), placeInput(userID, items...))
	require.NoError(t, err)
	return o
}

func placeInput(userID string, items ...usecase.ReserveItem) usecase.PlaceOrderInput {
	return usecase.PlaceOrderInput{
		UserID:      userID,
		PaymentMode: "cod",
		Items:       items,
		Customer:    domain.CustomerDetails{Name: "Ann", Email: "ann@example.com", Phone: "555", Address: "1 Main St"},
	}
}

func item(productID string, qty int) usecase.ReserveItem {
	return usecase.ReserveItem{ProductID: productID, Quantity: qty}
}
