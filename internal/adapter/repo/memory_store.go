package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/usecase"
)

// MemoryStore keeps products, orders and users in process. A unit of work holds the
// store lock for its whole duration and restores a snapshot when it fails, which gives
// the same all-or-nothing behaviour as the MySQL transaction runner.
type MemoryStore struct {
	mu       sync.Mutex
	seq      int64
	products map[string]domain.Product
	orders   map[string]memOrder
	users    map[string]domain.User
}

type memOrder struct {
	order domain.Order
	seq   int64
}

type memTxKey struct{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: map[string]domain.Product{},
		orders:   map[string]memOrder{},
		users:    map[string]domain.User{},
	}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) == s {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// lock takes the store lock unless ctx already runs inside one of our units of work.
func (s *MemoryStore) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type memSnapshot struct {
	seq      int64
	products map[string]domain.Product
	orders   map[string]memOrder
	users    map[string]domain.User
}

func (s *MemoryStore) snapshot() memSnapshot {
	snap := memSnapshot{
		seq:      s.seq,
		products: make(map[string]domain.Product, len(s.products)),
		orders:   make(map[string]memOrder, len(s.orders)),
		users:    make(map[string]domain.User, len(s.users)),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.orders {
		v.order = cloneOrder(v.order)
		snap.orders[k] = v
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	return snap
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.seq = snap.seq
	s.products = snap.products
	s.orders = snap.orders
	s.users = snap.users
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.LineItem(nil), o.Items...)
	for i := range o.Items {
		o.Items[i].Product = nil
	}
	o.Owner = nil
	if o.Cancellation != nil {
		c := *o.Cancellation
		o.Cancellation = &c
	}
	return o
}

func (s *MemoryStore) Products() *MemoryProductRepo { return &MemoryProductRepo{s: s} }
func (s *MemoryStore) Orders() *MemoryOrderRepo     { return &MemoryOrderRepo{s: s} }
func (s *MemoryStore) Users() *MemoryUserRepo       { return &MemoryUserRepo{s: s} }

// ---- products ----

type MemoryProductRepo struct{ s *MemoryStore }

func (r *MemoryProductRepo) Create(ctx context.Context, p *domain.Product) error {
	defer r.s.lock(ctx)()
	r.s.products[p.ID] = *p
	return nil
}

func (r *MemoryProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *MemoryProductRepo) Lock(ctx context.Context, id string) (*domain.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	defer r.s.lock(ctx)()
	search := strings.ToLower(f.Search)
	out := make([]domain.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		switch f.Sort {
		case domain.SortPriceLow:
			return out[i].Price.LessThan(out[j].Price)
		case domain.SortPriceHigh:
			return out[i].Price.GreaterThan(out[j].Price)
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	return out, nil
}

func (r *MemoryProductRepo) Update(ctx context.Context, p *domain.Product) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *MemoryProductRepo) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *MemoryProductRepo) DecrementStock(ctx context.Context, id string, qty int) (*domain.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Stock < qty {
		return nil, domain.ErrInsufficientStock
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now().UTC()
	r.s.products[id] = p
	return &p, nil
}

func (r *MemoryProductRepo) IncrementStock(ctx context.Context, id string, qty int) (bool, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.products[id]
	if !ok {
		return false, nil
	}
	p.Stock += qty
	p.UpdatedAt = time.Now().UTC()
	r.s.products[id] = p
	return true, nil
}

// ---- orders ----

type MemoryOrderRepo struct{ s *MemoryStore }

func (r *MemoryOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	defer r.s.lock(ctx)()
	r.s.seq++
	r.s.orders[o.ID] = memOrder{order: cloneOrder(*o), seq: r.s.seq}
	return nil
}

// resolve fills the display-only fields. Caller holds the lock.
func (r *MemoryOrderRepo) resolve(m memOrder, withOwner bool) domain.Order {
	o := cloneOrder(m.order)
	for i := range o.Items {
		if p, ok := r.s.products[o.Items[i].ProductID]; ok {
			o.Items[i].Product = p.Summary()
		}
	}
	if withOwner {
		o.Owner = &domain.Owner{ID: o.UserID}
		if u, ok := r.s.users[o.UserID]; ok {
			o.Owner.Name, o.Owner.Email = u.Name, u.Email
		}
	}
	return o
}

func (r *MemoryOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	defer r.s.lock(ctx)()
	m, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o := r.resolve(m, false)
	return &o, nil
}

func (r *MemoryOrderRepo) list(ctx context.Context, keep func(domain.Order) bool, withOwner bool) []domain.Order {
	defer r.s.lock(ctx)()
	ms := make([]memOrder, 0)
	for _, m := range r.s.orders {
		if keep(m.order) {
			ms = append(ms, m)
		}
	}
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].order.CreatedAt.Equal(ms[j].order.CreatedAt) {
			return ms[i].order.CreatedAt.After(ms[j].order.CreatedAt)
		}
		return ms[i].seq > ms[j].seq
	})
	out := make([]domain.Order, 0, len(ms))
	for _, m := range ms {
		out = append(out, r.resolve(m, withOwner))
	}
	return out
}

func (r *MemoryOrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, func(o domain.Order) bool { return o.UserID == userID }, false), nil
}

func (r *MemoryOrderRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, func(domain.Order) bool { return true }, true), nil
}

func (r *MemoryOrderRepo) UpdateStatusIf(ctx context.Context, id string, from []domain.Status, to domain.Status) (bool, error) {
	defer r.s.lock(ctx)()
	m, ok := r.s.orders[id]
	if !ok || !statusIn(m.order.Status, from) {
		return false, nil
	}
	m.order.Status = to
	m.order.UpdatedAt = time.Now().UTC()
	r.s.orders[id] = m
	return true, nil
}

func (r *MemoryOrderRepo) MarkCancelled(ctx context.Context, id string, c domain.Cancellation) (bool, error) {
	defer r.s.lock(ctx)()
	m, ok := r.s.orders[id]
	if !ok || !statusIn(m.order.Status, domain.ActiveStatuses) {
		return false, nil
	}
	m.order.Status = domain.StatusCancelled
	m.order.Cancellation = &c
	m.order.UpdatedAt = c.At
	r.s.orders[id] = m
	return true, nil
}

func (r *MemoryOrderRepo) CountActiveByProduct(ctx context.Context, productID string) (int, error) {
	defer r.s.lock(ctx)()
	n := 0
	for _, m := range r.s.orders {
		if statusIn(m.order.Status, domain.ActiveStatuses) && m.order.References(productID) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryOrderRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for id, m := range r.s.orders {
		if m.order.UserID == userID {
			delete(r.s.orders, id)
			n++
		}
	}
	return n, nil
}

func statusIn(s domain.Status, set []domain.Status) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ---- users ----

type MemoryUserRepo struct{ s *MemoryStore }

func (r *MemoryUserRepo) Create(ctx context.Context, u *domain.User) error {
	defer r.s.lock(ctx)()
	r.s.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepo) List(ctx context.Context) ([]domain.User, error) {
	defer r.s.lock(ctx)()
	out := make([]domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryUserRepo) Update(ctx context.Context, u *domain.User) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepo) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

var (
	_ usecase.TxRunner    = (*MemoryStore)(nil)
	_ usecase.ProductRepo = (*MemoryProductRepo)(nil)
	_ usecase.OrderRepo   = (*MemoryOrderRepo)(nil)
	_ usecase.UserRepo    = (*MemoryUserRepo)(nil)
)
