// Package testutil in-memory реализации хранилищ для тестов сервисов и хендлеров.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/repository"
)

type state struct {
	users         map[uuid.UUID]models.User
	categories    map[uuid.UUID]models.Category
	skills        map[string]models.Skill
	orders        map[uuid.UUID]models.Order
	orderSkills   map[uuid.UUID][]uuid.UUID
	files         []models.OrderFile
	bids          map[uuid.UUID]models.Bid
	assignments   map[uuid.UUID]models.Assignment
	disputes      map[uuid.UUID]models.Dispute
	reviews       map[uuid.UUID]models.Review
	ledger        []models.LedgerEntry
	history       []models.OrderHistory
	notifications map[uuid.UUID]models.Notification
}

func newState() *state {
	return &state{
		users:         map[uuid.UUID]models.User{},
		categories:    map[uuid.UUID]models.Category{},
		skills:        map[string]models.Skill{},
		orders:        map[uuid.UUID]models.Order{},
		orderSkills:   map[uuid.UUID][]uuid.UUID{},
		bids:          map[uuid.UUID]models.Bid{},
		assignments:   map[uuid.UUID]models.Assignment{},
		disputes:      map[uuid.UUID]models.Dispute{},
		reviews:       map[uuid.UUID]models.Review{},
		notifications: map[uuid.UUID]models.Notification{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	skills := make(map[uuid.UUID][]uuid.UUID, len(s.orderSkills))
	for k, v := range s.orderSkills {
		skills[k] = append([]uuid.UUID(nil), v...)
	}
	return &state{
		users:         cloneMap(s.users),
		categories:    cloneMap(s.categories),
		skills:        cloneMap(s.skills),
		orders:        cloneMap(s.orders),
		orderSkills:   skills,
		files:         append([]models.OrderFile(nil), s.files...),
		bids:          cloneMap(s.bids),
		assignments:   cloneMap(s.assignments),
		disputes:      cloneMap(s.disputes),
		reviews:       cloneMap(s.reviews),
		ledger:        append([]models.LedgerEntry(nil), s.ledger...),
		history:       append([]models.OrderHistory(nil), s.history...),
		notifications: cloneMap(s.notifications),
	}
}

type txKey struct{}

// MemStore потокобезопасное хранилище в памяти с транзакциями через снимки состояния.
// Транзакции сериализуются, что заменяет блокировки строк; при ошибке состояние откатывается.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *state

	failures map[string]error
}

func NewMemStore() *MemStore {
	return &MemStore{data: newState(), failures: map[string]error{}}
}

// FailOn заставляет операцию op (например "bids.RejectOthers") вернуть err.
func (m *MemStore) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

func (m *MemStore) fail(op string) error {
	return m.failures[op]
}

// WithinTransaction выполняет fn атомарно, вложенные вызовы идут в той же транзакции.
func (m *MemStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.data.clone()
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// with выполняет fn под мьютексом данных.
func (m *MemStore) with(fn func(s *state) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.data)
}

func (m *MemStore) Users() *UserRepo { return &UserRepo{m} }
func (m *MemStore) Ledger() *LedgerRepo { return &LedgerRepo{m} }
func (m *MemStore) Orders() *OrderRepo { return &OrderRepo{m} }
func (m *MemStore) History() *HistoryRepo { return &HistoryRepo{m} }
func (m *MemStore) Bids() *BidRepo { return &BidRepo{m} }
func (m *MemStore) Assignments() *AssignmentRepo { return &AssignmentRepo{m} }
func (m *MemStore) Disputes() *DisputeRepo { return &DisputeRepo{m} }
func (m *MemStore) Reviews() *ReviewRepo { return &ReviewRepo{m} }
func (m *MemStore) Catalog() *CatalogRepo { return &CatalogRepo{m} }
func (m *MemStore) Notifications() *NotificationRepo { return &NotificationRepo{m} }

// SeedUser добавляет пользователя с балансом.
func (m *MemStore) SeedUser(role valueobject.Role, balance int64) models.User {
	id := uuid.New()
	user := models.User{
		ID:        id,
		Email:     id.String()[:8] + "@example.com",
		Name:      "user-" + id.String()[:8],
		Role:      role,
		Balance:   decimal.NewFromInt(balance),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_ = m.with(func(s *state) error {
		s.users[id] = user
		return nil
	})
	return user
}

// SeedCategory добавляет категорию.
func (m *MemStore) SeedCategory(slug string) models.Category {
	category := models.Category{ID: uuid.New(), Slug: slug, Name: strings.ToUpper(slug[:1]) + slug[1:], CreatedAt: time.Now()}
	_ = m.with(func(s *state) error {
		s.categories[category.ID] = category
		return nil
	})
	return category
}

// Balance текущий баланс пользователя.
func (m *MemStore) Balance(userID uuid.UUID) decimal.Decimal {
	var balance decimal.Decimal
	_ = m.with(func(s *state) error {
		balance = s.users[userID].Balance
		return nil
	})
	return balance
}

// User снимок пользователя.
func (m *MemStore) User(id uuid.UUID) models.User {
	var user models.User
	_ = m.with(func(s *state) error {
		user = s.users[id]
		return nil
	})
	return user
}

// Order снимок заказа.
func (m *MemStore) Order(id uuid.UUID) models.Order {
	var order models.Order
	_ = m.with(func(s *state) error {
		order = s.orders[id]
		return nil
	})
	return order
}

// Bid снимок отклика.
func (m *MemStore) Bid(id uuid.UUID) models.Bid {
	var bid models.Bid
	_ = m.with(func(s *state) error {
		bid = s.bids[id]
		return nil
	})
	return bid
}

// LedgerEntries все записи журнала пользователя в порядке добавления.
func (m *MemStore) LedgerEntries(userID uuid.UUID) []models.LedgerEntry {
	var out []models.LedgerEntry
	_ = m.with(func(s *state) error {
		for _, e := range s.ledger {
			if e.UserID == userID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out
}

// AssignedFreelancer исполнитель по таблице назначений.
func (m *MemStore) AssignedFreelancer(orderID uuid.UUID) (uuid.UUID, bool) {
	var (
		id uuid.UUID
		ok bool
	)
	_ = m.with(func(s *state) error {
		a, found := s.assignments[orderID]
		id, ok = a.FreelancerID, found
		return nil
	})
	return id, ok
}

// ---- users

type UserRepo struct{ m *MemStore }

func (r *UserRepo) Create(_ context.Context, user *models.User) error {
	return r.m.with(func(s *state) error {
		for _, u := range s.users {
			if strings.EqualFold(u.Email, user.Email) {
				return repository.ErrAlreadyExists
			}
		}
		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}
		user.Balance = decimal.Zero
		user.CreatedAt, user.UpdatedAt = time.Now(), time.Now()
		s.users[user.ID] = *user
		return nil
	})
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	var out *models.User
	err := r.m.with(func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.m.with(func(s *state) error {
		for _, u := range s.users {
			if strings.EqualFold(u.Email, email) {
				u := u
				out = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *UserRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var all []models.User
	_ = r.m.with(func(s *state) error {
		for _, u := range s.users {
			if filter.Role != "" && u.Role != filter.Role {
				continue
			}
			if filter.ExcludeBanned && u.Banned {
				continue
			}
			if filter.Search == "" || strings.Contains(strings.ToLower(u.Email+" "+u.Name), strings.ToLower(filter.Search)) {
				all = append(all, u)
			}
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, filter.Limit, filter.Offset), len(all), nil
}

func (r *UserRepo) update(id uuid.UUID, fn func(u *models.User)) error {
	return r.m.with(func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		fn(&u)
		u.UpdatedAt = time.Now()
		s.users[id] = u
		return nil
	})
}

func (r *UserRepo) UpdateRole(_ context.Context, id uuid.UUID, role valueobject.Role) error {
	return r.update(id, func(u *models.User) { u.Role = role })
}

func (r *UserRepo) SetBanned(_ context.Context, id uuid.UUID, banned bool) error {
	return r.update(id, func(u *models.User) { u.Banned = banned })
}

func (r *UserRepo) UpdateRating(_ context.Context, id uuid.UUID, rating decimal.NullDecimal) error {
	return r.update(id, func(u *models.User) { u.Rating = rating })
}

func (r *UserRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.m.with(func(s *state) error {
		if _, ok := s.users[id]; !ok {
			return repository.ErrNotFound
		}
		delete(s.users, id)
		return nil
	})
}

// ---- ledger

type LedgerRepo struct{ m *MemStore }

func (r *LedgerRepo) GetBalance(_ context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.m.with(func(s *state) error {
		u, ok := s.users[userID]
		if !ok {
			return repository.ErrNotFound
		}
		balance = u.Balance
		return nil
	})
	return balance, err
}

func (r *LedgerRepo) Debit(_ context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.m.with(func(s *state) error {
		if err := r.m.fail("ledger.Debit"); err != nil {
			return err
		}
		u, ok := s.users[userID]
		if !ok {
			return repository.ErrNotFound
		}
		if u.Balance.LessThan(amount) {
			return repository.ErrInsufficientFunds
		}
		u.Balance = u.Balance.Sub(amount)
		s.users[userID] = u
		balance = u.Balance
		return nil
	})
	return balance, err
}

func (r *LedgerRepo) Credit(_ context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.m.with(func(s *state) error {
		u, ok := s.users[userID]
		if !ok {
			return repository.ErrNotFound
		}
		u.Balance = u.Balance.Add(amount)
		s.users[userID] = u
		balance = u.Balance
		return nil
	})
	return balance, err
}

func (r *LedgerRepo) AddEntry(_ context.Context, entry *models.LedgerEntry) error {
	return r.m.with(func(s *state) error {
		entry.CreatedAt = time.Now()
		s.ledger = append(s.ledger, *entry)
		return nil
	})
}

func (r *LedgerRepo) ListEntries(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	_ = r.m.with(func(s *state) error {
		for i := len(s.ledger) - 1; i >= 0; i-- {
			if s.ledger[i].UserID == userID {
				out = append(out, s.ledger[i])
			}
		}
		return nil
	})
	return page(out, limit, offset), nil
}

// ---- orders

type OrderRepo struct{ m *MemStore }

func (r *OrderRepo) Create(_ context.Context, order *models.Order) error {
	return r.m.with(func(s *state) error {
		if _, ok := s.users[order.ClientID]; !ok {
			return repository.ErrInvalidInput
		}
		if order.ID == uuid.Nil {
			order.ID = uuid.New()
		}
		order.CreatedAt, order.UpdatedAt = time.Now(), time.Now()
		s.orders[order.ID] = *order
		return nil
	})
}

func (r *OrderRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	var out *models.Order
	err := r.m.with(func(s *state) error {
		o, ok := s.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *OrderRepo) Update(_ context.Context, order *models.Order) error {
	return r.m.with(func(s *state) error {
		if err := r.m.fail("orders.Update"); err != nil {
			return err
		}
		o, ok := s.orders[order.ID]
		if !ok {
			return repository.ErrNotFound
		}
		o.FreelancerID = order.FreelancerID
		o.Budget = order.Budget
		o.FundedAmount = order.FundedAmount
		o.Status = order.Status
		o.UpdatedAt = time.Now()
		order.UpdatedAt = o.UpdatedAt
		s.orders[order.ID] = o
		return nil
	})
}

func (r *OrderRepo) List(_ context.Context, filter models.OrderFilter) (*models.OrderList, error) {
	var items []models.OrderListItem
	_ = r.m.with(func(s *state) error {
		for _, o := range s.orders {
			if filter.Status != "" && o.Status != filter.Status {
				continue
			}
			if filter.CategoryID != nil && o.CategoryID != *filter.CategoryID {
				continue
			}
			if filter.ClientID != nil && o.ClientID != *filter.ClientID {
				continue
			}
			skills := s.skillNames(o.ID)
			if filter.Skill != "" && !contains(skills, filter.Skill) {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(o.Title+" "+o.Description), strings.ToLower(filter.Search)) {
				continue
			}
			client := s.users[o.ClientID]
			count := 0
			for _, b := range s.bids {
				if b.OrderID == o.ID {
					count++
				}
			}
			items = append(items, models.OrderListItem{Order: o, Client: client.Public(), Skills: skills, BidsCount: count})
		}
		return nil
	})
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })

	total := len(items)
	paged := page(items, filter.Limit, filter.Offset)
	if paged == nil {
		paged = []models.OrderListItem{}
	}
	return &models.OrderList{
		Orders:  paged,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: filter.Offset+len(paged) < total,
	}, nil
}

func (s *state) skillNames(orderID uuid.UUID) []string {
	names := []string{}
	for _, id := range s.orderSkills[orderID] {
		for _, skill := range s.skills {
			if skill.ID == id {
				names = append(names, skill.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func (r *OrderRepo) SetSkills(_ context.Context, orderID uuid.UUID, skillIDs []uuid.UUID) error {
	return r.m.with(func(s *state) error {
		s.orderSkills[orderID] = append(s.orderSkills[orderID], skillIDs...)
		return nil
	})
}

func (r *OrderRepo) Skills(_ context.Context, orderID uuid.UUID) ([]string, error) {
	var out []string
	_ = r.m.with(func(s *state) error {
		out = s.skillNames(orderID)
		return nil
	})
	return out, nil
}

func (r *OrderRepo) AddFiles(_ context.Context, files []models.OrderFile) error {
	return r.m.with(func(s *state) error {
		if err := r.m.fail("orders.AddFiles"); err != nil {
			return err
		}
		for _, f := range files {
			f.CreatedAt = time.Now()
			s.files = append(s.files, f)
		}
		return nil
	})
}

func (r *OrderRepo) Files(_ context.Context, orderID uuid.UUID) ([]models.OrderFile, error) {
	var out []models.OrderFile
	_ = r.m.with(func(s *state) error {
		for _, f := range s.files {
			if f.OrderID == orderID {
				out = append(out, f)
			}
		}
		return nil
	})
	return out, nil
}

// ---- history

type HistoryRepo struct{ m *MemStore }

func (r *HistoryRepo) Add(_ context.Context, entry *models.OrderHistory) error {
	return r.m.with(func(s *state) error {
		entry.CreatedAt = time.Now()
		s.history = append(s.history, *entry)
		return nil
	})
}

func (r *HistoryRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	var out []models.OrderHistory
	_ = r.m.with(func(s *state) error {
		for _, h := range s.history {
			if h.OrderID == orderID {
				out = append(out, h)
			}
		}
		return nil
	})
	return out, nil
}

// ---- bids

type BidRepo struct{ m *MemStore }

func (r *BidRepo) Create(_ context.Context, bid *models.Bid) error {
	return r.m.with(func(s *state) error {
		for _, b := range s.bids {
			if b.OrderID == bid.OrderID && b.FreelancerID == bid.FreelancerID {
				return repository.ErrAlreadyExists
			}
		}
		if _, ok := s.orders[bid.OrderID]; !ok {
			return repository.ErrInvalidInput
		}
		bid.CreatedAt, bid.UpdatedAt = time.Now(), time.Now()
		s.bids[bid.ID] = *bid
		return nil
	})
}

func (r *BidRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Bid, error) {
	var out *models.Bid
	err := r.m.with(func(s *state) error {
		b, ok := s.bids[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *BidRepo) GetByOrderAndFreelancer(_ context.Context, orderID, freelancerID uuid.UUID) (*models.Bid, error) {
	var out *models.Bid
	err := r.m.with(func(s *state) error {
		for _, b := range s.bids {
			if b.OrderID == orderID && b.FreelancerID == freelancerID {
				b := b
				out = &b
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *BidRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.BidWithFreelancer, error) {
	var out []models.BidWithFreelancer
	_ = r.m.with(func(s *state) error {
		for _, b := range s.bids {
			if b.OrderID == orderID {
				u := s.users[b.FreelancerID]
				out = append(out, models.BidWithFreelancer{Bid: b, Freelancer: u.Public()})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *BidRepo) ListByFreelancer(_ context.Context, freelancerID uuid.UUID) ([]models.Bid, error) {
	var out []models.Bid
	_ = r.m.with(func(s *state) error {
		for _, b := range s.bids {
			if b.FreelancerID == freelancerID {
				out = append(out, b)
			}
		}
		return nil
	})
	return out, nil
}

func (r *BidRepo) CountByOrder(_ context.Context, orderID uuid.UUID) (int, error) {
	count := 0
	_ = r.m.with(func(s *state) error {
		for _, b := range s.bids {
			if b.OrderID == orderID {
				count++
			}
		}
		return nil
	})
	return count, nil
}

func (r *BidRepo) UpdateStatus(_ context.Context, bid *models.Bid) error {
	return r.m.with(func(s *state) error {
		b, ok := s.bids[bid.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if bid.Status == valueobject.BidStatusAccepted {
			for _, other := range s.bids {
				if other.OrderID == b.OrderID && other.ID != b.ID && other.Status == valueobject.BidStatusAccepted {
					return repository.ErrAlreadyExists
				}
			}
		}
		b.Status = bid.Status
		b.UpdatedAt = time.Now()
		bid.UpdatedAt = b.UpdatedAt
		s.bids[bid.ID] = b
		return nil
	})
}

func (r *BidRepo) RejectOthers(_ context.Context, orderID, acceptedID uuid.UUID) ([]models.Bid, error) {
	var rejected []models.Bid
	err := r.m.with(func(s *state) error {
		if err := r.m.fail("bids.RejectOthers"); err != nil {
			return err
		}
		for id, b := range s.bids {
			if b.OrderID == orderID && id != acceptedID && b.Status == valueobject.BidStatusPending {
				b.Status = valueobject.BidStatusRejected
				b.UpdatedAt = time.Now()
				s.bids[id] = b
				rejected = append(rejected, b)
			}
		}
		return nil
	})
	return rejected, err
}

// ---- assignments

type AssignmentRepo struct{ m *MemStore }

func (r *AssignmentRepo) Upsert(_ context.Context, orderID, freelancerID uuid.UUID) (*models.Assignment, error) {
	var out models.Assignment
	err := r.m.with(func(s *state) error {
		if _, ok := s.orders[orderID]; !ok {
			return repository.ErrInvalidInput
		}
		a, ok := s.assignments[orderID]
		if !ok {
			a = models.Assignment{OrderID: orderID, CreatedAt: time.Now()}
		}
		a.FreelancerID = freelancerID
		a.UpdatedAt = time.Now()
		s.assignments[orderID] = a
		out = a
		return nil
	})
	return &out, err
}

func (r *AssignmentRepo) FreelancerFor(_ context.Context, orderID uuid.UUID) (uuid.UUID, bool, error) {
	var (
		id uuid.UUID
		ok bool
	)
	_ = r.m.with(func(s *state) error {
		a, found := s.assignments[orderID]
		id, ok = a.FreelancerID, found
		return nil
	})
	return id, ok, nil
}

func (r *AssignmentRepo) OrdersFor(_ context.Context, freelancerID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	_ = r.m.with(func(s *state) error {
		for orderID, a := range s.assignments {
			if a.FreelancerID == freelancerID {
				out = append(out, s.orders[orderID])
			}
		}
		return nil
	})
	return out, nil
}

func (r *AssignmentRepo) Delete(_ context.Context, orderID uuid.UUID) error {
	return r.m.with(func(s *state) error {
		delete(s.assignments, orderID)
		return nil
	})
}

// ---- disputes

type DisputeRepo struct{ m *MemStore }

func (r *DisputeRepo) Create(_ context.Context, dispute *models.Dispute) error {
	return r.m.with(func(s *state) error {
		for _, d := range s.disputes {
			if d.OrderID == dispute.OrderID && d.Status.IsActive() {
				return repository.ErrAlreadyExists
			}
		}
		dispute.CreatedAt, dispute.UpdatedAt = time.Now(), time.Now()
		s.disputes[dispute.ID] = *dispute
		return nil
	})
}

func (r *DisputeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Dispute, error) {
	var out *models.Dispute
	err := r.m.with(func(s *state) error {
		d, ok := s.disputes[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &d
		return nil
	})
	return out, err
}

func (r *DisputeRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return r.GetByID(ctx, id)
}

func (r *DisputeRepo) ActiveForOrder(_ context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var out *models.Dispute
	err := r.m.with(func(s *state) error {
		for _, d := range s.disputes {
			if d.OrderID == orderID && d.Status.IsActive() {
				d := d
				out = &d
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *DisputeRepo) Update(_ context.Context, dispute *models.Dispute) error {
	return r.m.with(func(s *state) error {
		if _, ok := s.disputes[dispute.ID]; !ok {
			return repository.ErrNotFound
		}
		dispute.UpdatedAt = time.Now()
		s.disputes[dispute.ID] = *dispute
		return nil
	})
}

func (r *DisputeRepo) List(_ context.Context, limit, offset int) ([]models.Dispute, int, error) {
	var all []models.Dispute
	_ = r.m.with(func(s *state) error {
		for _, d := range s.disputes {
			all = append(all, d)
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), len(all), nil
}

// ---- reviews

type ReviewRepo struct{ m *MemStore }

func (r *ReviewRepo) Create(_ context.Context, review *models.Review) error {
	return r.m.with(func(s *state) error {
		for _, rv := range s.reviews {
			if rv.OrderID == review.OrderID && rv.AuthorID == review.AuthorID {
				return repository.ErrAlreadyExists
			}
		}
		review.CreatedAt = time.Now()
		s.reviews[review.ID] = *review
		return nil
	})
}

func (r *ReviewRepo) ExistsByOrderAndAuthor(_ context.Context, orderID, authorID uuid.UUID) (bool, error) {
	exists := false
	_ = r.m.with(func(s *state) error {
		for _, rv := range s.reviews {
			if rv.OrderID == orderID && rv.AuthorID == authorID {
				exists = true
			}
		}
		return nil
	})
	return exists, nil
}

func (r *ReviewRepo) AverageRating(_ context.Context, targetID uuid.UUID) (decimal.NullDecimal, error) {
	var (
		sum   int64
		count int64
	)
	_ = r.m.with(func(s *state) error {
		for _, rv := range s.reviews {
			if rv.TargetID == targetID {
				sum += int64(rv.Rating)
				count++
			}
		}
		return nil
	})
	if count == 0 {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(decimal.NewFromInt(sum).Div(decimal.NewFromInt(count))), nil
}

func (r *ReviewRepo) ListByTarget(_ context.Context, targetID uuid.UUID) ([]models.Review, error) {
	var out []models.Review
	_ = r.m.with(func(s *state) error {
		for _, rv := range s.reviews {
			if rv.TargetID == targetID {
				out = append(out, rv)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---- catalog

type CatalogRepo struct{ m *MemStore }

func (r *CatalogRepo) ListCategories(_ context.Context) ([]models.Category, error) {
	var out []models.Category
	_ = r.m.with(func(s *state) error {
		for _, c := range s.categories {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CatalogRepo) GetCategoryByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	var out *models.Category
	err := r.m.with(func(s *state) error {
		c, ok := s.categories[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *CatalogRepo) ListSkills(_ context.Context) ([]models.Skill, error) {
	var out []models.Skill
	_ = r.m.with(func(s *state) error {
		for _, skill := range s.skills {
			out = append(out, skill)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CatalogRepo) EnsureSkills(_ context.Context, names []string) ([]models.Skill, error) {
	var out []models.Skill
	_ = r.m.with(func(s *state) error {
		for _, name := range names {
			skill, ok := s.skills[name]
			if !ok {
				skill = models.Skill{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
				s.skills[name] = skill
			}
			out = append(out, skill)
		}
		return nil
	})
	return out, nil
}

// ---- notifications

type NotificationRepo struct{ m *MemStore }

func (r *NotificationRepo) Create(_ context.Context, n *models.Notification) error {
	return r.m.with(func(s *state) error {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		n.CreatedAt = time.Now()
		s.notifications[n.ID] = *n
		return nil
	})
}

func (r *NotificationRepo) List(_ context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	var out []models.Notification
	_ = r.m.with(func(s *state) error {
		for _, n := range s.notifications {
			if n.UserID == userID && (!unreadOnly || !n.IsRead) {
				out = append(out, n)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *NotificationRepo) MarkAsRead(_ context.Context, id, userID uuid.UUID) error {
	return r.m.with(func(s *state) error {
		n, ok := s.notifications[id]
		if !ok || n.UserID != userID {
			return repository.ErrNotFound
		}
		n.IsRead = true
		s.notifications[id] = n
		return nil
	})
}

func (r *NotificationRepo) MarkAllAsRead(_ context.Context, userID uuid.UUID) error {
	return r.m.with(func(s *state) error {
		for id, n := range s.notifications {
			if n.UserID == userID {
				n.IsRead = true
				s.notifications[id] = n
			}
		}
		return nil
	})
}

func (r *NotificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	_ = r.m.with(func(s *state) error {
		for _, n := range s.notifications {
			if n.UserID == userID && !n.IsRead {
				count++
			}
		}
		return nil
	})
	return count, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
