package productset

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/events"
	"github.com/vladislavdragonenkov/storefront/internal/localstore"
	"github.com/vladislavdragonenkov/storefront/internal/service/state"
)

// DefaultComparisonLimit — сколько товаров можно сравнивать одновременно.
const DefaultComparisonLimit = 4

// Kind описывает конкретный набор: его ключ хранилища и топик событий.
type Kind struct {
	Name  string
	Key   domain.StorageKey
	Topic events.Topic
}

var (
	// Comparison — набор товаров для сравнения.
	Comparison = Kind{Name: "comparison", Key: domain.KeyComparison, Topic: events.TopicComparisonChanged}
	// Wishlist — список желаний.
	Wishlist = Kind{Name: "wishlist", Key: domain.KeyWishlist, Topic: events.TopicWishlistChanged}
)

// ToggleResult — исход изменения членства.
type ToggleResult string

const (
	Added     ToggleResult = "added"
	Removed   ToggleResult = "removed"
	Unchanged ToggleResult = "unchanged"
	// Rejected — набор заполнен, товар не добавлен.
	Rejected ToggleResult = "rejected"
)

// Set — упорядоченный набор снимков товаров, уникальных по ID.
// capacity 0 означает отсутствие ограничения.
type Set struct {
	mu       sync.Mutex
	deps     state.Deps
	kind     Kind
	capacity int
	items    []domain.Product
}

// New загружает набор из хранилища профиля.
func New(deps state.Deps, kind Kind, capacity int) *Set {
	deps = deps.ForManager(kind.Name)
	if capacity < 0 {
		capacity = 0
	}

	items, _ := localstore.Load[[]domain.Product](deps.Store, kind.Key)
	items = dedupe(items)
	if capacity > 0 && len(items) > capacity {
		deps.Logger.WithField("stored", len(items)).Warn("persisted set exceeds capacity, truncating")
		items = items[:capacity]
	}
	return &Set{deps: deps, kind: kind, capacity: capacity, items: items}
}

// Toggle добавляет отсутствующий товар или удаляет присутствующий.
// Если набор заполнен, возвращает Rejected и ничего не меняет.
func (s *Set) Toggle(product domain.Product) (_ ToggleResult, err error) {
	defer s.deps.Observe(s.kind.Name, "toggle", time.Now(), &err)

	product = product.Normalize()
	if err := domain.NewValidationError(product.Validate()); err != nil {
		return "", err
	}

	s.mu.Lock()
	if idx := s.indexOf(product.ID); idx >= 0 {
		return s.removeAtLocked(idx)
	}
	return s.addLocked(product)
}

// Add добавляет товар, если его ещё нет.
func (s *Set) Add(product domain.Product) (_ ToggleResult, err error) {
	defer s.deps.Observe(s.kind.Name, "add", time.Now(), &err)

	product = product.Normalize()
	if err := domain.NewValidationError(product.Validate()); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.indexOf(product.ID) >= 0 {
		s.mu.Unlock()
		return Unchanged, nil
	}
	return s.addLocked(product)
}

// Remove удаляет товар по ID.
func (s *Set) Remove(id string) (_ ToggleResult, err error) {
	defer s.deps.Observe(s.kind.Name, "remove", time.Now(), &err)

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return Unchanged, nil
	}
	return s.removeAtLocked(idx)
}

// Clear очищает набор.
func (s *Set) Clear() (err error) {
	defer s.deps.Observe(s.kind.Name, "clear", time.Now(), &err)

	s.mu.Lock()
	s.items = nil
	err = s.persist()
	s.mu.Unlock()

	s.deps.Publish(s.kind.Topic, events.ActionCleared, "", 0)
	return err
}

func (s *Set) IsMember(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

// Items возвращает копию содержимого в порядке добавления.
func (s *Set) Items() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Product, 0, len(s.items))
	for _, p := range s.items {
		result = append(result, p.Normalize())
	}
	return result
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Capacity возвращает лимит набора (0 — без лимита).
func (s *Set) Capacity() int {
	return s.capacity
}

// addLocked вызывается под s.mu и снимает блокировку.
func (s *Set) addLocked(product domain.Product) (ToggleResult, error) {
	if s.capacity > 0 && len(s.items) >= s.capacity {
		s.mu.Unlock()
		s.deps.Metrics.RecordCapacityRejection(s.kind.Name)
		s.deps.Logger.WithField("product_id", product.ID).Info("set is full, product rejected")
		return Rejected, nil
	}

	s.items = append(s.items, product)
	err := s.persist()
	count := len(s.items)
	s.mu.Unlock()

	s.deps.Publish(s.kind.Topic, events.ActionAdded, product.ID, count)
	return Added, err
}

// removeAtLocked вызывается под s.mu и снимает блокировку.
func (s *Set) removeAtLocked(idx int) (ToggleResult, error) {
	id := s.items[idx].ID
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	err := s.persist()
	count := len(s.items)
	s.mu.Unlock()

	s.deps.Publish(s.kind.Topic, events.ActionRemoved, id, count)
	return Removed, err
}

func (s *Set) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Set) persist() error {
	items := s.items
	if items == nil {
		items = []domain.Product{}
	}
	return localstore.Save(s.deps.Store, s.kind.Key, items)
}

func dedupe(items []domain.Product) []domain.Product {
	seen := make(map[string]struct{}, len(items))
	result := items[:0]
	for _, p := range items {
		if _, ok := seen[p.ID]; ok || p.ID == "" {
			continue
		}
		seen[p.ID] = struct{}{}
		result = append(result, p)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
