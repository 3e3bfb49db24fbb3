package recency

import (
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/events"
	"github.com/vladislavdragonenkov/storefront/internal/localstore"
	"github.com/vladislavdragonenkov/storefront/internal/service/state"
)

const (
	// DefaultViewLimit — длина истории просмотров.
	DefaultViewLimit = 10
	// DefaultSearchLimit — длина истории поиска.
	DefaultSearchLimit = 5
)

// Cache — список "последние сверху" с дедупликацией по ключу и ограничением длины.
type Cache[T any] struct {
	mu       sync.Mutex
	deps     state.Deps
	name     string
	key      domain.StorageKey
	topic    events.Topic
	capacity int
	keyOf    func(T) string
	items    []T
}

// NewCache загружает кэш из хранилища профиля. capacity<=0 заменяется на 1.
func NewCache[T any](deps state.Deps, name string, key domain.StorageKey, topic events.Topic, capacity int, keyOf func(T) string) *Cache[T] {
	deps = deps.ForManager(name)
	if capacity <= 0 {
		capacity = 1
	}

	items, _ := localstore.Load[[]T](deps.Store, key)
	items = dedupe(items, keyOf)
	if len(items) > capacity {
		items = items[:capacity]
	}
	return &Cache[T]{
		deps:     deps,
		name:     name,
		key:      key,
		topic:    topic,
		capacity: capacity,
		keyOf:    keyOf,
		items:    items,
	}
}

// Touch переносит item в начало: удаляет равный элемент и обрезает хвост.
func (c *Cache[T]) Touch(item T) (err error) {
	defer c.deps.Observe(c.name, "touch", time.Now(), &err)

	k := c.keyOf(item)

	c.mu.Lock()
	next := make([]T, 0, c.capacity)
	next = append(next, item)
	for _, existing := range c.items {
		if len(next) == c.capacity {
			break
		}
		if c.keyOf(existing) != k {
			next = append(next, existing)
		}
	}
	c.items = next

	err = c.persist()
	count := len(c.items)
	c.mu.Unlock()

	c.deps.Publish(c.topic, events.ActionTouched, k, count)
	return err
}

// Remove удаляет элемент с ключом k; отсутствие элемента ошибкой не считается.
func (c *Cache[T]) Remove(k string) (removed bool, err error) {
	defer c.deps.Observe(c.name, "remove", time.Now(), &err)

	c.mu.Lock()
	idx := -1
	for i, existing := range c.items {
		if c.keyOf(existing) == k {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false, nil
	}
	c.items = append(c.items[:idx:idx], c.items[idx+1:]...)
	err = c.persist()
	count := len(c.items)
	c.mu.Unlock()

	c.deps.Publish(c.topic, events.ActionRemoved, k, count)
	return true, err
}

func (c *Cache[T]) Clear() (err error) {
	defer c.deps.Observe(c.name, "clear", time.Now(), &err)

	c.mu.Lock()
	c.items = nil
	err = c.persist()
	c.mu.Unlock()

	c.deps.Publish(c.topic, events.ActionCleared, "", 0)
	return err
}

// Items возвращает элементы, последние сверху.
func (c *Cache[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(make([]T, 0, len(c.items)), c.items...)
}

func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// dedupe оставляет первое (самое свежее) вхождение каждого ключа.
func dedupe[T any](items []T, keyOf func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	result := items[:0]
	for _, item := range items {
		k := keyOf(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, item)
	}
	return result
}

func (c *Cache[T]) Capacity() int {
	return c.capacity
}

func (c *Cache[T]) persist() error {
	items := c.items
	if items == nil {
		items = []T{}
	}
	return localstore.Save(c.deps.Store, c.key, items)
}

// RecentlyViewed — история просмотренных товаров, равенство по ID.
type RecentlyViewed struct {
	*Cache[domain.Product]
}

// NewRecentlyViewed создаёт историю просмотров ёмкостью capacity.
func NewRecentlyViewed(deps state.Deps, capacity int) *RecentlyViewed {
	return &RecentlyViewed{
		Cache: NewCache(deps, "recently_viewed", domain.KeyRecentlyViewed, events.TopicRecentlyViewedChanged, capacity,
			func(p domain.Product) string { return p.ID }),
	}
}

// RecordView запоминает просмотр товара.
func (r *RecentlyViewed) RecordView(product domain.Product) error {
	product = product.Normalize()
	if err := domain.NewValidationError(product.Validate()); err != nil {
		return err
	}
	return r.Touch(product)
}

// SearchHistory — история поисковых запросов; сравнение точное, с учётом регистра.
type SearchHistory struct {
	*Cache[string]
}

// NewSearchHistory создаёт историю поиска ёмкостью capacity.
func NewSearchHistory(deps state.Deps, capacity int) *SearchHistory {
	return &SearchHistory{
		Cache: NewCache(deps, "search_history", domain.KeySearchHistory, events.TopicSearchHistoryChanged, capacity,
			func(term string) string { return term }),
	}
}

// RecordSearch запоминает запрос. Пустые запросы игнорируются.
func (s *SearchHistory) RecordSearch(term string) (recorded bool, err error) {
	if strings.TrimSpace(term) == "" {
		return false, nil
	}
	return true, s.Touch(term)
}
