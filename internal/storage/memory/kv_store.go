package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// kvStoreInMemory — простая in-memory реализация KVStore для локальной разработки и тестов.
type kvStoreInMemory struct {
	mu    sync.RWMutex
	items map[string][]byte
	// failPut позволяет тестам имитировать переполнение квоты.
	failPut error
}

// Store расширяет KVStore служебными методами, нужными тестам.
type Store interface {
	domain.KVStore
	// Keys возвращает отсортированный список ключей с заданным префиксом.
	Keys(prefix string) []string
	// FailWrites заставляет Put возвращать err (nil снимает сбой).
	FailWrites(err error)
}

// NewKVStore возвращает пустое in-memory хранилище.
func NewKVStore() Store {
	return &kvStoreInMemory{
		items: make(map[string][]byte),
	}
}

// Get возвращает копию значения или ErrKeyNotFound.
func (s *kvStoreInMemory) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put сохраняет копию значения, чтобы избежать мутаций извне.
func (s *kvStoreInMemory) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPut != nil {
		return s.failPut
	}
	s.items[key] = append([]byte(nil), value...)
	return nil
}

func (s *kvStoreInMemory) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func (s *kvStoreInMemory) Ping(context.Context) error {
	return nil
}

func (s *kvStoreInMemory) Close() error {
	return nil
}

func (s *kvStoreInMemory) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *kvStoreInMemory) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut = err
}

var _ domain.KVStore = (*kvStoreInMemory)(nil)
