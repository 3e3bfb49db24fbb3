package domain

import "context"

// KVStore — байтовое key-value хранилище, заменяющее localStorage браузера.
type KVStore interface {
	// Get возвращает значение ключа или ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Put перезаписывает значение ключа.
	Put(key string, value []byte) error
	// Delete удаляет ключ; отсутствие ключа ошибкой не считается.
	Delete(key string) error
	// Ping проверяет доступность backend.
	Ping(ctx context.Context) error
	Close() error
}

// StorageKey — ключ, которым владеет ровно один менеджер.
type StorageKey string

const (
	KeyAddresses      StorageKey = "addresses"
	KeyPaymentMethods StorageKey = "payment_methods"
	KeyWalletBalance  StorageKey = "wallet_balance"
	KeyTransactions   StorageKey = "transactions"
	KeyComparison     StorageKey = "comparison"
	KeyWishlist       StorageKey = "wishlist"
	KeyRecentlyViewed StorageKey = "recently_viewed"
	KeySearchHistory  StorageKey = "search_history"
)

// AllStorageKeys перечисляет ключи профиля (используется при очистке и в тестах).
func AllStorageKeys() []StorageKey {
	return []StorageKey{
		KeyAddresses,
		KeyPaymentMethods,
		KeyWalletBalance,
		KeyTransactions,
		KeyComparison,
		KeyWishlist,
		KeyRecentlyViewed,
		KeySearchHistory,
	}
}
