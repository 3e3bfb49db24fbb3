package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/events"
	"github.com/vladislavdragonenkov/storefront/internal/localstore"
	"github.com/vladislavdragonenkov/storefront/internal/service/state"
)

const managerName = "ledger"

// DefaultCurrency используется, если валюта не указана ни в записи, ни в конфигурации.
const DefaultCurrency = "USD"

// Ledger — журнал операций профиля: только добавление, новые записи в начале.
type Ledger struct {
	mu       sync.Mutex
	deps     state.Deps
	currency string
	items    []domain.Transaction
}

// New загружает журнал из хранилища профиля.
func New(deps state.Deps, currency string) *Ledger {
	deps = deps.ForManager(managerName)
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	items, _ := localstore.Load[[]domain.Transaction](deps.Store, domain.KeyTransactions)
	return &Ledger{deps: deps, currency: currency, items: items}
}

// Currency возвращает валюту журнала по умолчанию.
func (l *Ledger) Currency() string {
	return l.currency
}

// Record добавляет запись в начало журнала.
func (l *Ledger) Record(input domain.TransactionInput) (_ domain.Transaction, err error) {
	defer l.deps.Observe(managerName, "record", time.Now(), &err)

	tx := input.NewTransaction(l.currency)
	if err := domain.NewValidationError(tx.Validate()); err != nil {
		return domain.Transaction{}, err
	}

	l.mu.Lock()
	tx.ID = l.deps.NewID()
	tx.CreatedAt = l.deps.UTCNow()

	items := make([]domain.Transaction, 0, len(l.items)+1)
	items = append(items, tx)
	l.items = append(items, l.items...)

	err = localstore.Save(l.deps.Store, domain.KeyTransactions, l.items)
	count := len(l.items)
	l.mu.Unlock()

	l.deps.Publish(events.TopicTransactionRecorded, events.ActionRecorded, tx.ID, count)
	return tx, err
}

// Find ищет запись по ID.
func (l *Ledger) Find(id string) (domain.Transaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, tx := range l.items {
		if tx.ID == id {
			return tx, true
		}
	}
	return domain.Transaction{}, false
}

func (l *Ledger) FilterByType(t domain.TransactionType) []domain.Transaction {
	return l.filter(func(tx domain.Transaction) bool { return tx.Type == t })
}

func (l *Ledger) FilterByStatus(s domain.TransactionStatus) []domain.Transaction {
	return l.filter(func(tx domain.Transaction) bool { return tx.Status == s })
}

// List возвращает весь журнал, новые записи первыми.
func (l *Ledger) List() []domain.Transaction {
	return l.filter(func(domain.Transaction) bool { return true })
}

// Recent возвращает не больше limit последних записей; limit<=0 означает все.
func (l *Ledger) Recent(limit int) []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.items)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]domain.Transaction(nil), l.items[:n]...)
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// SumByTypeAndStatus суммирует записи заданного типа и статуса без конвертации валют.
func (l *Ledger) SumByTypeAndStatus(t domain.TransactionType, s domain.TransactionStatus) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	for _, tx := range l.items {
		if tx.Type == t && tx.Status == s {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

func (l *Ledger) TotalSpent() decimal.Decimal {
	return l.SumByTypeAndStatus(domain.TransactionPurchase, domain.TransactionCompleted)
}

func (l *Ledger) TotalRefunded() decimal.Decimal {
	return l.SumByTypeAndStatus(domain.TransactionRefund, domain.TransactionCompleted)
}

func (l *Ledger) TotalWalletTopUps() decimal.Decimal {
	return l.SumByTypeAndStatus(domain.TransactionWalletTopUp, domain.TransactionCompleted)
}

func (l *Ledger) TotalLotteryWinnings() decimal.Decimal {
	return l.SumByTypeAndStatus(domain.TransactionLotteryWin, domain.TransactionCompleted)
}

// Totals — агрегаты журнала по завершённым операциям.
type Totals struct {
	Spent           decimal.Decimal `json:"spent"`
	Refunded        decimal.Decimal `json:"refunded"`
	WalletTopUps    decimal.Decimal `json:"wallet_topups"`
	LotteryWinnings decimal.Decimal `json:"lottery_winnings"`
	Currency        string          `json:"currency"`
}

// Summary считает все агрегаты разом.
func (l *Ledger) Summary() Totals {
	return Totals{
		Spent:           l.TotalSpent(),
		Refunded:        l.TotalRefunded(),
		WalletTopUps:    l.TotalWalletTopUps(),
		LotteryWinnings: l.TotalLotteryWinnings(),
		Currency:        l.currency,
	}
}

func (l *Ledger) filter(keep func(domain.Transaction) bool) []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]domain.Transaction, 0, len(l.items))
	for _, tx := range l.items {
		if keep(tx) {
			result = append(result, tx)
		}
	}
	return result
}
