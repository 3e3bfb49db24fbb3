package profile

import (
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/addressbook"
	"github.com/vladislavdragonenkov/storefront/internal/service/ledger"
	"github.com/vladislavdragonenkov/storefront/internal/service/payments"
	"github.com/vladislavdragonenkov/storefront/internal/service/productset"
	"github.com/vladislavdragonenkov/storefront/internal/service/recency"
	"github.com/vladislavdragonenkov/storefront/internal/service/state"
)

const (
	defaultTopUpDescription   = "Wallet top-up"
	defaultPaymentDescription = "Wallet payment"
)

// Profile объединяет менеджеры состояния одного профиля.
type Profile struct {
	ID string

	Addresses      *addressbook.Book
	Payments       *payments.Manager
	Ledger         *ledger.Ledger
	Comparison     *productset.Set
	Wishlist       *productset.Set
	RecentlyViewed *recency.RecentlyViewed
	SearchHistory  *recency.SearchHistory

	// walletMu упорядочивает пару "операция с кошельком + запись в журнал".
	walletMu sync.Mutex
}

func newProfile(id string, deps state.Deps, limits Limits, currency string) *Profile {
	return &Profile{
		ID:             id,
		Addresses:      addressbook.New(deps),
		Payments:       payments.New(deps),
		Ledger:         ledger.New(deps, currency),
		Comparison:     productset.New(deps, productset.Comparison, limits.Comparison),
		Wishlist:       productset.New(deps, productset.Wishlist, limits.Wishlist),
		RecentlyViewed: recency.NewRecentlyViewed(deps, limits.RecentlyViewed),
		SearchHistory:  recency.NewSearchHistory(deps, limits.SearchHistory),
	}
}

// WalletPayment — входные данные оплаты кошельком.
type WalletPayment struct {
	Amount      decimal.Decimal `json:"amount"`
	OrderID     string          `json:"order_id,omitempty"`
	Description string          `json:"description,omitempty"`
	ProductIDs  []string        `json:"product_ids,omitempty"`
}

// TopUpWallet пополняет кошелёк и записывает операцию wallet_topup в журнал.
// Сбой хранилища не отменяет ни пополнение, ни запись: ошибки объединяются.
func (p *Profile) TopUpWallet(amount decimal.Decimal, description string) (decimal.Decimal, domain.Transaction, error) {
	p.walletMu.Lock()
	defer p.walletMu.Unlock()

	balance, topUpErr := p.Payments.TopUp(amount)
	if topUpErr != nil && !errors.Is(topUpErr, domain.ErrStorageUnavailable) {
		return decimal.Decimal{}, domain.Transaction{}, topUpErr
	}

	tx, recordErr := p.Ledger.Record(domain.TransactionInput{
		Type:        domain.TransactionWalletTopUp,
		Status:      domain.TransactionCompleted,
		Amount:      amount,
		Description: describe(description, defaultTopUpDescription),
	})
	return balance, tx, errors.Join(topUpErr, recordErr)
}

// PayWithWallet списывает сумму с кошелька и записывает покупку.
// При нехватке средств баланс не меняется, а покупка записывается со статусом failed.
func (p *Profile) PayWithWallet(payment WalletPayment) (bool, domain.Transaction, error) {
	p.walletMu.Lock()
	defer p.walletMu.Unlock()

	ok, deductErr := p.Payments.Deduct(payment.Amount)
	if deductErr != nil && !errors.Is(deductErr, domain.ErrStorageUnavailable) {
		return false, domain.Transaction{}, deductErr
	}

	status := domain.TransactionCompleted
	if !ok {
		status = domain.TransactionFailed
	}

	input := domain.TransactionInput{
		Type:        domain.TransactionPurchase,
		Status:      status,
		Amount:      payment.Amount,
		Description: describe(payment.Description, defaultPaymentDescription),
		OrderID:     payment.OrderID,
		ProductIDs:  payment.ProductIDs,
	}
	if wallets := p.Payments.ListByType(domain.PaymentMethodWallet); len(wallets) > 0 {
		input.PaymentMethodID = wallets[0].ID
	}

	tx, recordErr := p.Ledger.Record(input)
	return ok, tx, errors.Join(deductErr, recordErr)
}

// Snapshot — сводка состояния профиля.
type Snapshot struct {
	ProfileID string `json:"profile_id"`

	Addresses                int    `json:"addresses"`
	DefaultShippingAddressID string `json:"default_shipping_address_id,omitempty"`
	DefaultBillingAddressID  string `json:"default_billing_address_id,omitempty"`

	PaymentMethods         int             `json:"payment_methods"`
	DefaultPaymentMethodID string          `json:"default_payment_method_id,omitempty"`
	WalletBalance          decimal.Decimal `json:"wallet_balance"`

	Transactions int           `json:"transactions"`
	Totals       ledger.Totals `json:"totals"`

	Comparison         int `json:"comparison"`
	ComparisonCapacity int `json:"comparison_capacity"`
	Wishlist           int `json:"wishlist"`
	RecentlyViewed     int `json:"recently_viewed"`
	SearchHistory      int `json:"search_history"`
}

// Snapshot собирает сводку. Каждый менеджер читается под своей блокировкой,
// поэтому сводка не атомарна относительно параллельных изменений.
func (p *Profile) Snapshot() Snapshot {
	s := Snapshot{
		ProfileID:          p.ID,
		Addresses:          p.Addresses.Len(),
		PaymentMethods:     p.Payments.Len(),
		WalletBalance:      p.Payments.Balance(),
		Transactions:       p.Ledger.Len(),
		Totals:             p.Ledger.Summary(),
		Comparison:         p.Comparison.Len(),
		ComparisonCapacity: p.Comparison.Capacity(),
		Wishlist:           p.Wishlist.Len(),
		RecentlyViewed:     p.RecentlyViewed.Len(),
		SearchHistory:      p.SearchHistory.Len(),
	}
	if a, ok := p.Addresses.GetDefaultFor(domain.AddressTypeShipping); ok {
		s.DefaultShippingAddressID = a.ID
	}
	if a, ok := p.Addresses.GetDefaultFor(domain.AddressTypeBilling); ok {
		s.DefaultBillingAddressID = a.ID
	}
	if m, ok := p.Payments.GetDefault(); ok {
		s.DefaultPaymentMethodID = m.ID
	}
	return s
}

func describe(description, fallback string) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	return fallback
}
