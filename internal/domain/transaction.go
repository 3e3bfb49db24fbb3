package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType описывает вид операции в журнале.
type TransactionType string

const (
	// TransactionPurchase — покупка товара (с лотерейным билетом в комплекте).
	TransactionPurchase TransactionType = "purchase"
	// TransactionWalletTopUp — пополнение кошелька.
	TransactionWalletTopUp TransactionType = "wallet_topup"
	// TransactionRefund — возврат средств.
	TransactionRefund TransactionType = "refund"
	// TransactionLotteryWin — выигрыш в розыгрыше.
	TransactionLotteryWin TransactionType = "lottery_win"
)

// Valid проверяет, что тип относится к поддерживаемым значениям.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionPurchase, TransactionWalletTopUp, TransactionRefund, TransactionLotteryWin:
		return true
	default:
		return false
	}
}

// TransactionStatus описывает состояние операции.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionPending   TransactionStatus = "pending"
	TransactionFailed    TransactionStatus = "failed"
	TransactionCancelled TransactionStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionCompleted, TransactionPending, TransactionFailed, TransactionCancelled:
		return true
	default:
		return false
	}
}

// Transaction — неизменяемая запись журнала операций.
type Transaction struct {
	ID          string            `json:"id"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`

	// Поля, специфичные для типа операции.
	OrderID         string   `json:"order_id,omitempty"`
	PaymentMethodID string   `json:"payment_method_id,omitempty"`
	LotteryDrawID   string   `json:"lottery_draw_id,omitempty"`
	TicketNumber    string   `json:"ticket_number,omitempty"`
	ProductIDs      []string `json:"product_ids,omitempty"`
}

// TransactionInput — данные для записи операции; ID и время назначает журнал.
type TransactionInput struct {
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status,omitempty"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency,omitempty"`
	Description     string            `json:"description"`
	OrderID         string            `json:"order_id,omitempty"`
	PaymentMethodID string            `json:"payment_method_id,omitempty"`
	LotteryDrawID   string            `json:"lottery_draw_id,omitempty"`
	TicketNumber    string            `json:"ticket_number,omitempty"`
	ProductIDs      []string          `json:"product_ids,omitempty"`
}

// NewTransaction строит запись из входных данных, подставляя статус и валюту по умолчанию.
func (in TransactionInput) NewTransaction(defaultCurrency string) Transaction {
	status := in.Status
	if status == "" {
		status = TransactionCompleted
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	return Transaction{
		Type:            in.Type,
		Status:          status,
		Amount:          in.Amount,
		Currency:        currency,
		Description:     strings.TrimSpace(in.Description),
		OrderID:         strings.TrimSpace(in.OrderID),
		PaymentMethodID: strings.TrimSpace(in.PaymentMethodID),
		LotteryDrawID:   strings.TrimSpace(in.LotteryDrawID),
		TicketNumber:    strings.TrimSpace(in.TicketNumber),
		ProductIDs:      append([]string(nil), in.ProductIDs...),
	}
}

// Validate проверяет запись перед добавлением в журнал.
func (t *Transaction) Validate() []error {
	var errs []error

	if !t.Type.Valid() {
		errs = append(errs, ErrTransactionTypeInvalid)
	}
	if !t.Status.Valid() {
		errs = append(errs, ErrTransactionStatusInvalid)
	}
	if t.Amount.IsNegative() {
		errs = append(errs, ErrAmountNegative)
	}
	if t.Description == "" {
		errs = append(errs, ErrDescriptionRequired)
	}

	return errs
}
