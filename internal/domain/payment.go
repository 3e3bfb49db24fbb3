package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethodType описывает вид сохранённого способа оплаты.
type PaymentMethodType string

const (
	// PaymentMethodCreditCard — кредитная карта.
	PaymentMethodCreditCard PaymentMethodType = "credit_card"
	// PaymentMethodDebitCard — дебетовая карта.
	PaymentMethodDebitCard PaymentMethodType = "debit_card"
	// PaymentMethodPayPal — аккаунт PayPal.
	PaymentMethodPayPal PaymentMethodType = "paypal"
	// PaymentMethodWallet — внутренний кошелёк магазина.
	PaymentMethodWallet PaymentMethodType = "wallet"
)

// Valid проверяет, что тип относится к поддерживаемым значениям.
func (t PaymentMethodType) Valid() bool {
	switch t {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal, PaymentMethodWallet:
		return true
	default:
		return false
	}
}

// IsCard сообщает, требует ли тип реквизитов карты.
func (t PaymentMethodType) IsCard() bool {
	return t == PaymentMethodCreditCard || t == PaymentMethodDebitCard
}

// PaymentMethod описывает сохранённый способ оплаты.
type PaymentMethod struct {
	ID             string            `json:"id"`
	Type           PaymentMethodType `json:"type"`
	IsDefault      bool              `json:"is_default"`
	CreatedAt      time.Time         `json:"created_at"`
	CardBrand      string            `json:"card_brand,omitempty"`
	CardLast4      string            `json:"card_last4,omitempty"`
	CardholderName string            `json:"cardholder_name,omitempty"`
	ExpiryMonth    int               `json:"expiry_month,omitempty"`
	ExpiryYear     int               `json:"expiry_year,omitempty"`
	PayPalEmail    string            `json:"paypal_email,omitempty"`
	// WalletBalance заполняется при чтении для методов типа wallet и не хранится.
	WalletBalance *decimal.Decimal `json:"wallet_balance,omitempty"`
}

// PaymentMethodInput — данные для добавления способа оплаты.
type PaymentMethodInput struct {
	Type           PaymentMethodType `json:"type"`
	IsDefault      bool              `json:"is_default"`
	CardBrand      string            `json:"card_brand,omitempty"`
	CardLast4      string            `json:"card_last4,omitempty"`
	CardholderName string            `json:"cardholder_name,omitempty"`
	ExpiryMonth    int               `json:"expiry_month,omitempty"`
	ExpiryYear     int               `json:"expiry_year,omitempty"`
	PayPalEmail    string            `json:"paypal_email,omitempty"`
}

// PaymentMethodPatch — частичное обновление; тип способа оплаты менять нельзя.
type PaymentMethodPatch struct {
	IsDefault      *bool   `json:"is_default,omitempty"`
	CardBrand      *string `json:"card_brand,omitempty"`
	CardholderName *string `json:"cardholder_name,omitempty"`
	ExpiryMonth    *int    `json:"expiry_month,omitempty"`
	ExpiryYear     *int    `json:"expiry_year,omitempty"`
	PayPalEmail    *string `json:"paypal_email,omitempty"`
}

// NewPaymentMethod строит запись из входных данных без ID и времени создания.
func (in PaymentMethodInput) NewPaymentMethod() PaymentMethod {
	return PaymentMethod{
		Type:           in.Type,
		IsDefault:      in.IsDefault,
		CardBrand:      strings.TrimSpace(in.CardBrand),
		CardLast4:      strings.TrimSpace(in.CardLast4),
		CardholderName: strings.TrimSpace(in.CardholderName),
		ExpiryMonth:    in.ExpiryMonth,
		ExpiryYear:     in.ExpiryYear,
		PayPalEmail:    strings.TrimSpace(in.PayPalEmail),
	}
}

// Apply возвращает копию способа оплаты с применённым патчем.
func (p PaymentMethodPatch) Apply(m PaymentMethod) PaymentMethod {
	if p.IsDefault != nil {
		m.IsDefault = *p.IsDefault
	}
	if p.CardBrand != nil {
		m.CardBrand = strings.TrimSpace(*p.CardBrand)
	}
	if p.CardholderName != nil {
		m.CardholderName = strings.TrimSpace(*p.CardholderName)
	}
	if p.ExpiryMonth != nil {
		m.ExpiryMonth = *p.ExpiryMonth
	}
	if p.ExpiryYear != nil {
		m.ExpiryYear = *p.ExpiryYear
	}
	if p.PayPalEmail != nil {
		m.PayPalEmail = strings.TrimSpace(*p.PayPalEmail)
	}
	return m
}

// Validate проверяет поля способа оплаты относительно момента now.
func (m *PaymentMethod) Validate(now time.Time) []error {
	var errs []error

	if !m.Type.Valid() {
		return append(errs, ErrPaymentMethodTypeInvalid)
	}

	switch {
	case m.Type.IsCard():
		if m.CardBrand == "" {
			errs = append(errs, ErrCardBrandRequired)
		}
		if !isFourDigits(m.CardLast4) {
			errs = append(errs, ErrCardLast4Invalid)
		}
		if m.CardholderName == "" {
			errs = append(errs, ErrCardholderRequired)
		}
		if m.ExpiryMonth < 1 || m.ExpiryMonth > 12 {
			errs = append(errs, ErrExpiryMonthInvalid)
		}
		if m.ExpiryYear < 2000 || m.ExpiryYear > 9999 {
			errs = append(errs, ErrExpiryYearInvalid)
		}
		if len(errs) == 0 && m.Expired(now) {
			errs = append(errs, ErrCardExpired)
		}
	case m.Type == PaymentMethodPayPal:
		if !strings.Contains(m.PayPalEmail, "@") {
			errs = append(errs, ErrPayPalEmailRequired)
		}
	}

	return errs
}

// Expired сообщает, истёк ли срок действия карты к моменту now (карта действует до конца месяца).
func (m *PaymentMethod) Expired(now time.Time) bool {
	if !m.Type.IsCard() {
		return false
	}
	endOfValidity := time.Date(m.ExpiryYear, time.Month(m.ExpiryMonth)+1, 1, 0, 0, 0, 0, time.UTC)
	return !now.UTC().Before(endOfValidity)
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
