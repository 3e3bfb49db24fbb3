package domain

import (
	"errors"
	"strings"
)

var (
	// ErrKeyNotFound возвращается хранилищем, если ключ отсутствует.
	ErrKeyNotFound = errors.New("key not found")
	// ErrStorageUnavailable — запись в хранилище не удалась (квота, недоступность backend).
	// Состояние в памяти при этом остаётся авторитетным до конца сессии.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrMalformedPayload — сохранённые данные не удалось разобрать.
	ErrMalformedPayload = errors.New("malformed persisted payload")

	// ErrAddressNotFound возвращается, если адрес с таким ID не найден.
	ErrAddressNotFound = errors.New("address not found")
	// Ошибка отсутствующего имени получателя.
	ErrFullNameRequired = errors.New("full_name is required")
	// Ошибка отсутствующего телефона.
	ErrPhoneRequired = errors.New("phone is required")
	// Ошибка отсутствующей первой строки адреса.
	ErrAddressLineRequired = errors.New("address_line1 is required")
	// Ошибка отсутствующего города.
	ErrCityRequired = errors.New("city is required")
	// Ошибка отсутствующего региона/штата.
	ErrStateRequired = errors.New("state is required")
	// Ошибка отсутствующего почтового индекса.
	ErrZipCodeRequired = errors.New("zip_code is required")
	// Ошибка отсутствующей страны.
	ErrCountryRequired = errors.New("country is required")
	// ErrAddressTypeInvalid — тип адреса не shipping|billing|both.
	ErrAddressTypeInvalid = errors.New("address type must be shipping, billing or both")

	// ErrPaymentMethodNotFound возвращается, если способ оплаты не найден.
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	// ErrPaymentMethodTypeInvalid — неизвестный тип способа оплаты.
	ErrPaymentMethodTypeInvalid = errors.New("payment method type is invalid")
	// Ошибка отсутствующего бренда карты.
	ErrCardBrandRequired = errors.New("card_brand is required")
	// Ошибка некорректных последних цифр карты.
	ErrCardLast4Invalid = errors.New("card_last4 must be exactly 4 digits")
	// Ошибка отсутствующего имени держателя карты.
	ErrCardholderRequired = errors.New("cardholder_name is required")
	// Ошибка некорректного месяца окончания срока действия.
	ErrExpiryMonthInvalid = errors.New("expiry_month must be between 1 and 12")
	// Ошибка некорректного года окончания срока действия.
	ErrExpiryYearInvalid = errors.New("expiry_year is invalid")
	// ErrCardExpired — срок действия карты уже истёк.
	ErrCardExpired = errors.New("card is expired")
	// Ошибка отсутствующего e-mail PayPal.
	ErrPayPalEmailRequired = errors.New("paypal_email is required")

	// ErrAmountNotPositive — сумма пополнения/списания должна быть больше нуля.
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	// ErrAmountNegative — сумма транзакции не может быть отрицательной.
	ErrAmountNegative = errors.New("amount must be non-negative")

	// ErrTransactionNotFound возвращается, если транзакция не найдена в журнале.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionTypeInvalid — неизвестный тип транзакции.
	ErrTransactionTypeInvalid = errors.New("transaction type is invalid")
	// ErrTransactionStatusInvalid — неизвестный статус транзакции.
	ErrTransactionStatusInvalid = errors.New("transaction status is invalid")
	// Ошибка отсутствующего описания транзакции.
	ErrDescriptionRequired = errors.New("description is required")

	// Ошибка отсутствующего идентификатора товара.
	ErrProductIDRequired = errors.New("product id is required")
	// Ошибка отсутствующего названия товара.
	ErrProductNameRequired = errors.New("product name is required")
	// ErrProductPriceInvalid — цена товара отрицательная.
	ErrProductPriceInvalid = errors.New("product price must be non-negative")
	// ErrProductStockInvalid — остаток на складе отрицательный.
	ErrProductStockInvalid = errors.New("product stock_quantity must be non-negative")
	// ErrProductRatingInvalid — рейтинг вне диапазона 0..5.
	ErrProductRatingInvalid = errors.New("product rating must be between 0 and 5")

	// ErrProfileIDInvalid — идентификатор профиля пустой или содержит недопустимые символы.
	ErrProfileIDInvalid = errors.New("profile id is invalid")
)

// IsNotFound проверяет, относится ли ошибка к отсутствующей сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAddressNotFound) ||
		errors.Is(err, ErrPaymentMethodNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrKeyNotFound)
}

// ValidationError объединяет замечания валидации входных данных.
type ValidationError struct {
	Errs []error
}

// NewValidationError возвращает nil, если замечаний нет.
func NewValidationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errs: errs}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		parts = append(parts, err.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap позволяет проверять отдельные замечания через errors.Is.
func (e *ValidationError) Unwrap() []error {
	return e.Errs
}

// IsValidation проверяет, является ли ошибка ошибкой валидации.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
