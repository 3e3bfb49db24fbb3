package domain

import (
	"strings"
	"time"
)

// AddressType задаёт назначение адреса.
type AddressType string

const (
	// AddressTypeShipping — адрес доставки.
	AddressTypeShipping AddressType = "shipping"
	// AddressTypeBilling — платёжный адрес.
	AddressTypeBilling AddressType = "billing"
	// AddressTypeBoth — адрес входит и в доставку, и в биллинг.
	AddressTypeBoth AddressType = "both"
)

// Valid проверяет, что тип относится к поддерживаемым значениям.
func (t AddressType) Valid() bool {
	switch t {
	case AddressTypeShipping, AddressTypeBilling, AddressTypeBoth:
		return true
	default:
		return false
	}
}

// Overlaps сообщает, пересекаются ли разделы двух типов: равные типы или любой из них both.
func (t AddressType) Overlaps(other AddressType) bool {
	return t == other || t == AddressTypeBoth || other == AddressTypeBoth
}

// Address — адрес доставки/оплаты пользователя.
type Address struct {
	ID           string      `json:"id"`
	FullName     string      `json:"full_name"`
	Phone        string      `json:"phone"`
	AddressLine1 string      `json:"address_line1"`
	AddressLine2 string      `json:"address_line2,omitempty"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	ZipCode      string      `json:"zip_code"`
	Country      string      `json:"country"`
	Type         AddressType `json:"type"`
	IsDefault    bool        `json:"is_default"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// AddressInput — данные для создания адреса.
type AddressInput struct {
	FullName     string      `json:"full_name"`
	Phone        string      `json:"phone"`
	AddressLine1 string      `json:"address_line1"`
	AddressLine2 string      `json:"address_line2,omitempty"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	ZipCode      string      `json:"zip_code"`
	Country      string      `json:"country"`
	Type         AddressType `json:"type"`
	IsDefault    bool        `json:"is_default"`
}

// AddressPatch — частичное обновление адреса; nil-поля не меняются.
type AddressPatch struct {
	FullName     *string      `json:"full_name,omitempty"`
	Phone        *string      `json:"phone,omitempty"`
	AddressLine1 *string      `json:"address_line1,omitempty"`
	AddressLine2 *string      `json:"address_line2,omitempty"`
	City         *string      `json:"city,omitempty"`
	State        *string      `json:"state,omitempty"`
	ZipCode      *string      `json:"zip_code,omitempty"`
	Country      *string      `json:"country,omitempty"`
	Type         *AddressType `json:"type,omitempty"`
	IsDefault    *bool        `json:"is_default,omitempty"`
}

// NewAddress строит запись из входных данных без ID и временных меток.
func (in AddressInput) NewAddress() Address {
	return Address{
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		AddressLine1: strings.TrimSpace(in.AddressLine1),
		AddressLine2: strings.TrimSpace(in.AddressLine2),
		City:         strings.TrimSpace(in.City),
		State:        strings.TrimSpace(in.State),
		ZipCode:      strings.TrimSpace(in.ZipCode),
		Country:      strings.TrimSpace(in.Country),
		Type:         in.Type,
		IsDefault:    in.IsDefault,
	}
}

// Apply возвращает копию адреса с применённым патчем.
func (p AddressPatch) Apply(a Address) Address {
	if p.FullName != nil {
		a.FullName = strings.TrimSpace(*p.FullName)
	}
	if p.Phone != nil {
		a.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.AddressLine1 != nil {
		a.AddressLine1 = strings.TrimSpace(*p.AddressLine1)
	}
	if p.AddressLine2 != nil {
		a.AddressLine2 = strings.TrimSpace(*p.AddressLine2)
	}
	if p.City != nil {
		a.City = strings.TrimSpace(*p.City)
	}
	if p.State != nil {
		a.State = strings.TrimSpace(*p.State)
	}
	if p.ZipCode != nil {
		a.ZipCode = strings.TrimSpace(*p.ZipCode)
	}
	if p.Country != nil {
		a.Country = strings.TrimSpace(*p.Country)
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.IsDefault != nil {
		a.IsDefault = *p.IsDefault
	}
	return a
}

// Validate проверяет обязательные поля адреса.
func (a *Address) Validate() []error {
	var errs []error

	if a.FullName == "" {
		errs = append(errs, ErrFullNameRequired)
	}
	if a.Phone == "" {
		errs = append(errs, ErrPhoneRequired)
	}
	if a.AddressLine1 == "" {
		errs = append(errs, ErrAddressLineRequired)
	}
	if a.City == "" {
		errs = append(errs, ErrCityRequired)
	}
	if a.State == "" {
		errs = append(errs, ErrStateRequired)
	}
	if a.ZipCode == "" {
		errs = append(errs, ErrZipCodeRequired)
	}
	if a.Country == "" {
		errs = append(errs, ErrCountryRequired)
	}
	if !a.Type.Valid() {
		errs = append(errs, ErrAddressTypeInvalid)
	}

	return errs
}
