package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product — снимок товара из внешнего каталога. Ядро только хранит и фильтрует такие снимки.
type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Images        []string         `json:"images,omitempty"`
	ImageURL      string           `json:"image_url,omitempty"`
	StockQuantity int              `json:"stock_quantity"`
	Rating        float64          `json:"rating"`
	ReviewCount   int              `json:"review_count"`
	Category      string           `json:"category"`
}

// Validate проверяет снимок товара на границе ядра.
func (p *Product) Validate() []error {
	var errs []error

	if strings.TrimSpace(p.ID) == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrProductPriceInvalid)
	}
	if p.OriginalPrice != nil && p.OriginalPrice.IsNegative() {
		errs = append(errs, ErrProductPriceInvalid)
	}
	if p.StockQuantity < 0 {
		errs = append(errs, ErrProductStockInvalid)
	}
	if p.Rating < 0 || p.Rating > 5 {
		errs = append(errs, ErrProductRatingInvalid)
	}

	return errs
}

// Normalize приводит два формата изображений каталога (images[] и image_url) к одному виду.
func (p Product) Normalize() Product {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	if len(p.Images) == 0 && p.ImageURL != "" {
		p.Images = []string{p.ImageURL}
	}
	if p.ImageURL == "" && len(p.Images) > 0 {
		p.ImageURL = p.Images[0]
	}
	if p.ReviewCount < 0 {
		p.ReviewCount = 0
	}
	p.Images = append([]string(nil), p.Images...)
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		p.OriginalPrice = &op
	}
	return p
}

// Discount возвращает скидку относительно исходной цены, если она известна.
func (p Product) Discount() decimal.Decimal {
	if p.OriginalPrice == nil || p.OriginalPrice.LessThanOrEqual(p.Price) {
		return decimal.Zero
	}
	return p.OriginalPrice.Sub(p.Price)
}
