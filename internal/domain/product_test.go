package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestProductNormalize(t *testing.T) {
	p := domain.Product{ID: " p-1 ", Name: "Watch", ImageURL: "https://cdn/img.png", ReviewCount: -3}.Normalize()

	if p.ID != "p-1" {
		t.Errorf("expected trimmed id, got %q", p.ID)
	}
	if len(p.Images) != 1 || p.Images[0] != "https://cdn/img.png" {
		t.Errorf("expected images derived from image_url, got %v", p.Images)
	}
	if p.ReviewCount != 0 {
		t.Errorf("expected negative review count clamped, got %d", p.ReviewCount)
	}

	fromImages := domain.Product{ID: "p-2", Name: "Phone", Images: []string{"a.png", "b.png"}}.Normalize()
	if fromImages.ImageURL != "a.png" {
		t.Errorf("expected image_url from first image, got %q", fromImages.ImageURL)
	}
}

func TestProductValidate(t *testing.T) {
	negative := decimal.NewFromInt(-5)
	cases := []struct {
		name    string
		product domain.Product
		want    int
	}{
		{name: "ok", product: domain.Product{ID: "p", Name: "n", Price: decimal.NewFromInt(10), Rating: 4.5}, want: 0},
		{name: "missing id and name", product: domain.Product{}, want: 2},
		{name: "negative price", product: domain.Product{ID: "p", Name: "n", Price: decimal.NewFromInt(-1)}, want: 1},
		{name: "negative original price", product: domain.Product{ID: "p", Name: "n", OriginalPrice: &negative}, want: 1},
		{name: "negative stock", product: domain.Product{ID: "p", Name: "n", StockQuantity: -1}, want: 1},
		{name: "rating out of range", product: domain.Product{ID: "p", Name: "n", Rating: 5.5}, want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := len(tc.product.Validate()); got != tc.want {
				t.Fatalf("expected %d errors, got %d", tc.want, got)
			}
		})
	}
}

func TestProductDiscount(t *testing.T) {
	original := decimal.RequireFromString("999.00")
	p := domain.Product{Price: decimal.RequireFromString("799.50"), OriginalPrice: &original}
	if !p.Discount().Equal(decimal.RequireFromString("199.50")) {
		t.Errorf("unexpected discount %s", p.Discount())
	}

	noOriginal := domain.Product{Price: decimal.NewFromInt(10)}
	if !noOriginal.Discount().IsZero() {
		t.Errorf("expected zero discount, got %s", noOriginal.Discount())
	}
}
