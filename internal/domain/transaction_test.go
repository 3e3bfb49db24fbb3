package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestTransactionInput_Defaults(t *testing.T) {
	tx := domain.TransactionInput{
		Type:        domain.TransactionPurchase,
		Amount:      decimal.RequireFromString("299.99"),
		Description: " iPhone bundle ",
		Currency:    "eur",
	}.NewTransaction("USD")

	if tx.Status != domain.TransactionCompleted {
		t.Errorf("expected default status completed, got %s", tx.Status)
	}
	if tx.Currency != "EUR" {
		t.Errorf("expected upper-cased currency, got %s", tx.Currency)
	}
	if tx.Description != "iPhone bundle" {
		t.Errorf("expected trimmed description, got %q", tx.Description)
	}

	noCurrency := domain.TransactionInput{Type: domain.TransactionRefund, Description: "x"}.NewTransaction("USD")
	if noCurrency.Currency != "USD" {
		t.Errorf("expected default currency USD, got %s", noCurrency.Currency)
	}
}

func TestTransactionValidate(t *testing.T) {
	cases := []struct {
		name    string
		tx      domain.Transaction
		wantErr bool
	}{
		{
			name: "valid",
			tx: domain.Transaction{
				Type: domain.TransactionLotteryWin, Status: domain.TransactionPending,
				Amount: decimal.NewFromInt(1000), Description: "draw #12",
			},
		},
		{
			name: "zero amount allowed",
			tx: domain.Transaction{
				Type: domain.TransactionPurchase, Status: domain.TransactionCompleted,
				Amount: decimal.Zero, Description: "free item",
			},
		},
		{
			name: "negative amount",
			tx: domain.Transaction{
				Type: domain.TransactionPurchase, Status: domain.TransactionCompleted,
				Amount: decimal.NewFromInt(-1), Description: "bad",
			},
			wantErr: true,
		},
		{
			name: "unknown type",
			tx: domain.Transaction{
				Type: "chargeback", Status: domain.TransactionCompleted,
				Amount: decimal.NewFromInt(1), Description: "bad",
			},
			wantErr: true,
		},
		{
			name: "unknown status",
			tx: domain.Transaction{
				Type: domain.TransactionRefund, Status: "settled",
				Amount: decimal.NewFromInt(1), Description: "bad",
			},
			wantErr: true,
		},
		{
			name: "no description",
			tx: domain.Transaction{
				Type: domain.TransactionRefund, Status: domain.TransactionCompleted,
				Amount: decimal.NewFromInt(1),
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := tc.tx.Validate()
			if tc.wantErr && len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			if !tc.wantErr && len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
		})
	}
}
