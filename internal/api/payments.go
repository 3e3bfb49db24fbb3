package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/profile"
)

// ListPaymentMethods возвращает способы оплаты, опционально по ?type=.
func (h *Handlers) ListPaymentMethods(c *gin.Context) {
	manager := profileFrom(c).Payments
	raw := c.Query("type")
	if raw == "" {
		c.JSON(http.StatusOK, manager.List())
		return
	}
	t := domain.PaymentMethodType(raw)
	if !t.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrPaymentMethodTypeInvalid.Error()})
		return
	}
	c.JSON(http.StatusOK, manager.ListByType(t))
}

// CreatePaymentMethod добавляет способ оплаты.
func (h *Handlers) CreatePaymentMethod(c *gin.Context) {
	var req domain.PaymentMethodInput
	if !h.bind(c, &req) {
		return
	}
	method, err := profileFrom(c).Payments.Add(req)
	h.respond(c, http.StatusCreated, method, err)
}

// UpdatePaymentMethod применяет частичное обновление.
func (h *Handlers) UpdatePaymentMethod(c *gin.Context) {
	var req domain.PaymentMethodPatch
	if !h.bind(c, &req) {
		return
	}
	method, err := profileFrom(c).Payments.Update(c.Param("id"), req)
	h.respond(c, http.StatusOK, method, err)
}

// DeletePaymentMethod удаляет способ оплаты.
func (h *Handlers) DeletePaymentMethod(c *gin.Context) {
	manager := profileFrom(c).Payments
	if err := manager.Remove(c.Param("id")); err != nil {
		h.respond(c, http.StatusOK, manager.List(), err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetDefaultPaymentMethod делает способ оплаты основным.
func (h *Handlers) SetDefaultPaymentMethod(c *gin.Context) {
	manager := profileFrom(c).Payments
	id := c.Param("id")
	if err := manager.SetDefault(id); err != nil {
		h.respond(c, http.StatusOK, manager.List(), err)
		return
	}
	method, err := manager.Get(id)
	h.respond(c, http.StatusOK, method, err)
}

type walletView struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

type topUpRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type walletOperationView struct {
	OK          bool               `json:"ok"`
	Balance     decimal.Decimal    `json:"balance"`
	Transaction domain.Transaction `json:"transaction"`
}

// GetWallet возвращает баланс кошелька.
func (h *Handlers) GetWallet(c *gin.Context) {
	p := profileFrom(c)
	c.JSON(http.StatusOK, walletView{Balance: p.Payments.Balance(), Currency: p.Ledger.Currency()})
}

// TopUpWallet пополняет кошелёк.
func (h *Handlers) TopUpWallet(c *gin.Context) {
	var req topUpRequest
	if !h.bind(c, &req) {
		return
	}
	balance, tx, err := profileFrom(c).TopUpWallet(req.Amount, req.Description)
	h.respond(c, http.StatusOK, walletOperationView{OK: err == nil, Balance: balance, Transaction: tx}, err)
}

// DeductWallet оплачивает покупку с кошелька. Отказ из-за нехватки средств — 402.
func (h *Handlers) DeductWallet(c *gin.Context) {
	var req profile.WalletPayment
	if !h.bind(c, &req) {
		return
	}
	p := profileFrom(c)
	ok, tx, err := p.PayWithWallet(req)
	view := walletOperationView{OK: ok, Balance: p.Payments.Balance(), Transaction: tx}
	if err == nil && !ok {
		c.JSON(http.StatusPaymentRequired, view)
		return
	}
	h.respond(c, http.StatusOK, view, err)
}
