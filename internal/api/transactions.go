package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ListTransactions возвращает журнал (новые сверху). Фильтры: ?type=, ?status=, ?limit=.
func (h *Handlers) ListTransactions(c *gin.Context) {
	ledger := profileFrom(c).Ledger

	items := ledger.List()
	if raw := c.Query("type"); raw != "" {
		t := domain.TransactionType(raw)
		if !t.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrTransactionTypeInvalid.Error()})
			return
		}
		items = keep(items, func(tx domain.Transaction) bool { return tx.Type == t })
	}
	if raw := c.Query("status"); raw != "" {
		s := domain.TransactionStatus(raw)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrTransactionStatusInvalid.Error()})
			return
		}
		items = keep(items, func(tx domain.Transaction) bool { return tx.Status == s })
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		if limit < len(items) {
			items = items[:limit]
		}
	}

	c.JSON(http.StatusOK, items)
}

func keep(items []domain.Transaction, pred func(domain.Transaction) bool) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(items))
	for _, tx := range items {
		if pred(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// RecordTransaction добавляет запись в журнал.
func (h *Handlers) RecordTransaction(c *gin.Context) {
	var req domain.TransactionInput
	if !h.bind(c, &req) {
		return
	}
	tx, err := profileFrom(c).Ledger.Record(req)
	h.respond(c, http.StatusCreated, tx, err)
}

// GetTransaction возвращает запись по ID.
func (h *Handlers) GetTransaction(c *gin.Context) {
	tx, ok := profileFrom(c).Ledger.Find(c.Param("id"))
	if !ok {
		h.respondError(c, domain.ErrTransactionNotFound)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// GetTransactionSummary возвращает агрегаты по завершённым операциям.
func (h *Handlers) GetTransactionSummary(c *gin.Context) {
	c.JSON(http.StatusOK, profileFrom(c).Ledger.Summary())
}
