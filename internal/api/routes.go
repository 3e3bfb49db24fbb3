package api

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/service/profile"
)

// NewRouter создаёт gin.Engine с маршрутами API поверх реестра профилей.
func NewRouter(registry *profile.Registry, logger *log.Entry) *gin.Engine {
	r := gin.New()
	h := NewHandlers(registry, logger)
	r.Use(gin.Recovery(), h.requestLogger())
	SetupRoutes(r, h)
	return r
}

// SetupRoutes регистрирует маршруты /api/v1.
func SetupRoutes(r *gin.Engine, h *Handlers) {
	v1 := r.Group("/api/v1")
	v1.GET("/profiles", h.ListLoadedProfiles)

	p := v1.Group("/profiles/:profile", h.resolveProfile)
	{
		p.GET("/snapshot", h.GetSnapshot)
		p.DELETE("", h.ResetProfile)

		// Addresses
		p.GET("/addresses", h.ListAddresses)
		p.POST("/addresses", h.CreateAddress)
		p.GET("/addresses/default", h.GetDefaultAddress)
		p.PATCH("/addresses/:id", h.UpdateAddress)
		p.DELETE("/addresses/:id", h.DeleteAddress)
		p.POST("/addresses/:id/default", h.SetDefaultAddress)

		// Payment methods
		p.GET("/payment-methods", h.ListPaymentMethods)
		p.POST("/payment-methods", h.CreatePaymentMethod)
		p.PATCH("/payment-methods/:id", h.UpdatePaymentMethod)
		p.DELETE("/payment-methods/:id", h.DeletePaymentMethod)
		p.POST("/payment-methods/:id/default", h.SetDefaultPaymentMethod)

		// Wallet
		p.GET("/wallet", h.GetWallet)
		p.POST("/wallet/topup", h.TopUpWallet)
		p.POST("/wallet/deduct", h.DeductWallet)

		// Transactions
		p.GET("/transactions", h.ListTransactions)
		p.POST("/transactions", h.RecordTransaction)
		p.GET("/transactions/summary", h.GetTransactionSummary)
		p.GET("/transactions/:id", h.GetTransaction)

		// Comparison / wishlist
		p.GET("/comparison", h.listSet(comparisonSet))
		p.DELETE("/comparison", h.clearSet(comparisonSet))
		p.POST("/comparison/toggle", h.toggleSet(comparisonSet))
		p.DELETE("/comparison/:id", h.removeFromSet(comparisonSet))
		p.GET("/wishlist", h.listSet(wishlistSet))
		p.DELETE("/wishlist", h.clearSet(wishlistSet))
		p.POST("/wishlist/toggle", h.toggleSet(wishlistSet))
		p.DELETE("/wishlist/:id", h.removeFromSet(wishlistSet))

		// Recency
		p.GET("/recently-viewed", h.ListRecentlyViewed)
		p.POST("/recently-viewed", h.RecordView)
		p.DELETE("/recently-viewed", h.ClearRecentlyViewed)
		p.DELETE("/recently-viewed/:id", h.RemoveRecentlyViewed)
		p.GET("/search-history", h.ListSearchHistory)
		p.POST("/search-history", h.RecordSearch)
		p.DELETE("/search-history", h.ClearSearchHistory)
	}
}
