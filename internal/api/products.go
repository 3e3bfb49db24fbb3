package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/productset"
	"github.com/vladislavdragonenkov/storefront/internal/service/profile"
)

type setSelector func(*profile.Profile) *productset.Set

func comparisonSet(p *profile.Profile) *productset.Set { return p.Comparison }
func wishlistSet(p *profile.Profile) *productset.Set   { return p.Wishlist }

type setView struct {
	Items    []domain.Product `json:"items"`
	Count    int              `json:"count"`
	Capacity int              `json:"capacity"`
}

type toggleView struct {
	Result productset.ToggleResult `json:"result"`
	setView
}

func viewOf(set *productset.Set) setView {
	items := set.Items()
	return setView{Items: items, Count: len(items), Capacity: set.Capacity()}
}

func (h *Handlers) listSet(selectSet setSelector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, viewOf(selectSet(profileFrom(c))))
	}
}

func (h *Handlers) clearSet(selectSet setSelector) gin.HandlerFunc {
	return func(c *gin.Context) {
		set := selectSet(profileFrom(c))
		err := set.Clear()
		h.respond(c, http.StatusOK, viewOf(set), err)
	}
}

// toggleSet переключает членство товара. Переполненный набор отвечает 409.
func (h *Handlers) toggleSet(selectSet setSelector) gin.HandlerFunc {
	return func(c *gin.Context) {
		var product domain.Product
		if !h.bind(c, &product) {
			return
		}
		set := selectSet(profileFrom(c))
		result, err := set.Toggle(product)
		view := toggleView{Result: result, setView: viewOf(set)}
		if err == nil && result == productset.Rejected {
			c.JSON(http.StatusConflict, view)
			return
		}
		h.respond(c, http.StatusOK, view, err)
	}
}

func (h *Handlers) removeFromSet(selectSet setSelector) gin.HandlerFunc {
	return func(c *gin.Context) {
		set := selectSet(profileFrom(c))
		result, err := set.Remove(c.Param("id"))
		h.respond(c, http.StatusOK, toggleView{Result: result, setView: viewOf(set)}, err)
	}
}

// ListRecentlyViewed возвращает просмотренные товары, последние первыми.
func (h *Handlers) ListRecentlyViewed(c *gin.Context) {
	c.JSON(http.StatusOK, profileFrom(c).RecentlyViewed.Items())
}

// RecordView запоминает просмотр товара.
func (h *Handlers) RecordView(c *gin.Context) {
	var product domain.Product
	if !h.bind(c, &product) {
		return
	}
	cache := profileFrom(c).RecentlyViewed
	err := cache.RecordView(product)
	h.respond(c, http.StatusOK, cache.Items(), err)
}

// ClearRecentlyViewed очищает историю просмотров.
func (h *Handlers) ClearRecentlyViewed(c *gin.Context) {
	cache := profileFrom(c).RecentlyViewed
	err := cache.Clear()
	h.respond(c, http.StatusOK, cache.Items(), err)
}

// RemoveRecentlyViewed удаляет товар из истории просмотров.
func (h *Handlers) RemoveRecentlyViewed(c *gin.Context) {
	cache := profileFrom(c).RecentlyViewed
	removed, err := cache.Remove(c.Param("id"))
	h.respond(c, http.StatusOK, gin.H{"removed": removed, "items": cache.Items()}, err)
}

type searchRequest struct {
	Term string `json:"term"`
}

// ListSearchHistory возвращает поисковые запросы, последние первыми.
func (h *Handlers) ListSearchHistory(c *gin.Context) {
	c.JSON(http.StatusOK, profileFrom(c).SearchHistory.Items())
}

// RecordSearch запоминает запрос; пустой запрос игнорируется.
func (h *Handlers) RecordSearch(c *gin.Context) {
	var req searchRequest
	if !h.bind(c, &req) {
		return
	}
	history := profileFrom(c).SearchHistory
	recorded, err := history.RecordSearch(req.Term)
	h.respond(c, http.StatusOK, gin.H{"recorded": recorded, "items": history.Items()}, err)
}

// ClearSearchHistory очищает историю поиска.
func (h *Handlers) ClearSearchHistory(c *gin.Context) {
	history := profileFrom(c).SearchHistory
	err := history.Clear()
	h.respond(c, http.StatusOK, history.Items(), err)
}
