// Package api — REST-интерфейс к менеджерам состояния профиля.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/profile"
)

const profileContextKey = "storefront.profile"

// storageWarning сопровождает 503: изменение применено в памяти, но не сохранено.
const storageWarning = "change applied in memory but not persisted"

// Handlers содержит обработчики API.
type Handlers struct {
	registry *profile.Registry
	logger   *log.Entry
}

// NewHandlers создаёт обработчики поверх реестра профилей.
func NewHandlers(registry *profile.Registry, logger *log.Entry) *Handlers {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Handlers{
		registry: registry,
		logger:   logger.WithField("component", "http-api"),
	}
}

func (h *Handlers) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := h.logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(started).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

// resolveProfile загружает профиль из пути и кладёт его в контекст запроса.
func (h *Handlers) resolveProfile(c *gin.Context) {
	p, err := h.registry.Get(c.Param("profile"))
	if err != nil {
		h.respondError(c, err)
		c.Abort()
		return
	}
	c.Set(profileContextKey, p)
	c.Next()
}

func profileFrom(c *gin.Context) *profile.Profile {
	return c.MustGet(profileContextKey).(*profile.Profile)
}

// statusFor переводит ошибку ядра в HTTP-статус.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrAmountNotPositive),
		errors.Is(err, domain.ErrAmountNegative),
		errors.Is(err, domain.ErrProfileIDInvalid):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if status == http.StatusServiceUnavailable {
		body["warning"] = storageWarning
	}
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("unexpected error")
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}

// respond отдаёт результат операции. Если изменение не удалось сохранить,
// ответ 503 всё равно содержит итоговое состояние в поле data.
func (h *Handlers) respond(c *gin.Context, okStatus int, data any, err error) {
	if err == nil {
		c.JSON(okStatus, data)
		return
	}
	if errors.Is(err, domain.ErrStorageUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   err.Error(),
			"warning": storageWarning,
			"data":    data,
		})
		return
	}
	h.respondError(c, err)
}

func (h *Handlers) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// ListLoadedProfiles возвращает профили, загруженные в память.
func (h *Handlers) ListLoadedProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": h.registry.Loaded()})
}

// GetSnapshot возвращает сводку профиля.
func (h *Handlers) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, profileFrom(c).Snapshot())
}

// ResetProfile удаляет все данные профиля.
func (h *Handlers) ResetProfile(c *gin.Context) {
	p := profileFrom(c)
	if err := h.registry.Reset(p.ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
