package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func addressTypeQuery(c *gin.Context) (domain.AddressType, bool) {
	raw := c.Query("type")
	if raw == "" {
		return "", true
	}
	t := domain.AddressType(raw)
	if !t.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrAddressTypeInvalid.Error()})
		return "", false
	}
	return t, true
}

// ListAddresses возвращает адреса, опционально отфильтрованные по ?type=.
func (h *Handlers) ListAddresses(c *gin.Context) {
	t, ok := addressTypeQuery(c)
	if !ok {
		return
	}
	book := profileFrom(c).Addresses
	if t == "" {
		c.JSON(http.StatusOK, book.List())
		return
	}
	c.JSON(http.StatusOK, book.ListByType(t))
}

// CreateAddress добавляет адрес.
func (h *Handlers) CreateAddress(c *gin.Context) {
	var req domain.AddressInput
	if !h.bind(c, &req) {
		return
	}
	address, err := profileFrom(c).Addresses.Add(req)
	h.respond(c, http.StatusCreated, address, err)
}

// GetDefaultAddress возвращает адрес по умолчанию для ?type= (или первый из адресов по умолчанию).
func (h *Handlers) GetDefaultAddress(c *gin.Context) {
	t, ok := addressTypeQuery(c)
	if !ok {
		return
	}

	book := profileFrom(c).Addresses
	var (
		address domain.Address
		found   bool
	)
	if t == "" {
		address, found = book.GetDefault()
	} else {
		address, found = book.GetDefaultFor(t)
	}
	if !found {
		h.respondError(c, domain.ErrAddressNotFound)
		return
	}
	c.JSON(http.StatusOK, address)
}

// UpdateAddress применяет частичное обновление.
func (h *Handlers) UpdateAddress(c *gin.Context) {
	var req domain.AddressPatch
	if !h.bind(c, &req) {
		return
	}
	address, err := profileFrom(c).Addresses.Update(c.Param("id"), req)
	h.respond(c, http.StatusOK, address, err)
}

// DeleteAddress удаляет адрес.
func (h *Handlers) DeleteAddress(c *gin.Context) {
	book := profileFrom(c).Addresses
	if err := book.Remove(c.Param("id")); err != nil {
		h.respond(c, http.StatusOK, book.List(), err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetDefaultAddress делает адрес адресом по умолчанию в его разделе.
func (h *Handlers) SetDefaultAddress(c *gin.Context) {
	book := profileFrom(c).Addresses
	id := c.Param("id")
	if err := book.SetDefault(id); err != nil {
		h.respond(c, http.StatusOK, book.List(), err)
		return
	}
	address, err := book.Get(id)
	h.respond(c, http.StatusOK, address, err)
}
