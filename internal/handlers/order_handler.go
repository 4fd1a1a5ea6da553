package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/cache"
	"footwear-wholesale/internal/middleware"
	"footwear-wholesale/internal/models"
	"footwear-wholesale/internal/service"
)

// OrderHandler serves the order endpoints. Order writes move inventory,
// so they invalidate the cached product pages like any catalog write.
type OrderHandler struct {
	orders *service.OrderService
	cache  *cache.Cache
	logger *slog.Logger
}

func NewOrderHandler(orders *service.OrderService, c *cache.Cache, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{orders: orders, cache: c, logger: logger}
}

// POST /api/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, apperr.Unauthenticated("not authorized"))
		return
	}

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), callerFrom(ident), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cache.DeleteByPrefix(productCachePrefix)
	respondData(c, http.StatusCreated, order)
}

// GET /api/orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, apperr.Unauthenticated("not authorized"))
		return
	}

	page, limit := paginationParams(c)
	req := service.ListOrdersRequest{
		Status: models.OrderStatus(c.Query("status")),
		Page:   page,
		Limit:  limit,
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), callerFrom(ident), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondList(c, orders, models.NewPagination(page, limit, total))
}

// GET /api/orders/:id
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, apperr.Unauthenticated("not authorized"))
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), callerFrom(ident), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// PUT /api/orders/:id (admin)
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// cancellation restocks, so the cached pages may be stale
	h.cache.DeleteByPrefix(productCachePrefix)
	respondData(c, http.StatusOK, order)
}

func callerFrom(ident *middleware.Identity) service.Caller {
	return service.Caller{UserID: ident.UserID, Role: ident.Role}
}
