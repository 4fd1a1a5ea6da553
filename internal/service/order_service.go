package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/metrics"
	"footwear-wholesale/internal/models"
	"footwear-wholesale/internal/pricing"
	"footwear-wholesale/internal/repository"
)

// ProductStore is the catalog access the order processor needs.
type ProductStore interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	DecrementSizeInventory(ctx context.Context, id, size string, quantity int64) (bool, error)
	IncrementSizeInventory(ctx context.Context, id, size string, quantity int64) error
}

// OrderStore persists orders.
type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindAll(ctx context.Context, filter repository.OrderFilter) ([]models.Order, int64, error)
	Update(ctx context.Context, order *models.Order) error
}

// Caller identifies the authenticated user performing an operation.
type Caller struct {
	UserID string
	Role   models.Role
}

// OrderLineRequest is one requested product/size/quantity line.
type OrderLineRequest struct {
	Product  string `json:"product" binding:"required"`
	Size     string `json:"size" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest is the order submission body.
type CreateOrderRequest struct {
	Items               []OrderLineRequest `json:"items" binding:"required"`
	BillingAddress      models.Address     `json:"billing_address"`
	ShippingAddress     models.Address     `json:"shipping_address"`
	PaymentMethod       string             `json:"payment_method" binding:"required"`
	ShippingMethod      string             `json:"shipping_method"`
	Notes               string             `json:"notes"`
	PurchaseOrderNumber string             `json:"purchase_order_number"`
}

// ListOrdersRequest scopes an order listing.
type ListOrdersRequest struct {
	Status models.OrderStatus
	Page   int
	Limit  int
}

// UpdateOrderRequest is the admin lifecycle patch.
type UpdateOrderRequest struct {
	Status         *models.OrderStatus   `json:"status,omitempty"`
	PaymentStatus  *models.PaymentStatus `json:"payment_status,omitempty"`
	TrackingNumber *string               `json:"tracking_number,omitempty"`
	Notes          *string               `json:"notes,omitempty"`
}

// OrderService validates, prices and persists orders against the
// catalog. Inventory reservation is two-phase: every line is validated
// and priced from a read snapshot first, then stock is taken with
// per-size conditional decrements; any failure releases what was
// already taken, so a failed order never leaves inventory decremented
// and no partial order is ever written.
type OrderService struct {
	products ProductStore
	orders   OrderStore
	users    UserStore

	taxRateBasisPoints int64
	shippingFlatCents  int64
	deliveryLead       time.Duration
	logger             *slog.Logger
}

// NewOrderService wires an order processor.
func NewOrderService(products ProductStore, orders OrderStore, users UserStore, taxRateBP, shippingFlatCents int64, deliveryLeadDays int, logger *slog.Logger) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		products:           products,
		orders:             orders,
		users:              users,
		taxRateBasisPoints: taxRateBP,
		shippingFlatCents:  shippingFlatCents,
		deliveryLead:       time.Duration(deliveryLeadDays) * 24 * time.Hour,
		logger:             logger,
	}
}

// CreateOrder processes a multi-line order request for the caller.
func (s *OrderService) CreateOrder(ctx context.Context, caller Caller, req CreateOrderRequest) (*models.Order, error) {
	user, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Approved && !user.Role.IsAdmin() {
		metrics.ObserveOrderCreated("rejected")
		return nil, apperr.Forbidden("account is pending approval and cannot place orders")
	}

	if len(req.Items) == 0 {
		metrics.ObserveOrderCreated("rejected")
		return nil, apperr.Validation("order has no items", map[string]string{
			"items": "at least one item is required",
		})
	}

	items, subtotal, err := s.validateAndPrice(ctx, req.Items)
	if err != nil {
		metrics.ObserveOrderCreated("rejected")
		return nil, err
	}

	if err := s.reserve(ctx, items); err != nil {
		metrics.ObserveOrderCreated("rejected")
		return nil, err
	}

	tax := s.taxFor(subtotal)
	var discount int64
	now := time.Now()
	order := &models.Order{
		OrderNumber:         "ORD-" + uuid.NewString(),
		User:                user.ID,
		Items:               items,
		BillingAddress:      req.BillingAddress,
		ShippingAddress:     req.ShippingAddress,
		PaymentMethod:       req.PaymentMethod,
		ShippingMethod:      req.ShippingMethod,
		Notes:               req.Notes,
		PurchaseOrderNumber: req.PurchaseOrderNumber,
		Status:              models.OrderPending,
		PaymentStatus:       models.PaymentPending,
		SubtotalCents:       subtotal,
		TaxCents:            tax,
		ShippingCents:       s.shippingFlatCents,
		DiscountCents:       discount,
		TotalCents:          subtotal + tax + s.shippingFlatCents - discount,
		EstimatedDelivery:   now.Add(s.deliveryLead),
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		s.release(ctx, items)
		metrics.ObserveOrderCreated("error")
		s.logger.Error("order insert failed, reservations released",
			slog.String("user", caller.UserID),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Unavailable("could not persist order", err)
	}

	metrics.ObserveOrderCreated("success")
	s.logger.Info("order created",
		slog.String("order", order.OrderNumber),
		slog.String("user", caller.UserID),
		slog.Int64("total_cents", order.TotalCents),
		slog.Int("lines", len(order.Items)),
	)
	return order, nil
}

// validateAndPrice checks every line against a read snapshot and
// returns the priced line items plus the subtotal. No inventory is
// mutated here. Duplicate product/size lines are checked against their
// combined quantity.
func (s *OrderService) validateAndPrice(ctx context.Context, lines []OrderLineRequest) ([]models.OrderItem, int64, error) {
	type sizeKey struct {
		product string
		size    string
	}
	requested := make(map[sizeKey]int64)
	snapshot := make(map[string]*models.Product)

	items := make([]models.OrderItem, 0, len(lines))
	var subtotal int64

	for i, line := range lines {
		if line.Quantity < 1 {
			return nil, 0, apperr.Validation("invalid line quantity", map[string]string{
				fmt.Sprintf("items[%d].quantity", i): "quantity must be at least 1",
			})
		}

		product, ok := snapshot[line.Product]
		if !ok {
			var err error
			product, err = s.products.FindByID(ctx, line.Product)
			if err != nil {
				return nil, 0, err
			}
			snapshot[line.Product] = product
		}

		if !product.IsActive {
			return nil, 0, apperr.InvalidLine(fmt.Sprintf("product %s is not available", product.Name))
		}

		size := product.SizeFor(line.Size)
		if size == nil {
			return nil, 0, apperr.InvalidLine(fmt.Sprintf("size %s not available for product %s", line.Size, product.Name))
		}

		if product.MinOrderQuantity > 0 && line.Quantity < product.MinOrderQuantity {
			return nil, 0, apperr.BelowMinimumOrder(fmt.Sprintf("minimum order quantity for %s is %d", product.Name, product.MinOrderQuantity))
		}

		key := sizeKey{product: line.Product, size: line.Size}
		requested[key] += line.Quantity
		if requested[key] > size.Inventory {
			return nil, 0, apperr.InsufficientInventory(fmt.Sprintf("not enough inventory for %s in size %s", product.Name, line.Size))
		}

		unitPrice := pricing.ResolveUnitPrice(product.BasePriceCents, product.PriceTiers, line.Quantity)
		lineTotal := unitPrice * line.Quantity
		subtotal += lineTotal

		items = append(items, models.OrderItem{
			Product:        product.ID,
			SKU:            product.SKU,
			Name:           product.Name,
			Size:           line.Size,
			Quantity:       line.Quantity,
			UnitPriceCents: unitPrice,
			TotalCents:     lineTotal,
		})
	}

	return items, subtotal, nil
}

// reserve takes stock for every line with conditional decrements. The
// decrement only matches while enough inventory remains, so concurrent
// orders cannot oversell; losing the race here releases everything
// taken so far and fails the whole order.
func (s *OrderService) reserve(ctx context.Context, items []models.OrderItem) error {
	for i, item := range items {
		ok, err := s.products.DecrementSizeInventory(ctx, item.Product.Hex(), item.Size, item.Quantity)
		if err != nil {
			s.release(ctx, items[:i])
			return apperr.Unavailable("could not reserve inventory", err)
		}
		if !ok {
			s.release(ctx, items[:i])
			metrics.ObserveReservationConflict()
			return apperr.InsufficientInventory(fmt.Sprintf("not enough inventory for %s in size %s", item.Name, item.Size))
		}
	}
	return nil
}

// release returns previously reserved stock. Runs even when the
// request context was cancelled; failures are logged, not returned.
func (s *OrderService) release(ctx context.Context, items []models.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range items {
		if err := s.products.IncrementSizeInventory(ctx, item.Product.Hex(), item.Size, item.Quantity); err != nil {
			s.logger.Error("failed to release inventory reservation",
				slog.String("product", item.Product.Hex()),
				slog.String("size", item.Size),
				slog.Int64("quantity", item.Quantity),
				slog.String("error", err.Error()),
			)
		}
	}
}

// taxFor computes the tax in cents, rounding half up.
func (s *OrderService) taxFor(subtotalCents int64) int64 {
	return (subtotalCents*s.taxRateBasisPoints + 5000) / 10000
}

// GetOrder returns one order; non-admin callers may only read their own.
func (s *OrderService) GetOrder(ctx context.Context, caller Caller, id string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Role.IsAdmin() && order.User.Hex() != caller.UserID {
		return nil, apperr.Forbidden("not authorized to access this order")
	}
	return order, nil
}

// ListOrders returns the caller's orders, or all orders for admins,
// newest first with pagination and optional status filtering.
func (s *OrderService) ListOrders(ctx context.Context, caller Caller, req ListOrdersRequest) ([]models.Order, int64, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, 0, apperr.Validation("invalid status filter", map[string]string{
			"status": fmt.Sprintf("unknown status %q", req.Status),
		})
	}

	filter := repository.OrderFilter{
		Status: req.Status,
		Page:   req.Page,
		Limit:  req.Limit,
	}
	if !caller.Role.IsAdmin() {
		filter.UserID = caller.UserID
	}
	return s.orders.FindAll(ctx, filter)
}

// UpdateOrder applies an admin lifecycle patch: status transition,
// payment transition, tracking info. Cancelling an unpaid order
// returns its reserved stock to the catalog.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, req UpdateOrderRequest) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	restock := false
	now := time.Now()

	if req.Status != nil {
		next := *req.Status
		if !next.Valid() {
			return nil, apperr.Validation("invalid order status", map[string]string{
				"status": fmt.Sprintf("unknown status %q", next),
			})
		}
		if !order.Status.CanTransitionTo(next) {
			return nil, apperr.Validation("invalid status transition", map[string]string{
				"status": fmt.Sprintf("cannot move from %s to %s", order.Status, next),
			})
		}
		if next == models.OrderDelivered {
			order.DeliveredAt = &now
		}
		if next == models.OrderCancelled && order.PaymentStatus != models.PaymentPaid {
			restock = true
		}
		order.Status = next
	}

	if req.PaymentStatus != nil {
		next := *req.PaymentStatus
		if !next.Valid() {
			return nil, apperr.Validation("invalid payment status", map[string]string{
				"payment_status": fmt.Sprintf("unknown payment status %q", next),
			})
		}
		if next != order.PaymentStatus && order.PaymentStatus != models.PaymentPending {
			return nil, apperr.Validation("invalid payment transition", map[string]string{
				"payment_status": fmt.Sprintf("payment already %s", order.PaymentStatus),
			})
		}
		if next == models.PaymentPaid {
			order.PaidAt = &now
		}
		order.PaymentStatus = next
	}

	if req.TrackingNumber != nil {
		order.TrackingNumber = *req.TrackingNumber
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}

	if restock {
		s.release(ctx, order.Items)
		s.logger.Info("cancelled order restocked",
			slog.String("order", order.OrderNumber),
			slog.Int("lines", len(order.Items)),
		)
	}
	return order, nil
}
