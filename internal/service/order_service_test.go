package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/models"
	"footwear-wholesale/internal/repository"
)

type memProducts struct {
	mu       sync.Mutex
	byID     map[string]*models.Product
	failDecr bool
}

func newMemProducts(products ...*models.Product) *memProducts {
	m := &memProducts{byID: map[string]*models.Product{}}
	for _, p := range products {
		m.byID[p.ID.Hex()] = p
	}
	return m
}

func (m *memProducts) FindByID(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("product not found")
	}
	// return a snapshot copy, like a database read
	cp := *p
	cp.Sizes = append([]models.SizeStock(nil), p.Sizes...)
	return &cp, nil
}

func (m *memProducts) DecrementSizeInventory(_ context.Context, id, size string, quantity int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDecr {
		return false, errors.New("storage down")
	}
	p, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	s := p.SizeFor(size)
	if s == nil || s.Inventory < quantity {
		return false, nil
	}
	s.Inventory -= quantity
	return true, nil
}

func (m *memProducts) IncrementSizeInventory(_ context.Context, id, size string, quantity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("product not found")
	}
	s := p.SizeFor(size)
	if s == nil {
		return apperr.NotFound("size not found")
	}
	s.Inventory += quantity
	return nil
}

func (m *memProducts) inventory(id, size string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].SizeFor(size).Inventory
}

type memOrders struct {
	mu         sync.Mutex
	orders     []*models.Order
	failInsert bool
}

func (m *memOrders) Insert(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert {
		return errors.New("storage down")
	}
	order.ID = primitive.NewObjectID()
	m.orders = append(m.orders, order)
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID.Hex() == id {
			return o, nil
		}
	}
	return nil, apperr.NotFound("order not found")
}

func (m *memOrders) FindAll(_ context.Context, filter repository.OrderFilter) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.orders {
		if filter.UserID != "" && o.User.Hex() != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (m *memOrders) Update(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.orders {
		if o.ID == order.ID {
			m.orders[i] = order
			return nil
		}
	}
	return apperr.NotFound("order not found")
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func testProduct(sku string, basePrice int64, tiers []models.PriceTier, sizes ...models.SizeStock) *models.Product {
	return &models.Product{
		ID:               primitive.NewObjectID(),
		SKU:              sku,
		Name:             "Test " + sku,
		BasePriceCents:   basePrice,
		Currency:         "USD",
		PriceTiers:       tiers,
		Sizes:            sizes,
		MinOrderQuantity: 1,
		IsActive:         true,
	}
}

func testBuyer(approved bool) *models.User {
	return &models.User{
		ID:          primitive.NewObjectID(),
		CompanyName: "Acme Shoes",
		Email:       "buyer@acme.test",
		Role:        models.RoleBuyer,
		Approved:    approved,
	}
}

func newOrderService(products *memProducts, orders *memOrders, users UserStore) *OrderService {
	// 8% tax, flat 25.00 shipping, 14 day lead
	return NewOrderService(products, orders, users, 800, 2500, 14, nil)
}

func TestCreateOrderEndToEnd(t *testing.T) {
	buyer := testBuyer(true)
	users := newMemUsers(buyer)
	product := testProduct("SKU-1", 10000,
		[]models.PriceTier{{MinQuantity: 50, PriceCents: 8000}},
		models.SizeStock{Size: "9", Inventory: 100},
	)
	products := newMemProducts(product)
	orders := &memOrders{}
	svc := newOrderService(products, orders, users)

	order, err := svc.CreateOrder(context.Background(), Caller{UserID: buyer.ID.Hex(), Role: buyer.Role}, CreateOrderRequest{
		Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: 60}},
		PaymentMethod: "invoice",
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(8000), order.Items[0].UnitPriceCents)
	assert.Equal(t, int64(480000), order.Items[0].TotalCents)
	assert.Equal(t, int64(480000), order.SubtotalCents)
	assert.Equal(t, int64(38400), order.TaxCents)
	assert.Equal(t, int64(2500), order.ShippingCents)
	assert.Equal(t, int64(0), order.DiscountCents)
	assert.Equal(t, int64(520900), order.TotalCents)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.NotEmpty(t, order.OrderNumber)
	assert.False(t, order.EstimatedDelivery.IsZero())

	assert.Equal(t, int64(40), products.inventory(product.ID.Hex(), "9"))
}

func TestCreateOrderTotalIdentity(t *testing.T) {
	buyer := testBuyer(true)
	users := newMemUsers(buyer)
	p1 := testProduct("SKU-1", 10000, nil, models.SizeStock{Size: "8", Inventory: 50})
	p2 := testProduct("SKU-2", 5500,
		[]models.PriceTier{{MinQuantity: 10, PriceCents: 5000}},
		models.SizeStock{Size: "10", Inventory: 50},
	)
	products := newMemProducts(p1, p2)
	orders := &memOrders{}
	svc := newOrderService(products, orders, users)

	order, err := svc.CreateOrder(context.Background(), Caller{UserID: buyer.ID.Hex(), Role: buyer.Role}, CreateOrderRequest{
		Items: []OrderLineRequest{
			{Product: p1.ID.Hex(), Size: "8", Quantity: 3},
			{Product: p2.ID.Hex(), Size: "10", Quantity: 12},
		},
		PaymentMethod: "invoice",
	})
	require.NoError(t, err)

	var subtotal int64
	for _, item := range order.Items {
		assert.Equal(t, item.UnitPriceCents*item.Quantity, item.TotalCents)
		subtotal += item.TotalCents
	}
	assert.Equal(t, subtotal, order.SubtotalCents)
	assert.Equal(t, order.SubtotalCents+order.TaxCents+order.ShippingCents-order.DiscountCents, order.TotalCents)
}

func TestCreateOrderValidationFailures(t *testing.T) {
	buyer := testBuyer(true)
	users := newMemUsers(buyer)
	product := testProduct("SKU-1", 10000, nil, models.SizeStock{Size: "9", Inventory: 10})
	product.MinOrderQuantity = 5
	products := newMemProducts(product)
	orders := &memOrders{}
	svc := newOrderService(products, orders, users)
	caller := Caller{UserID: buyer.ID.Hex(), Role: buyer.Role}

	cases := []struct {
		name string
		req  CreateOrderRequest
		code apperr.Code
	}{
		{
			name: "empty items",
			req:  CreateOrderRequest{PaymentMethod: "invoice"},
			code: apperr.CodeValidation,
		},
		{
			name: "unknown product",
			req: CreateOrderRequest{
				Items:         []OrderLineRequest{{Product: primitive.NewObjectID().Hex(), Size: "9", Quantity: 5}},
				PaymentMethod: "invoice",
			},
			code: apperr.CodeNotFound,
		},
		{
			name: "unknown size",
			req: CreateOrderRequest{
				Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "13", Quantity: 5}},
				PaymentMethod: "invoice",
			},
			code: apperr.CodeInvalidLine,
		},
		{
			name: "insufficient inventory",
			req: CreateOrderRequest{
				Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: 11}},
				PaymentMethod: "invoice",
			},
			code: apperr.CodeInsufficientInventory,
		},
		{
			name: "below minimum order",
			req: CreateOrderRequest{
				Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: 2}},
				PaymentMethod: "invoice",
			},
			code: apperr.CodeBelowMinimumOrder,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), caller, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, apperr.CodeOf(err))
			assert.Equal(t, int64(10), products.inventory(product.ID.Hex(), "9"), "failed order must not touch inventory")
			assert.Equal(t, 0, orders.count())
		})
	}
}

func TestCreateOrderUnapprovedBuyer(t *testing.T) {
	buyer := testBuyer(false)
	users := newMemUsers(buyer)
	product := testProduct("SKU-1", 10000, nil, models.SizeStock{Size: "9", Inventory: 10})
	products := newMemProducts(product)
	svc := newOrderService(products, &memOrders{}, users)

	_, err := svc.CreateOrder(context.Background(), Caller{UserID: buyer.ID.Hex(), Role: buyer.Role}, CreateOrderRequest{
		Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: 1}},
		PaymentMethod: "invoice",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestCreateOrderInactiveProduct(t *testing.T) {
	buyer := testBuyer(true)
	users := newMemUsers(buyer)
	product := testProduct("SKU-1", 10000, nil, models.SizeStock{Size: "9", Inventory: 10})
	product.IsActive = false
	products := newMemProducts(product)
	svc := newOrderService(products, &memOrders{}, users)

	_, err := svc.CreateOrder(context.Background(), Caller{UserID: buyer.ID.Hex(), Role: buyer.Role}, CreateOrderRequest{
		Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: 1}},
		PaymentMethod: "invoice",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidLine, apperr.CodeOf(err))
}

func TestCreateOrderDuplicateLinesShareSnapshot(t *testing.T) {
	buyer := testBuyer(true)
	users := newMemUsers(buyer)
	product := testProduct("SKU-1", 10000, nil, models.SizeStock{Size: "9", Inventory: 100})
	products := newMemProducts(product)
	orders := &memOrders{}
	svc := newOrderService(products, orders, users)

	// 60 + 60 exceeds the 100 on hand even though each line alone fits
	_, err := svc.CreateOrder(context.Background(), Caller{UserID: buyer.ID.Hex(), Role: buyer.Role}, CreateOrderRequest{
		Items: []OrderLineRequest{
			{Product: product.ID.Hex(), Size: "9", Quantity: 60},
			{Product: product.ID.Hex(), Size: "9", Quantity: 60},
		},
		PaymentMethod: "invoice",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInsufficientInventory, apperr.CodeOf(err))
	assert.Equal(t, int64(100), products.inventory(product.ID.Hex(), "9"))
	assert.Equal(t, 0, orders.count())
}

func TestCreateOrderInsertFailureReleasesReservation(t *testing.T) {
	buyer := testBuyer(true)
	users := newMemUsers(buyer)
	product := testProduct("SKU-1", 10000, nil, models.SizeStock{Size: "9", Inventory: 100})
	products := newMemProducts(product)
	orders := &memOrders{failInsert: true}
	svc := newOrderService(products, orders, users)

	_, err := svc.CreateOrder(context.Background(), Caller{UserID: buyer.ID.Hex(), Role: buyer.Role}, CreateOrderRequest{
		Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: 60}},
		PaymentMethod: "invoice",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
	assert.Equal(t, int64(100), products.inventory(product.ID.Hex(), "9"))
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	buyer := testBuyer(true)
	users := newMemUsers(buyer)
	product := testProduct("SKU-1", 10000, nil, models.SizeStock{Size: "9", Inventory: 10})
	products := newMemProducts(product)
	orders := &memOrders{}
	svc := newOrderService(products, orders, users)
	caller := Caller{UserID: buyer.ID.Hex(), Role: buyer.Role}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var sold int64
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := svc.CreateOrder(context.Background(), caller, CreateOrderRequest{
				Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: 1}},
				PaymentMethod: "invoice",
			})
			if err == nil {
				mu.Lock()
				sold += order.Items[0].Quantity
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, sold, int64(10))
	assert.Equal(t, int64(10)-sold, products.inventory(product.ID.Hex(), "9"))
}

func TestGetOrderOwnership(t *testing.T) {
	owner := testBuyer(true)
	other := testBuyer(true)
	other.Email = "other@acme.test"
	users := newMemUsers(owner, other)
	product := testProduct("SKU-1", 10000, nil, models.SizeStock{Size: "9", Inventory: 10})
	products := newMemProducts(product)
	orders := &memOrders{}
	svc := newOrderService(products, orders, users)

	order, err := svc.CreateOrder(context.Background(), Caller{UserID: owner.ID.Hex(), Role: owner.Role}, CreateOrderRequest{
		Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: 1}},
		PaymentMethod: "invoice",
	})
	require.NoError(t, err)

	got, err := svc.GetOrder(context.Background(), Caller{UserID: owner.ID.Hex(), Role: models.RoleBuyer}, order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = svc.GetOrder(context.Background(), Caller{UserID: other.ID.Hex(), Role: models.RoleBuyer}, order.ID.Hex())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = svc.GetOrder(context.Background(), Caller{UserID: other.ID.Hex(), Role: models.RoleAdmin}, order.ID.Hex())
	assert.NoError(t, err, "admin reads any order")
}

func TestListOrdersScopedToOwner(t *testing.T) {
	a := testBuyer(true)
	b := testBuyer(true)
	b.Email = "b@acme.test"
	users := newMemUsers(a, b)
	product := testProduct("SKU-1", 10000, nil, models.SizeStock{Size: "9", Inventory: 100})
	products := newMemProducts(product)
	orders := &memOrders{}
	svc := newOrderService(products, orders, users)

	for _, u := range []*models.User{a, a, b} {
		_, err := svc.CreateOrder(context.Background(), Caller{UserID: u.ID.Hex(), Role: u.Role}, CreateOrderRequest{
			Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: 1}},
			PaymentMethod: "invoice",
		})
		require.NoError(t, err)
	}

	mine, total, err := svc.ListOrders(context.Background(), Caller{UserID: a.ID.Hex(), Role: models.RoleBuyer}, ListOrdersRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, o := range mine {
		assert.Equal(t, a.ID, o.User)
	}

	all, total, err := svc.ListOrders(context.Background(), Caller{UserID: a.ID.Hex(), Role: models.RoleAdmin}, ListOrdersRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)
}

func TestUpdateOrderTransitions(t *testing.T) {
	buyer := testBuyer(true)
	users := newMemUsers(buyer)
	product := testProduct("SKU-1", 10000, nil, models.SizeStock{Size: "9", Inventory: 100})
	products := newMemProducts(product)
	orders := &memOrders{}
	svc := newOrderService(products, orders, users)

	order, err := svc.CreateOrder(context.Background(), Caller{UserID: buyer.ID.Hex(), Role: buyer.Role}, CreateOrderRequest{
		Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: 10}},
		PaymentMethod: "invoice",
	})
	require.NoError(t, err)
	id := order.ID.Hex()

	status := func(s models.OrderStatus) *models.OrderStatus { return &s }
	payment := func(s models.PaymentStatus) *models.PaymentStatus { return &s }

	// skipping a state is rejected
	_, err = svc.UpdateOrder(context.Background(), id, UpdateOrderRequest{Status: status(models.OrderShipped)})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	for _, next := range []models.OrderStatus{models.OrderConfirmed, models.OrderProcessing, models.OrderShipped} {
		_, err = svc.UpdateOrder(context.Background(), id, UpdateOrderRequest{Status: status(next)})
		require.NoError(t, err, "transition to %s", next)
	}

	updated, err := svc.UpdateOrder(context.Background(), id, UpdateOrderRequest{Status: status(models.OrderDelivered)})
	require.NoError(t, err)
	require.NotNil(t, updated.DeliveredAt)

	// terminal state
	_, err = svc.UpdateOrder(context.Background(), id, UpdateOrderRequest{Status: status(models.OrderCancelled)})
	require.Error(t, err)

	updated, err = svc.UpdateOrder(context.Background(), id, UpdateOrderRequest{PaymentStatus: payment(models.PaymentPaid)})
	require.NoError(t, err)
	require.NotNil(t, updated.PaidAt)
	assert.Equal(t, models.PaymentPaid, updated.PaymentStatus)

	// payment axis is one-way once settled
	_, err = svc.UpdateOrder(context.Background(), id, UpdateOrderRequest{PaymentStatus: payment(models.PaymentFailed)})
	require.Error(t, err)
}

func TestCancelUnpaidOrderRestocks(t *testing.T) {
	buyer := testBuyer(true)
	users := newMemUsers(buyer)
	product := testProduct("SKU-1", 10000, nil, models.SizeStock{Size: "9", Inventory: 100})
	products := newMemProducts(product)
	orders := &memOrders{}
	svc := newOrderService(products, orders, users)

	order, err := svc.CreateOrder(context.Background(), Caller{UserID: buyer.ID.Hex(), Role: buyer.Role}, CreateOrderRequest{
		Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: 30}},
		PaymentMethod: "invoice",
	})
	require.NoError(t, err)
	require.Equal(t, int64(70), products.inventory(product.ID.Hex(), "9"))

	cancelled := models.OrderCancelled
	updated, err := svc.UpdateOrder(context.Background(), order.ID.Hex(), UpdateOrderRequest{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, updated.Status)
	assert.Equal(t, int64(100), products.inventory(product.ID.Hex(), "9"))
}

func TestCreateOrderTierBoundaryPerLineQuantity(t *testing.T) {
	buyer := testBuyer(true)
	users := newMemUsers(buyer)
	product := testProduct("SKU-1", 10000,
		[]models.PriceTier{
			{MinQuantity: 10, PriceCents: 9000},
			{MinQuantity: 50, PriceCents: 8500},
			{MinQuantity: 100, PriceCents: 8000},
		},
		models.SizeStock{Size: "9", Inventory: 1000},
	)
	products := newMemProducts(product)
	orders := &memOrders{}
	svc := newOrderService(products, orders, users)
	caller := Caller{UserID: buyer.ID.Hex(), Role: buyer.Role}

	for _, tc := range []struct {
		quantity int64
		want     int64
	}{{5, 10000}, {10, 9000}, {49, 9000}, {50, 8500}, {150, 8000}} {
		order, err := svc.CreateOrder(context.Background(), caller, CreateOrderRequest{
			Items:         []OrderLineRequest{{Product: product.ID.Hex(), Size: "9", Quantity: tc.quantity}},
			PaymentMethod: "invoice",
		})
		require.NoError(t, err, fmt.Sprintf("quantity %d", tc.quantity))
		assert.Equal(t, tc.want, order.Items[0].UnitPriceCents, "quantity %d", tc.quantity)
	}
}
