package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]*product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) Create(_ context.Context, _ *product.Product) error {
	return nil
}

type mockCouponRepo struct {
	byCode map[string]*coupon.Rule
	err    error
}

func (m *mockCouponRepo) FindActiveByCode(_ context.Context, code string) (*coupon.Rule, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.byCode[code]
	if !ok {
		return nil, coupon.ErrInvalidCoupon
	}
	return r, nil
}

func (m *mockCouponRepo) List(_ context.Context) ([]coupon.Rule, error) {
	return nil, nil
}

func (m *mockCouponRepo) Create(_ context.Context, _ *coupon.Rule) error {
	return nil
}

type mockOrderRepo struct {
	lastOrder *Order
	err       error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.lastOrder = o
	return m.err
}

func (m *mockOrderRepo) List(_ context.Context) ([]Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ string, _ Status) error {
	return nil
}

// --- Helpers ---

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestProduct(id, name string, price decimal.Decimal, stock int) product.Product {
	return product.Product{
		ID:    id,
		Name:  name,
		Price: price,
		Stock: stock,
		Image: "products/" + id + ".jpg",
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func newCouponRepo(rules ...coupon.Rule) *mockCouponRepo {
	byCode := make(map[string]*coupon.Rule, len(rules))
	for i := range rules {
		byCode[rules[i].Code] = &rules[i]
	}
	return &mockCouponRepo{byCode: byCode}
}

func newTestService(products *mockProductRepo, coupons *mockCouponRepo, orders *mockOrderRepo) *Service {
	svc := NewService(products, coupons, orders)
	svc.now = func() time.Time { return testNow }
	return svc
}

func activeRule(code string, dt coupon.DiscountType, value, minCart decimal.Decimal) coupon.Rule {
	return coupon.Rule{
		ID:           "cpn-" + code,
		Code:         code,
		DiscountType: dt,
		Value:        value,
		MinCartValue: minCart,
		ValidFrom:    testNow.Add(-24 * time.Hour),
		ValidTo:      testNow.Add(24 * time.Hour),
		Active:       true,
	}
}

// --- Tests ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	svc := newTestService(newProductRepo(), newCouponRepo(), &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10), 5)
	svc := newTestService(newProductRepo(p1), newCouponRepo(), &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "p1", Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	svc := newTestService(newProductRepo(), newCouponRepo(), &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "missing", Quantity: 1}},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10), 2)
	svc := newTestService(newProductRepo(p1), newCouponRepo(), &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "p1", Quantity: 3}},
	})

	var issErr *InsufficientStockError
	require.ErrorAs(t, err, &issErr)
	assert.Equal(t, "p1", issErr.ProductID)
	assert.Contains(t, issErr.Error(), "Widget")
}

func TestPlaceOrder_NoCoupon(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"), 5)
	p2 := newTestProduct("p2", "Gadget", decimal.RequireFromString("20.00"), 5)
	repo := &mockOrderRepo{}
	svc := newTestService(newProductRepo(p1, p2), newCouponRepo(), repo)

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Items: []ItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("40.00").Equal(o.Total))
	assert.Empty(t, o.CouponID)
	assert.Equal(t, StatusPending, o.Status)
	assert.Len(t, o.Items, 2)
	require.NotNil(t, repo.lastOrder)
	assert.Equal(t, o.ID, repo.lastOrder.ID)
}

func TestPlaceOrder_SnapshotsUnitPrice(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("9.99"), 5)
	svc := newTestService(newProductRepo(p1), newCouponRepo(), &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "p1", Quantity: 2}},
	})

	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.True(t, decimal.RequireFromString("9.99").Equal(o.Items[0].Price))
	assert.Equal(t, 2, o.Items[0].Quantity)
}

func TestPlaceOrder_FlatCoupon(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("30.00"), 5)
	rule := activeRule("SAVE20", coupon.DiscountFlat, decimal.NewFromInt(20), decimal.NewFromInt(50))
	svc := newTestService(newProductRepo(p1), newCouponRepo(rule), &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 2}},
		CouponCode: "SAVE20",
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("40.00").Equal(o.Total))
	assert.Equal(t, "SAVE20", o.CouponCode)
	assert.Equal(t, "cpn-SAVE20", o.CouponID)
}

func TestPlaceOrder_PercentageCoupon(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("50.00"), 5)
	rule := activeRule("TWENTY", coupon.DiscountPercentage, decimal.NewFromInt(20), decimal.Zero)
	svc := newTestService(newProductRepo(p1), newCouponRepo(rule), &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 2}},
		CouponCode: "TWENTY",
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("80.00").Equal(o.Total))
}

func TestPlaceOrder_FlatCouponFlooredAtZero(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"), 5)
	rule := activeRule("HUGE", coupon.DiscountFlat, decimal.NewFromInt(999), decimal.Zero)
	svc := newTestService(newProductRepo(p1), newCouponRepo(rule), &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
		CouponCode: "HUGE",
	})

	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(o.Total))
}

func TestPlaceOrder_UnknownCouponIgnored(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"), 5)
	svc := newTestService(newProductRepo(p1), newCouponRepo(), &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
		CouponCode: "BOGUS",
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Total))
	assert.Empty(t, o.CouponID)
	assert.Empty(t, o.CouponCode)
}

func TestPlaceOrder_ExpiredCouponIgnored(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"), 5)
	rule := activeRule("BYGONE", coupon.DiscountPercentage, decimal.NewFromInt(50), decimal.Zero)
	rule.ValidFrom = testNow.Add(-48 * time.Hour)
	rule.ValidTo = testNow.Add(-24 * time.Hour)
	svc := newTestService(newProductRepo(p1), newCouponRepo(rule), &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
		CouponCode: "BYGONE",
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Total))
	assert.Empty(t, o.CouponID)
}

func TestPlaceOrder_BelowMinimumCouponIgnored(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"), 5)
	rule := activeRule("SAVE20", coupon.DiscountFlat, decimal.NewFromInt(20), decimal.NewFromInt(50))
	svc := newTestService(newProductRepo(p1), newCouponRepo(rule), &mockOrderRepo{})

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 1}},
		CouponCode: "SAVE20",
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Total))
	assert.Empty(t, o.CouponID)
}

func TestPlaceOrder_GuestOrder(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"), 5)
	repo := &mockOrderRepo{}
	svc := newTestService(newProductRepo(p1), newCouponRepo(), repo)

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		FullName: "Guest Buyer",
		Email:    "guest@example.com",
		Items:    []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})

	require.NoError(t, err)
	assert.Empty(t, o.UserID)
	assert.Equal(t, "Guest Buyer", repo.lastOrder.FullName)
}

func TestPlaceOrder_StockRaceSurfacedFromRepository(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.RequireFromString("10.00"), 5)
	repo := &mockOrderRepo{err: &InsufficientStockError{ProductID: "p1", Name: "Widget"}}
	svc := newTestService(newProductRepo(p1), newCouponRepo(), repo)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})

	var issErr *InsufficientStockError
	require.ErrorAs(t, err, &issErr)
	assert.Equal(t, "p1", issErr.ProductID)
}

func TestPlaceOrder_OrderCreateError(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", decimal.NewFromInt(10), 5)
	svc := newTestService(
		newProductRepo(p1),
		newCouponRepo(),
		&mockOrderRepo{err: errors.New("db write failed")},
	)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}
