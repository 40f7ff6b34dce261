package dispatch

import (
	"context"
	"fmt"
	"testing"

	"marketplace-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.Manufacturer{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.ManufacturerOrder{},
		&model.ManufacturerOrderItem{},
		&model.ManufacturerOrderLog{},
	)
	require.NoError(t, err)
	return db
}

func uintPtr(v uint) *uint { return &v }

func createOrder(t *testing.T, db *gorm.DB, order *model.Order) *model.Order {
	t.Helper()
	if order.OrderNo == "" {
		order.OrderNo = fmt.Sprintf("ORD-%s", t.Name())
	}
	if order.Status == "" {
		order.Status = model.OrderStatusPaid
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestDispatch_SplitsByManufacturer(t *testing.T) {
	db := newTestDB(t)
	order := createOrder(t, db, &model.Order{
		UserID:          1,
		TotalAmount:     500,
		ReceiverName:    "Jamie Ford",
		ReceiverPhone:   "555-0101",
		ReceiverAddress: "12 Oak Lane",
		Items: []model.OrderItem{
			{ProductID: "p1", ManufacturerID: uintPtr(1), Quantity: 2, UnitPrice: 100, Subtotal: 200},
			{ProductID: "p2", ManufacturerID: uintPtr(2), Quantity: 1, UnitPrice: 180, Subtotal: 180},
			{ProductID: "p3", ManufacturerID: uintPtr(1), Quantity: 1, UnitPrice: 120, Subtotal: 120},
		},
	})

	result, err := NewService(db).Dispatch(context.Background(), order.ID, 42)
	require.NoError(t, err)
	require.Len(t, result.ManufacturerOrders, 2)
	assert.Zero(t, result.UnattributedItems)

	byKey := map[string]model.ManufacturerOrder{}
	for _, sub := range result.ManufacturerOrders {
		byKey[sub.ManufacturerKey] = sub
	}

	require.Contains(t, byKey, "1")
	require.Contains(t, byKey, "2")
	assert.Equal(t, 320.0, byKey["1"].Subtotal)
	assert.Len(t, byKey["1"].Items, 2)
	assert.Equal(t, 180.0, byKey["2"].Subtotal)
	assert.Len(t, byKey["2"].Items, 1)

	// Receiver snapshot lands on every sub-order.
	assert.Equal(t, "Jamie Ford", byKey["1"].ReceiverName)
	assert.Equal(t, "12 Oak Lane", byKey["2"].ReceiverAddress)

	// Parent order is marked dispatched with a timestamp.
	var reloaded model.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, model.DispatchStatusDispatched, reloaded.DispatchStatus)
	require.NotNil(t, reloaded.DispatchedAt)

	// Each sub-order starts pending with exactly one dispatch log entry.
	var logs []model.ManufacturerOrderLog
	require.NoError(t, db.Where("manufacturer_order_id = ?", byKey["1"].ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "dispatch", logs[0].Action)
	assert.Equal(t, model.ManufacturerOrderStatusPending, logs[0].ToStatus)
	assert.Equal(t, uint(42), logs[0].OperatorID)
}

func TestDispatch_OwnerOverrideWinsOverItemAttribution(t *testing.T) {
	db := newTestDB(t)
	order := createOrder(t, db, &model.Order{
		UserID:              1,
		OwnerManufacturerID: uintPtr(9),
		TotalAmount:         380,
		Items: []model.OrderItem{
			{ProductID: "p1", ManufacturerID: uintPtr(1), Quantity: 1, UnitPrice: 200, Subtotal: 200},
			{ProductID: "p2", ManufacturerID: uintPtr(2), Quantity: 1, UnitPrice: 180, Subtotal: 180},
		},
	})

	result, err := NewService(db).Dispatch(context.Background(), order.ID, 42)
	require.NoError(t, err)
	require.Len(t, result.ManufacturerOrders, 1)

	sub := result.ManufacturerOrders[0]
	assert.Equal(t, "9", sub.ManufacturerKey)
	require.NotNil(t, sub.ManufacturerID)
	assert.Equal(t, uint(9), *sub.ManufacturerID)
	assert.Equal(t, 380.0, sub.Subtotal)
	assert.Len(t, sub.Items, 2)
}

func TestDispatch_ProductFallbackAttribution(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&model.Product{ID: "p1", ManufacturerID: uintPtr(3), IsActive: true}).Error)
	order := createOrder(t, db, &model.Order{
		UserID:      1,
		TotalAmount: 150,
		Items: []model.OrderItem{
			{ProductID: "p1", Quantity: 1, UnitPrice: 150, Subtotal: 150},
		},
	})

	result, err := NewService(db).Dispatch(context.Background(), order.ID, 42)
	require.NoError(t, err)
	require.Len(t, result.ManufacturerOrders, 1)
	assert.Equal(t, "3", result.ManufacturerOrders[0].ManufacturerKey)
}

func TestDispatch_UnknownBucket(t *testing.T) {
	db := newTestDB(t)
	order := createOrder(t, db, &model.Order{
		UserID:      1,
		TotalAmount: 260,
		Items: []model.OrderItem{
			{ProductID: "ghost-1", Quantity: 1, UnitPrice: 100, Subtotal: 100},
			{ProductID: "ghost-2", Quantity: 2, UnitPrice: 80, Subtotal: 160},
		},
	})

	result, err := NewService(db).Dispatch(context.Background(), order.ID, 42)
	require.NoError(t, err)
	require.Len(t, result.ManufacturerOrders, 1)
	assert.Equal(t, 2, result.UnattributedItems)

	sub := result.ManufacturerOrders[0]
	assert.Equal(t, model.ManufacturerKeyUnknown, sub.ManufacturerKey)
	assert.Nil(t, sub.ManufacturerID)
	assert.Equal(t, 260.0, sub.Subtotal)
	assert.Len(t, sub.Items, 2)
}

func TestDispatch_RejectsSecondDispatch(t *testing.T) {
	db := newTestDB(t)
	order := createOrder(t, db, &model.Order{
		UserID:      1,
		TotalAmount: 200,
		Items: []model.OrderItem{
			{ProductID: "p1", ManufacturerID: uintPtr(1), Quantity: 1, UnitPrice: 200, Subtotal: 200},
		},
	})

	svc := NewService(db)
	_, err := svc.Dispatch(context.Background(), order.ID, 42)
	require.NoError(t, err)

	_, err = svc.Dispatch(context.Background(), order.ID, 42)
	assert.ErrorIs(t, err, ErrAlreadyDispatched)

	// Still exactly one sub-order per manufacturer.
	var count int64
	require.NoError(t, db.Model(&model.ManufacturerOrder{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDispatch_RejectsCancelledOrder(t *testing.T) {
	db := newTestDB(t)
	order := createOrder(t, db, &model.Order{
		UserID:      1,
		Status:      model.OrderStatusCancelled,
		TotalAmount: 200,
		Items: []model.OrderItem{
			{ProductID: "p1", ManufacturerID: uintPtr(1), Quantity: 1, UnitPrice: 200, Subtotal: 200},
		},
	})

	_, err := NewService(db).Dispatch(context.Background(), order.ID, 42)
	assert.ErrorIs(t, err, ErrOrderCancelled)
}

func TestDispatch_MissingOrder(t *testing.T) {
	db := newTestDB(t)
	_, err := NewService(db).Dispatch(context.Background(), 9999, 42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDispatch_SubtotalsNotRecomputed(t *testing.T) {
	// The frozen line subtotal wins even when it disagrees with price times
	// quantity: pricing resolution happened at placement and dispatch must not
	// second-guess it.
	db := newTestDB(t)
	order := createOrder(t, db, &model.Order{
		UserID:      1,
		TotalAmount: 170,
		Items: []model.OrderItem{
			{ProductID: "p1", ManufacturerID: uintPtr(1), Quantity: 2, UnitPrice: 100, Subtotal: 170},
		},
	})

	result, err := NewService(db).Dispatch(context.Background(), order.ID, 42)
	require.NoError(t, err)
	require.Len(t, result.ManufacturerOrders, 1)
	assert.Equal(t, 170.0, result.ManufacturerOrders[0].Subtotal)
}

func TestDispatch_UniqueIndexBlocksConcurrentDuplicate(t *testing.T) {
	// Simulates the losing side of a concurrent double-dispatch: a sub-order
	// for the same (order, manufacturer) pair already exists but the parent
	// order still reads as undispatched when the racer re-checks.
	db := newTestDB(t)
	order := createOrder(t, db, &model.Order{
		UserID:      1,
		TotalAmount: 200,
		Items: []model.OrderItem{
			{ProductID: "p1", ManufacturerID: uintPtr(1), Quantity: 1, UnitPrice: 200, Subtotal: 200},
		},
	})

	require.NoError(t, db.Create(&model.ManufacturerOrder{
		OrderID:         order.ID,
		ManufacturerKey: "1",
		ManufacturerID:  uintPtr(1),
		Status:          model.ManufacturerOrderStatusPending,
		Subtotal:        200,
	}).Error)

	err := db.Create(&model.ManufacturerOrder{
		OrderID:         order.ID,
		ManufacturerKey: "1",
		ManufacturerID:  uintPtr(1),
		Status:          model.ManufacturerOrderStatusPending,
		Subtotal:        200,
	}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
