package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"marketplace-service/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service splits placed orders into per-manufacturer sub-orders and drives each
// sub-order through its fulfillment lifecycle.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewService creates a dispatch service backed by the given database handle
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, log: zap.L().Named("dispatch")}
}

// DispatchResult is the outcome of splitting one order
type DispatchResult struct {
	ManufacturerOrders []model.ManufacturerOrder `json:"manufacturer_orders"`
	// UnattributedItems counts items that landed in the "unknown" bucket and
	// need manual manufacturer assignment.
	UnattributedItems int `json:"unattributed_items"`
}

// Dispatch splits the order into one ManufacturerOrder per resolved
// manufacturer. It runs in a single transaction: the existence check, the
// sub-order inserts and the parent order status flip commit or roll back
// together, and the unique (order_id, manufacturer_key) index turns a
// concurrent double-dispatch into a conflict instead of duplicate sub-orders.
func (s *Service) Dispatch(ctx context.Context, orderID uint, operatorID uint) (*DispatchResult, error) {
	result := &DispatchResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.Order
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			return fmt.Errorf("load order %d: %w", orderID, err)
		}

		if order.Status == model.OrderStatusCancelled {
			return ErrOrderCancelled
		}
		if order.DispatchStatus == model.DispatchStatusDispatched {
			return ErrAlreadyDispatched
		}

		var existing int64
		if err := tx.Model(&model.ManufacturerOrder{}).Where("order_id = ?", order.ID).Count(&existing).Error; err != nil {
			return fmt.Errorf("check existing manufacturer orders: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyDispatched
		}

		groups, keys, err := s.groupItems(tx, &order)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, key := range keys {
			group := groups[key]
			sub := model.ManufacturerOrder{
				OrderID:         order.ID,
				ManufacturerKey: key,
				ManufacturerID:  group.manufacturerID,
				Status:          model.ManufacturerOrderStatusPending,
				Subtotal:        group.subtotal,
				ReceiverName:    order.ReceiverName,
				ReceiverPhone:   order.ReceiverPhone,
				ReceiverAddress: order.ReceiverAddress,
				Items:           group.items,
			}
			remark := fmt.Sprintf("dispatched %d item(s) from order %s", len(group.items), order.OrderNo)
			if key == model.ManufacturerKeyUnknown {
				remark = fmt.Sprintf("dispatched %d item(s) from order %s with no resolvable manufacturer; manual assignment required", len(group.items), order.OrderNo)
				result.UnattributedItems = len(group.items)
			}
			sub.Logs = []model.ManufacturerOrderLog{{
				Action:     "dispatch",
				ToStatus:   model.ManufacturerOrderStatusPending,
				Remark:     remark,
				OperatorID: operatorID,
				CreatedAt:  now,
			}}

			if err := tx.Create(&sub).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// A concurrent dispatch won the race.
					return ErrAlreadyDispatched
				}
				return fmt.Errorf("create manufacturer order for %s: %w", key, err)
			}
			result.ManufacturerOrders = append(result.ManufacturerOrders, sub)
		}

		updates := map[string]interface{}{
			"dispatch_status": model.DispatchStatusDispatched,
			"dispatched_at":   now,
		}
		if err := tx.Model(&model.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("mark order dispatched: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order dispatched",
		zap.Uint("order_id", orderID),
		zap.Int("manufacturer_orders", len(result.ManufacturerOrders)),
		zap.Int("unattributed_items", result.UnattributedItems))
	return result, nil
}

// itemGroup accumulates the items attributed to one manufacturer key
type itemGroup struct {
	manufacturerID *uint
	subtotal       float64
	items          []model.ManufacturerOrderItem
}

// groupItems buckets order items by resolved manufacturer. The order-level
// owner override beats per-item attribution for every item; otherwise the item
// manufacturer wins, then the product's own manufacturer, then the "unknown"
// bucket. Subtotals are accumulated from the frozen line subtotals, never
// recomputed from price and quantity.
func (s *Service) groupItems(tx *gorm.DB, order *model.Order) (map[string]*itemGroup, []string, error) {
	groups := map[string]*itemGroup{}
	var keys []string

	for _, item := range order.Items {
		manufacturerID, err := s.resolveManufacturer(tx, order, &item)
		if err != nil {
			return nil, nil, err
		}

		key := model.ManufacturerKeyUnknown
		if manufacturerID != nil {
			key = strconv.FormatUint(uint64(*manufacturerID), 10)
		}

		group, ok := groups[key]
		if !ok {
			group = &itemGroup{manufacturerID: manufacturerID}
			groups[key] = group
			keys = append(keys, key)
		}
		group.subtotal += item.Subtotal
		group.items = append(group.items, model.ManufacturerOrderItem{
			OrderItemID:  item.ID,
			ProductID:    item.ProductID,
			ProductTitle: item.ProductTitle,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Subtotal:     item.Subtotal,
		})
	}
	return groups, keys, nil
}

// resolveManufacturer computes one item's owning manufacturer
func (s *Service) resolveManufacturer(tx *gorm.DB, order *model.Order, item *model.OrderItem) (*uint, error) {
	if order.OwnerManufacturerID != nil {
		return order.OwnerManufacturerID, nil
	}
	if item.ManufacturerID != nil {
		return item.ManufacturerID, nil
	}

	var product model.Product
	err := tx.Where("id = ?", item.ProductID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", item.ProductID, err)
	}
	return product.ManufacturerID, nil
}
