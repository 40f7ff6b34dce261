package dispatch

import (
	"context"
	"fmt"

	"marketplace-service/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// allowedTransitions is the manufacturer sub-order state machine. Creation
// (dispatch) is the only transition not initiated by the manufacturer.
var allowedTransitions = map[model.ManufacturerOrderStatus][]model.ManufacturerOrderStatus{
	model.ManufacturerOrderStatusPending:    {model.ManufacturerOrderStatusConfirmed, model.ManufacturerOrderStatusCancelled},
	model.ManufacturerOrderStatusConfirmed:  {model.ManufacturerOrderStatusProcessing, model.ManufacturerOrderStatusCancelled},
	model.ManufacturerOrderStatusProcessing: {model.ManufacturerOrderStatusShipped},
	model.ManufacturerOrderStatusShipped:    {model.ManufacturerOrderStatusCompleted},
}

func transitionAllowed(from, to model.ManufacturerOrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusUpdate carries the optional fields of a lifecycle transition
type StatusUpdate struct {
	Status          model.ManufacturerOrderStatus
	TrackingNo      string
	TrackingCompany string
	Remark          string
}

// Confirm moves a sub-order from pending to confirmed. Confirming anything but
// a pending sub-order fails with the current state in the error.
func (s *Service) Confirm(ctx context.Context, id uint, operatorID uint) (*model.ManufacturerOrder, error) {
	return s.transition(ctx, id, operatorID, StatusUpdate{Status: model.ManufacturerOrderStatusConfirmed}, "confirm")
}

// UpdateStatus applies a manufacturer-initiated lifecycle transition. A move to
// shipped records the tracking number and company when provided.
func (s *Service) UpdateStatus(ctx context.Context, id uint, operatorID uint, update StatusUpdate) (*model.ManufacturerOrder, error) {
	return s.transition(ctx, id, operatorID, update, "update_status")
}

// transition validates and persists one state change plus its audit log entry
// in a single transaction. Logs are append-only and never rewritten.
func (s *Service) transition(ctx context.Context, id uint, operatorID uint, update StatusUpdate, action string) (*model.ManufacturerOrder, error) {
	var sub model.ManufacturerOrder

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, id).Error; err != nil {
			return fmt.Errorf("load manufacturer order %d: %w", id, err)
		}

		from := sub.Status
		to := update.Status
		if !to.IsValid() || !transitionAllowed(from, to) {
			return &InvalidTransitionError{From: from, To: to}
		}

		updates := map[string]interface{}{"status": to}
		if to == model.ManufacturerOrderStatusShipped {
			if update.TrackingNo != "" {
				updates["tracking_no"] = update.TrackingNo
			}
			if update.TrackingCompany != "" {
				updates["tracking_company"] = update.TrackingCompany
			}
		}
		if err := tx.Model(&sub).Updates(updates).Error; err != nil {
			return fmt.Errorf("update manufacturer order %d: %w", id, err)
		}

		remark := update.Remark
		if remark == "" {
			remark = fmt.Sprintf("status changed from %s to %s", from, to)
		}
		logEntry := model.ManufacturerOrderLog{
			ManufacturerOrderID: sub.ID,
			Action:              action,
			FromStatus:          from,
			ToStatus:            to,
			Remark:              remark,
			OperatorID:          operatorID,
		}
		if err := tx.Create(&logEntry).Error; err != nil {
			return fmt.Errorf("append manufacturer order log: %w", err)
		}

		sub.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("manufacturer order transition",
		zap.Uint("manufacturer_order_id", id),
		zap.String("action", action),
		zap.String("status", string(sub.Status)),
		zap.Uint("operator_id", operatorID))
	return &sub, nil
}

// ListFilter narrows manufacturer order listings
type ListFilter struct {
	Status         model.ManufacturerOrderStatus
	ManufacturerID *uint
	Keyword        string
	Page           int
	Limit          int
}

// List returns a page of manufacturer orders matching the filter, newest
// first. Keyword matches the manufacturer key, tracking number or receiver
// name. Caller-side scoping (non-admins see only their own manufacturer) is
// applied by setting ManufacturerID.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]model.ManufacturerOrder, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&model.ManufacturerOrder{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ManufacturerID != nil {
		query = query.Where("manufacturer_id = ?", *filter.ManufacturerID)
	}
	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		query = query.Where("manufacturer_key LIKE ? OR tracking_no LIKE ? OR receiver_name LIKE ?", kw, kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count manufacturer orders: %w", err)
	}

	var orders []model.ManufacturerOrder
	err := query.
		Preload("Items").
		Order("created_at desc").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list manufacturer orders: %w", err)
	}
	return orders, total, nil
}

// Get loads one manufacturer order with its items and logs
func (s *Service) Get(ctx context.Context, id uint) (*model.ManufacturerOrder, error) {
	var sub model.ManufacturerOrder
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Logs", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
