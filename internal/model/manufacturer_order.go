package model

import (
	"time"
)

// ManufacturerKeyUnknown is the sentinel grouping key for order items whose
// manufacturer cannot be resolved at dispatch time. Such items are grouped into
// a single sub-order flagged for manual assignment instead of being dropped.
const ManufacturerKeyUnknown = "unknown"

// ManufacturerOrderStatus is the fulfillment state of a manufacturer sub-order
type ManufacturerOrderStatus string

const (
	ManufacturerOrderStatusPending    ManufacturerOrderStatus = "pending"
	ManufacturerOrderStatusConfirmed  ManufacturerOrderStatus = "confirmed"
	ManufacturerOrderStatusProcessing ManufacturerOrderStatus = "processing"
	ManufacturerOrderStatusShipped    ManufacturerOrderStatus = "shipped"
	ManufacturerOrderStatusCompleted  ManufacturerOrderStatus = "completed"
	ManufacturerOrderStatusCancelled  ManufacturerOrderStatus = "cancelled"
)

// IsValid checks if the status is a known lifecycle state
func (s ManufacturerOrderStatus) IsValid() bool {
	switch s {
	case ManufacturerOrderStatusPending, ManufacturerOrderStatusConfirmed,
		ManufacturerOrderStatusProcessing, ManufacturerOrderStatusShipped,
		ManufacturerOrderStatusCompleted, ManufacturerOrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed from this state
func (s ManufacturerOrderStatus) IsTerminal() bool {
	return s == ManufacturerOrderStatusCompleted || s == ManufacturerOrderStatusCancelled
}

// ManufacturerOrder is the per-manufacturer sub-order produced by dispatching a
// customer order. The (OrderID, ManufacturerKey) pair is unique so concurrent
// dispatches of the same order conflict at the storage layer instead of
// double-creating sub-orders. Receiver fields are snapshotted from the parent
// order so manufacturer staff never need to read it.
type ManufacturerOrder struct {
	ID              uint                    `json:"id" gorm:"primaryKey"`
	OrderID         uint                    `json:"order_id" gorm:"uniqueIndex:idx_manufacturer_order_dispatch;not null"`
	ManufacturerKey string                  `json:"manufacturer_key" gorm:"type:varchar(50);uniqueIndex:idx_manufacturer_order_dispatch;not null"`
	ManufacturerID  *uint                   `json:"manufacturer_id,omitempty" gorm:"index"`
	Status          ManufacturerOrderStatus `json:"status" gorm:"type:varchar(20);index;not null;default:'pending'"`
	Subtotal        float64                 `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	ReceiverName    string                  `json:"receiver_name" gorm:"type:varchar(100)"`
	ReceiverPhone   string                  `json:"receiver_phone" gorm:"type:varchar(20)"`
	ReceiverAddress string                  `json:"receiver_address" gorm:"type:text"`
	TrackingNo      string                  `json:"tracking_no" gorm:"type:varchar(100)"`
	TrackingCompany string                  `json:"tracking_company" gorm:"type:varchar(100)"`
	Items           []ManufacturerOrderItem `json:"items" gorm:"foreignKey:ManufacturerOrderID;constraint:OnDelete:CASCADE"`
	Logs            []ManufacturerOrderLog  `json:"logs" gorm:"foreignKey:ManufacturerOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// ManufacturerOrderItem snapshots one attributed order line onto a sub-order
type ManufacturerOrderItem struct {
	ID                  uint    `json:"id" gorm:"primaryKey"`
	ManufacturerOrderID uint    `json:"manufacturer_order_id" gorm:"index;not null"`
	OrderItemID         uint    `json:"order_item_id" gorm:"index;not null"`
	ProductID           string  `json:"product_id" gorm:"type:varchar(50);not null"`
	ProductTitle        string  `json:"product_title" gorm:"type:varchar(200)"`
	Quantity            int     `json:"quantity" gorm:"not null"`
	UnitPrice           float64 `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Subtotal            float64 `json:"subtotal" gorm:"type:decimal(12,2);not null"`
}

// ManufacturerOrderLog is one append-only audit entry on a sub-order.
// Log rows are never updated or deleted.
type ManufacturerOrderLog struct {
	ID                  uint                    `json:"id" gorm:"primaryKey"`
	ManufacturerOrderID uint                    `json:"manufacturer_order_id" gorm:"index;not null"`
	Action              string                  `json:"action" gorm:"type:varchar(50);not null"`
	FromStatus          ManufacturerOrderStatus `json:"from_status" gorm:"type:varchar(20)"`
	ToStatus            ManufacturerOrderStatus `json:"to_status" gorm:"type:varchar(20)"`
	Remark              string                  `json:"remark" gorm:"type:text"`
	OperatorID          uint                    `json:"operator_id"`
	CreatedAt           time.Time               `json:"created_at"`
}
