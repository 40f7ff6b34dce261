package model

import (
	"time"
)

// OrderStatus represents the status of a customer order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// DispatchStatus tracks whether an order has been split into manufacturer orders
type DispatchStatus string

const (
	DispatchStatusPending    DispatchStatus = "pending"
	DispatchStatusDispatched DispatchStatus = "dispatched"
)

// Order represents a customer-facing order. OwnerManufacturerID, when set,
// asserts that the placing actor's linked manufacturer identity owns every item
// regardless of per-item attribution. Immutable once dispatched except for
// status fields.
type Order struct {
	ID                  uint           `json:"id" gorm:"primaryKey"`
	OrderNo             string         `json:"order_no" gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID              uint           `json:"user_id" gorm:"index;not null"`
	Status              OrderStatus    `json:"status" gorm:"type:varchar(20);index;not null;default:'pending'"`
	OwnerManufacturerID *uint          `json:"owner_manufacturer_id,omitempty" gorm:"index"`
	DispatchStatus      DispatchStatus `json:"dispatch_status" gorm:"type:varchar(20);index;not null;default:'pending'"`
	DispatchedAt        *time.Time     `json:"dispatched_at,omitempty"`
	TotalAmount         float64        `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	ReceiverName        string         `json:"receiver_name" gorm:"type:varchar(100)"`
	ReceiverPhone       string         `json:"receiver_phone" gorm:"type:varchar(20)"`
	ReceiverAddress     string         `json:"receiver_address" gorm:"type:text"`
	Items               []OrderItem    `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// OrderItem is one line of an order. Subtotal is frozen at placement time from
// the discount/commission resolution and is never recomputed at dispatch.
type OrderItem struct {
	ID             uint    `json:"id" gorm:"primaryKey"`
	OrderID        uint    `json:"order_id" gorm:"index;not null"`
	ProductID      string  `json:"product_id" gorm:"type:varchar(50);index;not null"`
	ProductTitle   string  `json:"product_title" gorm:"type:varchar(200)"`
	ManufacturerID *uint   `json:"manufacturer_id,omitempty" gorm:"index"`
	Quantity       int     `json:"quantity" gorm:"not null"`
	UnitPrice      float64 `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Subtotal       float64 `json:"subtotal" gorm:"type:decimal(12,2);not null"`
}

// Product is the read-side view of the catalog consumed by this service.
// Catalog CRUD lives in the catalog service; only the fields needed for
// manufacturer attribution and scope checks are mapped here.
type Product struct {
	ID             string  `json:"id" gorm:"type:varchar(50);primaryKey"`
	Title          string  `json:"title" gorm:"type:varchar(200)"`
	ManufacturerID *uint   `json:"manufacturer_id,omitempty" gorm:"index"`
	CategoryID     string  `json:"category_id" gorm:"type:varchar(50);index"`
	Price          float64 `json:"price" gorm:"type:decimal(12,2)"`
	IsActive       bool    `json:"is_active" gorm:"default:true"`
}
