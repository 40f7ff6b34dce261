package model

import (
	"time"

	"gorm.io/gorm"
)

// Manufacturer represents a vendor that owns a catalog and may authorize
// downstream resellers. DefaultDiscountRate and DefaultCommissionRate are the
// fallbacks applied whenever an authorization edge carries no explicit override.
type Manufacturer struct {
	ID                    uint           `json:"id" gorm:"primaryKey"`
	Code                  string         `json:"code" gorm:"type:varchar(50);uniqueIndex;not null"`
	Name                  string         `json:"name" gorm:"type:varchar(100);index;not null"`
	FullName              string         `json:"full_name" gorm:"type:varchar(200);index"`
	ShortName             string         `json:"short_name" gorm:"type:varchar(100);index"`
	ContactPerson         string         `json:"contact_person" gorm:"type:varchar(100)"`
	Phone                 string         `json:"phone" gorm:"type:varchar(20)"`
	Address               string         `json:"address" gorm:"type:text"`
	DefaultDiscountRate   float64        `json:"default_discount_rate" gorm:"type:decimal(5,2);default:100"`
	DefaultCommissionRate float64        `json:"default_commission_rate" gorm:"type:decimal(5,2);default:0"`
	IsActive              bool           `json:"is_active" gorm:"default:true"`
	CreatedBy             uint           `json:"created_by" gorm:"index"`
	UpdatedBy             uint           `json:"updated_by"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
