package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromoCode is a percentage discount code. UsageLimit 0 means unlimited.
// Code is stored upper-cased and trimmed.
type PromoCode struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code               string          `gorm:"uniqueIndex;not null"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	UsageLimit         int             `gorm:"not null;default:0"`
	UsageCount         int             `gorm:"not null;default:0"`
	Active             bool            `gorm:"not null;default:true"`
	CreatedAt          time.Time
}

// Aplicable reports whether the code may still be used.
func (p *PromoCode) Aplicable() bool {
	return p.Active && (p.UsageLimit == 0 || p.UsageCount < p.UsageLimit)
}
