package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is a customer of the tenant. Portal users are linked through UserID.
type Client struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TenantID  uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;index"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid"`
	Name      string     `gorm:"column:name;not null"`
	Phone     *string    `gorm:"column:phone"`
	Email     *string    `gorm:"column:email"`
	Address   *string    `gorm:"column:address"`
	Notes     *string    `gorm:"column:notes"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
