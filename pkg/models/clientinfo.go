package models

import (
	"time"
)

// ClientInfo is a saved billing/shipping profile a customer reuses across
// checkouts. Orders copy its fields instead of referencing it, so editing or
// deleting a profile never touches past orders.
type ClientInfo struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	CompanyName string    `gorm:"type:varchar(200)" json:"company_name"`
	MersisNo    string    `gorm:"type:varchar(64)" json:"mersis_no"`
	TaxNo       string    `gorm:"type:varchar(64)" json:"tax_no"`
	Phone       string    `gorm:"type:varchar(32)" json:"phone"`
	Email       string    `gorm:"type:varchar(200)" json:"email"`
	Name        string    `gorm:"type:varchar(200)" json:"name"`
	Address     string    `gorm:"type:text" json:"address"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ClientInfo) TableName() string {
	return "client_infos"
}
