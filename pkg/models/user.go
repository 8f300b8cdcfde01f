package models

import (
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// User mirrors an identity-provider account. Accounts are created and
// authenticated elsewhere; this record exists for role checks and for the
// back-office client views.
type User struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email       string    `gorm:"type:varchar(200);uniqueIndex;not null" json:"email"`
	Role        string    `gorm:"type:varchar(20);default:'client'" json:"role"`
	DisplayName string    `gorm:"type:varchar(200)" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
