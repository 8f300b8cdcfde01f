package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusClosed    OrderStatus = "CLOSED"
)

// Terminal reports whether no further transition is defined out of s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusCancelled || s == OrderStatusClosed
}

type Order struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID string `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Items  string `gorm:"type:text" json:"-"` // JSON string of []OrderItem

	// Customer fields copied from a saved ClientInfo or the checkout form.
	CustomerName string `gorm:"type:varchar(200)" json:"customer_name"`
	Phone        string `gorm:"type:varchar(32)" json:"phone"`
	Email        string `gorm:"type:varchar(200)" json:"email"`
	CompanyName  string `gorm:"type:varchar(200)" json:"company_name"`
	MersisNo     string `gorm:"type:varchar(64)" json:"mersis_no"`
	TaxNo        string `gorm:"type:varchar(64)" json:"tax_no"`
	Address      string `gorm:"type:text" json:"address"`

	Status        OrderStatus     `gorm:"type:varchar(20);default:'NEW'" json:"status"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(10,2)" json:"subtotal"`
	DiscountTotal decimal.Decimal `gorm:"type:decimal(10,2)" json:"discount_total"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(5,2)" json:"tax_rate"`
	Currency      string          `gorm:"type:varchar(3);default:'TRY'" json:"currency"`

	// JSON array of ordered_products ids, backfilled at checkout.
	OrderedProducts string    `gorm:"type:text" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func (o *Order) SetItems(items []OrderItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	o.Items = string(data)
	return nil
}

func (o *Order) ItemList() ([]OrderItem, error) {
	if o.Items == "" {
		return nil, nil
	}
	var items []OrderItem
	if err := json.Unmarshal([]byte(o.Items), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (o *Order) SetOrderedProductIDs(ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	o.OrderedProducts = string(data)
	return nil
}

func (o *Order) OrderedProductIDs() []string {
	if o.OrderedProducts == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(o.OrderedProducts), &ids); err != nil {
		return nil
	}
	return ids
}
