package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID                string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name              string          `gorm:"type:varchar(200);not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	Ingredients       string          `gorm:"type:text" json:"ingredients"`
	AllergenInfo      string          `gorm:"type:text" json:"allergen_info"`
	OriginCountry     string          `gorm:"type:varchar(100)" json:"origin_country"`
	StorageConditions string          `gorm:"type:text" json:"storage_conditions"`
	ImportingCompany  string          `gorm:"type:varchar(200)" json:"importing_company"`
	Address           string          `gorm:"type:text" json:"address"`
	NetWeight         string          `gorm:"type:varchar(64)" json:"net_weight"`
	Energy            string          `gorm:"type:varchar(128)" json:"energy"`
	Nutrition         string          `gorm:"type:text" json:"nutrition"`
	Stock             int             `gorm:"not null;default:0" json:"stock"`
	Price             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Currency          string          `gorm:"type:varchar(3);default:'TRY'" json:"currency"`
	// Intended unique, never enforced.
	SKU       string    `gorm:"column:sku;type:varchar(64)" json:"sku"`
	ImageURLs string    `gorm:"type:text" json:"-"` // JSON array of URLs
	Hidden    bool      `gorm:"default:false" json:"hidden"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) SetImageURLs(urls []string) error {
	data, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	p.ImageURLs = string(data)
	return nil
}

func (p *Product) ImageURLList() []string {
	if p.ImageURLs == "" {
		return nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(p.ImageURLs), &urls); err != nil {
		return nil
	}
	return urls
}

// OrderedProduct is a point-in-time copy of a Product taken at checkout so
// later edits or deletions never alter historical order displays. Created
// once, never mutated.
type OrderedProduct struct {
	ID                string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID           string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	ProductID         string          `gorm:"type:varchar(36);not null" json:"product_id"`
	Name              string          `gorm:"type:varchar(200)" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	Ingredients       string          `gorm:"type:text" json:"ingredients"`
	AllergenInfo      string          `gorm:"type:text" json:"allergen_info"`
	OriginCountry     string          `gorm:"type:varchar(100)" json:"origin_country"`
	StorageConditions string          `gorm:"type:text" json:"storage_conditions"`
	ImportingCompany  string          `gorm:"type:varchar(200)" json:"importing_company"`
	Address           string          `gorm:"type:text" json:"address"`
	NetWeight         string          `gorm:"type:varchar(64)" json:"net_weight"`
	Energy            string          `gorm:"type:varchar(128)" json:"energy"`
	Nutrition         string          `gorm:"type:text" json:"nutrition"`
	Stock             int             `json:"stock"`
	Price             decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	Currency          string          `gorm:"type:varchar(3)" json:"currency"`
	SKU               string          `gorm:"column:sku;type:varchar(64)" json:"sku"`
	ImageURLs         string          `gorm:"type:text" json:"-"`
	Qty               int             `gorm:"not null" json:"qty"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(10,2)" json:"unit_price"`
	LineTotal         decimal.Decimal `gorm:"type:decimal(10,2)" json:"line_total"`
	OrderedAt         time.Time       `json:"ordered_at"`
}

func (OrderedProduct) TableName() string {
	return "ordered_products"
}
