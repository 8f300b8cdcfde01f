// Package cart holds a customer's pending purchase lines. A cart is a small
// ordered list keyed by product id; every mutation rewrites the whole cart in
// Redis, so concurrent sessions of the same user resolve last-writer-wins.
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrLineNotFound = errors.New("cart line not found")

// Item is one cart line. SnapshotPrice is the product price captured when the
// line was added; it is not re-validated against the live product afterwards.
type Item struct {
	ProductID     string          `json:"product_id"`
	Qty           int             `json:"qty"`
	SnapshotPrice decimal.Decimal `json:"snapshot_price"`
	Currency      string          `json:"currency"`
}

type Cart struct {
	Items []Item `json:"items"`
}

// Add merges into an existing line with the same product id (quantities
// summed) or appends a new line.
func (c *Cart) Add(item Item) error {
	if item.Qty < 1 {
		return fmt.Errorf("quantity must be at least 1, got %d", item.Qty)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Qty += item.Qty
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

// UpdateQty replaces the quantity of the matching line.
func (c *Cart) UpdateQty(productID string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1, got %d", qty)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Qty = qty
			return nil
		}
	}
	return ErrLineNotFound
}

// Remove deletes the matching line. Removing an absent line is a no-op.
func (c *Cart) Remove(productID string) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.Items = nil
}

// Subtotal is the exact sum of qty * snapshot price over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.SnapshotPrice.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	return total
}
