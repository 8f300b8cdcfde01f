// Package stats derives the back-office roll-ups. There is no stored client
// entity; client summaries are folded out of a full scan of the orders
// collection, which is acceptable at this catalog's volume.
package stats

import (
	"sort"
	"time"

	"github.com/preluvia/storefront/pkg/models"
	"github.com/shopspring/decimal"
)

// ClientSummary is a derived client record: contact fields folded onto the
// first non-empty value seen, spend summed, order dates tracked min/max.
type ClientSummary struct {
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	CompanyName    string          `json:"company_name"`
	Address        string          `json:"address"`
	OrderCount     int             `json:"order_count"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	FirstOrderDate time.Time       `json:"first_order_date"`
	LastOrderDate  time.Time       `json:"last_order_date"`
}

// SummarizeClients groups orders by user id. The result is sorted by last
// order date, most recent first.
func SummarizeClients(orders []models.Order) []ClientSummary {
	byUser := make(map[string]*ClientSummary)
	var order []string

	for _, o := range orders {
		s, ok := byUser[o.UserID]
		if !ok {
			s = &ClientSummary{
				UserID:         o.UserID,
				TotalSpent:     decimal.Zero,
				FirstOrderDate: o.CreatedAt,
				LastOrderDate:  o.CreatedAt,
			}
			byUser[o.UserID] = s
			order = append(order, o.UserID)
		}

		fold(&s.Name, o.CustomerName)
		fold(&s.Email, o.Email)
		fold(&s.Phone, o.Phone)
		fold(&s.CompanyName, o.CompanyName)
		fold(&s.Address, o.Address)

		s.OrderCount++
		s.TotalSpent = s.TotalSpent.Add(o.Subtotal)
		if o.CreatedAt.Before(s.FirstOrderDate) {
			s.FirstOrderDate = o.CreatedAt
		}
		if o.CreatedAt.After(s.LastOrderDate) {
			s.LastOrderDate = o.CreatedAt
		}
	}

	summaries := make([]ClientSummary, 0, len(order))
	for _, uid := range order {
		summaries = append(summaries, *byUser[uid])
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastOrderDate.After(summaries[j].LastOrderDate)
	})
	return summaries
}

func fold(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// Revenue is the dashboard roll-up. Only CONFIRMED orders count as revenue.
type Revenue struct {
	ConfirmedRevenue decimal.Decimal `json:"confirmed_revenue"`
	TotalOrders      int             `json:"total_orders"`
	NewOrders        int             `json:"new_orders"`
	ConfirmedOrders  int             `json:"confirmed_orders"`
	CancelledOrders  int             `json:"cancelled_orders"`
	ClosedOrders     int             `json:"closed_orders"`
}

func Summarize(orders []models.Order) Revenue {
	r := Revenue{ConfirmedRevenue: decimal.Zero}
	for _, o := range orders {
		r.TotalOrders++
		switch o.Status {
		case models.OrderStatusNew:
			r.NewOrders++
		case models.OrderStatusConfirmed:
			r.ConfirmedOrders++
			r.ConfirmedRevenue = r.ConfirmedRevenue.Add(o.Subtotal)
		case models.OrderStatusCancelled:
			r.CancelledOrders++
		case models.OrderStatusClosed:
			r.ClosedOrders++
		}
	}
	return r
}
