// Package catalog implements the storefront product listing: role-based
// visibility filtering, text search and the user-selectable sort orders.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/preluvia/storefront/pkg/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
)

// ParseSortKey maps a query parameter to a sort key. Empty means newest.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "":
		return SortNewest, nil
	case SortNewest, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Sorter sorts product listings. Name comparison is locale-aware; the
// storefront ships Turkish product names, so the locale matters.
type Sorter struct {
	collator *collate.Collator
}

func NewSorter(locale string) *Sorter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Sorter{collator: collate.New(tag)}
}

// Visible drops hidden products for non-admin viewers.
func Visible(products []models.Product, admin bool) []models.Product {
	if admin {
		return products
	}
	visible := make([]models.Product, 0, len(products))
	for _, p := range products {
		if !p.Hidden {
			visible = append(visible, p)
		}
	}
	return visible
}

// Search keeps products whose name or description contains the query as a
// case-insensitive substring. An empty query keeps everything.
func Search(products []models.Product, query string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return products
	}
	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			matched = append(matched, p)
		}
	}
	return matched
}

// Sort orders products in place by the given key. The sort is stable.
func (s *Sorter) Sort(products []models.Product, key SortKey) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch key {
		case SortPriceAsc:
			return a.Price.LessThan(b.Price)
		case SortPriceDesc:
			return b.Price.LessThan(a.Price)
		case SortNameAsc:
			return s.collator.CompareString(a.Name, b.Name) < 0
		case SortNameDesc:
			return s.collator.CompareString(b.Name, a.Name) < 0
		default: // newest
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
}
