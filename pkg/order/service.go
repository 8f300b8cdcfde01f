// Package order implements checkout and the order lifecycle. An order starts
// NEW and moves exactly once: a customer may cancel it, an admin may confirm
// it (decrementing stock) or close it. CONFIRMED, CANCELLED and CLOSED are
// terminal.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/preluvia/storefront/pkg/cart"
	"github.com/preluvia/storefront/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("order status does not allow this transition")
	ErrNotOwner          = errors.New("order belongs to a different user")
)

// ValidationError lists the required checkout fields that were missing.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// InsufficientStockError names every product that failed the stock gate. The
// whole submission is rejected; no partial accept.
type InsufficientStockError struct {
	Products []string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for: %s", strings.Join(e.Products, ", "))
}

// Store is the persistence surface the service needs. CreateOrder writes the
// order and its snapshots atomically; TransitionOrder performs a guarded
// status update (matching the expected current status) and applies any stock
// decrements in the same transaction, returning models.ErrConflict when the
// guard matches no row.
type Store interface {
	ProductsByID(ctx context.Context, ids []string) (map[string]models.Product, error)
	CreateOrder(ctx context.Context, order *models.Order, snapshots []models.OrderedProduct) error
	Order(ctx context.Context, id string) (*models.Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	Orders(ctx context.Context) ([]models.Order, error)
	TransitionOrder(ctx context.Context, id string, from, to models.OrderStatus, decrements []models.OrderItem) error
}

// Carts reads and clears the per-user server-side cart.
type Carts interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// Auditor records lifecycle events. Implementations must tolerate failure;
// auditing never blocks an order operation.
type Auditor interface {
	OrderEvent(ctx context.Context, action, orderID string, data map[string]interface{})
}

type Service struct {
	store  Store
	carts  Carts
	audit  Auditor
	logger *zap.Logger
}

func NewService(store Store, carts Carts, audit Auditor, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		carts:  carts,
		audit:  audit,
		logger: logger,
	}
}

// CheckoutInput carries the customer fields for an order, either copied from
// a saved ClientInfo or typed into the checkout form.
type CheckoutInput struct {
	CustomerName string
	Phone        string
	Email        string
	CompanyName  string
	MersisNo     string
	TaxNo        string
	Address      string
}

func (in *CheckoutInput) validate() error {
	var missing []string
	if in.CustomerName == "" {
		missing = append(missing, "customer_name")
	}
	if in.Phone == "" {
		missing = append(missing, "phone")
	}
	if in.CompanyName == "" {
		missing = append(missing, "company_name")
	}
	if in.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Checkout turns the user's cart into a NEW order. Every line must reference
// an existing product with enough stock, otherwise the submission is rejected
// as a whole and nothing is written. On success the order, one OrderedProduct
// snapshot per line, and the snapshot-id list are written in one transaction
// and the cart is cleared.
func (s *Service) Checkout(ctx context.Context, userID string, in CheckoutInput) (*models.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, 0, len(c.Items))
	for _, line := range c.Items {
		ids = append(ids, line.ProductID)
	}
	products, err := s.store.ProductsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	// Stock gate: abort-on-any-invalid. The error names products where
	// possible, falling back to the raw id for lines whose product is gone.
	var insufficient []string
	for _, line := range c.Items {
		p, ok := products[line.ProductID]
		if !ok {
			insufficient = append(insufficient, line.ProductID)
			continue
		}
		if p.Stock < line.Qty {
			insufficient = append(insufficient, p.Name)
		}
	}
	if len(insufficient) > 0 {
		return nil, &InsufficientStockError{Products: insufficient}
	}

	now := time.Now()
	order := &models.Order{
		ID:            uuid.New().String(),
		UserID:        userID,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		Phone:         in.Phone,
		Email:         in.Email,
		CompanyName:   in.CompanyName,
		MersisNo:      in.MersisNo,
		TaxNo:         in.TaxNo,
		Address:       in.Address,
		Status:        models.OrderStatusNew,
		Subtotal:      c.Subtotal(),
		DiscountTotal: decimal.Zero,
		TaxRate:       decimal.Zero,
		Currency:      "TRY",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	items := make([]models.OrderItem, 0, len(c.Items))
	snapshots := make([]models.OrderedProduct, 0, len(c.Items))
	snapshotIDs := make([]string, 0, len(c.Items))
	for _, line := range c.Items {
		p := products[line.ProductID]
		lineTotal := line.SnapshotPrice.Mul(decimal.NewFromInt(int64(line.Qty)))
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Title:     p.Name,
			Qty:       line.Qty,
			UnitPrice: line.SnapshotPrice,
			LineTotal: lineTotal,
		})

		snap := snapshotProduct(p, order.ID, line.Qty, line.SnapshotPrice, lineTotal, now)
		snapshots = append(snapshots, snap)
		snapshotIDs = append(snapshotIDs, snap.ID)
	}
	if err := order.SetItems(items); err != nil {
		return nil, fmt.Errorf("failed to serialize items: %w", err)
	}
	if err := order.SetOrderedProductIDs(snapshotIDs); err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot ids: %w", err)
	}

	if err := s.store.CreateOrder(ctx, order, snapshots); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		// The order exists; a stale cart is a nuisance, not a failure.
		s.logger.Warn("failed to clear cart after checkout",
			zap.String("user_id", userID), zap.Error(err))
	}

	go s.audit.OrderEvent(context.Background(), "order_created", order.ID, map[string]interface{}{
		"user_id":  userID,
		"subtotal": order.Subtotal.String(),
		"lines":    len(items),
	})

	return order, nil
}

func snapshotProduct(p models.Product, orderID string, qty int, unitPrice, lineTotal decimal.Decimal, at time.Time) models.OrderedProduct {
	return models.OrderedProduct{
		ID:                uuid.New().String(),
		OrderID:           orderID,
		ProductID:         p.ID,
		Name:              p.Name,
		Description:       p.Description,
		Ingredients:       p.Ingredients,
		AllergenInfo:      p.AllergenInfo,
		OriginCountry:     p.OriginCountry,
		StorageConditions: p.StorageConditions,
		ImportingCompany:  p.ImportingCompany,
		Address:           p.Address,
		NetWeight:         p.NetWeight,
		Energy:            p.Energy,
		Nutrition:         p.Nutrition,
		Stock:             p.Stock,
		Price:             p.Price,
		Currency:          p.Currency,
		SKU:               p.SKU,
		ImageURLs:         p.ImageURLs,
		Qty:               qty,
		UnitPrice:         unitPrice,
		LineTotal:         lineTotal,
		OrderedAt:         at,
	}
}

// Confirm moves a NEW order to CONFIRMED and decrements each line's product
// stock. The guarded transition makes concurrent confirms lose instead of
// decrementing twice.
func (s *Service) Confirm(ctx context.Context, orderID string) (*models.Order, error) {
	o, err := s.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderStatusNew {
		return nil, ErrInvalidTransition
	}

	items, err := o.ItemList()
	if err != nil {
		return nil, fmt.Errorf("failed to parse order items: %w", err)
	}

	if err := s.store.TransitionOrder(ctx, orderID, models.OrderStatusNew, models.OrderStatusConfirmed, items); err != nil {
		return nil, err
	}
	o.Status = models.OrderStatusConfirmed
	o.UpdatedAt = time.Now()

	go s.audit.OrderEvent(context.Background(), "order_confirmed", orderID, map[string]interface{}{
		"user_id": o.UserID,
	})

	return o, nil
}

// Close rejects a NEW order. Stock is untouched.
func (s *Service) Close(ctx context.Context, orderID string) (*models.Order, error) {
	o, err := s.transition(ctx, orderID, models.OrderStatusClosed)
	if err != nil {
		return nil, err
	}

	go s.audit.OrderEvent(context.Background(), "order_closed", orderID, map[string]interface{}{
		"user_id": o.UserID,
	})

	return o, nil
}

// Cancel is the customer-initiated transition out of NEW. Only the owning
// user may cancel.
func (s *Service) Cancel(ctx context.Context, orderID, userID string) (*models.Order, error) {
	o, err := s.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOwner
	}
	if o.Status != models.OrderStatusNew {
		return nil, ErrInvalidTransition
	}

	if err := s.store.TransitionOrder(ctx, orderID, models.OrderStatusNew, models.OrderStatusCancelled, nil); err != nil {
		return nil, err
	}
	o.Status = models.OrderStatusCancelled
	o.UpdatedAt = time.Now()

	go s.audit.OrderEvent(context.Background(), "order_cancelled", orderID, map[string]interface{}{
		"user_id": userID,
	})

	return o, nil
}

func (s *Service) transition(ctx context.Context, orderID string, to models.OrderStatus) (*models.Order, error) {
	o, err := s.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderStatusNew {
		return nil, ErrInvalidTransition
	}
	if err := s.store.TransitionOrder(ctx, orderID, models.OrderStatusNew, to, nil); err != nil {
		return nil, err
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return o, nil
}

func (s *Service) Order(ctx context.Context, id string) (*models.Order, error) {
	return s.store.Order(ctx, id)
}

func (s *Service) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.OrdersByUser(ctx, userID)
}

func (s *Service) Orders(ctx context.Context) ([]models.Order, error) {
	return s.store.Orders(ctx)
}
