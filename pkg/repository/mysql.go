package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/preluvia/storefront/pkg/config"
	"github.com/preluvia/storefront/pkg/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLRepository is the gorm-backed store for every persisted entity.
type MySQLRepository struct {
	db *gorm.DB
}

func NewMySQLRepository(cfg *config.MySQLConfig) (*MySQLRepository, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.AutoMigrate(
		&models.Product{},
		&models.Order{},
		&models.OrderedProduct{},
		&models.ClientInfo{},
		&models.User{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &MySQLRepository{db: db}, nil
}

func (r *MySQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Products

func (r *MySQLRepository) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *MySQLRepository) Product(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *MySQLRepository) ProductsByID(ctx context.Context, ids []string) (map[string]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

func (r *MySQLRepository) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *MySQLRepository) SaveProduct(ctx context.Context, p *models.Product) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (r *MySQLRepository) DeleteProduct(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MySQLRepository) SetProductHidden(ctx context.Context, id string, hidden bool) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).
		Updates(map[string]interface{}{"hidden": hidden, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to update product visibility: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Orders

// CreateOrder writes the order and its product snapshots in one transaction.
func (r *MySQLRepository) CreateOrder(ctx context.Context, order *models.Order, snapshots []models.OrderedProduct) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if len(snapshots) > 0 {
			if err := tx.Create(&snapshots).Error; err != nil {
				return fmt.Errorf("failed to create ordered products: %w", err)
			}
		}
		return nil
	})
}

func (r *MySQLRepository) Order(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (r *MySQLRepository) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *MySQLRepository) Orders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// TransitionOrder updates status guarded by the expected current status and
// applies stock decrements in the same transaction. A guard miss returns
// models.ErrConflict (or models.ErrNotFound when the order is gone), so two
// admins confirming the same order cannot both decrement stock.
func (r *MySQLRepository) TransitionOrder(ctx context.Context, id string, from, to models.OrderStatus, decrements []models.OrderItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
		if res.Error != nil {
			return fmt.Errorf("failed to update order status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check order: %w", err)
			}
			if count == 0 {
				return models.ErrNotFound
			}
			return models.ErrConflict
		}

		for _, item := range decrements {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				Update("stock", gorm.Expr("GREATEST(stock - ?, 0)", item.Qty)).Error; err != nil {
				return fmt.Errorf("failed to decrement stock for %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
}

func (r *MySQLRepository) OrderedProductsByOrder(ctx context.Context, orderID string) ([]models.OrderedProduct, error) {
	var snaps []models.OrderedProduct
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("failed to list ordered products: %w", err)
	}
	return snaps, nil
}

// Client infos

func (r *MySQLRepository) ClientInfos(ctx context.Context, userID string) ([]models.ClientInfo, error) {
	var infos []models.ClientInfo
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&infos).Error; err != nil {
		return nil, fmt.Errorf("failed to list client infos: %w", err)
	}
	return infos, nil
}

func (r *MySQLRepository) ClientInfo(ctx context.Context, id string) (*models.ClientInfo, error) {
	var info models.ClientInfo
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&info).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client info: %w", err)
	}
	return &info, nil
}

func (r *MySQLRepository) CreateClientInfo(ctx context.Context, info *models.ClientInfo) error {
	if err := r.db.WithContext(ctx).Create(info).Error; err != nil {
		return fmt.Errorf("failed to create client info: %w", err)
	}
	return nil
}

func (r *MySQLRepository) SaveClientInfo(ctx context.Context, info *models.ClientInfo) error {
	if err := r.db.WithContext(ctx).Save(info).Error; err != nil {
		return fmt.Errorf("failed to save client info: %w", err)
	}
	return nil
}

func (r *MySQLRepository) DeleteClientInfo(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ClientInfo{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete client info: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Users

func (r *MySQLRepository) UpsertUser(ctx context.Context, u *models.User) error {
	if err := r.db.WithContext(ctx).Save(u).Error; err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *MySQLRepository) User(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
