package repository

import (
	"context"
	"time"

	"github.com/preluvia/storefront/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// AuditLog is one append-only lifecycle event: an order transition, a product
// edit, a deletion. Read back only through the back-office audit view.
type AuditLog struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Entity    string    `bson:"entity" json:"entity"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"entity_id"`
	Data      bson.M    `bson:"data" json:"data"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, log *AuditLog) error {
	collection := m.database.Collection(m.config.Collection)
	log.CreatedAt = time.Now()
	_, err := collection.InsertOne(ctx, log)
	return err
}

// OrderEvent satisfies the order service's Auditor. A lost audit entry is
// tolerable; the write error is swallowed on purpose.
func (m *MongoRepository) OrderEvent(ctx context.Context, action, orderID string, data map[string]interface{}) {
	_ = m.CreateAuditLog(ctx, &AuditLog{
		Entity:   "order",
		Action:   action,
		EntityID: orderID,
		Data:     bson.M(data),
	})
}

func (m *MongoRepository) ProductEvent(ctx context.Context, action, productID string, data map[string]interface{}) {
	_ = m.CreateAuditLog(ctx, &AuditLog{
		Entity:   "product",
		Action:   action,
		EntityID: productID,
		Data:     bson.M(data),
	})
}

func (m *MongoRepository) GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*AuditLog, error) {
	collection := m.database.Collection(m.config.Collection)

	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*AuditLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}
