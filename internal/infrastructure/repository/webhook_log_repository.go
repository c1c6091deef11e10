package repository

import (
	"context"
	"fmt"
	"time"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/infrastructure/repository/entity"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoWebhookLog keeps an audit trail of verified webhooks
type MongoWebhookLog struct {
	collection *mongo.Collection
}

// NewMongoWebhookLog creates a new MongoDB webhook log
func NewMongoWebhookLog(db *mongo.Database) *MongoWebhookLog {
	return &MongoWebhookLog{
		collection: db.Collection("webhook_events"),
	}
}

// LogWebhook logs a webhook event
func (r *MongoWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	doc := entity.MongoWebhookDocFromDomain(event)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = time.Now()
	if doc.ReceivedAt.IsZero() {
		doc.ReceivedAt = doc.CreatedAt
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}

	return nil
}
