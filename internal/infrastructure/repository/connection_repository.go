package repository

import (
	"context"
	"fmt"
	"time"

	"archie-core-merchant-onboarding/internal/domain"
	"archie-core-merchant-onboarding/internal/infrastructure/repository/entity"
	"archie-core-merchant-onboarding/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectionsCollection = "shop_connections"

// MongoShopConnectionRepository implements ShopConnectionRepository using MongoDB
type MongoShopConnectionRepository struct {
	collection *mongo.Collection
}

// NewMongoShopConnectionRepository creates a new MongoDB shop connection repository
func NewMongoShopConnectionRepository(db *mongo.Database) ports.ShopConnectionRepository {
	return &MongoShopConnectionRepository{
		collection: db.Collection(connectionsCollection),
	}
}

// Get retrieves a connection by user and shop
func (r *MongoShopConnectionRepository) Get(ctx context.Context, userID string, shopID string) (*domain.ShopConnection, error) {
	var doc entity.MongoShopConnectionDoc
	filter := bson.M{"userId": userID, "shopId": shopID}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop connection: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListByUser retrieves every connection of a user, oldest first
func (r *MongoShopConnectionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.ShopConnection, error) {
	opts := options.Find().SetSort(bson.D{{Key: "connectedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list shop connections: %w", err)
	}
	defer cursor.Close(ctx)

	conns := []*domain.ShopConnection{}
	for cursor.Next(ctx) {
		var doc entity.MongoShopConnectionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode shop connection: %w", err)
		}
		conns = append(conns, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return conns, nil
}

// Upsert merges the connection into the stored record. Empty credential fields
// keep their stored values and connectedAt is only written on insert.
func (r *MongoShopConnectionRepository) Upsert(ctx context.Context, conn *domain.ShopConnection) error {
	doc := entity.MongoShopConnectionDocFromDomain(conn)
	now := time.Now()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}
	if doc.ConnectedAt.IsZero() {
		doc.ConnectedAt = now
	}

	set := bson.M{
		"shopType":  doc.ShopType,
		"verified":  doc.Verified,
		"updatedAt": doc.UpdatedAt,
	}
	if doc.AccessToken != "" {
		set["accessToken"] = doc.AccessToken
	}
	if doc.Scope != "" {
		set["scope"] = doc.Scope
	}
	if doc.ClientID != "" {
		set["clientId"] = doc.ClientID
	}
	if doc.ClientSecret != "" {
		set["clientSecret"] = doc.ClientSecret
	}
	if doc.FetchedAt != nil {
		set["fetchedAt"] = doc.FetchedAt
	}
	if doc.SourceURL != "" {
		set["sourceUrl"] = doc.SourceURL
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"userId": doc.UserID, "shopId": doc.ShopID}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"connectedAt": doc.ConnectedAt},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save shop connection: %w", err)
	}

	return nil
}

// UpdateToken replaces the access token and its issuance time
func (r *MongoShopConnectionRepository) UpdateToken(ctx context.Context, userID string, shopID string, accessToken string, fetchedAt time.Time) error {
	filter := bson.M{"userId": userID, "shopId": shopID}
	update := bson.M{"$set": bson.M{
		"accessToken": accessToken,
		"fetchedAt":   fetchedAt,
		"updatedAt":   time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("failed to update access token: %w", domain.ErrNotFound)
	}

	return nil
}

// MarkUnverifiedByShop clears the verified flag of every connection to a shop
func (r *MongoShopConnectionRepository) MarkUnverifiedByShop(ctx context.Context, shopType domain.ShopType, shopID string) ([]string, error) {
	filter := bson.M{"shopType": string(shopType), "shopId": shopID, "verified": true}

	users, err := r.collection.Distinct(ctx, "userId", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find connections of shop: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}

	update := bson.M{"$set": bson.M{"verified": false, "updatedAt": time.Now()}}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return nil, fmt.Errorf("failed to unverify shop connections: %w", err)
	}

	userIDs := make([]string, 0, len(users))
	for _, u := range users {
		if id, ok := u.(string); ok {
			userIDs = append(userIDs, id)
		}
	}
	return userIDs, nil
}
