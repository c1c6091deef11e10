package entity

import (
	"time"

	"archie-core-merchant-onboarding/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoShopConnectionDoc represents a shop connection in MongoDB
type MongoShopConnectionDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	UserID       string             `bson:"userId"`
	ShopID       string             `bson:"shopId"`
	ShopType     string             `bson:"shopType"`
	Verified     bool               `bson:"verified"`
	ConnectedAt  time.Time          `bson:"connectedAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
	AccessToken  string             `bson:"accessToken,omitempty"`
	Scope        string             `bson:"scope,omitempty"`
	ClientID     string             `bson:"clientId,omitempty"`
	ClientSecret string             `bson:"clientSecret,omitempty"`
	FetchedAt    *time.Time         `bson:"fetchedAt,omitempty"`
	SourceURL    string             `bson:"sourceUrl,omitempty"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoShopConnectionDoc) ToDomain() *domain.ShopConnection {
	return &domain.ShopConnection{
		UserID:       d.UserID,
		ShopID:       d.ShopID,
		ShopType:     domain.ShopType(d.ShopType),
		Verified:     d.Verified,
		ConnectedAt:  d.ConnectedAt,
		UpdatedAt:    d.UpdatedAt,
		AccessToken:  d.AccessToken,
		Scope:        d.Scope,
		ClientID:     d.ClientID,
		ClientSecret: d.ClientSecret,
		FetchedAt:    d.FetchedAt,
		SourceURL:    d.SourceURL,
	}
}

// MongoShopConnectionDocFromDomain converts a domain entity to a MongoDB document
func MongoShopConnectionDocFromDomain(conn *domain.ShopConnection) *MongoShopConnectionDoc {
	return &MongoShopConnectionDoc{
		UserID:       conn.UserID,
		ShopID:       conn.ShopID,
		ShopType:     string(conn.ShopType),
		Verified:     conn.Verified,
		ConnectedAt:  conn.ConnectedAt,
		UpdatedAt:    conn.UpdatedAt,
		AccessToken:  conn.AccessToken,
		Scope:        conn.Scope,
		ClientID:     conn.ClientID,
		ClientSecret: conn.ClientSecret,
		FetchedAt:    conn.FetchedAt,
		SourceURL:    conn.SourceURL,
	}
}
