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

const onboardingCollection = "onboarding_applications"

// MongoOnboardingRepository implements OnboardingRepository using MongoDB
type MongoOnboardingRepository struct {
	collection *mongo.Collection
}

// NewMongoOnboardingRepository creates a new MongoDB onboarding repository
func NewMongoOnboardingRepository(db *mongo.Database) ports.OnboardingRepository {
	return &MongoOnboardingRepository{
		collection: db.Collection(onboardingCollection),
	}
}

// Get retrieves the application of a user
func (r *MongoOnboardingRepository) Get(ctx context.Context, userID string) (*domain.OnboardingApplication, error) {
	var doc entity.MongoOnboardingDoc
	filter := bson.M{"userId": userID}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get onboarding application: %w", err)
	}

	return doc.ToDomain(), nil
}

// MergeDraft sets only the sections present in the patch. A currentStep of 0 keeps the stored step.
func (r *MongoOnboardingRepository) MergeDraft(
	ctx context.Context,
	userID string,
	patch domain.ApplicationPatch,
	status domain.ApplicationStatus,
	currentStep int,
	now time.Time,
) error {
	set := bson.M{
		"status":    string(status),
		"updatedAt": now,
	}
	if currentStep > 0 {
		set["currentStep"] = currentStep
	}
	if patch.BusinessInfo != nil {
		set["businessInfo"] = patch.BusinessInfo
	}
	if patch.AddressInfo != nil {
		set["addressInfo"] = patch.AddressInfo
	}
	if patch.TaxInfo != nil {
		set["taxInfo"] = patch.TaxInfo
	}
	if patch.PaymentInfo != nil {
		set["paymentInfo"] = patch.PaymentInfo
	}
	if patch.AgreementData != nil {
		set["agreementData"] = patch.AgreementData
	}

	setOnInsert := bson.M{
		"createdAt":    now,
		"autoApproved": false,
	}
	if currentStep <= 0 {
		setOnInsert["currentStep"] = domain.FirstStep
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"userId": userID}
	update := bson.M{"$set": set, "$setOnInsert": setOnInsert}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save onboarding draft: %w", err)
	}

	return nil
}

// Save saves or updates the whole application
func (r *MongoOnboardingRepository) Save(ctx context.Context, app *domain.OnboardingApplication) error {
	doc := entity.MongoOnboardingDocFromDomain(app)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"userId": app.UserID}
	update := bson.M{"$set": doc}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save onboarding application: %w", err)
	}

	return nil
}
