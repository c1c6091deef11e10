package entity

import (
	"time"

	"archie-core-merchant-onboarding/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoOnboardingDoc represents an onboarding application in MongoDB
type MongoOnboardingDoc struct {
	ID            primitive.ObjectID    `bson:"_id,omitempty"`
	UserID        string                `bson:"userId"`
	Status        string                `bson:"status"`
	CurrentStep   int                   `bson:"currentStep"`
	BusinessInfo  *domain.BusinessInfo  `bson:"businessInfo,omitempty"`
	AddressInfo   *domain.AddressInfo   `bson:"addressInfo,omitempty"`
	TaxInfo       *domain.TaxInfo       `bson:"taxInfo,omitempty"`
	PaymentInfo   *domain.PaymentInfo   `bson:"paymentInfo,omitempty"`
	AgreementData *domain.AgreementData `bson:"agreementData,omitempty"`
	AutoApproved  bool                  `bson:"autoApproved"`
	CreatedAt     time.Time             `bson:"createdAt"`
	UpdatedAt     time.Time             `bson:"updatedAt"`
	SubmittedAt   *time.Time            `bson:"submittedAt,omitempty"`
	ApprovedAt    *time.Time            `bson:"approvedAt,omitempty"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoOnboardingDoc) ToDomain() *domain.OnboardingApplication {
	return &domain.OnboardingApplication{
		UserID:        d.UserID,
		Status:        domain.ApplicationStatus(d.Status),
		CurrentStep:   d.CurrentStep,
		BusinessInfo:  d.BusinessInfo,
		AddressInfo:   d.AddressInfo,
		TaxInfo:       d.TaxInfo,
		PaymentInfo:   d.PaymentInfo,
		AgreementData: d.AgreementData,
		AutoApproved:  d.AutoApproved,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		SubmittedAt:   d.SubmittedAt,
		ApprovedAt:    d.ApprovedAt,
	}
}

// MongoOnboardingDocFromDomain converts a domain entity to a MongoDB document
func MongoOnboardingDocFromDomain(app *domain.OnboardingApplication) *MongoOnboardingDoc {
	return &MongoOnboardingDoc{
		UserID:        app.UserID,
		Status:        string(app.Status),
		CurrentStep:   app.CurrentStep,
		BusinessInfo:  app.BusinessInfo,
		AddressInfo:   app.AddressInfo,
		TaxInfo:       app.TaxInfo,
		PaymentInfo:   app.PaymentInfo,
		AgreementData: app.AgreementData,
		AutoApproved:  app.AutoApproved,
		CreatedAt:     app.CreatedAt,
		UpdatedAt:     app.UpdatedAt,
		SubmittedAt:   app.SubmittedAt,
		ApprovedAt:    app.ApprovedAt,
	}
}
