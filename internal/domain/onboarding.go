package domain

import "time"

// ApplicationStatus is the lifecycle state of an onboarding application
type ApplicationStatus string

const (
	StatusDraft         ApplicationStatus = "draft"
	StatusPendingReview ApplicationStatus = "pending_review"
	StatusApproved      ApplicationStatus = "approved"
	StatusRejected      ApplicationStatus = "rejected"
)

// Wizard steps: business, address, tax, payment, agreement/review
const (
	FirstStep = 1
	FinalStep = 5
)

// BusinessInfo holds the company identity section
type BusinessInfo struct {
	LegalName   string `json:"legalName" bson:"legalName"`
	BrandName   string `json:"brandName" bson:"brandName"`
	CompanyType string `json:"companyType,omitempty" bson:"companyType,omitempty"`
	Phone       string `json:"phone,omitempty" bson:"phone,omitempty"`
	Website     string `json:"website,omitempty" bson:"website,omitempty"`
}

// AddressInfo holds the registered address section
type AddressInfo struct {
	Street     string `json:"street" bson:"street"`
	City       string `json:"city" bson:"city"`
	State      string `json:"state" bson:"state"`
	PostalCode string `json:"postalCode,omitempty" bson:"postalCode,omitempty"`
	Country    string `json:"country" bson:"country"`
}

// TaxInfo holds the tax registration section
type TaxInfo struct {
	TaxID     string `json:"taxId" bson:"taxId"`
	TaxOffice string `json:"taxOffice,omitempty" bson:"taxOffice,omitempty"`
}

// PaymentInfo holds the payout section
type PaymentInfo struct {
	Method        string `json:"method" bson:"method"`
	BankName      string `json:"bankName,omitempty" bson:"bankName,omitempty"`
	IBAN          string `json:"iban,omitempty" bson:"iban,omitempty"`
	AccountHolder string `json:"accountHolder,omitempty" bson:"accountHolder,omitempty"`
}

// AgreementData records the merchant agreement acceptance. It is written once.
type AgreementData struct {
	Accepted   bool      `json:"accepted" bson:"accepted"`
	AcceptedAt time.Time `json:"acceptedAt" bson:"acceptedAt"`
	IPAddress  string    `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	Version    string    `json:"version,omitempty" bson:"version,omitempty"`
}

// OnboardingApplication is the single compliance/profile record of a user
type OnboardingApplication struct {
	UserID        string            `json:"userId"`
	Status        ApplicationStatus `json:"status"`
	CurrentStep   int               `json:"currentStep"`
	BusinessInfo  *BusinessInfo     `json:"businessInfo,omitempty"`
	AddressInfo   *AddressInfo      `json:"addressInfo,omitempty"`
	TaxInfo       *TaxInfo          `json:"taxInfo,omitempty"`
	PaymentInfo   *PaymentInfo      `json:"paymentInfo,omitempty"`
	AgreementData *AgreementData    `json:"agreementData,omitempty"`
	AutoApproved  bool              `json:"autoApproved"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	SubmittedAt   *time.Time        `json:"submittedAt,omitempty"`
	ApprovedAt    *time.Time        `json:"approvedAt,omitempty"`
}

// IsApproved reports whether the application unlocks shop connection
func (a *OnboardingApplication) IsApproved() bool {
	return a != nil && a.Status == StatusApproved
}

// ResumeStep returns the wizard step the user should land on
func (a *OnboardingApplication) ResumeStep() int {
	if a == nil || a.CurrentStep < FirstStep {
		return FirstStep
	}
	if a.CurrentStep > FinalStep {
		return FinalStep
	}
	return a.CurrentStep
}

// ApplicationPatch carries top-level sections of an application.
// A nil section is left untouched; a present section replaces the stored one as a whole.
type ApplicationPatch struct {
	BusinessInfo  *BusinessInfo  `json:"businessInfo,omitempty"`
	AddressInfo   *AddressInfo   `json:"addressInfo,omitempty"`
	TaxInfo       *TaxInfo       `json:"taxInfo,omitempty"`
	PaymentInfo   *PaymentInfo   `json:"paymentInfo,omitempty"`
	AgreementData *AgreementData `json:"agreementData,omitempty"`
}

// Merge overlays next on top of p section by section
func (p ApplicationPatch) Merge(next ApplicationPatch) ApplicationPatch {
	if next.BusinessInfo != nil {
		p.BusinessInfo = next.BusinessInfo
	}
	if next.AddressInfo != nil {
		p.AddressInfo = next.AddressInfo
	}
	if next.TaxInfo != nil {
		p.TaxInfo = next.TaxInfo
	}
	if next.PaymentInfo != nil {
		p.PaymentInfo = next.PaymentInfo
	}
	if next.AgreementData != nil {
		p.AgreementData = next.AgreementData
	}
	return p
}

// IsEmpty reports whether no section is set
func (p ApplicationPatch) IsEmpty() bool {
	return p.BusinessInfo == nil && p.AddressInfo == nil && p.TaxInfo == nil &&
		p.PaymentInfo == nil && p.AgreementData == nil
}

// PatchFromApplication extracts the sections of an existing application
func PatchFromApplication(a *OnboardingApplication) ApplicationPatch {
	if a == nil {
		return ApplicationPatch{}
	}
	return ApplicationPatch{
		BusinessInfo:  a.BusinessInfo,
		AddressInfo:   a.AddressInfo,
		TaxInfo:       a.TaxInfo,
		PaymentInfo:   a.PaymentInfo,
		AgreementData: a.AgreementData,
	}
}
