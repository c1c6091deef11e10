package application

import (
	"regexp"
	"strings"
	"unicode"

	"archie-core-merchant-onboarding/internal/domain"
)

var taxIDPattern = regexp.MustCompile(`^[0-9]{10,11}$`)

// ValidateApplication checks a complete application and returns the first failing rule.
// It gates submission only; step forms run their own per-field checks.
func ValidateApplication(data domain.ApplicationPatch) error {
	business := data.BusinessInfo
	if business == nil {
		business = &domain.BusinessInfo{}
	}
	address := data.AddressInfo
	if address == nil {
		address = &domain.AddressInfo{}
	}
	tax := data.TaxInfo
	if tax == nil {
		tax = &domain.TaxInfo{}
	}
	payment := data.PaymentInfo
	if payment == nil {
		payment = &domain.PaymentInfo{}
	}

	if runeLen(business.LegalName) < 2 {
		return domain.NewValidationError("businessInfo.legalName", "Legal company name must be at least 2 characters")
	}
	if strings.TrimSpace(business.BrandName) == "" {
		return domain.NewValidationError("businessInfo.brandName", "Brand name is required")
	}
	if runeLen(business.BrandName) < 2 {
		return domain.NewValidationError("businessInfo.brandName", "Brand name must be at least 2 characters")
	}
	if runeLen(address.Street) < 5 {
		return domain.NewValidationError("addressInfo.street", "Street address must be at least 5 characters")
	}
	if strings.TrimSpace(address.City) == "" {
		return domain.NewValidationError("addressInfo.city", "City is required")
	}
	if strings.TrimSpace(address.State) == "" {
		return domain.NewValidationError("addressInfo.state", "State is required")
	}
	if strings.TrimSpace(address.Country) == "" {
		return domain.NewValidationError("addressInfo.country", "Country is required")
	}

	taxID := stripWhitespace(tax.TaxID)
	if taxID == "" {
		return domain.NewValidationError("taxInfo.taxId", "Tax ID is required")
	}
	if !taxIDPattern.MatchString(taxID) {
		return domain.NewValidationError("taxInfo.taxId", "Tax ID must be 10 or 11 digits")
	}

	if strings.TrimSpace(payment.Method) == "" {
		return domain.NewValidationError("paymentInfo.method", "Payment method is required")
	}

	return nil
}

func runeLen(s string) int {
	return len([]rune(strings.TrimSpace(s)))
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
