package domain

import "time"

// ShopType identifies the platform behind a connection
type ShopType string

const (
	ShopTypeShopify ShopType = "shopify"
	ShopTypeIkas    ShopType = "ikas"
	ShopTypeOther   ShopType = "other"
)

// ShopConnection is a user's link to one e-commerce platform.
// Only records with Verified set are usable.
type ShopConnection struct {
	UserID      string    `json:"userId"`
	ShopID      string    `json:"shopId"`
	ShopType    ShopType  `json:"shopType"`
	Verified    bool      `json:"verified"`
	ConnectedAt time.Time `json:"connectedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// shopify
	AccessToken string `json:"-"`
	Scope       string `json:"scope,omitempty"`

	// ikas
	ClientID     string     `json:"-"`
	ClientSecret string     `json:"-"`
	FetchedAt    *time.Time `json:"fetchedAt,omitempty"`

	// other
	SourceURL string `json:"sourceUrl,omitempty"`
}

// VerifiedConnections filters out unverified records, keeping the input order
func VerifiedConnections(conns []*ShopConnection) []*ShopConnection {
	verified := make([]*ShopConnection, 0, len(conns))
	for _, c := range conns {
		if c != nil && c.Verified {
			verified = append(verified, c)
		}
	}
	return verified
}

// FirstVerified returns the first verified connection in the given order.
// Accounts with several verified shops get whichever one the snapshot lists first.
func FirstVerified(conns []*ShopConnection) *ShopConnection {
	for _, c := range conns {
		if c != nil && c.Verified {
			return c
		}
	}
	return nil
}

// ConnectResult is the shared outcome of every connection protocol
type ConnectResult struct {
	Success     bool   `json:"success"`
	ShopID      string `json:"shopId,omitempty"`
	Redirecting bool   `json:"redirecting,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// OAuthStart is the backend answer to a handshake start
type OAuthStart struct {
	RedirectURL     string
	AlreadyVerified bool
}

// OAuthFinalize is the backend answer to a handshake completion
type OAuthFinalize struct {
	ShopDomain       string
	AccessToken      string
	Scope            string
	AlreadyFinalized bool
}

// TagCheckResult is the outcome of the storefront GTM inspection
type TagCheckResult string

const (
	TagInstalled     TagCheckResult = "installed"
	TagMissing       TagCheckResult = "missing"
	TagIndeterminate TagCheckResult = "indeterminate"
)

// ShopInfo is live shop data fetched with a fresh platform credential
type ShopInfo struct {
	ShopID   string   `json:"shopId"`
	ShopType ShopType `json:"shopType"`
	Name     string   `json:"name"`
	Email    string   `json:"email,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// SyncJob is the opaque remote catalog sync job
type SyncJob struct {
	ID        string    `json:"id"`
	ShopID    string    `json:"shopId"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConnectionEvent signals that a user's connection set may have changed
type ConnectionEvent struct {
	UserID string
	ShopID string
	Reason string
}
