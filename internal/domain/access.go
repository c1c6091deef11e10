package domain

// AccessState is the single navigable state derived from auth, onboarding and shop status
type AccessState string

const (
	AccessUnauthenticated AccessState = "unauthenticated"
	AccessNeedsOnboarding AccessState = "needs-onboarding"
	AccessNeedsConnection AccessState = "needs-connection"
	AccessReady           AccessState = "ready"
)

// Callback query parameter names on the dashboard route
const (
	CallbackShopParam  = "shop"
	CallbackStateParam = "state"
)

// CallbackParams are the provider correlation parameters on the current URL
type CallbackParams struct {
	Shop  string
	State string
}

// InFlight reports whether both callback parameters are present. Values are not validated.
func (c CallbackParams) InFlight() bool {
	return c.Shop != "" && c.State != ""
}

// Subject is the caller as seen by the access engine
type Subject struct {
	UserID        string
	Authenticated bool
}

// Claims are ID token authorization claims. Display hints only.
type Claims struct {
	Admin      bool   `json:"admin"`
	SuperAdmin bool   `json:"superAdmin"`
	Role       string `json:"role,omitempty"`
	Email      string `json:"email,omitempty"`
}
