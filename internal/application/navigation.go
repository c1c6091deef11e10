package application

import (
	"fmt"
	"strings"

	"archie-core-merchant-onboarding/internal/domain"
)

// Screen routes
const (
	RouteLogin       = "/login"
	RouteRegister    = "/register"
	RouteOnboarding  = "/onboarding"
	RouteConnectShop = "/connect-shop"
	RouteDashboard   = "/dashboard"
)

// Navigation tells the UI whether the requested screen may be shown
type Navigation struct {
	State      domain.AccessState `json:"state"`
	Target     string             `json:"target"`
	Redirect   bool               `json:"redirect"`
	ResumeStep int                `json:"resumeStep,omitempty"`
}

var allowedRoutes = map[domain.AccessState][]string{
	domain.AccessUnauthenticated: {RouteLogin, RouteRegister},
	domain.AccessNeedsOnboarding: {RouteOnboarding},
	domain.AccessNeedsConnection: {RouteConnectShop},
	domain.AccessReady:           {RouteDashboard, RouteConnectShop},
}

// ResolveNavigation maps a decision to the screen the user may see.
// A requested path outside the state's screens redirects to the state's home screen.
func ResolveNavigation(decision AccessDecision, requestedPath string) Navigation {
	nav := Navigation{State: decision.State}
	home := homeRoute(decision)

	if requestedPath != "" && routeAllowed(decision.State, requestedPath) {
		nav.Target = requestedPath
	} else {
		nav.Target = home
		nav.Redirect = requestedPath != home
	}
	if decision.State == domain.AccessNeedsOnboarding {
		nav.ResumeStep = decision.ResumeStep
	}
	return nav
}

func homeRoute(decision AccessDecision) string {
	switch decision.State {
	case domain.AccessNeedsOnboarding:
		step := decision.ResumeStep
		if step < domain.FirstStep {
			step = domain.FirstStep
		}
		return fmt.Sprintf("%s?step=%d", RouteOnboarding, step)
	case domain.AccessNeedsConnection:
		return RouteConnectShop
	case domain.AccessReady:
		return RouteDashboard
	default:
		return RouteLogin
	}
}

func routeAllowed(state domain.AccessState, path string) bool {
	path = strings.SplitN(path, "?", 2)[0]
	for _, route := range allowedRoutes[state] {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}
