package domain

// RouteDecision is the outcome of gating a client route on the session
type RouteDecision struct {
	Path       string `json:"path"`
	Allowed    bool   `json:"allowed"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// ResolveRoute applies the route guards to an observed session. ok is false for
// paths the client does not serve. The caller must not resolve while the
// snapshot is still loading.
func ResolveRoute(path string, snapshot SessionSnapshot) (decision RouteDecision, ok bool) {
	signedIn := snapshot.Authenticated()
	decision = RouteDecision{Path: path, Allowed: true}

	switch path {
	case RouteRoot:
		decision.Allowed = false
		decision.RedirectTo = RouteLogin
		if signedIn {
			decision.RedirectTo = RouteDashboard
		}
	case RouteLogin, RouteSignup:
		if signedIn {
			decision.Allowed = false
			decision.RedirectTo = RouteDashboard
		}
	case RouteDashboard, RouteProfile:
		if !signedIn {
			decision.Allowed = false
			decision.RedirectTo = RouteLogin
		}
	case RouteEmailConfirmation, RouteForgotPassword, RouteResetPassword:
	default:
		return RouteDecision{Path: path}, false
	}
	return decision, true
}
