package domain

// Routes the client is sent to after a flow completes
const (
	RouteRoot              = "/"
	RouteLogin             = "/login"
	RouteSignup            = "/signup"
	RouteEmailConfirmation = "/email-confirmation"
	RouteForgotPassword    = "/forgot-password"
	RouteResetPassword     = "/reset-password"
	RouteDashboard         = "/dashboard"
	RouteProfile           = "/profile"
)

// ActionResult is the outcome of a flow that produced no other data
type ActionResult struct {
	Message   string       `json:"message"`
	NextRoute string       `json:"next_route,omitempty"`
	State     AccountState `json:"state"`
	// Warning carries a non-fatal failure, e.g. a remote sign-out error
	Warning string `json:"warning,omitempty"`
}

// RegistrationResult is the outcome of a successful registration
type RegistrationResult struct {
	Identity  Identity     `json:"identity"`
	Message   string       `json:"message"`
	NextRoute string       `json:"next_route"`
	State     AccountState `json:"state"`
}
