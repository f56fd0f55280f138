package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/stygo/stygo-backend/internal/handler"    // import the handlers that implement business logic
	"github.com/stygo/stygo-backend/internal/middleware" // import middleware for JWT authentication
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.  The optional limit middleware
// throttles the credential and code endpoints; pass nil to disable it.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	// Create a route group under the /v1/auth prefix for operations that do
	// not require an existing session.  Each of these handlers either sends
	// a one-time code or exchanges credentials for tokens, so they all sit
	// behind the rate limiter when one is configured.
	g := e.Group("/v1/auth")
	if limit != nil {
		g.Use(limit)
	}
	// Request a login code for a phone number at /v1/auth/send-otp.
	g.POST("/send-otp", a.SendOTP)
	// Exchange a phone number and code for tokens at /v1/auth/verify-otp.
	// This creates the account on first use.
	g.POST("/verify-otp", a.VerifyOTP)
	// Password login and signup share /v1/auth/login; the `is_signup` flag
	// in the body selects registration.
	g.POST("/login", a.Login)
	// Start and complete the password reset flow.  The request endpoint
	// answers identically whether or not the account exists.
	g.POST("/password-reset-request", a.RequestReset)
	g.POST("/password-reset-confirm", a.ConfirmReset)
	// Issue a new access token from a refresh token.  Nothing is stored
	// server-side, so there is no logout counterpart.
	g.POST("/refresh-access", a.RefreshAccess)

	// Create another group for routes that require a valid access token.  All
	// handlers registered on this group will execute the JWTAuth middleware
	// before being invoked.  Protected endpoints live under /v1.
	auth := e.Group("/v1")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Register a GET endpoint at /v1/me that returns the authenticated user's information.
	auth.GET("/me", a.Me)
}
