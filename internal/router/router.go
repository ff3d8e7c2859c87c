// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tyler2w2/social-media-ai/internal/handler"
	"github.com/tyler2w2/social-media-ai/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes the health check and the public pricing table.
func RegisterRoutes(e *echo.Echo, b *handler.BillingHandler) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
	// Pricing is public so the upgrade page can render before login.
	e.GET("/v1/tiers", b.Tiers)
}

// RegisterAuth registers all authentication-related routes. Register,
// login, the mock OAuth endpoints and refresh live under /v1/auth and
// need no token; /v1/me, /v1/session and logout require a valid access
// token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Simulated provider sign-in; :provider is google or github. No
	// real OAuth handshake takes place.
	g.POST("/oauth/:provider", a.OAuth)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.GET("/session", a.Session)
	auth.POST("/logout", a.Logout)
}

// RegisterAPI registers the authenticated application endpoints: the
// chat conversation, usage counters, the memory log and billing. The
// chat message endpoint additionally runs through the Redis token
// bucket so a scripted client cannot hammer the generator.
func RegisterAPI(e *echo.Echo, jwtSecret string, rl echo.MiddlewareFunc,
	chat *handler.ChatHandler, usage *handler.UsageHandler,
	memory *handler.MemoryHandler, billing *handler.BillingHandler) {

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	auth.GET("/chat/messages", chat.List)
	if rl != nil {
		auth.POST("/chat/messages", chat.Post, rl)
	} else {
		auth.POST("/chat/messages", chat.Post)
	}

	auth.GET("/usage", usage.Get)

	auth.GET("/memory/recent", memory.Recent)
	auth.POST("/memory/copied", memory.Copied)
	auth.GET("/export", memory.Export)

	auth.POST("/billing/checkout", billing.Checkout)
	auth.POST("/billing/portal", billing.Portal)
	auth.GET("/billing/subscription", billing.Subscription)
}

// RegisterWebhook registers the Stripe webhook endpoint. It is
// verified by signature, not by JWT, so it lives outside the /v1
// groups.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/api/stripe/webhook", w.Handle)
}
