package handlers

import (
	"github.com/labstack/echo/v4"

	authMiddleware "payhere_donations/internal/middleware"
)

// Routes groups the handlers mounted on the server
type Routes struct {
	Donations *DonationHandler
	Admin     *AdminHandler
	Auth      *AuthHandler
	Sessions  authMiddleware.SessionVerifier
}

// Register mounts every route on e
func (r Routes) Register(e *echo.Echo) {
	e.GET("/healthz", r.Donations.Health)

	// Public donation flow
	e.GET("/p/:uuid/checkout", r.Donations.CheckoutPage)
	e.GET("/donations/return", r.Donations.ReturnPage)
	e.GET("/donations/cancel", r.Donations.CancelPage)

	api := e.Group("/api")
	api.POST("/donations", r.Donations.Create)
	api.GET("/donations/:uuid/status", r.Donations.Status)
	api.GET("/config/payhere", r.Donations.PayHereConfig)
	api.POST("/payhere/notify", r.Donations.Notify)

	e.POST("/auth/login", r.Auth.HandleLogin)
	e.POST("/auth/logout", r.Auth.HandleLogout)

	admin := e.Group("/admin")
	admin.Use(authMiddleware.RequireAuth(r.Sessions))
	admin.GET("/donations", r.Admin.ListDonations)
}
