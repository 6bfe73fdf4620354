// Package router wires handlers, middleware and route groups onto the
// Echo instance. Public browsing and guest booking need no token; guest
// and captain groups sit behind JWT and role middleware; the booking
// routes additionally carry the rate limiter.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/amodallal/fishing-backend/internal/config"
	"github.com/amodallal/fishing-backend/internal/handler"
	"github.com/amodallal/fishing-backend/internal/middleware"
	"github.com/amodallal/fishing-backend/internal/model"
)

// Handlers groups everything the router needs to register.
type Handlers struct {
	Auth         *handler.AuthHandler
	Boats        *handler.BoatHandler
	Trips        *handler.TripHandler
	Reservations *handler.ReservationHandler
}

// Register mounts every route under /api.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client, rl config.RateLimitConfig) {
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")
	limited := middleware.RateLimit(rdb, rl)

	// auth
	auth := api.Group("/auth")
	auth.POST("/register-captain", h.Auth.RegisterCaptain)
	auth.POST("/register-guest", h.Auth.RegisterGuest)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	// public browsing
	api.GET("/trips", h.Trips.ListOpen)
	api.GET("/trips/:id", h.Trips.Get)
	api.GET("/boats", h.Boats.ListAll)
	api.GET("/boats/:id", h.Boats.Get)

	// anonymous booking, throttled per IP
	api.POST("/reservations/guest/trip/:tripId", h.Reservations.BookGuest, limited)

	// any authenticated user
	authed := api.Group("")
	authed.Use(middleware.JWTAuth(jwtSecret))
	authed.Use(middleware.RequireRole(model.RoleCaptain, model.RoleGuest))
	authed.GET("/auth/me", h.Auth.Me)
	authed.POST("/auth/logout", h.Auth.Logout)
	authed.DELETE("/reservations/:id", h.Reservations.Cancel)

	// registered guests
	guest := api.Group("")
	guest.Use(middleware.JWTAuth(jwtSecret))
	guest.Use(middleware.RequireRole(model.RoleGuest))
	guest.POST("/reservations/trip/:tripId", h.Reservations.BookMine, limited)
	guest.GET("/reservations/my-reservations", h.Reservations.ListMine)
	guest.GET("/reservations/:id", h.Reservations.GetMine)

	// captains
	captain := api.Group("")
	captain.Use(middleware.JWTAuth(jwtSecret))
	captain.Use(middleware.RequireRole(model.RoleCaptain))
	captain.POST("/boats", h.Boats.Create)
	captain.GET("/boats/my-boats", h.Boats.ListMine)
	captain.PUT("/boats/:id", h.Boats.Update)
	captain.DELETE("/boats/:id", h.Boats.Delete)
	captain.POST("/trips", h.Trips.Create)
	captain.PUT("/trips/:id", h.Trips.Update)
	captain.GET("/trips/my-trips", h.Trips.ListMine)
	captain.GET("/trips/:id/reservations", h.Trips.ListReservations)
	captain.PUT("/trips/:id/cancel", h.Trips.Cancel)
}
